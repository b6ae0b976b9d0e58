// pkg/types/types.go
package types

import (
	"encoding/json"
	"fmt"
)

// DefaultTitle is the sentinel returned when no title rule matches.
const DefaultTitle = "unknown title"

// ExtractionResult is the interchange record produced by one extraction
// pass over a document. Field names are part of the wire contract and
// must not change.
type ExtractionResult struct {
	URL          string            `json:"url"`
	Title        string            `json:"title"`
	Content      string            `json:"content"`
	Thumbnail    string            `json:"thumbnail"`
	ParseTime    int64             `json:"parseTime"`
	Error        string            `json:"error"`
	PlayURLs     []string          `json:"playUrls"`
	DownloadURLs []string          `json:"downloadUrls"`
	Metadata     map[string]string `json:"metadata"`
}

// Normalize replaces nil collections with empty ones so that encoding
// always yields [] and {} rather than null.
func (r *ExtractionResult) Normalize() {
	if r.PlayURLs == nil {
		r.PlayURLs = []string{}
	}
	if r.DownloadURLs == nil {
		r.DownloadURLs = []string{}
	}
	if r.Metadata == nil {
		r.Metadata = map[string]string{}
	}
}

// Encode serializes the result to its interchange JSON form.
func (r *ExtractionResult) Encode() (string, error) {
	r.Normalize()
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode extraction result: %w", err)
	}
	return string(data), nil
}

// DecodeExtractionResult parses an interchange JSON record.
func DecodeExtractionResult(data string) (*ExtractionResult, error) {
	var r ExtractionResult
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("failed to decode extraction result: %w", err)
	}
	r.Normalize()
	return &r, nil
}

// HTTPResponseRecord is the structured outcome of one HTTP round trip.
// Status holds the protocol status code on success and a value <= 0 on
// transport failure, so callers can branch on status alone.
type HTTPResponseRecord struct {
	Status      int               `json:"status"`
	Data        string            `json:"data"`
	ContentType string            `json:"contentType"`
	Headers     map[string]string `json:"headers"`
	ElapsedMs   int64             `json:"elapsedMs,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// OK reports whether the record represents a completed protocol
// exchange, as opposed to a transport failure.
func (r *HTTPResponseRecord) OK() bool {
	return r.Status > 0
}

// Encode serializes the record to its interchange JSON form.
func (r *HTTPResponseRecord) Encode() (string, error) {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode HTTP response record: %w", err)
	}
	return string(data), nil
}
