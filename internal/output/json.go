// internal/output/json.go
package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vexflow/mediaspider/pkg/types"
)

// JSONWriter writes results as a JSON array, one document per Write
// batch appended to the in-memory set until Close.
type JSONWriter struct {
	file    *os.File
	results []*types.ExtractionResult
	closed  bool
}

// NewJSONWriter creates a JSON writer. An empty filename writes to
// stdout.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if filename == "" {
		return &JSONWriter{file: os.Stdout}, nil
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &JSONWriter{file: file}, nil
}

// Write buffers a batch of results.
func (w *JSONWriter) Write(results []*types.ExtractionResult) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	for _, r := range results {
		r.Normalize()
	}
	w.results = append(w.results, results...)
	return nil
}

// Close encodes the buffered results and releases the file.
func (w *JSONWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.results == nil {
		w.results = []*types.ExtractionResult{}
	}
	encoder := json.NewEncoder(w.file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(w.results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if w.file != os.Stdout {
		return w.file.Close()
	}
	return nil
}
