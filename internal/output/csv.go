// internal/output/csv.go
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/vexflow/mediaspider/pkg/types"
)

// csvHeader is the fixed column set for CSV output. Multi-valued
// fields are joined with "|", metadata as key=value pairs joined
// with ";".
var csvHeader = []string{
	"url", "title", "thumbnail", "parse_time_ms", "error",
	"play_urls", "download_urls", "metadata",
}

// CSVWriter writes results as flat CSV rows.
type CSVWriter struct {
	file        *os.File
	writer      *csv.Writer
	wroteHeader bool
	closed      bool
}

// NewCSVWriter creates a CSV writer. An empty filename writes to
// stdout.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if filename == "" {
		return &CSVWriter{file: os.Stdout, writer: csv.NewWriter(os.Stdout)}, nil
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &CSVWriter{file: file, writer: csv.NewWriter(file)}, nil
}

// Write appends one row per result.
func (w *CSVWriter) Write(results []*types.ExtractionResult) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	if !w.wroteHeader {
		if err := w.writer.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
		w.wroteHeader = true
	}

	for _, r := range results {
		r.Normalize()
		row := []string{
			r.URL,
			r.Title,
			r.Thumbnail,
			strconv.FormatInt(r.ParseTime, 10),
			r.Error,
			strings.Join(r.PlayURLs, "|"),
			strings.Join(r.DownloadURLs, "|"),
			flattenMetadata(r.Metadata),
		}
		if err := w.writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes and releases the file.
func (w *CSVWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return err
	}
	if w.file != os.Stdout {
		return w.file.Close()
	}
	return nil
}

// flattenMetadata renders metadata deterministically, keys sorted.
func flattenMetadata(metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+metadata[key])
	}
	return strings.Join(pairs, ";")
}
