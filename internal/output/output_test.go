// internal/output/output_test.go
package output

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vexflow/mediaspider/internal/config"
	"github.com/vexflow/mediaspider/pkg/types"
)

func sampleResult() *types.ExtractionResult {
	return &types.ExtractionResult{
		URL:          "https://example.com/watch",
		Title:        "Sample",
		Thumbnail:    "https://cdn.test/c.jpg",
		ParseTime:    12,
		PlayURLs:     []string{"https://cdn.test/v.m3u8"},
		DownloadURLs: []string{"https://cdn.test/v.mp4"},
		Metadata:     map[string]string{"quality": "720p"},
	}
}

func TestJSONWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	w, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	if err := w.Write([]*types.ExtractionResult{sampleResult()}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	var decoded []*types.ExtractionResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Title != "Sample" {
		t.Errorf("unexpected decoded results %v", decoded)
	}
}

func TestJSONWriterEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")

	w, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("expected empty array, got %q", string(data))
	}
}

func TestJSONWriterRejectsWriteAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.json")
	w, _ := NewJSONWriter(path)
	w.Close()

	if err := w.Write([]*types.ExtractionResult{sampleResult()}); err == nil {
		t.Error("expected an error writing to a closed writer")
	}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	if err := w.Write([]*types.ExtractionResult{sampleResult()}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(rows))
	}
	if rows[0][0] != "url" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][1] != "Sample" {
		t.Errorf("unexpected title cell %q", rows[1][1])
	}
	if rows[1][5] != "https://cdn.test/v.m3u8" {
		t.Errorf("unexpected play_urls cell %q", rows[1][5])
	}
	if rows[1][7] != "quality=720p" {
		t.Errorf("unexpected metadata cell %q", rows[1][7])
	}
}

func TestSQLiteWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.sqlite")

	w, err := NewSQLiteWriter(path, "extraction_results")
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}

	if err := w.Write([]*types.ExtractionResult{sampleResult(), sampleResult()}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	count, err := w.Count()
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 rows, got %d", count)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("double close must be a no-op, got %v", err)
	}
}

func TestSQLiteWriterRequiresPathAndTable(t *testing.T) {
	if _, err := NewSQLiteWriter("", "t"); err == nil {
		t.Error("expected an error for an empty path")
	}
	if _, err := NewSQLiteWriter("x.db", ""); err == nil {
		t.Error("expected an error for an empty table")
	}
}

func TestManagerDispatch(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		format string
		file   string
	}{
		{"json", filepath.Join(dir, "m.json")},
		{"csv", filepath.Join(dir, "m.csv")},
		{"sqlite", filepath.Join(dir, "m.sqlite")},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			m, err := NewManager(&config.OutputConfig{Format: tt.format, File: tt.file, Table: "results"})
			if err != nil {
				t.Fatalf("failed to create manager: %v", err)
			}
			if err := m.Write([]*types.ExtractionResult{sampleResult()}); err != nil {
				t.Fatalf("write failed: %v", err)
			}
			if _, err := os.Stat(tt.file); err != nil {
				t.Errorf("expected output file: %v", err)
			}
		})
	}
}

func TestManagerUnknownFormat(t *testing.T) {
	m, err := NewManager(&config.OutputConfig{Format: "parquet"})
	if err != nil {
		t.Fatalf("manager construction should not fail: %v", err)
	}
	if _, err := m.GetWriter(); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}

func TestManagerRequiresConfig(t *testing.T) {
	if _, err := NewManager(nil); err == nil {
		t.Error("expected an error for nil configuration")
	}
}
