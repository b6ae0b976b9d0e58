// internal/output/types.go
package output

import (
	"github.com/vexflow/mediaspider/pkg/types"
)

// Format identifies an output backend.
type Format string

const (
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
	FormatSQLite Format = "sqlite"
)

// Writer persists extraction results. Writers are single-use: Write
// may be called repeatedly, Close flushes and releases the sink.
type Writer interface {
	Write(results []*types.ExtractionResult) error
	Close() error
}

// Config selects the backend and its destination.
type Config struct {
	Format Format
	File   string
	Table  string
}
