// internal/output/manager.go
package output

import (
	"fmt"

	"github.com/vexflow/mediaspider/internal/config"
	"github.com/vexflow/mediaspider/pkg/types"
)

// Manager dispatches results to the configured output format.
type Manager struct {
	config *Config
}

// NewManager creates an output manager from configuration.
func NewManager(cfg *config.OutputConfig) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("output configuration is required")
	}

	return &Manager{
		config: &Config{
			Format: Format(cfg.Format),
			File:   cfg.File,
			Table:  cfg.Table,
		},
	}, nil
}

// GetWriter returns the writer for the configured format.
func (m *Manager) GetWriter() (Writer, error) {
	switch m.config.Format {
	case FormatJSON:
		return NewJSONWriter(m.config.File)
	case FormatCSV:
		return NewCSVWriter(m.config.File)
	case FormatSQLite:
		return NewSQLiteWriter(m.config.File, m.config.Table)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", m.config.Format)
	}
}

// Write writes results using the configured format.
func (m *Manager) Write(results []*types.ExtractionResult) error {
	writer, err := m.GetWriter()
	if err != nil {
		return fmt.Errorf("failed to get writer: %w", err)
	}
	defer writer.Close()

	return writer.Write(results)
}
