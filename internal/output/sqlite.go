// internal/output/sqlite.go
package output

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/vexflow/mediaspider/pkg/types"
)

// SQLiteWriter persists results to a SQLite database with a fixed
// schema. Multi-valued fields are stored as JSON text.
type SQLiteWriter struct {
	db     *sql.DB
	table  string
	closed bool
}

// NewSQLiteWriter opens (creating if necessary) the database at path
// and ensures the result table exists.
func NewSQLiteWriter(path, table string) (*SQLiteWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("SQLite database path is required")
	}
	if table == "" {
		return nil, fmt.Errorf("SQLite table name is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 10000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	w := &SQLiteWriter{db: db, table: table}
	if err := w.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLiteWriter) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS [` + w.table + `] (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			title TEXT,
			thumbnail TEXT,
			parse_time_ms INTEGER,
			error TEXT,
			play_urls TEXT,
			download_urls TEXT,
			metadata TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`
	if _, err := w.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table '%s': %w", w.table, err)
	}
	return nil
}

// Write inserts results inside a single transaction.
func (w *SQLiteWriter) Write(results []*types.ExtractionResult) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO [%s] (url, title, thumbnail, parse_time_ms, error, play_urls, download_urls, metadata)
		VALUES (%s)`,
		w.table,
		strings.TrimSuffix(strings.Repeat("?,", 8), ","),
	)
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		r.Normalize()
		_, err := stmt.Exec(
			r.URL,
			r.Title,
			r.Thumbnail,
			r.ParseTime,
			r.Error,
			encodeJSON(r.PlayURLs, "[]"),
			encodeJSON(r.DownloadURLs, "[]"),
			encodeJSON(r.Metadata, "{}"),
		)
		if err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", r.URL, err)
		}
	}

	return tx.Commit()
}

// Close closes the database connection.
func (w *SQLiteWriter) Close() error {
	if w.db != nil && !w.closed {
		err := w.db.Close()
		w.db = nil
		w.closed = true
		return err
	}
	return nil
}

// Count returns the number of stored results.
func (w *SQLiteWriter) Count() (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM [%s]", w.table)
	if err := w.db.QueryRow(query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

func encodeJSON(v interface{}, fallback string) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fallback
	}
	return string(data)
}
