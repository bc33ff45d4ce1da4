package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Database wraps the SQL handle so callers never touch the driver name.
type Database struct {
	DB *sql.DB
}

// New opens (and creates if needed) the SQLite telemetry database at path.
// The connection pool is capped at one: SQLite has a single writer, and the
// batch writer is the only component issuing writes.
func New(path string) (*Database, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	handle.SetMaxOpenConns(1)
	handle.SetConnMaxLifetime(time.Hour)

	return &Database{DB: handle}, nil
}

// Close releases the underlying handle.
func (d *Database) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
