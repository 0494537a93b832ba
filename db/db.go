// ABOUTME: Export file management for SQLite snapshots
// ABOUTME: Opens the export in WAL mode, refuses foreign or newer files and stamps the schema version
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is written to PRAGMA user_version of every export file.
const schemaVersion = 1

// ErrNotExport is returned for SQLite files that leadpipe did not write.
var ErrNotExport = errors.New("not a leadpipe export file")

// OpenExport opens or creates the export file at path. Exports clear their
// tables on every run, so an existing file must be an export of a schema
// version this build understands.
func OpenExport(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	// Configure connection pool for SQLite (avoid database locked errors)
	db.SetMaxOpenConns(1)

	if err := checkExportFile(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to stamp schema version: %w", err)
	}

	return db, nil
}

func checkExportFile(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("%w: schema version %d is newer than %d", ErrNotExport, version, schemaVersion)
	}
	if version > 0 {
		return nil
	}

	var tables int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'").Scan(&tables); err != nil {
		return fmt.Errorf("failed to inspect export file: %w", err)
	}
	if tables > 0 {
		return fmt.Errorf("%w: found %d unrelated table(s)", ErrNotExport, tables)
	}
	return nil
}
