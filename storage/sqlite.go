package storage

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// NewSQLite opens or creates a sqlite database at path. Pass ":memory:"
// for an ephemeral database.
func NewSQLite(path string, logger *slog.Logger) (*SQL, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite allows one writer; a second connection would just trade
	// "database is locked" errors for queueing.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, err
	}

	s, err := newSQL(db, dialectSQLite, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
