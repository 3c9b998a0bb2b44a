package storage

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// NewPostgres connects to postgres with a lib/pq connection string or URL.
func NewPostgres(connStr string, logger *slog.Logger) (*SQL, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s, err := newSQL(db, dialectPostgres, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
