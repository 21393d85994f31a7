// Package store is the SQLite persistence layer behind the embedded sync
// engine. Nothing outside internal/engine should touch it directly.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// dsnParams: WAL keeps reads open while the flusher writes, the busy
// timeout covers the brief lock contention that still occurs, and
// foreign keys back the membership and room references in the schema.
const dsnParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// DB is the profile-owned zapzap.db connection. It embeds *sql.DB, so
// the entity files in this package query it directly.
type DB struct {
	*sql.DB
}

// Open connects to the database file at path, creating it if absent,
// and verifies the connection before returning.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{db}, nil
}
