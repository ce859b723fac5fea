// Package db persists finished relay sessions in SQLite.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Database wraps the SQLite connection.
type Database struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. WAL keeps readers from
// blocking the single writer; the pool is pinned to one connection since
// SQLite allows one writer at a time.
func Open(path string) (*Database, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db}, nil
}

// Initialize creates the session history schema.
func (d *Database) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		client_addr TEXT NOT NULL,
		upstream_port INTEGER DEFAULT 0,
		bytes_up INTEGER DEFAULT 0,
		bytes_down INTEGER DEFAULT 0,
		packets_up INTEGER DEFAULT 0,
		packets_down INTEGER DEFAULT 0,
		start_time DATETIME NOT NULL,
		end_time DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_client_addr ON sessions(client_addr);
	CREATE INDEX IF NOT EXISTS idx_sessions_start_time ON sessions(start_time);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// DB returns the underlying sql.DB for use by repositories.
func (d *Database) DB() *sql.DB {
	return d.db
}
