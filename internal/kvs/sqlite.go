package kvs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS attrs (
	path  TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
`

// SQLite is a durable single-node Store backed by a SQLite database.
// Suitable for a jobmeta instance that owns its own metadata file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path.
//
// The connection is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// SQLite supports one writer at a time, so the pool is limited to a
// single connection. Idempotent; safe to call on an existing file.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Get retrieves the value stored at path.
func (s *SQLite) Get(ctx context.Context, path string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM attrs WHERE path = ?", path).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", path, err)
	}
	return value, nil
}

// Put stores value at path, overwriting any existing value.
func (s *SQLite) Put(ctx context.Context, path string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO attrs (path, value) VALUES (?, ?) ON CONFLICT(path) DO UPDATE SET value = excluded.value",
		path, value)
	if err != nil {
		return fmt.Errorf("put %q: %w", path, err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
