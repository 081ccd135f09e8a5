// Package db opens the server's SQLite database and keeps its schema current.
package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// busyTimeoutMS is how long a connection waits on the single SQLite writer.
const busyTimeoutMS = 5000

// DefaultPath returns ~/.config/kiosk/kiosk.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "kiosk", "kiosk.db"), nil
}

// Open opens the database at path, creating it and its directory when
// missing, and applies pending migrations.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
	}

	conn, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, closeAfter(conn, fmt.Errorf("connecting to %s: %w", path, err))
	}
	if err := migrate(conn); err != nil {
		return nil, closeAfter(conn, fmt.Errorf("running migrations: %w", err))
	}
	return conn, nil
}

// dsn carries the pragmas as go-sqlite3 connection parameters so every
// pooled connection gets them, not only the first.
func dsn(path string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", fmt.Sprint(busyTimeoutMS))
	return path + "?" + q.Encode()
}

func closeAfter(conn *sql.DB, err error) error {
	if closeErr := conn.Close(); closeErr != nil {
		return fmt.Errorf("%w (also failed to close: %v)", err, closeErr)
	}
	return err
}
