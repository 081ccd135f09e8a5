package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS visitors (
		id               TEXT     PRIMARY KEY,
		name             TEXT     NOT NULL,
		company          TEXT     NOT NULL,
		email            TEXT     NOT NULL,
		phone            TEXT     NOT NULL DEFAULT '',
		host_name        TEXT     NOT NULL,
		host_email       TEXT     NOT NULL DEFAULT '',
		arrival_date     TEXT     NOT NULL,
		arrival_time     TEXT     NOT NULL DEFAULT '',
		purpose          TEXT,
		car_registration TEXT,
		status           TEXT     NOT NULL CHECK (status IN ('pre-registered', 'checked-in', 'checked-out')),
		badge_number     TEXT,
		check_in_time    DATETIME,
		check_out_time   DATETIME,
		qr_payload       TEXT,
		created_at       DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visitors_status ON visitors(status)`,
	// A badge may only be held by one checked-in visitor at a time.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_visitors_active_badge
		ON visitors(badge_number) WHERE status = 'checked-in'`,
	`CREATE TABLE IF NOT EXISTS emergency_sessions (
		id                  TEXT     PRIMARY KEY,
		type                TEXT     NOT NULL,
		severity            TEXT     NOT NULL,
		status              TEXT     NOT NULL CHECK (status IN ('active', 'resolved')),
		location            TEXT     NOT NULL DEFAULT '',
		evacuation_required INTEGER  NOT NULL DEFAULT 0,
		notes               TEXT     NOT NULL DEFAULT '',
		started_at          DATETIME NOT NULL,
		resolved_at         DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_emergency_single_active
		ON emergency_sessions(status) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS notification_logs (
		id         TEXT     PRIMARY KEY,
		kind       TEXT     NOT NULL,
		visitor_id TEXT     NOT NULL DEFAULT '',
		recipient  TEXT     NOT NULL DEFAULT '',
		subject    TEXT     NOT NULL,
		body       TEXT     NOT NULL,
		status     TEXT     NOT NULL,
		error      TEXT     NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id           INTEGER  PRIMARY KEY AUTOINCREMENT,
		name         TEXT     NOT NULL,
		key_prefix   TEXT     NOT NULL,
		key_hash     TEXT     NOT NULL UNIQUE,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_used_at DATETIME
	)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Column additions are idempotent: each checks whether the column exists first.
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"api_keys", "revoked", "INTEGER NOT NULL DEFAULT 0"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) (err error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	exists := false
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			exists = true
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating columns: %w", err)
	}
	if exists {
		return nil
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}
