package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "creates new database",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "kiosk.db")
			},
		},
		{
			name: "creates nested directories",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "a", "b", "kiosk.db")
			},
		},
		{
			name: "opens existing database",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "kiosk.db")
				d, err := Open(path)
				if err != nil {
					t.Fatalf("setup: %v", err)
				}
				if err := d.Close(); err != nil {
					t.Fatalf("setup close: %v", err)
				}
				return path
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			d, err := Open(path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer func() {
				if err := d.Close(); err != nil {
					t.Errorf("close: %v", err)
				}
			}()

			if _, err := os.Stat(path); os.IsNotExist(err) {
				t.Error("database file was not created")
			}
		})
	}
}

func TestWALMode(t *testing.T) {
	d := openTestDB(t)

	var mode string
	if err := d.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}

func TestForeignKeys(t *testing.T) {
	d := openTestDB(t)

	var fk int
	if err := d.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestPragmasOnEveryConnection(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	// Hold several connections at once so the pool has to open new ones.
	var conns []*sql.Conn
	for i := 0; i < 3; i++ {
		c, err := d.Conn(ctx)
		if err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		conns = append(conns, c)
	}
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()

	for i, c := range conns {
		var fk, timeout int
		if err := c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("conn %d foreign_keys: %v", i, err)
		}
		if err := c.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("conn %d busy_timeout: %v", i, err)
		}
		if fk != 1 || timeout != busyTimeoutMS {
			t.Errorf("conn %d: foreign_keys = %d, busy_timeout = %d", i, fk, timeout)
		}
	}
}

func TestMigrations(t *testing.T) {
	tests := []struct {
		name  string
		table string
		cols  []string
	}{
		{
			name:  "visitors table exists",
			table: "visitors",
			cols:  []string{"id", "name", "company", "email", "phone", "host_name", "host_email", "arrival_date", "arrival_time", "purpose", "car_registration", "status", "badge_number", "check_in_time", "check_out_time", "qr_payload", "created_at"},
		},
		{
			name:  "emergency_sessions table exists",
			table: "emergency_sessions",
			cols:  []string{"id", "type", "severity", "status", "location", "evacuation_required", "notes", "started_at", "resolved_at"},
		},
		{
			name:  "notification_logs table exists",
			table: "notification_logs",
			cols:  []string{"id", "kind", "visitor_id", "recipient", "subject", "body", "status", "error", "created_at"},
		},
		{
			name:  "api_keys table exists",
			table: "api_keys",
			cols:  []string{"id", "name", "key_prefix", "key_hash", "created_at", "last_used_at", "revoked"},
		},
	}

	d := openTestDB(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := tableColumns(t, d, tt.table)
			if len(cols) != len(tt.cols) {
				t.Fatalf("got %d columns, want %d: %v", len(cols), len(tt.cols), cols)
			}
			for i, want := range tt.cols {
				if cols[i] != want {
					t.Errorf("column %d = %q, want %q", i, cols[i], want)
				}
			}
		})
	}
}

func TestStatusConstraint(t *testing.T) {
	d := openTestDB(t)

	insert := `INSERT INTO visitors (id, name, company, email, host_name, arrival_date, status, created_at)
		VALUES (?, 'John Smith', 'Acme', 'john@acme.com', 'Jane Doe', '2026-10-19', ?, CURRENT_TIMESTAMP)`

	tests := []struct {
		name    string
		status  string
		wantErr bool
	}{
		{"pre-registered is valid", "pre-registered", false},
		{"checked-in is valid", "checked-in", false},
		{"checked-out is valid", "checked-out", false},
		{"unknown is invalid", "arrived", true},
		{"empty is invalid", "", true},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Exec(insert, fmt.Sprintf("v-%d", i), tt.status)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestActiveBadgeUnique(t *testing.T) {
	d := openTestDB(t)

	insert := `INSERT INTO visitors (id, name, company, email, host_name, arrival_date, status, badge_number, created_at)
		VALUES (?, 'John Smith', 'Acme', 'john@acme.com', 'Jane Doe', '2026-10-19', ?, ?, CURRENT_TIMESTAMP)`

	if _, err := d.Exec(insert, "a", "checked-in", "V001"); err != nil {
		t.Fatalf("insert first: %v", err)
	}
	if _, err := d.Exec(insert, "b", "checked-in", "V001"); err == nil {
		t.Error("expected error for duplicate active badge")
	}
	// checked-out rows keep the badge they held
	if _, err := d.Exec(insert, "c", "checked-out", "V001"); err != nil {
		t.Errorf("checked-out duplicate badge: %v", err)
	}
}

func TestSingleActiveEmergency(t *testing.T) {
	d := openTestDB(t)

	insert := `INSERT INTO emergency_sessions (id, type, severity, status, started_at) VALUES (?, 'drill', 'low', ?, CURRENT_TIMESTAMP)`

	if _, err := d.Exec(insert, "e1", "active"); err != nil {
		t.Fatalf("insert first: %v", err)
	}
	if _, err := d.Exec(insert, "e2", "active"); err == nil {
		t.Error("expected error for second active session")
	}
	if _, err := d.Exec(insert, "e3", "resolved"); err != nil {
		t.Errorf("resolved session: %v", err)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kiosk.db")

	// Open twice; migrations should not fail on the second run
	d1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := d1.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	d2, err := Open(path)
	if err != nil {
		t.Fatalf("second open (idempotency): %v", err)
	}
	if err := d2.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestDefaultPath(t *testing.T) {
	p, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filepath.Base(p) != "kiosk.db" {
		t.Errorf("expected filename kiosk.db, got %s", filepath.Base(p))
	}

	dir := filepath.Base(filepath.Dir(p))
	if dir != "kiosk" {
		t.Errorf("expected directory kiosk, got %s", dir)
	}
}

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kiosk.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close test db: %v", err)
		}
	})
	return d
}

// tableColumns returns column names for a table using PRAGMA table_info.
func tableColumns(t *testing.T, d *sql.DB, table string) []string {
	t.Helper()
	rows, err := d.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		t.Fatalf("pragma table_info(%s): %v", table, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			t.Errorf("close rows: %v", err)
		}
	}()

	var cols []string
	for rows.Next() {
		var cid int
		var name, typ string
		var notnull int
		var dflt *string
		var pk int
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("scan: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}
