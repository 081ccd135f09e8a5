// Package notify records host and emergency notifications and delivers
// them by email and to the event queue.
package notify

import (
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Kind is the kind of notification.
type Kind string

const (
	KindArrival   Kind = "arrival"
	KindDeparture Kind = "departure"
	KindEmergency Kind = "emergency"
)

// Delivery status of a notification.
const (
	StatusSent   = "sent"
	StatusLogged = "logged"
	StatusFailed = "failed"
)

// Entry is one notification log record.
type Entry struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	VisitorID string    `json:"visitor_id,omitempty"`
	Recipient string    `json:"recipient,omitempty"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Log persists notification entries.
type Log interface {
	Append(e *Entry) error
	List(limit int) ([]*Entry, error)
}

// SQLLog stores entries in the notification_logs table.
type SQLLog struct {
	db *sql.DB
}

// NewSQLLog creates a SQLite-backed notification log.
func NewSQLLog(db *sql.DB) *SQLLog {
	return &SQLLog{db: db}
}

// Append inserts an entry.
func (l *SQLLog) Append(e *Entry) error {
	_, err := l.db.Exec(
		`INSERT INTO notification_logs (id, kind, visitor_id, recipient, subject, body, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.VisitorID, e.Recipient, e.Subject, e.Body, e.Status, e.Error, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// List returns the newest entries first. A limit of 0 returns all.
func (l *SQLLog) List(limit int) (entries []*Entry, err error) {
	query := `SELECT id, kind, visitor_id, recipient, subject, body, status, error, created_at
		FROM notification_logs ORDER BY created_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.VisitorID, &e.Recipient, &e.Subject, &e.Body,
			&e.Status, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notifications: %w", err)
	}
	return entries, nil
}

// MemoryLog is an in-process Log.
type MemoryLog struct {
	mu      sync.Mutex
	entries []*Entry
}

// Append records a copy of e.
func (l *MemoryLog) Append(e *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := *e
	l.entries = append(l.entries, &c)
	return nil
}

// List returns the newest entries first.
func (l *MemoryLog) List(limit int) ([]*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*Entry
	for i := len(l.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		c := *l.entries[i]
		out = append(out, &c)
	}
	return out, nil
}
