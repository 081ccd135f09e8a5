package emergency

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Store persists emergency sessions.
type Store interface {
	Active() (*Session, error)
	Insert(s *Session) error
	Update(s *Session) error
}

// SQLRepository stores sessions in the emergency_sessions table.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository creates an emergency session repository.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const selectColumns = `id, type, severity, status, location, evacuation_required, notes, started_at, resolved_at`

// Insert adds a session. A second active session violates the single-active index.
func (r *SQLRepository) Insert(s *Session) error {
	_, err := r.db.Exec(
		`INSERT INTO emergency_sessions (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Type, s.Severity, s.Status, s.Location, s.EvacuationRequired, s.Notes, s.StartedAt, nullTime(s.ResolvedAt),
	)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) {
			switch se.ExtendedCode {
			case sqlite3.ErrConstraintPrimaryKey:
				return fmt.Errorf("%w: %s", ErrDuplicateID, s.ID)
			case sqlite3.ErrConstraintUnique:
				return ErrActiveSession
			}
		}
		return fmt.Errorf("inserting emergency session: %w", err)
	}
	return nil
}

// Update writes the status and resolution time of s.
func (r *SQLRepository) Update(s *Session) error {
	result, err := r.db.Exec(
		`UPDATE emergency_sessions SET status = ?, resolved_at = ?, notes = ? WHERE id = ?`,
		s.Status, nullTime(s.ResolvedAt), s.Notes, s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating emergency session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("emergency session %s not found", s.ID)
	}
	return nil
}

// Active returns the active session or ErrNoActiveSession.
func (r *SQLRepository) Active() (*Session, error) {
	row := r.db.QueryRow(`SELECT `+selectColumns+` FROM emergency_sessions WHERE status = ?`, StatusActive)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("querying active session: %w", err)
	}
	return s, nil
}

// List returns all sessions, newest first.
func (r *SQLRepository) List() (sessions []*Session, err error) {
	rows, err := r.db.Query(`SELECT ` + selectColumns + ` FROM emergency_sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing emergency sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning emergency session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating emergency sessions: %w", err)
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(sc scanner) (*Session, error) {
	var s Session
	var resolved sql.NullTime
	if err := sc.Scan(&s.ID, &s.Type, &s.Severity, &s.Status, &s.Location, &s.EvacuationRequired,
		&s.Notes, &s.StartedAt, &resolved); err != nil {
		return nil, err
	}
	if resolved.Valid {
		t := resolved.Time
		s.ResolvedAt = &t
	}
	return &s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
