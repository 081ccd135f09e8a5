package visitor

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// SQLRepository stores visitors in the SQLite visitors table.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository creates a visitor repository.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const selectColumns = `id, name, company, email, phone, host_name, host_email, arrival_date, arrival_time,
	purpose, car_registration, status, badge_number, check_in_time, check_out_time, qr_payload, created_at`

// Insert adds a visitor with its caller-assigned ID.
func (r *SQLRepository) Insert(v *Visitor) (*Visitor, error) {
	if !v.Status.IsValid() {
		return nil, fmt.Errorf("invalid visitor status: %q", v.Status)
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(
		`INSERT INTO visitors (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, v.Company, v.Email, v.Phone, v.HostName, v.HostEmail, v.ArrivalDate, v.ArrivalTime,
		v.Purpose, v.CarRegistration, v.Status, v.BadgeNumber, nullTime(v.CheckInTime), nullTime(v.CheckOutTime),
		v.QRPayload, v.CreatedAt,
	)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) {
			switch se.ExtendedCode {
			case sqlite3.ErrConstraintPrimaryKey:
				return nil, fmt.Errorf("%w: %s", ErrDuplicateID, v.ID)
			case sqlite3.ErrConstraintUnique:
				return nil, fmt.Errorf("%w: %s", ErrBadgeInUse, deref(v.BadgeNumber))
			}
		}
		return nil, fmt.Errorf("inserting visitor: %w", err)
	}

	return r.Get(v.ID)
}

// Get returns a visitor by ID.
func (r *SQLRepository) Get(id string) (*Visitor, error) {
	row := r.db.QueryRow(`SELECT `+selectColumns+` FROM visitors WHERE id = ?`, id)

	v, err := scanVisitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying visitor %s: %w", id, err)
	}
	return v, nil
}

// Update writes the mutable lifecycle fields of v.
func (r *SQLRepository) Update(v *Visitor) error {
	result, err := r.db.Exec(
		`UPDATE visitors SET status = ?, badge_number = ?, check_in_time = ?, check_out_time = ? WHERE id = ?`,
		v.Status, v.BadgeNumber, nullTime(v.CheckInTime), nullTime(v.CheckOutTime), v.ID,
	)
	if err != nil {
		return fmt.Errorf("updating visitor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, v.ID)
	}
	return nil
}

// List returns visitors newest first, optionally filtered by status.
func (r *SQLRepository) List(opts ListOptions) (visitors []*Visitor, err error) {
	query := `SELECT ` + selectColumns + ` FROM visitors`
	var args []interface{}
	var conditions []string

	if opts.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, opts.Status)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing visitors: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning visitor: %w", err)
		}
		visitors = append(visitors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating visitors: %w", err)
	}

	return visitors, nil
}

// Delete removes a visitor by ID.
func (r *SQLRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM visitors WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting visitor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanVisitor(s scanner) (*Visitor, error) {
	var v Visitor
	var purpose, carReg, badge, payload sql.NullString
	var checkIn, checkOut sql.NullTime

	err := s.Scan(
		&v.ID, &v.Name, &v.Company, &v.Email, &v.Phone, &v.HostName, &v.HostEmail,
		&v.ArrivalDate, &v.ArrivalTime, &purpose, &carReg, &v.Status, &badge,
		&checkIn, &checkOut, &payload, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.Purpose = nullString(purpose)
	v.CarRegistration = nullString(carReg)
	v.BadgeNumber = nullString(badge)
	v.QRPayload = nullString(payload)
	if checkIn.Valid {
		t := checkIn.Time
		v.CheckInTime = &t
	}
	if checkOut.Valid {
		t := checkOut.Time
		v.CheckOutTime = &t
	}

	return &v, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
