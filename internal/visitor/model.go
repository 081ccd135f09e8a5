// Package visitor provides the visitor domain model, the registration and
// check-in/check-out flows, and visitor data access.
package visitor

import (
	"errors"
	"time"
)

// Status represents where a visitor is in the visit lifecycle.
type Status string

const (
	StatusPreRegistered Status = "pre-registered"
	StatusCheckedIn     Status = "checked-in"
	StatusCheckedOut    Status = "checked-out"
)

// ValidStatuses is the set of allowed visitor statuses, in lifecycle order.
var ValidStatuses = []Status{StatusPreRegistered, StatusCheckedIn, StatusCheckedOut}

// IsValid checks if a status is recognized.
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the status badge.
func (s Status) Label() string {
	switch s {
	case StatusPreRegistered:
		return "Pre-registered"
	case StatusCheckedIn:
		return "Checked in"
	case StatusCheckedOut:
		return "Checked out"
	default:
		return string(s)
	}
}

var (
	// ErrNotFound is returned when no visitor matches the lookup.
	ErrNotFound = errors.New("visitor not found")

	// ErrInvalidTransition is returned when a flow is asked to move a visitor
	// to a status that does not follow its current one.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateID is returned when inserting a visitor whose ID already exists.
	ErrDuplicateID = errors.New("visitor id already exists")

	// ErrBadgeInUse is returned when a write would give two checked-in
	// visitors the same badge.
	ErrBadgeInUse = errors.New("badge number already in use")
)

// Visitor represents one visit instance.
type Visitor struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Company         string     `json:"company"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	HostName        string     `json:"host_name"`
	HostEmail       string     `json:"host_email,omitempty"`
	ArrivalDate     string     `json:"arrival_date"` // YYYY-MM-DD
	ArrivalTime     string     `json:"arrival_time"` // HH:MM
	Purpose         *string    `json:"purpose,omitempty"`
	CarRegistration *string    `json:"car_registration,omitempty"`
	Status          Status     `json:"status"`
	BadgeNumber     *string    `json:"badge_number,omitempty"`
	CheckInTime     *time.Time `json:"check_in_time,omitempty"`
	CheckOutTime    *time.Time `json:"check_out_time,omitempty"`
	QRPayload       *string    `json:"qr_payload,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Input holds the fields a visitor supplies at registration or walk-in.
type Input struct {
	Name            string `json:"name"`
	Company         string `json:"company"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	HostName        string `json:"host_name"`
	HostEmail       string `json:"host_email,omitempty"`
	ArrivalDate     string `json:"arrival_date"`
	ArrivalTime     string `json:"arrival_time"`
	Purpose         string `json:"purpose,omitempty"`
	CarRegistration string `json:"car_registration,omitempty"`
}

// Result is returned by the check-in and check-out flows. AlreadyDone is set
// when the visitor was already in the target status and nothing changed.
type Result struct {
	Visitor     *Visitor `json:"visitor"`
	AlreadyDone bool     `json:"already_done"`
}

// ListOptions controls filtering for List.
type ListOptions struct {
	Status Status // empty = all
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
