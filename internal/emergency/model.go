// Package emergency tracks site emergencies and drills and produces the
// roll call of visitors on site.
package emergency

import (
	"errors"
	"time"
)

// Type is the kind of emergency.
type Type string

const (
	TypeFire       Type = "fire"
	TypeEvacuation Type = "evacuation"
	TypeDrill      Type = "drill"
	TypeLockdown   Type = "lockdown"
	TypeOther      Type = "other"
)

// Severity grades an emergency.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Status is the state of a session.
type Status string

const (
	StatusActive   Status = "active"
	StatusResolved Status = "resolved"
)

var (
	// ErrActiveSession is returned when starting a session while one is active.
	ErrActiveSession = errors.New("an emergency session is already active")

	// ErrNoActiveSession is returned when no session is active.
	ErrNoActiveSession = errors.New("no active emergency session")

	// ErrInvalidInput is returned when a session has an unknown type or severity.
	ErrInvalidInput = errors.New("invalid emergency session")

	// ErrDuplicateID is returned when inserting a session whose ID already exists.
	ErrDuplicateID = errors.New("emergency session id already exists")
)

// IsValid checks if an emergency type is recognized.
func (t Type) IsValid() bool {
	switch t {
	case TypeFire, TypeEvacuation, TypeDrill, TypeLockdown, TypeOther:
		return true
	}
	return false
}

// IsValid checks if a severity is recognized.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Session describes an emergency or drill at the site.
type Session struct {
	ID                 string     `json:"id"`
	Type               Type       `json:"type"`
	Severity           Severity   `json:"severity"`
	Status             Status     `json:"status"`
	Location           string     `json:"location"`
	EvacuationRequired bool       `json:"evacuation_required"`
	Notes              string     `json:"notes,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
}

// StartInput holds the fields needed to start a session.
type StartInput struct {
	Type               Type     `json:"type"`
	Severity           Severity `json:"severity"`
	Location           string   `json:"location"`
	EvacuationRequired bool     `json:"evacuation_required"`
	Notes              string   `json:"notes,omitempty"`
}
