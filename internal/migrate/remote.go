// Package migrate copies a kiosk's locally stored visitors and emergency
// session to the central server.
package migrate

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/evcraddock/visitor-kiosk/internal/emergency"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

// Remote accepts migrated records. *client.Client satisfies it.
type Remote interface {
	CreateVisitor(ctx context.Context, v RemoteVisitor) error
	CreateEmergencySession(ctx context.Context, s RemoteEmergencySession) error
}

// RemoteVisitor is the server's import shape for a visitor. Optional
// fields are sent as null when missing.
type RemoteVisitor struct {
	ID              string     `json:"id"`
	FirstName       string     `json:"first_name"`
	LastName        *string    `json:"last_name"`
	Company         string     `json:"company"`
	Email           string     `json:"email"`
	Phone           *string    `json:"phone"`
	HostName        string     `json:"host_name"`
	HostEmail       *string    `json:"host_email"`
	ArrivalDate     string     `json:"arrival_date"`
	ArrivalTime     *string    `json:"arrival_time"`
	Purpose         *string    `json:"purpose"`
	CarRegistration *string    `json:"car_registration"`
	Status          string     `json:"status"`
	BadgeNumber     *string    `json:"badge_number"`
	CheckInTime     *time.Time `json:"check_in_time"`
	CheckOutTime    *time.Time `json:"check_out_time"`
	QRPayload       *string    `json:"qr_payload"`
	CreatedAt       time.Time  `json:"created_at"`
}

// RemoteEmergencySession is the server's import shape for a session.
type RemoteEmergencySession struct {
	ID                 string     `json:"id"`
	Type               string     `json:"type"`
	Severity           string     `json:"severity"`
	Status             string     `json:"status"`
	Location           *string    `json:"location"`
	EvacuationRequired bool       `json:"evacuation_required"`
	Notes              *string    `json:"notes"`
	StartedAt          time.Time  `json:"started_at"`
	ResolvedAt         *time.Time `json:"resolved_at"`
}

// SplitName splits a full name at its first whitespace. The last name is
// empty for a single-word name.
func SplitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	i := strings.IndexFunc(full, unicode.IsSpace)
	if i < 0 {
		return full, ""
	}
	return full[:i], strings.TrimSpace(full[i:])
}

// ToRemoteVisitor maps a local visitor onto the import shape.
func ToRemoteVisitor(v *visitor.Visitor) RemoteVisitor {
	first, last := SplitName(v.Name)
	return RemoteVisitor{
		ID:              v.ID,
		FirstName:       first,
		LastName:        nullable(last),
		Company:         v.Company,
		Email:           v.Email,
		Phone:           nullable(v.Phone),
		HostName:        v.HostName,
		HostEmail:       nullable(v.HostEmail),
		ArrivalDate:     v.ArrivalDate,
		ArrivalTime:     nullable(v.ArrivalTime),
		Purpose:         v.Purpose,
		CarRegistration: v.CarRegistration,
		Status:          string(v.Status),
		BadgeNumber:     v.BadgeNumber,
		CheckInTime:     v.CheckInTime,
		CheckOutTime:    v.CheckOutTime,
		QRPayload:       v.QRPayload,
		CreatedAt:       v.CreatedAt,
	}
}

// Visitor rebuilds the domain record from an imported one.
func (r RemoteVisitor) Visitor() *visitor.Visitor {
	name := r.FirstName
	if r.LastName != nil && *r.LastName != "" {
		name += " " + *r.LastName
	}
	return &visitor.Visitor{
		ID:              r.ID,
		Name:            name,
		Company:         r.Company,
		Email:           r.Email,
		Phone:           value(r.Phone),
		HostName:        r.HostName,
		HostEmail:       value(r.HostEmail),
		ArrivalDate:     r.ArrivalDate,
		ArrivalTime:     value(r.ArrivalTime),
		Purpose:         r.Purpose,
		CarRegistration: r.CarRegistration,
		Status:          visitor.Status(r.Status),
		BadgeNumber:     r.BadgeNumber,
		CheckInTime:     r.CheckInTime,
		CheckOutTime:    r.CheckOutTime,
		QRPayload:       r.QRPayload,
		CreatedAt:       r.CreatedAt,
	}
}

// ToRemoteSession maps a local session onto the import shape.
func ToRemoteSession(s *emergency.Session) RemoteEmergencySession {
	return RemoteEmergencySession{
		ID:                 s.ID,
		Type:               string(s.Type),
		Severity:           string(s.Severity),
		Status:             string(s.Status),
		Location:           nullable(s.Location),
		EvacuationRequired: s.EvacuationRequired,
		Notes:              nullable(s.Notes),
		StartedAt:          s.StartedAt,
		ResolvedAt:         s.ResolvedAt,
	}
}

// Session rebuilds the domain record from an imported one.
func (r RemoteEmergencySession) Session() *emergency.Session {
	return &emergency.Session{
		ID:                 r.ID,
		Type:               emergency.Type(r.Type),
		Severity:           emergency.Severity(r.Severity),
		Status:             emergency.Status(r.Status),
		Location:           value(r.Location),
		EvacuationRequired: r.EvacuationRequired,
		Notes:              value(r.Notes),
		StartedAt:          r.StartedAt,
		ResolvedAt:         r.ResolvedAt,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
