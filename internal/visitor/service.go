package visitor

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/evcraddock/visitor-kiosk/internal/qr"
)

// EventKind names a lifecycle change reported to a Notifier.
type EventKind string

const (
	EventRegistered EventKind = "registered"
	EventCheckedIn  EventKind = "checked_in"
	EventCheckedOut EventKind = "checked_out"
)

// Event describes a completed lifecycle change.
type Event struct {
	Kind    EventKind `json:"kind"`
	Visitor *Visitor  `json:"visitor"`
	At      time.Time `json:"at"`
}

// Notifier receives lifecycle events after they are persisted.
// Errors are logged and never fail the flow.
type Notifier interface {
	Notify(e Event) error
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier registers a Notifier for lifecycle events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithPayloadEncoder overrides the QR payload encoder.
func WithPayloadEncoder(enc func(qr.Payload) (string, error)) Option {
	return func(s *Service) { s.encode = enc }
}

// Service implements the registration, check-in and check-out flows.
// Mutating flows are serialized so badge allocation sees a stable store.
// Notifiers run after the store write, outside that lock.
type Service struct {
	repo     Repository
	notifier Notifier
	now      func() time.Time
	encode   func(qr.Payload) (string, error)
	mu       sync.Mutex
}

// NewService creates a visitor service over repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		now:    time.Now,
		encode: qr.Encode,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Registration is the outcome of a successful registration.
type Registration struct {
	Visitor   *Visitor `json:"visitor"`
	QRPayload string   `json:"qr_payload"`
}

// Register validates input and stores a pre-registered visitor with its QR payload.
func (s *Service) Register(in Input) (*Registration, error) {
	in = in.Normalize()
	now := s.now()
	if err := in.Validate(now); err != nil {
		return nil, err
	}

	reg, err := s.register(in, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventRegistered, reg.Visitor, now)
	return reg, nil
}

func (s *Service) register(in Input, now time.Time) (*Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := newVisitor(in, now)
	v.Status = StatusPreRegistered

	payload, err := s.encode(qr.Payload{
		ID:          v.ID,
		Name:        v.Name,
		Company:     v.Company,
		Email:       v.Email,
		ArrivalDate: v.ArrivalDate,
		ArrivalTime: v.ArrivalTime,
		HostName:    v.HostName,
		Timestamp:   now.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("generating QR payload: %w", err)
	}
	v.QRPayload = &payload

	saved, err := s.repo.Insert(v)
	if err != nil {
		return nil, fmt.Errorf("saving visitor: %w", err)
	}
	return &Registration{Visitor: saved, QRPayload: payload}, nil
}

// CheckInByPayload decodes a scanned QR payload and checks in its visitor.
func (s *Service) CheckInByPayload(raw string) (*Result, error) {
	p, err := qr.Decode(raw)
	if err != nil {
		return nil, err
	}
	return s.CheckIn(p.ID)
}

// CheckIn moves a pre-registered visitor to checked-in and assigns a badge.
// Repeating it for a checked-in visitor returns the existing record unchanged.
func (s *Service) CheckIn(id string) (*Result, error) {
	res, err := s.checkIn(id)
	if err != nil {
		return nil, err
	}
	if !res.AlreadyDone {
		s.emit(EventCheckedIn, res.Visitor, *res.Visitor.CheckInTime)
	}
	return res, nil
}

func (s *Service) checkIn(id string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}

	switch v.Status {
	case StatusCheckedIn:
		return &Result{Visitor: v, AlreadyDone: true}, nil
	case StatusCheckedOut:
		return nil, fmt.Errorf("%w: visitor %s already checked out", ErrInvalidTransition, id)
	}

	badge, err := s.nextBadge()
	if err != nil {
		return nil, err
	}
	now := s.now()
	v.Status = StatusCheckedIn
	v.BadgeNumber = &badge
	v.CheckInTime = &now

	if err := s.repo.Update(v); err != nil {
		return nil, fmt.Errorf("saving check-in: %w", err)
	}
	return &Result{Visitor: v}, nil
}

// WalkIn registers and checks in a visitor in one step. Missing arrival
// date and time default to now.
func (s *Service) WalkIn(in Input) (*Visitor, error) {
	in = in.Normalize()
	now := s.now()
	if in.ArrivalDate == "" {
		in.ArrivalDate = now.Format("2006-01-02")
	}
	if in.ArrivalTime == "" {
		in.ArrivalTime = now.Format("15:04")
	}
	if err := in.Validate(now); err != nil {
		return nil, err
	}

	v, err := s.walkIn(in, now)
	if err != nil {
		return nil, err
	}
	s.emit(EventCheckedIn, v, now)
	return v, nil
}

func (s *Service) walkIn(in Input, now time.Time) (*Visitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	badge, err := s.nextBadge()
	if err != nil {
		return nil, err
	}

	v := newVisitor(in, now)
	v.Status = StatusCheckedIn
	v.BadgeNumber = &badge
	v.CheckInTime = &now

	saved, err := s.repo.Insert(v)
	if err != nil {
		return nil, fmt.Errorf("saving walk-in: %w", err)
	}
	return saved, nil
}

// CheckOut moves a checked-in visitor to checked-out.
// Repeating it for a checked-out visitor returns the existing record unchanged.
func (s *Service) CheckOut(id string) (*Result, error) {
	res, err := s.checkOut(id)
	if err != nil {
		return nil, err
	}
	if !res.AlreadyDone {
		s.emit(EventCheckedOut, res.Visitor, *res.Visitor.CheckOutTime)
	}
	return res, nil
}

func (s *Service) checkOut(id string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}

	switch v.Status {
	case StatusCheckedOut:
		return &Result{Visitor: v, AlreadyDone: true}, nil
	case StatusPreRegistered:
		return nil, fmt.Errorf("%w: visitor %s has not checked in", ErrInvalidTransition, id)
	}

	now := s.now()
	v.Status = StatusCheckedOut
	v.CheckOutTime = &now

	if err := s.repo.Update(v); err != nil {
		return nil, fmt.Errorf("saving check-out: %w", err)
	}
	return &Result{Visitor: v}, nil
}

// Get returns a visitor by ID.
func (s *Service) Get(id string) (*Visitor, error) {
	return s.repo.Get(id)
}

// List returns visitors, optionally filtered by status.
func (s *Service) List(opts ListOptions) ([]*Visitor, error) {
	if opts.Status != "" && !opts.Status.IsValid() {
		return nil, &ValidationError{Fields: map[string]string{"status": fmt.Sprintf("unknown status %q", opts.Status)}}
	}
	return s.repo.List(opts)
}

// Delete removes a visitor record. This is an admin action outside the lifecycle.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Delete(id)
}

// nextBadge returns V + (checked-in count + 1), moving past numbers still
// held by a checked-in visitor. Callers hold s.mu.
func (s *Service) nextBadge() (string, error) {
	active, err := s.repo.List(ListOptions{Status: StatusCheckedIn})
	if err != nil {
		return "", fmt.Errorf("counting checked-in visitors: %w", err)
	}

	held := make(map[string]bool, len(active))
	for _, v := range active {
		if v.BadgeNumber != nil {
			held[*v.BadgeNumber] = true
		}
	}

	for n := len(active) + 1; ; n++ {
		badge := FormatBadge(n)
		if !held[badge] {
			return badge, nil
		}
	}
}

// FormatBadge renders a badge number as V followed by at least three digits.
func FormatBadge(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 3 {
		s = "0" + s
	}
	return "V" + s
}

func (s *Service) emit(kind EventKind, v *Visitor, at time.Time) {
	if s.notifier == nil {
		return
	}
	c := *v
	if err := s.notifier.Notify(Event{Kind: kind, Visitor: &c, At: at}); err != nil {
		slog.Warn("visitor notification failed", "kind", kind, "visitor", v.ID, "error", err)
	}
}

func newVisitor(in Input, now time.Time) *Visitor {
	return &Visitor{
		ID:              ulid.Make().String(),
		Name:            in.Name,
		Company:         in.Company,
		Email:           in.Email,
		Phone:           in.Phone,
		HostName:        in.HostName,
		HostEmail:       in.HostEmail,
		ArrivalDate:     in.ArrivalDate,
		ArrivalTime:     in.ArrivalTime,
		Purpose:         optional(in.Purpose),
		CarRegistration: optional(in.CarRegistration),
		CreatedAt:       now.UTC(),
	}
}
