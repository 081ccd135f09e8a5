package emergency

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

// VisitorLister lists visitors; visitor.Service and visitor.Repository satisfy it.
type VisitorLister interface {
	List(opts visitor.ListOptions) ([]*visitor.Visitor, error)
}

// Notifier is told when a session starts.
type Notifier interface {
	EmergencyStarted(s *Session, onSite int) error
}

// Service manages the site's emergency session.
type Service struct {
	store    Store
	visitors VisitorLister
	notifier Notifier
	now      func() time.Time
	mu       sync.Mutex
}

// NewService creates an emergency service.
func NewService(store Store, visitors VisitorLister) *Service {
	return &Service{store: store, visitors: visitors, now: time.Now}
}

// SetNotifier registers n for session starts.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Start opens a new session. Only one session may be active at a time.
func (s *Service) Start(in StartInput) (*Session, error) {
	if !in.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, in.Type)
	}
	if in.Severity == "" {
		in.Severity = SeverityHigh
	}
	if !in.Severity.IsValid() {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, in.Severity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.Active(); err == nil {
		return nil, ErrActiveSession
	} else if !errors.Is(err, ErrNoActiveSession) {
		return nil, err
	}

	sess := &Session{
		ID:                 ulid.Make().String(),
		Type:               in.Type,
		Severity:           in.Severity,
		Status:             StatusActive,
		Location:           strings.TrimSpace(in.Location),
		EvacuationRequired: in.EvacuationRequired,
		Notes:              strings.TrimSpace(in.Notes),
		StartedAt:          s.now().UTC(),
	}
	if err := s.store.Insert(sess); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		onSite := 0
		if call, err := s.RollCall(); err == nil {
			onSite = len(call.Visitors)
		}
		if err := s.notifier.EmergencyStarted(sess, onSite); err != nil {
			slog.Warn("emergency notification failed", "session", sess.ID, "error", err)
		}
	}

	return sess, nil
}

// Resolve closes the active session.
func (s *Service) Resolve() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.store.Active()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sess.Status = StatusResolved
	sess.ResolvedAt = &now
	if err := s.store.Update(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Active returns the active session or ErrNoActiveSession.
func (s *Service) Active() (*Session, error) {
	return s.store.Active()
}

// RollCall is the list of visitors currently on site.
type RollCall struct {
	Session  *Session           `json:"session,omitempty"`
	Visitors []*visitor.Visitor `json:"visitors"`
}

// RollCall lists checked-in visitors, with the active session if any.
func (s *Service) RollCall() (*RollCall, error) {
	onSite, err := s.visitors.List(visitor.ListOptions{Status: visitor.StatusCheckedIn})
	if err != nil {
		return nil, fmt.Errorf("listing visitors on site: %w", err)
	}
	if onSite == nil {
		onSite = make([]*visitor.Visitor, 0)
	}

	call := &RollCall{Visitors: onSite}
	if sess, err := s.store.Active(); err == nil {
		call.Session = sess
	} else if !errors.Is(err, ErrNoActiveSession) {
		return nil, err
	}
	return call, nil
}
