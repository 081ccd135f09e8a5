package emergency

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/evcraddock/visitor-kiosk/internal/db"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

func TestStartAndResolve(t *testing.T) {
	svc, repo, _ := testSetup(t)

	sess, err := svc.Start(StartInput{Type: TypeFire, Severity: SeverityCritical, Location: " Building A ", EvacuationRequired: true})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if sess.Status != StatusActive {
		t.Errorf("status = %q", sess.Status)
	}
	if sess.Location != "Building A" {
		t.Errorf("location = %q", sess.Location)
	}

	active, err := svc.Active()
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active.ID != sess.ID || !active.EvacuationRequired {
		t.Errorf("active = %+v", active)
	}

	resolved, err := svc.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != StatusResolved || resolved.ResolvedAt == nil {
		t.Errorf("resolved = %+v", resolved)
	}

	if _, err := svc.Active(); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("active after resolve err = %v, want ErrNoActiveSession", err)
	}

	history, err := repo.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("got %d sessions, want 1", len(history))
	}
}

func TestStartWhileActive(t *testing.T) {
	svc, _, _ := testSetup(t)

	if _, err := svc.Start(StartInput{Type: TypeDrill}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Start(StartInput{Type: TypeFire}); !errors.Is(err, ErrActiveSession) {
		t.Fatalf("err = %v, want ErrActiveSession", err)
	}
}

func TestStartDefaultsSeverity(t *testing.T) {
	svc, _, _ := testSetup(t)
	sess, err := svc.Start(StartInput{Type: TypeDrill})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if sess.Severity != SeverityHigh {
		t.Errorf("severity = %q, want %q", sess.Severity, SeverityHigh)
	}
}

func TestStartInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   StartInput
	}{
		{"unknown type", StartInput{Type: "flood"}},
		{"empty type", StartInput{}},
		{"unknown severity", StartInput{Type: TypeFire, Severity: "extreme"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := testSetup(t)
			if _, err := svc.Start(tt.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestResolveWithoutActive(t *testing.T) {
	svc, _, _ := testSetup(t)
	if _, err := svc.Resolve(); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("err = %v, want ErrNoActiveSession", err)
	}
}

type countingNotifier struct {
	onSite []int
}

func (c *countingNotifier) EmergencyStarted(s *Session, onSite int) error {
	c.onSite = append(c.onSite, onSite)
	return nil
}

func TestRollCall(t *testing.T) {
	svc, _, visitors := testSetup(t)
	n := &countingNotifier{}
	svc.SetNotifier(n)

	now := time.Now()
	in := visitor.Input{
		Name:        "John Smith",
		Company:     "Acme",
		Email:       "john@acme.com",
		Phone:       "+15551234567",
		HostName:    "Jane Doe",
		ArrivalDate: now.Format("2006-01-02"),
	}
	onSite, err := visitors.WalkIn(in)
	if err != nil {
		t.Fatalf("walk in: %v", err)
	}
	in.Name = "Mary Major"
	if _, err := visitors.Register(in); err != nil {
		t.Fatalf("register: %v", err)
	}

	call, err := svc.RollCall()
	if err != nil {
		t.Fatalf("roll call: %v", err)
	}
	if call.Session != nil {
		t.Error("expected no session before start")
	}
	if len(call.Visitors) != 1 || call.Visitors[0].ID != onSite.ID {
		t.Fatalf("roll call = %+v, want only the checked-in visitor", call.Visitors)
	}

	if _, err := svc.Start(StartInput{Type: TypeEvacuation}); err != nil {
		t.Fatalf("start: %v", err)
	}
	call, err = svc.RollCall()
	if err != nil {
		t.Fatalf("roll call: %v", err)
	}
	if call.Session == nil {
		t.Error("expected active session in roll call")
	}
	if len(n.onSite) != 1 || n.onSite[0] != 1 {
		t.Errorf("notifier on-site counts = %v, want [1]", n.onSite)
	}
}

func testSetup(t *testing.T) (*Service, *SQLRepository, *visitor.Service) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	repo := NewSQLRepository(d)
	visitors := visitor.NewService(visitor.NewMemoryRepository())
	return NewService(repo, visitors), repo, visitors
}
