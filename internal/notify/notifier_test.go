package notify

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/evcraddock/visitor-kiosk/internal/db"
	"github.com/evcraddock/visitor-kiosk/internal/email"
	"github.com/evcraddock/visitor-kiosk/internal/emergency"
	"github.com/evcraddock/visitor-kiosk/internal/events"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

type fakeMailer struct {
	configured bool
	err        error
	sent       []email.Message
	to         [][]string
}

func (m *fakeMailer) IsConfigured() bool { return m.configured }

func (m *fakeMailer) Send(to []string, msg email.Message) error {
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.sent = append(m.sent, msg)
	return nil
}

type fakePublisher struct {
	types []string
}

func (p *fakePublisher) Publish(ctx context.Context, msg events.Message) error {
	p.types = append(p.types, msg.Type)
	return nil
}

var at = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

func testVisitor(hostEmail string) *visitor.Visitor {
	badge := "V001"
	return &visitor.Visitor{
		ID:          "01A",
		Name:        "John Smith",
		Company:     "Acme",
		Email:       "john@acme.com",
		HostName:    "Jane Doe",
		HostEmail:   hostEmail,
		BadgeNumber: &badge,
		CheckInTime: &at,
	}
}

func TestNotifyArrivalSent(t *testing.T) {
	log := &MemoryLog{}
	mailer := &fakeMailer{configured: true}
	pub := &fakePublisher{}
	n := New(log, WithMailer(mailer), WithPublisher(pub))

	err := n.Notify(visitor.Event{Kind: visitor.EventCheckedIn, Visitor: testVisitor("jane@example.com"), At: at})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(mailer.sent) != 1 || mailer.to[0][0] != "jane@example.com" {
		t.Fatalf("sent = %v to %v", mailer.sent, mailer.to)
	}
	entries, err := log.List(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Kind != KindArrival || e.Status != StatusSent || e.Recipient != "jane@example.com" || e.VisitorID != "01A" {
		t.Errorf("entry = %+v", e)
	}
	if len(pub.types) != 1 || pub.types[0] != "visitor.checked_in" {
		t.Errorf("published = %v", pub.types)
	}
}

func TestNotifyWithoutHostEmailIsLogged(t *testing.T) {
	log := &MemoryLog{}
	mailer := &fakeMailer{configured: true}
	n := New(log, WithMailer(mailer))

	if err := n.Notify(visitor.Event{Kind: visitor.EventCheckedOut, Visitor: testVisitor(""), At: at}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Error("expected no email without host address")
	}
	entries, _ := log.List(0)
	if len(entries) != 1 || entries[0].Status != StatusLogged || entries[0].Kind != KindDeparture {
		t.Errorf("entries = %+v", entries)
	}
}

func TestNotifyUnconfiguredMailerIsLogged(t *testing.T) {
	log := &MemoryLog{}
	n := New(log, WithMailer(&fakeMailer{}))

	if err := n.Notify(visitor.Event{Kind: visitor.EventCheckedIn, Visitor: testVisitor("jane@example.com"), At: at}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	entries, _ := log.List(0)
	if len(entries) != 1 || entries[0].Status != StatusLogged {
		t.Errorf("entries = %+v", entries)
	}
}

func TestNotifySendFailureRecorded(t *testing.T) {
	log := &MemoryLog{}
	n := New(log, WithMailer(&fakeMailer{configured: true, err: errors.New("550 mailbox unavailable")}))

	err := n.Notify(visitor.Event{Kind: visitor.EventCheckedIn, Visitor: testVisitor("jane@example.com"), At: at})
	if err == nil {
		t.Fatal("expected error")
	}
	entries, _ := log.List(0)
	if len(entries) != 1 || entries[0].Status != StatusFailed || entries[0].Error == "" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestNotifyRegisteredOnlyPublishes(t *testing.T) {
	log := &MemoryLog{}
	pub := &fakePublisher{}
	n := New(log, WithPublisher(pub))

	if err := n.Notify(visitor.Event{Kind: visitor.EventRegistered, Visitor: testVisitor(""), At: at}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	entries, _ := log.List(0)
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
	if len(pub.types) != 1 || pub.types[0] != "visitor.registered" {
		t.Errorf("published = %v", pub.types)
	}
}

func TestEmergencyStarted(t *testing.T) {
	log := &MemoryLog{}
	mailer := &fakeMailer{configured: true}
	n := New(log, WithMailer(mailer), WithAlertAddresses("security@example.com"))

	s := &emergency.Session{ID: "E1", Type: emergency.TypeDrill, Severity: emergency.SeverityLow, StartedAt: at}
	if err := n.EmergencyStarted(s, 3); err != nil {
		t.Fatalf("emergency started: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d, want 1", len(mailer.sent))
	}
	entries, _ := log.List(0)
	if len(entries) != 1 || entries[0].Kind != KindEmergency {
		t.Errorf("entries = %+v", entries)
	}
}

func TestSQLLog(t *testing.T) {
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

	log := NewSQLLog(d)
	n := New(log)
	for i := 0; i < 3; i++ {
		e := visitor.Event{Kind: visitor.EventCheckedIn, Visitor: testVisitor(""), At: at.Add(time.Duration(i) * time.Minute)}
		if err := n.Notify(e); err != nil {
			t.Fatalf("notify %d: %v", i, err)
		}
	}

	all, err := log.List(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d entries, want 3", len(all))
	}
	if !all[0].CreatedAt.After(all[2].CreatedAt) {
		t.Error("expected newest first")
	}

	limited, err := log.List(2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d entries, want 2", len(limited))
	}
}

func TestMemoryLogLimit(t *testing.T) {
	log := &MemoryLog{}
	for _, id := range []string{"a", "b", "c"} {
		if err := log.Append(&Entry{ID: id}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, _ := log.List(2)
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("got %+v", got)
	}
}
