package email

import (
	"strings"
	"testing"
	"time"

	"github.com/evcraddock/visitor-kiosk/internal/emergency"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

func ptr[T any](v T) *T { return &v }

func TestFormatArrival(t *testing.T) {
	v := &visitor.Visitor{
		Name:        "John Smith",
		Company:     "Acme",
		Email:       "john@acme.com",
		Phone:       "+15551234567",
		HostName:    "Jane Doe",
		Purpose:     ptr("contract review"),
		BadgeNumber: ptr("V003"),
		CheckInTime: ptr(time.Date(2026, 10, 19, 10, 5, 0, 0, time.UTC)),
	}

	msg := FormatArrival(v)

	if msg.Subject != "Your visitor John Smith has arrived" {
		t.Errorf("subject = %q", msg.Subject)
	}
	for _, want := range []string{"Hi Jane,", "John Smith from Acme", "at 10:05", "Badge:   V003", "Purpose: contract review", "+15551234567"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Body)
		}
	}
}

func TestFormatArrivalMinimal(t *testing.T) {
	msg := FormatArrival(&visitor.Visitor{Name: "John Smith", Company: "Acme", Email: "john@acme.com"})

	if !strings.Contains(msg.Body, "Hi there,") {
		t.Error("expected fallback greeting")
	}
	if strings.Contains(msg.Body, "Badge:") || strings.Contains(msg.Body, "Purpose:") {
		t.Error("expected no optional lines")
	}
}

func TestFormatDeparture(t *testing.T) {
	msg := FormatDeparture(&visitor.Visitor{
		Name:         "John Smith",
		Company:      "Acme",
		HostName:     "Jane Doe",
		CheckOutTime: ptr(time.Date(2026, 10, 19, 16, 30, 0, 0, time.UTC)),
	})

	if !strings.Contains(msg.Subject, "has left") {
		t.Errorf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "checked out at 16:30") {
		t.Errorf("body = %q", msg.Body)
	}
}

func TestFormatEmergency(t *testing.T) {
	s := &emergency.Session{
		Type:               emergency.TypeFire,
		Severity:           emergency.SeverityCritical,
		Location:           "Warehouse 2",
		EvacuationRequired: true,
		StartedAt:          time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC),
	}

	msg := FormatEmergency(s, 4)

	if msg.Subject != "EMERGENCY: FIRE" {
		t.Errorf("subject = %q", msg.Subject)
	}
	for _, want := range []string{"severity critical", "Warehouse 2", "EVACUATION REQUIRED", "Visitors on site: 4"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestSMTPConfigIsConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  SMTPConfig
		want bool
	}{
		{"empty", SMTPConfig{}, false},
		{"host only", SMTPConfig{Host: "smtp.example.com"}, false},
		{"from only", SMTPConfig{From: "kiosk@example.com"}, false},
		{"host and from", SMTPConfig{Host: "smtp.example.com", From: "kiosk@example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSendNotConfigured(t *testing.T) {
	err := Send(SMTPConfig{}, []string{"jane@example.com"}, "subj", "body")
	if err == nil {
		t.Fatal("expected error for unconfigured SMTP")
	}
	if !strings.Contains(err.Error(), "not configured") {
		t.Errorf("error = %q", err.Error())
	}
}
