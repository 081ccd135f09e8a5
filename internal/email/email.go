// Package email formats host notification messages and sends them over SMTP.
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/evcraddock/visitor-kiosk/internal/emergency"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// IsConfigured returns true if SMTP settings are present.
func (c SMTPConfig) IsConfigured() bool {
	return c.Host != "" && c.From != ""
}

// Message is a plain-text email ready to send.
type Message struct {
	Subject string
	Body    string
}

// FormatArrival builds the message telling a host their visitor has arrived.
func FormatArrival(v *visitor.Visitor) Message {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Hi %s,\n\n", firstName(v.HostName))
	fmt.Fprintf(&buf, "%s from %s has checked in at reception", v.Name, v.Company)
	if v.CheckInTime != nil {
		fmt.Fprintf(&buf, " at %s", v.CheckInTime.Format("15:04"))
	}
	fmt.Fprintln(&buf, ".")
	fmt.Fprintln(&buf)

	if v.BadgeNumber != nil {
		fmt.Fprintf(&buf, "   Badge:   %s\n", *v.BadgeNumber)
	}
	fmt.Fprintf(&buf, "   Email:   %s\n", v.Email)
	if v.Phone != "" {
		fmt.Fprintf(&buf, "   Phone:   %s\n", v.Phone)
	}
	if v.Purpose != nil {
		fmt.Fprintf(&buf, "   Purpose: %s\n", *v.Purpose)
	}

	fmt.Fprintf(&buf, "\nPlease come to reception to meet them.\n")

	return Message{
		Subject: fmt.Sprintf("Your visitor %s has arrived", v.Name),
		Body:    buf.String(),
	}
}

// FormatDeparture builds the message telling a host their visitor has left.
func FormatDeparture(v *visitor.Visitor) Message {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Hi %s,\n\n", firstName(v.HostName))
	fmt.Fprintf(&buf, "%s from %s has checked out", v.Name, v.Company)
	if v.CheckOutTime != nil {
		fmt.Fprintf(&buf, " at %s", v.CheckOutTime.Format("15:04"))
	}
	fmt.Fprintln(&buf, ".")

	return Message{
		Subject: fmt.Sprintf("Your visitor %s has left", v.Name),
		Body:    buf.String(),
	}
}

// FormatEmergency builds the alert sent when an emergency session starts.
func FormatEmergency(s *emergency.Session, onSite int) Message {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "An emergency (%s, severity %s) was declared at %s.\n\n",
		s.Type, s.Severity, s.StartedAt.Format("2006-01-02 15:04"))
	if s.Location != "" {
		fmt.Fprintf(&buf, "   Location: %s\n", s.Location)
	}
	if s.EvacuationRequired {
		fmt.Fprintf(&buf, "   EVACUATION REQUIRED\n")
	}
	fmt.Fprintf(&buf, "   Visitors on site: %d\n", onSite)
	if s.Notes != "" {
		fmt.Fprintf(&buf, "\n%s\n", s.Notes)
	}

	return Message{
		Subject: fmt.Sprintf("EMERGENCY: %s", strings.ToUpper(string(s.Type))),
		Body:    buf.String(),
	}
}

// Sender delivers messages over SMTP.
type Sender struct {
	cfg SMTPConfig
}

// NewSender creates an SMTP sender.
func NewSender(cfg SMTPConfig) *Sender {
	return &Sender{cfg: cfg}
}

// IsConfigured reports whether the sender can deliver mail.
func (s *Sender) IsConfigured() bool {
	return s.cfg.IsConfigured()
}

// Send delivers msg to the given recipients.
func (s *Sender) Send(to []string, msg Message) error {
	return Send(s.cfg, to, msg.Subject, msg.Body)
}

// Send sends an email via SMTP.
// Supports both port 465 (implicit TLS) and port 587 (STARTTLS).
func Send(cfg SMTPConfig, to []string, subject, body string) error {
	if !cfg.IsConfigured() {
		return fmt.Errorf("SMTP not configured")
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		cfg.From,
		strings.Join(to, ", "),
		subject,
		body,
	)

	addr := cfg.Host + ":" + cfg.Port

	if cfg.Port == "465" {
		return sendImplicitTLS(cfg, addr, to, msg)
	}
	return sendSTARTTLS(cfg, addr, to, msg)
}

// sendImplicitTLS connects over TLS directly (port 465/SMTPS).
func sendImplicitTLS(cfg SMTPConfig, addr string, to []string, msg string) (err error) {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
	if err != nil {
		return fmt.Errorf("TLS dial: %w", err)
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer func() {
		if quitErr := c.Quit(); quitErr != nil && err == nil {
			err = fmt.Errorf("quit: %w", quitErr)
		}
	}()

	if cfg.User != "" {
		if err := c.Auth(smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return nil
}

// sendSTARTTLS connects plain then upgrades to TLS (port 587).
func sendSTARTTLS(cfg SMTPConfig, addr string, to []string, msg string) error {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, cfg.From, to, []byte(msg)); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

func firstName(full string) string {
	if f := strings.Fields(full); len(f) > 0 {
		return f[0]
	}
	return "there"
}
