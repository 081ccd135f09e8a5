package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/evcraddock/visitor-kiosk/internal/email"
	"github.com/evcraddock/visitor-kiosk/internal/emergency"
	"github.com/evcraddock/visitor-kiosk/internal/events"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

const publishTimeout = 5 * time.Second

// Mailer delivers an email message; *email.Sender satisfies it.
type Mailer interface {
	IsConfigured() bool
	Send(to []string, msg email.Message) error
}

// Publisher sends an event envelope; *events.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg events.Message) error
}

// Notifier implements visitor.Notifier and emergency.Notifier.
// Every notification is written to the log; mail and events are optional.
type Notifier struct {
	log          Log
	mailer       Mailer
	publisher    Publisher
	alertAddress []string
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithMailer enables email delivery.
func WithMailer(m Mailer) Option {
	return func(n *Notifier) { n.mailer = m }
}

// WithPublisher enables event publishing.
func WithPublisher(p Publisher) Option {
	return func(n *Notifier) { n.publisher = p }
}

// WithAlertAddresses sets who receives emergency alerts.
func WithAlertAddresses(to ...string) Option {
	return func(n *Notifier) { n.alertAddress = to }
}

// New creates a notifier writing to log.
func New(log Log, opts ...Option) *Notifier {
	n := &Notifier{log: log}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Notify handles a visitor lifecycle event. Registration events are only
// published; arrival and departure are also sent to the host.
func (n *Notifier) Notify(e visitor.Event) error {
	n.publish("visitor."+string(e.Kind), e.At, e.Visitor)

	var kind Kind
	var msg email.Message
	switch e.Kind {
	case visitor.EventCheckedIn:
		kind, msg = KindArrival, email.FormatArrival(e.Visitor)
	case visitor.EventCheckedOut:
		kind, msg = KindDeparture, email.FormatDeparture(e.Visitor)
	default:
		return nil
	}

	var to []string
	if e.Visitor.HostEmail != "" {
		to = []string{e.Visitor.HostEmail}
	}
	return n.deliver(kind, e.Visitor.ID, to, msg, e.At)
}

// EmergencyStarted alerts the configured addresses about a new session.
func (n *Notifier) EmergencyStarted(s *emergency.Session, onSite int) error {
	n.publish("emergency.started", s.StartedAt, s)
	return n.deliver(KindEmergency, "", n.alertAddress, email.FormatEmergency(s, onSite), s.StartedAt)
}

func (n *Notifier) deliver(kind Kind, visitorID string, to []string, msg email.Message, at time.Time) error {
	entry := &Entry{
		ID:        ulid.Make().String(),
		Kind:      kind,
		VisitorID: visitorID,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Status:    StatusLogged,
		CreatedAt: at.UTC(),
	}
	if len(to) > 0 {
		entry.Recipient = to[0]
	}

	var sendErr error
	if len(to) > 0 && n.mailer != nil && n.mailer.IsConfigured() {
		if sendErr = n.mailer.Send(to, msg); sendErr != nil {
			entry.Status = StatusFailed
			entry.Error = sendErr.Error()
		} else {
			entry.Status = StatusSent
		}
	} else {
		slog.Info("notification logged", "kind", kind, "visitor", visitorID, "subject", msg.Subject)
	}

	if err := n.log.Append(entry); err != nil {
		return fmt.Errorf("recording notification: %w", err)
	}
	if sendErr != nil {
		return fmt.Errorf("sending %s notification: %w", kind, sendErr)
	}
	return nil
}

func (n *Notifier) publish(typ string, at time.Time, data interface{}) {
	if n.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := n.publisher.Publish(ctx, events.Message{Type: typ, OccurredAt: at.UTC(), Data: data}); err != nil {
		slog.Warn("publishing event failed", "type", typ, "error", err)
	}
}
