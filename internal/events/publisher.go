// Package events publishes visitor and emergency events to RabbitMQ so
// downstream consumers (badge printers, dashboards) can react without
// polling the API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is the durable queue events are published to.
const DefaultQueue = "visitor.events"

// Message is the envelope published for every event.
type Message struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// Publisher sends messages to a durable queue on the default exchange.
// Each Publish dials its own connection; volume is a handful of events per
// visit.
type Publisher struct {
	url   string
	queue string
	dial  func(url string) (channel, func() error, error)
}

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// NewPublisher creates a publisher for the broker at url. An empty queue
// uses DefaultQueue.
func NewPublisher(url, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Publisher{url: url, queue: queue, dial: dialAMQP}
}

// Queue returns the queue name messages are routed to.
func (p *Publisher) Queue() string {
	return p.queue
}

// Publish marshals msg as JSON and publishes it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	ch, closeFn, err := p.dial(p.url)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %s: %w", p.queue, err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.OccurredAt.UTC(),
		Type:         msg.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("publishing %s: %w", msg.Type, err)
	}
	return nil
}

func dialAMQP(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dialing broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("opening channel: %w", err)
	}
	return ch, func() error {
		_ = ch.Close()
		return conn.Close()
	}, nil
}
