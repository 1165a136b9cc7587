// Package queue publishes lead lifecycle events to RabbitMQ so sales
// tooling can react to new and completed leads.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/shop-advisor-go/internal/domain"
)

var tracer = otel.Tracer("queue")

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher sends LeadEvents to a durable topic exchange. The routing
// key is the event type (lead.captured, lead.contact_updated).
type RabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       Channel
	exchange string
	logger   *zap.Logger
}

// NewRabbitPublisher dials url and declares the exchange.
func NewRabbitPublisher(url, exchange string, logger *zap.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	p := NewPublisherWithChannel(ch, exchange, logger)
	p.conn = conn
	return p, nil
}

// NewPublisherWithChannel wraps an already configured channel.
func NewPublisherWithChannel(ch Channel, exchange string, logger *zap.Logger) *RabbitPublisher {
	return &RabbitPublisher{ch: ch, exchange: exchange, logger: logger}
}

// PublishLeadEvent publishes evt as a persistent JSON message.
func (p *RabbitPublisher) PublishLeadEvent(ctx context.Context, evt domain.LeadEvent) error {
	ctx, span := tracer.Start(ctx, "RabbitPublisher.PublishLeadEvent")
	defer span.End()
	span.SetAttributes(
		attribute.String("lead.id", evt.LeadID),
		attribute.String("event.type", string(evt.Type)),
	)

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal lead event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		string(evt.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    evt.OccurredAt,
			Type:         string(evt.Type),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish lead event: %w", err)
	}

	p.logger.Debug("lead event published",
		zap.String("type", string(evt.Type)),
		zap.String("lead_id", evt.LeadID),
	)
	return nil
}

// Healthy reports whether the broker connection is open.
func (p *RabbitPublisher) Healthy() bool {
	return p.conn != nil && !p.conn.IsClosed()
}

// Close closes the channel and the connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishLeadEvent(context.Context, domain.LeadEvent) error { return nil }
func (NoopPublisher) Close() error { return nil }
