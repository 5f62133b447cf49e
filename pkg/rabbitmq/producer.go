/**
 * @description
 * This package provides a simple producer for publishing distribution
 * lifecycle events to RabbitMQ so downstream services (notifications,
 * reporting) can react to payout outcomes.
 *
 * @dependencies
 * - context, encoding/json, time: Standard Go libraries.
 * - github.com/rabbitmq/amqp091-go: The RabbitMQ client library.
 */

package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// PayoutEventsExchange is the topic exchange distribution events go to.
const PayoutEventsExchange = "payout_events"

// Routing keys for distribution lifecycle events.
const (
	RoutingKeyDistributionCompleted = "distribution.completed"
	RoutingKeyDistributionFailed    = "distribution.failed"
	RoutingKeyBatchPayoutRecorded   = "batch_payout.recorded"
)

// DistributionEvent is the payload published when a distribution reaches a
// terminal state or a batch payout is recorded for it.
type DistributionEvent struct {
	DistributionID uuid.UUID `json:"distribution_id"`
	AssetID        uuid.UUID `json:"asset_id"`
	Status         string    `json:"status"`
	Concept        string    `json:"concept"`
	BatchPayoutID  *uuid.UUID `json:"batch_payout_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher is the interface implemented by types that can publish events.
type Publisher interface {
	PublishDistributionEvent(ctx context.Context, routingKey string, event DistributionEvent) error
	Close()
}

// EventProducer holds the RabbitMQ connection and channel for publishing messages.
type EventProducer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// FallbackProducer is a minimal no-op publisher used when RabbitMQ is
// unavailable at startup; payouts proceed, downstream events are dropped.
type FallbackProducer struct {
	logger *slog.Logger
}

// NewFallbackProducer creates a no-op publisher that logs dropped events.
func NewFallbackProducer(logger *slog.Logger) *FallbackProducer {
	return &FallbackProducer{logger: logger}
}

func (p *FallbackProducer) PublishDistributionEvent(ctx context.Context, routingKey string, event DistributionEvent) error {
	p.logger.Warn("rabbitmq unavailable; distribution event dropped",
		"routing_key", routingKey, "distribution_id", event.DistributionID)
	return nil
}

func (p *FallbackProducer) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer creates and returns a new EventProducer bound to the
// payout events exchange.
func NewEventProducer(amqpURL string) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Bounded dial timeout so startup does not hang indefinitely.
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := channel.ExchangeDeclare(
		PayoutEventsExchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &EventProducer{conn: conn, channel: channel}, nil
}

// PublishDistributionEvent publishes one distribution lifecycle event.
func (p *EventProducer) PublishDistributionEvent(ctx context.Context, routingKey string, event DistributionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx,
		PayoutEventsExchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

// Close shuts down the channel and connection.
func (p *EventProducer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
