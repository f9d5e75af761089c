package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	exchangeName = "market.events"
	exchangeType = "topic"

	// Event types
	EventTypeMarketSeeded      = "market.seeded"
	EventTypeItemOwnerAssigned = "market.item.owner_assigned"
	eventVersion               = "1.0.0"

	// Retry configuration
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second
	confirmTimeout = 5 * time.Second
)

type correlationIDKey struct{}

// WithCorrelationID tags ctx so every event published under it carries id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, if any.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// Event represents a domain event
type Event struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	EventVersion  string                 `json:"event_version"`
	Timestamp     string                 `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
}

func newEvent(ctx context.Context, eventType string, payload map[string]interface{}) Event {
	return Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		CorrelationID: CorrelationID(ctx),
		Payload:       payload,
	}
}

// MarketSeededEvent describes a completed seeding run.
func MarketSeededEvent(ctx context.Context, users, items, owned int64) Event {
	return newEvent(ctx, EventTypeMarketSeeded, map[string]interface{}{
		"users":       users,
		"items":       items,
		"owned_items": owned,
	})
}

// OwnerAssignedEvent describes an item changing hands.
func OwnerAssignedEvent(ctx context.Context, barcode, name, owner string) Event {
	return newEvent(ctx, EventTypeItemOwnerAssigned, map[string]interface{}{
		"barcode": barcode,
		"name":    name,
		"owner":   owner,
	})
}

// Publisher handles event publishing to RabbitMQ
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *zap.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(url string, log *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		exchangeName,
		exchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	log.Info("Connected to RabbitMQ", zap.String("exchange", exchangeName))

	return &Publisher{
		conn:    conn,
		channel: channel,
		log:     log,
	}, nil
}

// PublishMarketSeeded publishes a market seeded event
func (p *Publisher) PublishMarketSeeded(ctx context.Context, users, items, owned int64) error {
	return p.publishWithRetry(ctx, MarketSeededEvent(ctx, users, items, owned))
}

// PublishOwnerAssigned publishes an item owner assigned event
func (p *Publisher) PublishOwnerAssigned(ctx context.Context, barcode, name, owner string) error {
	return p.publishWithRetry(ctx, OwnerAssignedEvent(ctx, barcode, name, owner))
}

// publishWithRetry publishes an event with exponential backoff retry.
// The event type doubles as the routing key.
func (p *Publisher) publishWithRetry(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	backoff := initialBackoff
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
		}

		confirmation, err := p.channel.PublishWithDeferredConfirmWithContext(
			ctx,
			exchangeName,
			event.EventType,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:   "application/json",
				DeliveryMode:  amqp.Persistent,
				Timestamp:     time.Now(),
				MessageId:     event.EventID,
				CorrelationId: event.CorrelationID,
				Body:          body,
				Headers: amqp.Table{
					"event_type":    event.EventType,
					"event_version": event.EventVersion,
				},
			},
		)
		if err != nil {
			lastErr = err
			p.log.Warn("Failed to publish event, retrying",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}

		waitCtx, cancel := context.WithTimeout(ctx, confirmTimeout)
		acked, err := confirmation.WaitContext(waitCtx)
		cancel()
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("confirmation timeout: %w", err)
		case acked:
			p.log.Info("Event published",
				zap.String("event_id", event.EventID),
				zap.String("event_type", event.EventType),
			)
			return nil
		default:
			lastErr = fmt.Errorf("event not acknowledged")
		}

		p.log.Warn("Event publish not confirmed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}

	p.log.Error("Failed to publish event after retries",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.Int("attempts", maxRetries),
		zap.Error(lastErr),
	)
	return fmt.Errorf("failed to publish event after %d attempts: %w", maxRetries, lastErr)
}

// IsHealthy checks if the publisher connection is healthy
func (p *Publisher) IsHealthy() bool {
	return p.conn != nil && !p.conn.IsClosed()
}

// Close closes the publisher connection
func (p *Publisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Error("Failed to close channel", zap.Error(err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			p.log.Error("Failed to close connection", zap.Error(err))
			return err
		}
	}
	p.log.Info("Publisher closed")
	return nil
}

// Discard drops every event. It stands in when no broker is configured.
type Discard struct{}

func (Discard) PublishMarketSeeded(context.Context, int64, int64, int64) error { return nil }

func (Discard) PublishOwnerAssigned(context.Context, string, string, string) error { return nil }

func (Discard) IsHealthy() bool { return true }

func (Discard) Close() error { return nil }

// ErrBrokerUnavailable is returned by Unavailable for every publish.
var ErrBrokerUnavailable = errors.New("event broker unavailable")

// Unavailable stands in for a configured broker that could not be reached.
// It drops events like Discard but reports itself unhealthy.
type Unavailable struct {
	Err error
}

func (u Unavailable) PublishMarketSeeded(context.Context, int64, int64, int64) error { return u.err() }

func (u Unavailable) PublishOwnerAssigned(context.Context, string, string, string) error {
	return u.err()
}

func (Unavailable) IsHealthy() bool { return false }

func (Unavailable) Close() error { return nil }

func (u Unavailable) err() error {
	if u.Err == nil {
		return ErrBrokerUnavailable
	}
	return fmt.Errorf("%w: %v", ErrBrokerUnavailable, u.Err)
}
