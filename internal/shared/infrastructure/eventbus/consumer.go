package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/gritline/internal/shared/domain"
	"github.com/google/uuid"
)

// EventConsumer handles specific event types.
type EventConsumer interface {
	// EventTypes returns the routing keys this consumer handles,
	// e.g. ["grit.instance.completed"].
	EventTypes() []string

	// Handle processes the event.
	Handle(ctx context.Context, event *ConsumedEvent) error
}

// ConsumedEvent is the envelope every event travels in on the bus.
type ConsumedEvent struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	RoutingKey    string          `json:"routing_key"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      EventMetadata   `json:"metadata,omitempty"`
}

// EventMetadata contains optional metadata about the event.
type EventMetadata struct {
	UserID        uuid.UUID `json:"user_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CausationID   string    `json:"causation_id,omitempty"`
}

// NewEnvelope wraps a domain event. The payload is the event's own JSON form.
func NewEnvelope(event domain.DomainEvent) (*ConsumedEvent, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event.RoutingKey(), err)
	}

	meta := event.Metadata()
	envelope := &ConsumedEvent{
		EventID:       event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		RoutingKey:    event.RoutingKey(),
		OccurredAt:    event.OccurredAt(),
		Payload:       payload,
		Metadata:      EventMetadata{UserID: meta.UserID},
	}
	if meta.CorrelationID != uuid.Nil {
		envelope.Metadata.CorrelationID = meta.CorrelationID.String()
	}
	if meta.CausationID != uuid.Nil {
		envelope.Metadata.CausationID = meta.CausationID.String()
	}
	return envelope, nil
}

// DecodePayload unmarshals the event payload into dst.
func (e *ConsumedEvent) DecodePayload(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.RoutingKey, err)
	}
	return nil
}

// Consumer defines the interface for consuming events from a message broker.
type Consumer interface {
	// Start begins consuming messages. This is a blocking call.
	Start(ctx context.Context) error

	// RegisterConsumer registers an event consumer.
	RegisterConsumer(consumer EventConsumer)

	// Close closes the consumer connection.
	Close() error
}
