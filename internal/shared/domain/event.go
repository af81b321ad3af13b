package domain

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact raised by an aggregate. The routing key doubles as
// the event type on the bus.
type DomainEvent interface {
	EventID() uuid.UUID
	AggregateID() uuid.UUID
	AggregateType() string
	RoutingKey() string
	OccurredAt() time.Time
	Metadata() EventMetadata
}

// EventMetadata ties the events of one command together.
type EventMetadata struct {
	CorrelationID uuid.UUID `json:"correlation_id"`
	CausationID   uuid.UUID `json:"causation_id"`
	UserID        uuid.UUID `json:"user_id"`
}

// BaseEvent implements DomainEvent for embedding in concrete events.
type BaseEvent struct {
	eventID       uuid.UUID
	aggregateID   uuid.UUID
	aggregateType string
	routingKey    string
	occurredAt    time.Time
	metadata      EventMetadata
}

// NewBaseEvent creates an event raised now.
func NewBaseEvent(aggregateID uuid.UUID, aggregateType, routingKey string) BaseEvent {
	return BaseEvent{
		eventID:       uuid.New(),
		aggregateID:   aggregateID,
		aggregateType: aggregateType,
		routingKey:    routingKey,
		occurredAt:    time.Now().UTC(),
	}
}

func (e BaseEvent) EventID() uuid.UUID      { return e.eventID }
func (e BaseEvent) AggregateID() uuid.UUID  { return e.aggregateID }
func (e BaseEvent) AggregateType() string   { return e.aggregateType }
func (e BaseEvent) RoutingKey() string      { return e.routingKey }
func (e BaseEvent) OccurredAt() time.Time   { return e.occurredAt }
func (e BaseEvent) Metadata() EventMetadata { return e.metadata }

// SetMetadata stamps the command metadata on the event.
func (e *BaseEvent) SetMetadata(metadata EventMetadata) {
	e.metadata = metadata
}
