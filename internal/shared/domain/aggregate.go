// Package domain holds the building blocks shared by gritline aggregates.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// AggregateRoot is an entity that records the events raised by its changes
// until they are published.
type AggregateRoot interface {
	ID() uuid.UUID
	DomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot carries identity, timestamps and pending events.
type BaseAggregateRoot struct {
	id        uuid.UUID
	createdAt time.Time
	updatedAt time.Time
	events    []DomainEvent
}

// NewBaseAggregateRoot creates an aggregate with a fresh ID.
func NewBaseAggregateRoot() BaseAggregateRoot {
	now := time.Now().UTC()
	return BaseAggregateRoot{
		id:        uuid.New(),
		createdAt: now,
		updatedAt: now,
	}
}

// RehydrateBaseAggregateRoot restores an aggregate from storage. No events
// are pending afterwards.
func RehydrateBaseAggregateRoot(id uuid.UUID, createdAt, updatedAt time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{
		id:        id,
		createdAt: createdAt.UTC(),
		updatedAt: updatedAt.UTC(),
	}
}

func (a *BaseAggregateRoot) ID() uuid.UUID        { return a.id }
func (a *BaseAggregateRoot) CreatedAt() time.Time { return a.createdAt }
func (a *BaseAggregateRoot) UpdatedAt() time.Time { return a.updatedAt }

// Touch moves updatedAt to now.
func (a *BaseAggregateRoot) Touch() {
	a.updatedAt = time.Now().UTC()
}

// AddDomainEvent queues an event for publication.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

// DomainEvents returns the queued events, oldest first.
func (a *BaseAggregateRoot) DomainEvents() []DomainEvent {
	return a.events
}

// ClearDomainEvents drops the queued events.
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.events = nil
}
