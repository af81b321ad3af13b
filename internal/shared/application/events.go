// Package application holds the transaction and event plumbing shared by
// the gritline command handlers.
package application

import (
	"context"

	"github.com/felixgeelhaar/gritline/internal/shared/domain"
	"github.com/google/uuid"
)

// EventPublisher delivers domain events once the change that raised them is stored.
type EventPublisher interface {
	PublishEvents(ctx context.Context, events []domain.DomainEvent) error
}

type metadataSetter interface {
	SetMetadata(metadata domain.EventMetadata)
}

// NewEventMetadata starts a correlation for one command issued by userID.
func NewEventMetadata(userID uuid.UUID) domain.EventMetadata {
	return domain.EventMetadata{
		CorrelationID: uuid.New(),
		CausationID:   uuid.New(),
		UserID:        userID,
	}
}

// PublishAggregateEvents stamps metadata on the aggregate's pending events,
// publishes them and clears them from the aggregate. A nil publisher only
// clears them. On a publish error the events stay pending.
func PublishAggregateEvents(ctx context.Context, publisher EventPublisher, agg domain.AggregateRoot, metadata domain.EventMetadata) error {
	events := agg.DomainEvents()
	if len(events) == 0 {
		return nil
	}
	for _, event := range events {
		if setter, ok := event.(metadataSetter); ok {
			setter.SetMetadata(metadata)
		}
	}
	if publisher != nil {
		if err := publisher.PublishEvents(ctx, events); err != nil {
			return err
		}
	}
	agg.ClearDomainEvents()
	return nil
}
