package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/gritline/internal/shared/domain"
	"github.com/felixgeelhaar/gritline/pkg/observability"
)

// Publisher sends raw messages to a message broker.
type Publisher interface {
	// Publish sends a message to the event bus.
	Publish(ctx context.Context, routingKey string, payload []byte) error

	// Close closes the publisher connection.
	Close() error
}

// DomainPublisher turns domain events into envelopes on a Publisher.
type DomainPublisher struct {
	publisher Publisher
	metrics   observability.Metrics
}

// NewDomainPublisher creates the application-facing event publisher.
func NewDomainPublisher(publisher Publisher, metrics observability.Metrics) *DomainPublisher {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &DomainPublisher{publisher: publisher, metrics: metrics}
}

// PublishEvents publishes every event, continuing past failures.
func (p *DomainPublisher) PublishEvents(ctx context.Context, events []domain.DomainEvent) error {
	var errs []error
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			errs = append(errs, err)
			continue
		}
		p.metrics.Counter(observability.MetricEventsPublished, 1, observability.T("routing_key", event.RoutingKey()))
	}
	return errors.Join(errs...)
}

func (p *DomainPublisher) publish(ctx context.Context, event domain.DomainEvent) error {
	envelope, err := NewEnvelope(event)
	if err != nil {
		return err
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := p.publisher.Publish(ctx, event.RoutingKey(), body); err != nil {
		return fmt.Errorf("publish %s: %w", event.RoutingKey(), err)
	}
	return nil
}

// Close closes the underlying publisher.
func (p *DomainPublisher) Close() error {
	return p.publisher.Close()
}
