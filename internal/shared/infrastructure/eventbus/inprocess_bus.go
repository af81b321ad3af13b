package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// InProcessEventBus is the Publisher used in local mode. Each published
// envelope is decoded and handed to the registry before Publish returns,
// so score refreshes are done by the time a command completes.
type InProcessEventBus struct {
	registry *ConsumerRegistry
	logger   *slog.Logger
}

// NewInProcessEventBus creates a bus with an empty registry.
func NewInProcessEventBus(logger *slog.Logger) *InProcessEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessEventBus{registry: NewConsumerRegistry(logger), logger: logger}
}

// RegisterConsumer binds consumer to its event types.
func (b *InProcessEventBus) RegisterConsumer(consumer EventConsumer) {
	b.registry.Register(consumer)
}

// Registry exposes the registry for metrics wiring and inspection.
func (b *InProcessEventBus) Registry() *ConsumerRegistry {
	return b.registry
}

// Publish dispatches the envelope in payload. Consumer failures are logged
// by the registry and never reach the publishing command: the change that
// raised the event is already committed.
func (b *InProcessEventBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	event, err := decodeEnvelope(payload, routingKey)
	if err != nil {
		b.logger.ErrorContext(ctx, "dropping undecodable event", "routing_key", routingKey, "error", err)
		return nil
	}
	_ = b.registry.Dispatch(ctx, event)
	return nil
}

func (b *InProcessEventBus) Close() error { return nil }

// decodeEnvelope parses a message body. The transport routing key fills in
// a missing envelope key.
func decodeEnvelope(body []byte, routingKey string) (*ConsumedEvent, error) {
	event := &ConsumedEvent{}
	if err := json.Unmarshal(body, event); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if event.RoutingKey == "" {
		event.RoutingKey = routingKey
	}
	return event, nil
}
