package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/felixgeelhaar/gritline/pkg/observability"
)

// ConsumerRegistry routes consumed events to the consumers bound to their
// routing key.
type ConsumerRegistry struct {
	mu      sync.RWMutex
	byKey   map[string][]EventConsumer
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewConsumerRegistry creates an empty registry.
func NewConsumerRegistry(logger *slog.Logger) *ConsumerRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsumerRegistry{
		byKey:   make(map[string][]EventConsumer),
		logger:  logger,
		metrics: observability.NoopMetrics{},
	}
}

// WithMetrics counts dispatched events per routing key and outcome.
func (r *ConsumerRegistry) WithMetrics(metrics observability.Metrics) *ConsumerRegistry {
	if metrics != nil {
		r.metrics = metrics
	}
	return r
}

// Register binds consumer to each of its event types.
func (r *ConsumerRegistry) Register(consumer EventConsumer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range consumer.EventTypes() {
		r.byKey[key] = append(r.byKey[key], consumer)
		r.logger.Debug("consumer bound", "routing_key", key)
	}
}

// GetConsumers returns the consumers bound to a routing key.
func (r *ConsumerRegistry) GetConsumers(routingKey string) []EventConsumer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byKey[routingKey]
}

// GetAllEventTypes returns the bound routing keys in sorted order.
func (r *ConsumerRegistry) GetAllEventTypes() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.byKey))
	for key := range r.byKey {
		keys = append(keys, key)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// ConsumerCount returns the number of bindings.
func (r *ConsumerRegistry) ConsumerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, consumers := range r.byKey {
		n += len(consumers)
	}
	return n
}

// Dispatch hands event to every bound consumer, even after one fails, and
// joins their errors. The event's correlation ID is carried into ctx so
// consumer logs can be traced back to the command that raised it.
func (r *ConsumerRegistry) Dispatch(ctx context.Context, event *ConsumedEvent) error {
	consumers := r.GetConsumers(event.RoutingKey)
	if len(consumers) == 0 {
		r.logger.Debug("no consumer for routing key", "routing_key", event.RoutingKey)
		return nil
	}
	if id := event.Metadata.CorrelationID; id != "" {
		ctx = observability.WithCorrelationID(ctx, id)
	}

	var errs []error
	for _, consumer := range consumers {
		if err := consumer.Handle(ctx, event); err != nil {
			r.logger.ErrorContext(ctx, "consumer failed",
				"routing_key", event.RoutingKey,
				"event_id", event.EventID,
				"error", err,
			)
			errs = append(errs, err)
		}
	}

	status := "ok"
	if len(errs) > 0 {
		status = "error"
	}
	r.metrics.Counter(observability.MetricEventsConsumed, 1,
		observability.T("routing_key", event.RoutingKey),
		observability.T("status", status),
	)
	return errors.Join(errs...)
}
