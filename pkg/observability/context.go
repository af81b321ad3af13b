package observability

import (
	"context"

	"github.com/google/uuid"
)

type correlationKey struct{}

// CorrelationIDKey is the log attribute carrying the correlation ID.
const CorrelationIDKey = "correlation_id"

// WithCorrelationID tags ctx so every log line written with it carries id.
// An empty id starts a new correlation.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationIDFromContext returns the correlation ID in ctx, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
