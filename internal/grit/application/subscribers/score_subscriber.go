package subscribers

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// ScoreRefresher recomputes and stores scores ahead of reads.
type ScoreRefresher interface {
	Invalidate(ctx context.Context, userID uuid.UUID, scope domain.Scope)
	Warm(ctx context.Context, userID uuid.UUID, scopes []domain.Scope) error
}

// ScoreSubscriber refreshes the task scope and the aggregate scope of a user
// whenever an event changes score inputs. Refreshing persists the score and
// mirrors it to the scoreboard.
type ScoreSubscriber struct {
	scores ScoreRefresher
	logger *slog.Logger
	// invalidate is set for workers whose cache never sees the mutation.
	invalidate bool
}

// NewScoreSubscriber creates the subscriber. Set invalidate when the
// subscriber runs in a different process than the mutation.
func NewScoreSubscriber(scores ScoreRefresher, invalidate bool, logger *slog.Logger) *ScoreSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoreSubscriber{scores: scores, invalidate: invalidate, logger: logger}
}

// EventTypes returns the event types this subscriber handles.
func (s *ScoreSubscriber) EventTypes() []string {
	return []string{
		domain.RoutingKeyInstanceCompleted,
		domain.RoutingKeyInstanceUpdated,
		domain.RoutingKeyInstanceDeleted,
		domain.RoutingKeyTriggerResponded,
	}
}

// instancePayload holds the fields every handled event carries.
type instancePayload struct {
	InstanceID uuid.UUID `json:"instance_id"`
	UserID     uuid.UUID `json:"user_id"`
	TaskID     uuid.UUID `json:"task_id"`
}

// Handle processes an event.
func (s *ScoreSubscriber) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var payload instancePayload
	if err := event.DecodePayload(&payload); err != nil {
		s.logger.WarnContext(ctx, "skipping event with unreadable payload",
			"routing_key", event.RoutingKey,
			"event_id", event.EventID,
			"error", err,
		)
		return nil
	}
	if payload.UserID == uuid.Nil || payload.TaskID == uuid.Nil {
		s.logger.WarnContext(ctx, "skipping event without user or task",
			"routing_key", event.RoutingKey,
			"event_id", event.EventID,
		)
		return nil
	}

	scopes := []domain.Scope{domain.TaskScope(payload.TaskID), domain.ScopeAll}
	if s.invalidate {
		for _, scope := range scopes {
			s.scores.Invalidate(ctx, payload.UserID, scope)
		}
	}
	if err := s.scores.Warm(ctx, payload.UserID, scopes); err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "scores refreshed",
		"routing_key", event.RoutingKey,
		"user_id", payload.UserID,
		"task_id", payload.TaskID,
	)
	return nil
}
