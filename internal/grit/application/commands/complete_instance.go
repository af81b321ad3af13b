package commands

import (
	"context"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/application/services"
	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/pkg/observability"
	"github.com/google/uuid"
)

// CompleteInstanceCommand records the outcome of a task instance.
type CompleteInstanceCommand struct {
	InstanceID  uuid.UUID
	UserID      uuid.UUID
	Actuals     domain.Actuals
	CompletedAt time.Time // zero means now
}

// CompleteInstanceResult contains the derived scores and the popup decision.
type CompleteInstanceResult struct {
	InstanceID uuid.UUID            `json:"instance_id"`
	TaskID     uuid.UUID            `json:"task_id"`
	Derived    domain.DerivedScores `json:"derived"`
	Decision   services.Decision    `json:"decision"`
}

// CompleteInstanceHandler handles the CompleteInstanceCommand.
type CompleteInstanceHandler struct {
	coherence *services.Coherence
	scheduler *services.Scheduler
	metrics   observability.Metrics
}

// NewCompleteInstanceHandler creates a new CompleteInstanceHandler.
func NewCompleteInstanceHandler(coherence *services.Coherence, scheduler *services.Scheduler, metrics observability.Metrics) *CompleteInstanceHandler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &CompleteInstanceHandler{
		coherence: coherence,
		scheduler: scheduler,
		metrics:   metrics,
	}
}

// Handle executes the CompleteInstanceCommand. The completion is stored
// before the trigger scheduler runs; if evaluation fails the completion
// stands and the error is returned.
func (h *CompleteInstanceHandler) Handle(ctx context.Context, cmd CompleteInstanceCommand) (result *CompleteInstanceResult, err error) {
	timer := observability.StartTimer("complete_instance").WithMetrics(h.metrics)
	defer func() { timer.StopWithError(err) }()

	completedAt := cmd.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	inst, err := h.coherence.Mutate(ctx, services.MutationComplete, cmd.InstanceID, cmd.UserID, func(inst *domain.TaskInstance) error {
		return inst.Complete(cmd.Actuals, completedAt)
	})
	if err != nil {
		return nil, err
	}
	h.metrics.Counter(observability.MetricInstancesCompleted, 1)

	derived, err := inst.Derived()
	if err != nil {
		return nil, err
	}

	decision, err := h.scheduler.Evaluate(ctx, inst.ID())
	if err != nil {
		return nil, err
	}

	return &CompleteInstanceResult{
		InstanceID: inst.ID(),
		TaskID:     inst.TaskID(),
		Derived:    derived,
		Decision:   decision,
	}, nil
}
