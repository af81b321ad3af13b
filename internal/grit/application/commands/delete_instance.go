package commands

import (
	"context"

	"github.com/felixgeelhaar/gritline/internal/grit/application/services"
	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/pkg/observability"
	"github.com/google/uuid"
)

// DeleteInstanceCommand removes an instance.
type DeleteInstanceCommand struct {
	InstanceID uuid.UUID
	UserID     uuid.UUID
}

// DeleteInstanceHandler handles the DeleteInstanceCommand.
type DeleteInstanceHandler struct {
	coherence *services.Coherence
	metrics   observability.Metrics
}

// NewDeleteInstanceHandler creates a new DeleteInstanceHandler.
func NewDeleteInstanceHandler(coherence *services.Coherence, metrics observability.Metrics) *DeleteInstanceHandler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &DeleteInstanceHandler{coherence: coherence, metrics: metrics}
}

// Handle executes the DeleteInstanceCommand.
func (h *DeleteInstanceHandler) Handle(ctx context.Context, cmd DeleteInstanceCommand) error {
	_, err := h.coherence.Mutate(ctx, services.MutationDelete, cmd.InstanceID, cmd.UserID, func(inst *domain.TaskInstance) error {
		inst.MarkDeleted()
		return nil
	})
	if err != nil {
		return err
	}

	h.metrics.Counter(observability.MetricInstancesDeleted, 1)
	return nil
}
