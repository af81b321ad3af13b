package commands

import (
	"context"

	"github.com/felixgeelhaar/gritline/internal/grit/application/services"
	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/pkg/observability"
	"github.com/google/uuid"
)

// CreateInstanceCommand contains the data needed to start a task instance.
type CreateInstanceCommand struct {
	UserID    uuid.UUID
	TaskID    uuid.UUID
	Predicted domain.Predicted
}

// CreateInstanceResult contains the result of creating an instance.
type CreateInstanceResult struct {
	InstanceID uuid.UUID `json:"instance_id"`
	TaskID     uuid.UUID `json:"task_id"`
}

// CreateInstanceHandler handles the CreateInstanceCommand.
type CreateInstanceHandler struct {
	coherence *services.Coherence
	metrics   observability.Metrics
}

// NewCreateInstanceHandler creates a new CreateInstanceHandler.
func NewCreateInstanceHandler(coherence *services.Coherence, metrics observability.Metrics) *CreateInstanceHandler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &CreateInstanceHandler{coherence: coherence, metrics: metrics}
}

// Handle executes the CreateInstanceCommand. A nil TaskID starts a new task.
func (h *CreateInstanceHandler) Handle(ctx context.Context, cmd CreateInstanceCommand) (*CreateInstanceResult, error) {
	taskID := cmd.TaskID
	if taskID == uuid.Nil {
		taskID = uuid.New()
	}

	inst, err := domain.NewTaskInstance(cmd.UserID, taskID, cmd.Predicted)
	if err != nil {
		return nil, err
	}
	if err := h.coherence.Create(ctx, inst); err != nil {
		return nil, err
	}

	h.metrics.Counter(observability.MetricInstancesCreated, 1)
	return &CreateInstanceResult{InstanceID: inst.ID(), TaskID: taskID}, nil
}
