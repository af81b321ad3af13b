package queries

import (
	"context"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/google/uuid"
)

// InstanceDTO is the presentation form of a task instance. Derived is nil
// while the instance is pending or its score is unavailable.
type InstanceDTO struct {
	ID           uuid.UUID               `json:"id"`
	TaskID       uuid.UUID               `json:"task_id"`
	Predicted    domain.Predicted        `json:"predicted"`
	Actuals      *domain.Actuals         `json:"actuals,omitempty"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty"`
	Derived      *domain.DerivedScores   `json:"derived,omitempty"`
	TriggerState string                  `json:"trigger_state"`
	FiredTrigger string                  `json:"fired_trigger,omitempty"`
	Response     *domain.TriggerResponse `json:"response,omitempty"`
}

// GetInstanceQuery asks for one instance of a user.
type GetInstanceQuery struct {
	InstanceID uuid.UUID
	UserID     uuid.UUID
}

// GetInstanceHandler handles the GetInstanceQuery.
type GetInstanceHandler struct {
	instances domain.InstanceRepository
}

// NewGetInstanceHandler creates a new GetInstanceHandler.
func NewGetInstanceHandler(instances domain.InstanceRepository) *GetInstanceHandler {
	return &GetInstanceHandler{instances: instances}
}

// Handle executes the GetInstanceQuery.
func (h *GetInstanceHandler) Handle(ctx context.Context, query GetInstanceQuery) (*InstanceDTO, error) {
	inst, err := h.instances.FindByID(ctx, query.InstanceID)
	if err != nil {
		return nil, err
	}
	// Authorization check: other users' instances are reported as missing
	if inst == nil || !inst.OwnedBy(query.UserID) {
		return nil, domain.ErrInstanceNotFound
	}
	return toInstanceDTO(inst), nil
}

// ListInstancesQuery lists a user's instances of one task.
type ListInstancesQuery struct {
	UserID uuid.UUID
	TaskID uuid.UUID
}

// ListInstancesHandler handles the ListInstancesQuery.
type ListInstancesHandler struct {
	instances domain.InstanceRepository
}

// NewListInstancesHandler creates a new ListInstancesHandler.
func NewListInstancesHandler(instances domain.InstanceRepository) *ListInstancesHandler {
	return &ListInstancesHandler{instances: instances}
}

// Handle executes the ListInstancesQuery.
func (h *ListInstancesHandler) Handle(ctx context.Context, query ListInstancesQuery) ([]InstanceDTO, error) {
	insts, err := h.instances.FindByTask(ctx, query.UserID, query.TaskID)
	if err != nil {
		return nil, err
	}
	dtos := make([]InstanceDTO, 0, len(insts))
	for _, inst := range insts {
		dtos = append(dtos, *toInstanceDTO(inst))
	}
	return dtos, nil
}

func toInstanceDTO(inst *domain.TaskInstance) *InstanceDTO {
	dto := &InstanceDTO{
		ID:           inst.ID(),
		TaskID:       inst.TaskID(),
		Predicted:    inst.Predicted(),
		CompletedAt:  inst.CompletedAt(),
		TriggerState: string(inst.TriggerState()),
		FiredTrigger: inst.FiredTrigger(),
	}
	if a, ok := inst.Actuals(); ok {
		dto.Actuals = &a
	}
	if d, err := inst.Derived(); err == nil {
		dto.Derived = &d
	}
	if r, ok := inst.Response(); ok {
		dto.Response = &r
	}
	return dto
}
