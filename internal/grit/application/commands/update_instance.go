package commands

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/gritline/internal/grit/application/services"
	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/google/uuid"
)

// ErrNothingToUpdate is returned when an update carries no fields.
var ErrNothingToUpdate = errors.New("nothing to update")

// UpdateInstanceCommand corrects the predicted or actual fields of an instance.
type UpdateInstanceCommand struct {
	InstanceID uuid.UUID
	UserID     uuid.UUID
	Predicted  *domain.Predicted
	Actuals    *domain.Actuals
}

// UpdateInstanceHandler handles the UpdateInstanceCommand.
type UpdateInstanceHandler struct {
	coherence *services.Coherence
}

// NewUpdateInstanceHandler creates a new UpdateInstanceHandler.
func NewUpdateInstanceHandler(coherence *services.Coherence) *UpdateInstanceHandler {
	return &UpdateInstanceHandler{coherence: coherence}
}

// Handle executes the UpdateInstanceCommand.
func (h *UpdateInstanceHandler) Handle(ctx context.Context, cmd UpdateInstanceCommand) error {
	if cmd.Predicted == nil && cmd.Actuals == nil {
		return ErrNothingToUpdate
	}

	_, err := h.coherence.Mutate(ctx, services.MutationUpdate, cmd.InstanceID, cmd.UserID, func(inst *domain.TaskInstance) error {
		if cmd.Predicted != nil {
			if err := inst.UpdatePredicted(*cmd.Predicted); err != nil {
				return err
			}
		}
		if cmd.Actuals != nil {
			if err := inst.UpdateActuals(*cmd.Actuals); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}
