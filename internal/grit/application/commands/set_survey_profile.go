package commands

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/google/uuid"
)

// SetSurveyProfileCommand replaces the struggle tags of a user.
type SetSurveyProfileCommand struct {
	UserID    uuid.UUID
	Struggles []string
}

// SetSurveyProfileHandler handles the SetSurveyProfileCommand.
type SetSurveyProfileHandler struct {
	profiles domain.SurveyProfileRepository
}

// NewSetSurveyProfileHandler creates a new SetSurveyProfileHandler.
func NewSetSurveyProfileHandler(profiles domain.SurveyProfileRepository) *SetSurveyProfileHandler {
	return &SetSurveyProfileHandler{profiles: profiles}
}

// Handle executes the SetSurveyProfileCommand. Profiles only affect future
// trigger evaluation, so no score is invalidated.
func (h *SetSurveyProfileHandler) Handle(ctx context.Context, cmd SetSurveyProfileCommand) ([]domain.Struggle, error) {
	struggles := make([]domain.Struggle, 0, len(cmd.Struggles))
	for _, raw := range cmd.Struggles {
		s, err := domain.ParseStruggle(raw)
		if err != nil {
			return nil, err
		}
		struggles = append(struggles, s)
	}

	profile, err := domain.NewSurveyProfile(cmd.UserID, struggles)
	if err != nil {
		return nil, err
	}
	if err := h.profiles.SaveSurveyProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("save survey profile: %w", err)
	}
	return profile.Struggles(), nil
}
