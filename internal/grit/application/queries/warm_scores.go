package queries

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/google/uuid"
)

// ScoreWarmer precomputes scores.
type ScoreWarmer interface {
	Warm(ctx context.Context, userID uuid.UUID, scopes []domain.Scope) error
}

// WarmScoresQuery precomputes every scope of a user ahead of a dashboard read.
type WarmScoresQuery struct {
	UserID uuid.UUID
}

// WarmScoresResult lists the scopes that were computed.
type WarmScoresResult struct {
	Scopes []string `json:"scopes"`
}

// WarmScoresHandler handles the WarmScoresQuery.
type WarmScoresHandler struct {
	history domain.HistoryReader
	warmer  ScoreWarmer
}

// NewWarmScoresHandler creates a new WarmScoresHandler.
func NewWarmScoresHandler(history domain.HistoryReader, warmer ScoreWarmer) *WarmScoresHandler {
	return &WarmScoresHandler{history: history, warmer: warmer}
}

// Handle executes the WarmScoresQuery.
func (h *WarmScoresHandler) Handle(ctx context.Context, query WarmScoresQuery) (*WarmScoresResult, error) {
	taskIDs, err := h.history.ListTaskIDs(ctx, query.UserID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	scopes := make([]domain.Scope, 0, len(taskIDs)+1)
	for _, id := range taskIDs {
		scopes = append(scopes, domain.TaskScope(id))
	}
	scopes = append(scopes, domain.ScopeAll)

	if err := h.warmer.Warm(ctx, query.UserID, scopes); err != nil {
		return nil, err
	}

	result := &WarmScoresResult{Scopes: make([]string, len(scopes))}
	for i, s := range scopes {
		result.Scopes[i] = s.String()
	}
	return result, nil
}
