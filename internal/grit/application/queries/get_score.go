package queries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/application/services"
	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/formula"
	"github.com/google/uuid"
)

// ErrScoreNotCached is returned by a cached read when no score was stored for the scope.
var ErrScoreNotCached = errors.New("score not cached")

// Score statuses.
const (
	ScoreStatusOK          = "ok"
	ScoreStatusUnavailable = "unavailable"
)

// Score sources.
const (
	ScoreSourceEngine     = "engine"
	ScoreSourceScoreboard = "scoreboard"
	ScoreSourceStore      = "store"
)

// ScoreReader returns cached or freshly computed scores.
type ScoreReader interface {
	Get(ctx context.Context, userID uuid.UUID, scope domain.Scope) (domain.Score, uint64, error)
}

// StoredScoreReader reads the last persisted score of a scope.
type StoredScoreReader interface {
	FindScore(ctx context.Context, userID uuid.UUID, scope domain.Scope) (*domain.Score, error)
}

// MirroredScoreReader reads the score mirrored to a display surface.
type MirroredScoreReader interface {
	Latest(ctx context.Context, userID uuid.UUID, scope domain.Scope) (domain.Score, error)
}

// ScoreDTO is the presentation form of a score. An unavailable score carries
// a reason and no numbers.
type ScoreDTO struct {
	Scope        string    `json:"scope"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	Source       string    `json:"source,omitempty"`
	Grit         float64   `json:"grit"`
	Productivity float64   `json:"productivity"`
	Composite    float64   `json:"composite"`
	Instances    int       `json:"instances"`
	Version      uint64    `json:"version"`
	ComputedAt   time.Time `json:"computed_at,omitzero"`
}

// Available reports whether the score carries numbers.
func (s *ScoreDTO) Available() bool {
	return s.Status != ScoreStatusUnavailable
}

// UnavailableScore turns a score failure into a degraded score when the
// failure means the number cannot be trusted: invalid formula input or an
// unreachable data store. Other errors are returned unchanged.
func UnavailableScore(scope string, err error) (*ScoreDTO, error) {
	var reason string
	switch {
	case errors.Is(err, formula.ErrInvalidInput):
		reason = err.Error()
	case errors.Is(err, services.ErrCollaboratorUnavailable):
		reason = "data store unavailable"
	default:
		return nil, err
	}
	if scope == "" {
		scope = domain.ScopeAll.String()
	}
	return &ScoreDTO{Scope: scope, Status: ScoreStatusUnavailable, Reason: reason}, nil
}

// GetScoreQuery asks for the score of one scope: "all" or a task ID.
// Cached reads return the last published or persisted score without
// computing.
type GetScoreQuery struct {
	UserID uuid.UUID
	Scope  string
	Cached bool
}

// GetScoreHandler handles the GetScoreQuery.
type GetScoreHandler struct {
	scores ScoreReader
	stored StoredScoreReader
	mirror MirroredScoreReader
}

// NewGetScoreHandler creates a new GetScoreHandler. mirror may be nil.
func NewGetScoreHandler(scores ScoreReader, stored StoredScoreReader, mirror MirroredScoreReader) *GetScoreHandler {
	return &GetScoreHandler{scores: scores, stored: stored, mirror: mirror}
}

// Handle executes the GetScoreQuery. An empty scope means "all".
func (h *GetScoreHandler) Handle(ctx context.Context, query GetScoreQuery) (*ScoreDTO, error) {
	scope := domain.ScopeAll
	if query.Scope != "" {
		parsed, err := domain.ParseScope(query.Scope)
		if err != nil {
			return nil, err
		}
		scope = parsed
	}

	if query.Cached {
		return h.cached(ctx, query.UserID, scope)
	}

	score, version, err := h.scores.Get(ctx, query.UserID, scope)
	if err != nil {
		return nil, err
	}
	score.Version = version
	return toScoreDTO(score, scope, ScoreSourceEngine), nil
}

func (h *GetScoreHandler) cached(ctx context.Context, userID uuid.UUID, scope domain.Scope) (*ScoreDTO, error) {
	if h.mirror != nil {
		if score, err := h.mirror.Latest(ctx, userID, scope); err == nil {
			return toScoreDTO(score, scope, ScoreSourceScoreboard), nil
		}
	}
	if h.stored == nil {
		return nil, ErrScoreNotCached
	}

	score, err := h.stored.FindScore(ctx, userID, scope)
	if err != nil {
		return nil, fmt.Errorf("find score: %w: %w", services.ErrCollaboratorUnavailable, err)
	}
	if score == nil {
		return nil, ErrScoreNotCached
	}
	return toScoreDTO(*score, scope, ScoreSourceStore), nil
}

func toScoreDTO(score domain.Score, scope domain.Scope, source string) *ScoreDTO {
	return &ScoreDTO{
		Scope:        scope.String(),
		Status:       ScoreStatusOK,
		Source:       source,
		Grit:         score.Grit,
		Productivity: score.Productivity,
		Composite:    score.Composite,
		Instances:    score.Instances,
		Version:      score.Version,
		ComputedAt:   score.ComputedAt,
	}
}
