package commands

import (
	"context"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/application/services"
	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/formula"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/trigger"
	"github.com/felixgeelhaar/gritline/pkg/observability"
	"github.com/google/uuid"
)

// RecordResponseCommand answers the popup shown for an instance. Path lists
// the option codes chosen from the root question down to a leaf.
type RecordResponseCommand struct {
	InstanceID uuid.UUID
	UserID     uuid.UUID
	Path       []string
	FreeText   string
}

// RecordResponseResult contains the applied answer and the refreshed scores.
type RecordResponseResult struct {
	InstanceID  uuid.UUID            `json:"instance_id"`
	TriggerID   string               `json:"trigger_id"`
	AnswerCode  string               `json:"answer_code"`
	Adjustments formula.Adjustments  `json:"adjustments"`
	Derived     domain.DerivedScores `json:"derived"`
}

// RecordResponseHandler handles the RecordResponseCommand.
type RecordResponseHandler struct {
	coherence *services.Coherence
	catalog   *trigger.Catalog
	metrics   observability.Metrics
}

// NewRecordResponseHandler creates a new RecordResponseHandler.
func NewRecordResponseHandler(coherence *services.Coherence, catalog *trigger.Catalog, metrics observability.Metrics) *RecordResponseHandler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &RecordResponseHandler{
		coherence: coherence,
		catalog:   catalog,
		metrics:   metrics,
	}
}

// Handle executes the RecordResponseCommand. The answer's score impact is
// applied once and the affected scores are invalidated before returning.
func (h *RecordResponseHandler) Handle(ctx context.Context, cmd RecordResponseCommand) (*RecordResponseResult, error) {
	var response domain.TriggerResponse

	inst, err := h.coherence.Mutate(ctx, services.MutationRespond, cmd.InstanceID, cmd.UserID, func(inst *domain.TaskInstance) error {
		if inst.TriggerState() != domain.TriggerStateFired {
			// let the aggregate report the precise state error
			return inst.RecordResponse(domain.TriggerResponse{})
		}

		rule, ok := h.catalog.Rule(trigger.ID(inst.FiredTrigger()))
		if !ok {
			return domain.ErrInvalidResponsePath
		}
		res, err := rule.Questions.Resolve(cmd.Path)
		if err != nil {
			return err
		}

		response = domain.TriggerResponse{
			TriggerID:      string(rule.ID),
			AnswerCode:     res.Answer.Code(),
			FocusResponse:  res.FocusResponse,
			AffectResponse: res.AffectResponse,
			FreeText:       cmd.FreeText,
			Adjustments:    res.Answer.Impact(),
			RespondedAt:    time.Now(),
		}
		return inst.RecordResponse(response)
	})
	if err != nil {
		return nil, err
	}

	derived, err := inst.Derived()
	if err != nil {
		return nil, err
	}

	h.metrics.Counter(observability.MetricTriggerResponded, 1, observability.T("trigger", response.TriggerID))
	return &RecordResponseResult{
		InstanceID:  inst.ID(),
		TriggerID:   response.TriggerID,
		AnswerCode:  response.AnswerCode,
		Adjustments: response.Adjustments,
		Derived:     derived,
	}, nil
}
