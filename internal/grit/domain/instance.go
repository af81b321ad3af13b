package domain

import (
	"math"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/domain/formula"
	sharedDomain "github.com/felixgeelhaar/gritline/internal/shared/domain"
	"github.com/google/uuid"
)

// Predicted holds what the user expected before starting the task.
type Predicted struct {
	ExpectedAversion      float64 `json:"expected_aversion"`
	ExpectedRelief        float64 `json:"expected_relief"`
	ExpectedEmotionalLoad float64 `json:"expected_emotional_load"`
	TimeEstimateMinutes   float64 `json:"time_estimate_minutes"`
	TaskDifficulty        float64 `json:"task_difficulty"`
}

// Actuals holds what happened. It only exists once the instance is completed.
type Actuals struct {
	CompletionPercent   float64            `json:"completion_percent"`
	TimeActualMinutes   float64            `json:"time_actual_minutes"`
	ActualRelief        float64            `json:"actual_relief"`
	ActualEmotionalLoad float64            `json:"actual_emotional_load"`
	ActualDifficulty    float64            `json:"actual_difficulty"`
	StartupDelayMinutes float64            `json:"startup_delay_minutes"`
	EmotionValues       map[string]float64 `json:"emotion_values,omitempty"`
	Notes               string             `json:"notes,omitempty"`
}

// DerivedScores is the last score snapshot written back to the instance.
type DerivedScores struct {
	Grit         float64   `json:"grit"`
	Productivity float64   `json:"productivity"`
	Composite    float64   `json:"composite"`
	ComputedAt   time.Time `json:"computed_at"`
}

// TriggerResponse is the answer to the one popup shown for an instance.
type TriggerResponse struct {
	TriggerID      string              `json:"trigger_id"`
	AnswerCode     string              `json:"answer_code"`
	FocusResponse  string              `json:"focus_response,omitempty"`
	AffectResponse string              `json:"affect_response,omitempty"`
	FreeText       string              `json:"free_text,omitempty"`
	Adjustments    formula.Adjustments `json:"adjustments"`
	RespondedAt    time.Time           `json:"responded_at"`
}

// TriggerState tracks the popup lifecycle of an instance.
type TriggerState string

const (
	TriggerStateNone      TriggerState = "none"
	TriggerStateEvaluated TriggerState = "evaluated" // evaluated, nothing fired
	TriggerStateFired     TriggerState = "fired"
	TriggerStateResponded TriggerState = "responded"
)

// TaskInstance is one occurrence of performing a task.
type TaskInstance struct {
	sharedDomain.BaseAggregateRoot
	userID       uuid.UUID
	taskID       uuid.UUID
	predicted    Predicted
	actuals      *Actuals
	completedAt  *time.Time
	derived      *DerivedScores
	triggerState TriggerState
	firedTrigger string
	response     *TriggerResponse
}

// NewTaskInstance creates a pending instance of a task.
func NewTaskInstance(userID, taskID uuid.UUID, predicted Predicted) (*TaskInstance, error) {
	if err := predicted.Validate(); err != nil {
		return nil, err
	}

	inst := &TaskInstance{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		userID:            userID,
		taskID:            taskID,
		predicted:         predicted,
		triggerState:      TriggerStateNone,
	}

	inst.AddDomainEvent(NewInstanceCreated(inst))

	return inst, nil
}

// Getters
func (i *TaskInstance) UserID() uuid.UUID          { return i.userID }
func (i *TaskInstance) TaskID() uuid.UUID          { return i.taskID }
func (i *TaskInstance) Predicted() Predicted       { return i.predicted }
func (i *TaskInstance) CompletedAt() *time.Time    { return i.completedAt }
func (i *TaskInstance) TriggerState() TriggerState { return i.triggerState }
func (i *TaskInstance) FiredTrigger() string       { return i.firedTrigger }
func (i *TaskInstance) IsCompleted() bool          { return i.actuals != nil }

// Actuals returns the recorded outcome, or false while the instance is pending.
func (i *TaskInstance) Actuals() (Actuals, bool) {
	if i.actuals == nil {
		return Actuals{}, false
	}
	return *i.actuals, true
}

// Response returns the recorded trigger response, if any.
func (i *TaskInstance) Response() (TriggerResponse, bool) {
	if i.response == nil {
		return TriggerResponse{}, false
	}
	return *i.response, true
}

// Derived returns the score snapshot. Reading it before completion is an error.
func (i *TaskInstance) Derived() (DerivedScores, error) {
	if i.actuals == nil {
		return DerivedScores{}, ErrInstanceNotCompleted
	}
	if i.derived == nil {
		return DerivedScores{}, ErrScoreNotComputed
	}
	return *i.derived, nil
}

// Adjustments returns the score corrections from the trigger response.
func (i *TaskInstance) Adjustments() formula.Adjustments {
	if i.response == nil {
		return formula.Adjustments{}
	}
	return i.response.Adjustments
}

// OwnedBy reports whether the instance belongs to the user.
func (i *TaskInstance) OwnedBy(userID uuid.UUID) bool {
	return i.userID == userID
}

// UpdatePredicted replaces the predicted fields.
func (i *TaskInstance) UpdatePredicted(p Predicted) error {
	if err := p.Validate(); err != nil {
		return err
	}
	i.predicted = p
	i.Touch()
	i.AddDomainEvent(NewInstanceUpdated(i))
	return nil
}

// Complete records the outcome of the instance.
func (i *TaskInstance) Complete(a Actuals, at time.Time) error {
	if i.actuals != nil {
		return ErrInstanceAlreadyCompleted
	}
	if err := a.Validate(); err != nil {
		return err
	}

	a.EmotionValues = copyEmotions(a.EmotionValues)
	i.actuals = &a
	completedAt := at.UTC()
	i.completedAt = &completedAt
	i.Touch()

	i.AddDomainEvent(NewInstanceCompleted(i))

	return nil
}

// UpdateActuals corrects the outcome of a completed instance.
func (i *TaskInstance) UpdateActuals(a Actuals) error {
	if i.actuals == nil {
		return ErrInstanceNotCompleted
	}
	if err := a.Validate(); err != nil {
		return err
	}

	a.EmotionValues = copyEmotions(a.EmotionValues)
	i.actuals = &a
	i.Touch()
	i.AddDomainEvent(NewInstanceUpdated(i))
	return nil
}

// FormulaInputs assembles the scoring inputs for the given completion ordinal.
func (i *TaskInstance) FormulaInputs(completionCount int) (formula.Inputs, error) {
	if i.actuals == nil {
		return formula.Inputs{}, ErrInstanceNotCompleted
	}
	return formula.Inputs{
		CompletionPercent:   i.actuals.CompletionPercent,
		CompletionCount:     completionCount,
		TimeActualMinutes:   i.actuals.TimeActualMinutes,
		TimeEstimateMinutes: i.predicted.TimeEstimateMinutes,
		Difficulty:          i.predicted.TaskDifficulty,
		ActualRelief:        i.actuals.ActualRelief,
		ExpectedRelief:      i.predicted.ExpectedRelief,
		ActualEmotionalLoad: i.actuals.ActualEmotionalLoad,
		Adjustments:         i.Adjustments(),
	}, nil
}

// RecordScores stores the derived score snapshot.
func (i *TaskInstance) RecordScores(b formula.Breakdown, at time.Time) error {
	if i.actuals == nil {
		return ErrInstanceNotCompleted
	}
	i.derived = &DerivedScores{
		Grit:         b.Grit,
		Productivity: b.Productivity,
		Composite:    b.Composite,
		ComputedAt:   at.UTC(),
	}
	return nil
}

// MarkTriggerEvaluated closes the evaluation window for this instance.
// An empty triggerID records that nothing fired.
func (i *TaskInstance) MarkTriggerEvaluated(triggerID string, at time.Time) error {
	if i.actuals == nil {
		return ErrInstanceNotCompleted
	}
	if i.triggerState != TriggerStateNone {
		return ErrTriggerAlreadyEvaluated
	}

	if triggerID == "" {
		i.triggerState = TriggerStateEvaluated
		i.Touch()
		return nil
	}

	i.triggerState = TriggerStateFired
	i.firedTrigger = triggerID
	i.Touch()
	i.AddDomainEvent(NewTriggerFired(i, at))
	return nil
}

// RecordResponse stores the answer to the fired trigger. It can happen once.
func (i *TaskInstance) RecordResponse(r TriggerResponse) error {
	switch i.triggerState {
	case TriggerStateResponded:
		return ErrResponseAlreadyRecorded
	case TriggerStateFired:
	default:
		return ErrNoTriggerFired
	}
	if r.TriggerID != i.firedTrigger {
		return ErrInvalidResponsePath
	}
	if err := r.Adjustments.Validate(); err != nil {
		return err
	}

	r.RespondedAt = r.RespondedAt.UTC()
	i.response = &r
	i.triggerState = TriggerStateResponded
	i.Touch()
	i.AddDomainEvent(NewTriggerResponded(i))
	return nil
}

// MarkDeleted emits the deletion event before the repository removes the row.
func (i *TaskInstance) MarkDeleted() {
	i.AddDomainEvent(NewInstanceDeleted(i))
}

// Validate checks the predicted fields.
func (p Predicted) Validate() error {
	if err := finite(map[string]float64{
		"expected_aversion":       p.ExpectedAversion,
		"expected_relief":         p.ExpectedRelief,
		"expected_emotional_load": p.ExpectedEmotionalLoad,
		"time_estimate_minutes":   p.TimeEstimateMinutes,
		"task_difficulty":         p.TaskDifficulty,
	}); err != nil {
		return err
	}
	if p.TimeEstimateMinutes < 0 {
		return &formula.InputError{Field: "time_estimate_minutes", Value: p.TimeEstimateMinutes, Reason: "must be >= 0"}
	}
	if p.TaskDifficulty < 0 || p.TaskDifficulty > 100 {
		return &formula.InputError{Field: "task_difficulty", Value: p.TaskDifficulty, Reason: "must be within [0,100]"}
	}
	return nil
}

// Validate checks the actual fields.
func (a Actuals) Validate() error {
	values := map[string]float64{
		"completion_percent":    a.CompletionPercent,
		"time_actual_minutes":   a.TimeActualMinutes,
		"actual_relief":         a.ActualRelief,
		"actual_emotional_load": a.ActualEmotionalLoad,
		"actual_difficulty":     a.ActualDifficulty,
		"startup_delay_minutes": a.StartupDelayMinutes,
	}
	for name, v := range a.EmotionValues {
		values["emotion."+name] = v
	}
	if err := finite(values); err != nil {
		return err
	}
	if a.CompletionPercent < 0 || a.CompletionPercent > 100 {
		return &formula.InputError{Field: "completion_percent", Value: a.CompletionPercent, Reason: "must be within [0,100]"}
	}
	if a.TimeActualMinutes < 0 {
		return &formula.InputError{Field: "time_actual_minutes", Value: a.TimeActualMinutes, Reason: "must be >= 0"}
	}
	if a.StartupDelayMinutes < 0 {
		return &formula.InputError{Field: "startup_delay_minutes", Value: a.StartupDelayMinutes, Reason: "must be >= 0"}
	}
	return nil
}

func finite(values map[string]float64) error {
	for name, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &formula.InputError{Field: name, Value: v, Reason: "must be finite"}
		}
	}
	return nil
}

func copyEmotions(in map[string]float64) map[string]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// InstanceSnapshot is the persisted state of a TaskInstance.
type InstanceSnapshot struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	TaskID       uuid.UUID
	Predicted    Predicted
	Actuals      *Actuals
	CompletedAt  *time.Time
	Derived      *DerivedScores
	TriggerState TriggerState
	FiredTrigger string
	Response     *TriggerResponse
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Snapshot exports the instance state for persistence.
func (i *TaskInstance) Snapshot() InstanceSnapshot {
	return InstanceSnapshot{
		ID:           i.ID(),
		UserID:       i.userID,
		TaskID:       i.taskID,
		Predicted:    i.predicted,
		Actuals:      i.actuals,
		CompletedAt:  i.completedAt,
		Derived:      i.derived,
		TriggerState: i.triggerState,
		FiredTrigger: i.firedTrigger,
		Response:     i.response,
		CreatedAt:    i.CreatedAt(),
		UpdatedAt:    i.UpdatedAt(),
	}
}

// RehydrateTaskInstance recreates an instance from persisted state without generating events.
func RehydrateTaskInstance(s InstanceSnapshot) *TaskInstance {
	state := s.TriggerState
	if state == "" {
		state = TriggerStateNone
	}
	return &TaskInstance{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(s.ID, s.CreatedAt, s.UpdatedAt),
		userID:            s.UserID,
		taskID:            s.TaskID,
		predicted:         s.Predicted,
		actuals:           s.Actuals,
		completedAt:       s.CompletedAt,
		derived:           s.Derived,
		triggerState:      state,
		firedTrigger:      s.FiredTrigger,
		response:          s.Response,
	}
}
