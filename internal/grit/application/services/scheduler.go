package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/trigger"
	sharedApplication "github.com/felixgeelhaar/gritline/internal/shared/application"
	"github.com/felixgeelhaar/gritline/pkg/observability"
	"github.com/google/uuid"
)

// SchedulerConfig holds the firing limits.
type SchedulerConfig struct {
	// Cooldown is the minimum time between two firings of the same trigger for a user.
	Cooldown time.Duration
	// DailyCap is the maximum number of triggers per user per UTC calendar day.
	DailyCap int
	// HistoryWindow bounds the history handed to predicates.
	HistoryWindow int
}

// DefaultSchedulerConfig returns the default firing limits.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Cooldown:      24 * time.Hour,
		DailyCap:      3,
		HistoryWindow: domain.DefaultHistoryWindow,
	}
}

// Reasons a completion produced no popup.
const (
	ReasonNoMatch  = "no_match"
	ReasonCooldown = "cooldown"
	ReasonDailyCap = "daily_cap"
)

// Decision is the outcome of evaluating one completed instance.
type Decision struct {
	InstanceID uuid.UUID         `json:"instance_id"`
	Fired      bool              `json:"fired"`
	TriggerID  trigger.ID        `json:"trigger_id,omitempty"`
	Priority   string            `json:"priority,omitempty"`
	Question   *trigger.Question `json:"question,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Matched    []trigger.ID      `json:"matched,omitempty"`
	Suppressed []trigger.ID      `json:"suppressed,omitempty"`
}

// Scheduler selects at most one trigger per completed instance.
type Scheduler struct {
	catalog   *trigger.Catalog
	store     domain.DataStore
	publisher sharedApplication.EventPublisher
	uow       sharedApplication.UnitOfWork
	locks     *InstanceLocks
	config    SchedulerConfig
	metrics   observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewScheduler creates a trigger scheduler. locks should be the table shared
// with Coherence; uow may be nil.
func NewScheduler(
	catalog *trigger.Catalog,
	store domain.DataStore,
	publisher sharedApplication.EventPublisher,
	uow sharedApplication.UnitOfWork,
	locks *InstanceLocks,
	config SchedulerConfig,
	metrics observability.Metrics,
	logger *slog.Logger,
) *Scheduler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if locks == nil {
		locks = NewInstanceLocks()
	}
	return &Scheduler{
		catalog:   catalog,
		store:     store,
		publisher: publisher,
		uow:       uow,
		locks:     locks,
		config:    config,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Catalog returns the rule catalog.
func (s *Scheduler) Catalog() *trigger.Catalog {
	return s.catalog
}

// Evaluate runs the catalog against a completed instance, records the firing
// and closes the instance's evaluation window. Selecting and recording hold
// the instance lock, and a second evaluation returns ErrTriggerAlreadyEvaluated.
func (s *Scheduler) Evaluate(ctx context.Context, instanceID uuid.UUID) (Decision, error) {
	unlock := s.locks.Lock(instanceID)
	defer unlock()

	inst, err := s.store.FindByID(ctx, instanceID)
	if err != nil {
		return Decision{}, storeErr("find instance", err)
	}
	if inst == nil {
		return Decision{}, domain.ErrInstanceNotFound
	}
	if !inst.IsCompleted() {
		return Decision{}, domain.ErrInstanceNotCompleted
	}
	if inst.TriggerState() != domain.TriggerStateNone {
		return Decision{}, domain.ErrTriggerAlreadyEvaluated
	}

	decision, err := s.decide(ctx, inst)
	if err != nil {
		return Decision{}, err
	}

	now := s.now()
	if err := inst.MarkTriggerEvaluated(string(decision.TriggerID), now); err != nil {
		return Decision{}, err
	}
	err = sharedApplication.RunInUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		if decision.Fired {
			record := domain.NewTriggerRecord(inst.UserID(), inst.ID(), string(decision.TriggerID), now)
			if err := s.store.PersistTriggerRecord(txCtx, record); err != nil {
				return storeErr("persist trigger record", err)
			}
		}
		return storeErr("save instance", s.store.Save(txCtx, inst))
	})
	if err != nil {
		return Decision{}, err
	}

	metadata := sharedApplication.NewEventMetadata(inst.UserID())
	if err := sharedApplication.PublishAggregateEvents(ctx, s.publisher, inst, metadata); err != nil {
		s.logger.WarnContext(ctx, "failed to publish trigger events", "instance_id", inst.ID(), "error", err)
	}

	if decision.Fired {
		s.metrics.Counter(observability.MetricTriggerFired, 1, observability.T("trigger", string(decision.TriggerID)))
	} else {
		s.metrics.Counter(observability.MetricTriggerSkipped, 1, observability.T("reason", decision.Reason))
	}
	s.logger.DebugContext(ctx, "trigger evaluated",
		"instance_id", inst.ID(),
		"fired", decision.Fired,
		"trigger", decision.TriggerID,
		"reason", decision.Reason,
	)
	return decision, nil
}

// decide applies cooldown, daily cap and priority to the matching rules.
func (s *Scheduler) decide(ctx context.Context, inst *domain.TaskInstance) (Decision, error) {
	decision := Decision{InstanceID: inst.ID()}

	history, err := s.store.LoadHistory(ctx, inst.UserID(), inst.TaskID(), s.config.HistoryWindow)
	if err != nil {
		return Decision{}, storeErr("load history", err)
	}
	survey, err := s.store.LoadSurveyProfile(ctx, inst.UserID())
	if err != nil {
		return Decision{}, storeErr("load survey profile", err)
	}

	tctx, err := trigger.NewContext(inst, history, survey)
	if err != nil {
		return Decision{}, err
	}
	matched := s.catalog.Match(tctx)
	for _, r := range matched {
		decision.Matched = append(decision.Matched, r.ID)
	}
	if len(matched) == 0 {
		decision.Reason = ReasonNoMatch
		return decision, nil
	}

	now := s.now()
	cooldownStart := now.Add(-s.config.Cooldown)
	dayStart := startOfDay(now)
	since := cooldownStart
	if dayStart.Before(since) {
		since = dayStart
	}
	records, err := s.store.LoadTriggerRecords(ctx, inst.UserID(), since)
	if err != nil {
		return Decision{}, storeErr("load trigger records", err)
	}

	firedToday := 0
	cooling := make(map[trigger.ID]bool)
	for _, r := range records {
		if r.Within(dayStart) {
			firedToday++
		}
		if r.Within(cooldownStart) {
			cooling[trigger.ID(r.TriggerID)] = true
		}
	}
	if s.config.DailyCap > 0 && firedToday >= s.config.DailyCap {
		decision.Reason = ReasonDailyCap
		decision.Suppressed = decision.Matched
		return decision, nil
	}

	candidates := make([]trigger.Rule, 0, len(matched))
	for _, r := range matched {
		if cooling[r.ID] {
			decision.Suppressed = append(decision.Suppressed, r.ID)
			continue
		}
		candidates = append(candidates, r)
	}

	selected, ok := trigger.Select(candidates)
	if !ok {
		decision.Reason = ReasonCooldown
		return decision, nil
	}

	decision.Fired = true
	decision.TriggerID = selected.ID
	decision.Priority = selected.Priority.String()
	decision.Question = selected.Questions
	return decision, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
