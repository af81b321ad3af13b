package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/pkg/observability"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without touching the store while the breaker is open.
var ErrCircuitOpen = errors.New("data store circuit open")

// BreakerConfig tunes the circuit breaker around the data store.
type BreakerConfig struct {
	FailureThreshold uint32
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
}

// DefaultBreakerConfig returns the default breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
	}
}

// ResilientStore guards a data store with a circuit breaker. Domain
// outcomes such as a missing instance do not count as failures.
type ResilientStore struct {
	next    domain.DataStore
	breaker *gobreaker.CircuitBreaker[any]
	metrics observability.Metrics
}

var _ domain.DataStore = (*ResilientStore)(nil)

// NewResilientStore wraps next.
func NewResilientStore(next domain.DataStore, config BreakerConfig, metrics observability.Metrics, logger *slog.Logger) *ResilientStore {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        "datastore",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		IsSuccessful: isStoreSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &ResilientStore{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		metrics: metrics,
	}
}

// State reports the breaker state.
func (s *ResilientStore) State() gobreaker.State {
	return s.breaker.State()
}

func isStoreSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, domain.ErrInstanceNotFound) ||
		errors.Is(err, domain.ErrUnknownStruggle) ||
		errors.Is(err, context.Canceled)
}

func guard[T any](s *ResilientStore, op string, fn func() (T, error)) (T, error) {
	result, err := s.breaker.Execute(func() (any, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.metrics.Counter(observability.MetricStoreUnavailable, 1, observability.T("operation", op))
		var zero T
		return zero, fmt.Errorf("%s: %w", op, ErrCircuitOpen)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func guardErr(s *ResilientStore, op string, fn func() error) error {
	_, err := guard(s, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Save persists an instance (create or update).
func (s *ResilientStore) Save(ctx context.Context, inst *domain.TaskInstance) error {
	return guardErr(s, "save", func() error { return s.next.Save(ctx, inst) })
}

// FindByID returns nil, nil when the instance does not exist.
func (s *ResilientStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.TaskInstance, error) {
	return guard(s, "find_by_id", func() (*domain.TaskInstance, error) { return s.next.FindByID(ctx, id) })
}

// FindByTask lists a user's instances of a task, oldest first.
func (s *ResilientStore) FindByTask(ctx context.Context, userID, taskID uuid.UUID) ([]*domain.TaskInstance, error) {
	return guard(s, "find_by_task", func() ([]*domain.TaskInstance, error) {
		return s.next.FindByTask(ctx, userID, taskID)
	})
}

// Delete removes an instance.
func (s *ResilientStore) Delete(ctx context.Context, id uuid.UUID) error {
	return guardErr(s, "delete", func() error { return s.next.Delete(ctx, id) })
}

// LoadHistory returns the latest window completions of a task.
func (s *ResilientStore) LoadHistory(ctx context.Context, userID, taskID uuid.UUID, window int) (domain.CompletionHistory, error) {
	return guard(s, "load_history", func() (domain.CompletionHistory, error) {
		return s.next.LoadHistory(ctx, userID, taskID, window)
	})
}

// CountCompletions counts a task's completions strictly before the given time.
func (s *ResilientStore) CountCompletions(ctx context.Context, userID, taskID uuid.UUID, before time.Time) (int, error) {
	return guard(s, "count_completions", func() (int, error) {
		return s.next.CountCompletions(ctx, userID, taskID, before)
	})
}

// ListTaskIDs returns every task with at least one completion.
func (s *ResilientStore) ListTaskIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return guard(s, "list_task_ids", func() ([]uuid.UUID, error) { return s.next.ListTaskIDs(ctx, userID) })
}

// LoadSurveyProfile returns an empty profile when none was saved.
func (s *ResilientStore) LoadSurveyProfile(ctx context.Context, userID uuid.UUID) (domain.SurveyProfile, error) {
	return guard(s, "load_survey_profile", func() (domain.SurveyProfile, error) {
		return s.next.LoadSurveyProfile(ctx, userID)
	})
}

// SaveSurveyProfile replaces the stored profile of a user.
func (s *ResilientStore) SaveSurveyProfile(ctx context.Context, profile domain.SurveyProfile) error {
	return guardErr(s, "save_survey_profile", func() error { return s.next.SaveSurveyProfile(ctx, profile) })
}

// PersistTriggerRecord stores a trigger firing.
func (s *ResilientStore) PersistTriggerRecord(ctx context.Context, record domain.TriggerRecord) error {
	return guardErr(s, "persist_trigger_record", func() error { return s.next.PersistTriggerRecord(ctx, record) })
}

// LoadTriggerRecords returns the user's records fired at or after since.
func (s *ResilientStore) LoadTriggerRecords(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.TriggerRecord, error) {
	return guard(s, "load_trigger_records", func() ([]domain.TriggerRecord, error) {
		return s.next.LoadTriggerRecords(ctx, userID, since)
	})
}

// PruneTriggerRecords deletes records fired before the cutoff.
func (s *ResilientStore) PruneTriggerRecords(ctx context.Context, before time.Time) (int64, error) {
	return guard(s, "prune_trigger_records", func() (int64, error) { return s.next.PruneTriggerRecords(ctx, before) })
}

// PersistScore upserts the latest score of a scope.
func (s *ResilientStore) PersistScore(ctx context.Context, score domain.Score) error {
	return guardErr(s, "persist_score", func() error { return s.next.PersistScore(ctx, score) })
}

// FindScore returns the last persisted score of a scope.
func (s *ResilientStore) FindScore(ctx context.Context, userID uuid.UUID, scope domain.Scope) (*domain.Score, error) {
	return guard(s, "find_score", func() (*domain.Score, error) { return s.next.FindScore(ctx, userID, scope) })
}
