package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/trigger"
	"github.com/felixgeelhaar/gritline/pkg/observability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(store *testStore, publisher *capturePublisher, metrics observability.Metrics) *Scheduler {
	s := NewScheduler(trigger.DefaultCatalog(), store, publisher, nil, nil, DefaultSchedulerConfig(), metrics, nil)
	s.now = fixedClock
	return s
}

func seedRecord(t *testing.T, store *testStore, userID uuid.UUID, id trigger.ID, at time.Time) {
	t.Helper()
	require.NoError(t, store.PersistTriggerRecord(context.Background(), domain.NewTriggerRecord(userID, uuid.New(), string(id), at)))
}

func TestScheduler_Evaluate_FiresHighestPriority(t *testing.T) {
	store := newTestStore()
	publisher := &capturePublisher{}
	metrics := observability.NewInMemoryMetrics()
	s := newTestScheduler(store, publisher, metrics)
	inst := completeInstance(t, store, uuid.New(), uuid.New(), scenarioPredicted, scenarioActuals, fixedNow)

	decision, err := s.Evaluate(context.Background(), inst.ID())

	require.NoError(t, err)
	assert.True(t, decision.Fired)
	assert.Equal(t, trigger.NegativeAffect, decision.TriggerID)
	assert.Equal(t, "high", decision.Priority)
	assert.Equal(t, []trigger.ID{trigger.NegativeAffect, trigger.TimeOverrun}, decision.Matched)
	require.NotNil(t, decision.Question)
	assert.Equal(t, trigger.AxisAffect, decision.Question.Axis)

	stored, err := store.FindByID(context.Background(), inst.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.TriggerStateFired, stored.TriggerState())
	assert.Equal(t, string(trigger.NegativeAffect), stored.FiredTrigger())

	records := recordsOf(t, store, inst.UserID())
	require.Len(t, records, 1)
	assert.Equal(t, fixedNow, records[0].FiredAt)
	assert.Equal(t, []string{domain.RoutingKeyTriggerFired}, publisher.routingKeys())
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricTriggerFired, observability.T("trigger", "negative_affect")))
}

func TestScheduler_Evaluate_NoMatch(t *testing.T) {
	store := newTestStore()
	publisher := &capturePublisher{}
	s := newTestScheduler(store, publisher, nil)
	inst := completeInstance(t, store, uuid.New(), uuid.New(), scenarioPredicted, calmActuals, fixedNow)

	decision, err := s.Evaluate(context.Background(), inst.ID())

	require.NoError(t, err)
	assert.False(t, decision.Fired)
	assert.Equal(t, ReasonNoMatch, decision.Reason)
	assert.Empty(t, decision.Matched)
	assert.Empty(t, recordsOf(t, store, inst.UserID()))
	assert.Empty(t, publisher.routingKeys())

	stored, err := store.FindByID(context.Background(), inst.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.TriggerStateEvaluated, stored.TriggerState())
}

func TestScheduler_Evaluate_SecondEvaluationFails(t *testing.T) {
	store := newTestStore()
	s := newTestScheduler(store, &capturePublisher{}, nil)
	inst := completeInstance(t, store, uuid.New(), uuid.New(), scenarioPredicted, scenarioActuals, fixedNow)

	_, err := s.Evaluate(context.Background(), inst.ID())
	require.NoError(t, err)

	_, err = s.Evaluate(context.Background(), inst.ID())
	assert.ErrorIs(t, err, domain.ErrTriggerAlreadyEvaluated)
	assert.Len(t, recordsOf(t, store, inst.UserID()), 1)
}

func TestScheduler_Evaluate_ConcurrentCallsFireOnce(t *testing.T) {
	store := newTestStore()
	s := newTestScheduler(store, &capturePublisher{}, nil)
	inst := completeInstance(t, store, uuid.New(), uuid.New(), scenarioPredicted, scenarioActuals, fixedNow)

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		fired    int
		rejected int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := s.Evaluate(context.Background(), inst.ID())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrTriggerAlreadyEvaluated)
				rejected++
				return
			}
			if decision.Fired {
				fired++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fired)
	assert.Equal(t, callers-1, rejected)
	assert.Len(t, recordsOf(t, store, inst.UserID()), 1)
}

func TestScheduler_Evaluate_Cooldown(t *testing.T) {
	t.Run("falls back to the next rule when the winner is cooling down", func(t *testing.T) {
		store := newTestStore()
		s := newTestScheduler(store, &capturePublisher{}, nil)
		userID := uuid.New()
		seedRecord(t, store, userID, trigger.NegativeAffect, fixedNow.Add(-2*time.Hour))
		inst := completeInstance(t, store, userID, uuid.New(), scenarioPredicted, scenarioActuals, fixedNow)

		decision, err := s.Evaluate(context.Background(), inst.ID())

		require.NoError(t, err)
		assert.True(t, decision.Fired)
		assert.Equal(t, trigger.TimeOverrun, decision.TriggerID)
		assert.Equal(t, []trigger.ID{trigger.NegativeAffect}, decision.Suppressed)
	})

	t.Run("suppresses when every match is cooling down", func(t *testing.T) {
		store := newTestStore()
		s := newTestScheduler(store, &capturePublisher{}, nil)
		userID := uuid.New()
		seedRecord(t, store, userID, trigger.TimeOverrun, fixedNow.Add(-23*time.Hour))
		inst := completeInstance(t, store, userID, uuid.New(), scenarioPredicted, overrunActuals, fixedNow)

		decision, err := s.Evaluate(context.Background(), inst.ID())

		require.NoError(t, err)
		assert.False(t, decision.Fired)
		assert.Equal(t, ReasonCooldown, decision.Reason)
		assert.Len(t, recordsOf(t, store, userID), 1)

		stored, err := store.FindByID(context.Background(), inst.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.TriggerStateEvaluated, stored.TriggerState())
	})

	t.Run("expired cooldown fires again", func(t *testing.T) {
		store := newTestStore()
		s := newTestScheduler(store, &capturePublisher{}, nil)
		userID := uuid.New()
		seedRecord(t, store, userID, trigger.TimeOverrun, fixedNow.Add(-25*time.Hour))
		inst := completeInstance(t, store, userID, uuid.New(), scenarioPredicted, overrunActuals, fixedNow)

		decision, err := s.Evaluate(context.Background(), inst.ID())

		require.NoError(t, err)
		assert.True(t, decision.Fired)
		assert.Equal(t, trigger.TimeOverrun, decision.TriggerID)
	})

	t.Run("cooldown is per user", func(t *testing.T) {
		store := newTestStore()
		s := newTestScheduler(store, &capturePublisher{}, nil)
		seedRecord(t, store, uuid.New(), trigger.TimeOverrun, fixedNow.Add(-time.Hour))
		inst := completeInstance(t, store, uuid.New(), uuid.New(), scenarioPredicted, overrunActuals, fixedNow)

		decision, err := s.Evaluate(context.Background(), inst.ID())

		require.NoError(t, err)
		assert.True(t, decision.Fired)
	})
}

func TestScheduler_Evaluate_DailyCap(t *testing.T) {
	t.Run("stops firing once the cap is reached", func(t *testing.T) {
		store := newTestStore()
		s := newTestScheduler(store, &capturePublisher{}, nil)
		userID := uuid.New()
		seedRecord(t, store, userID, trigger.PartialCompletion, fixedNow.Add(-6*time.Hour))
		seedRecord(t, store, userID, trigger.VeryLowCompletion, fixedNow.Add(-5*time.Hour))
		seedRecord(t, store, userID, trigger.Procrastination, fixedNow.Add(-4*time.Hour))
		inst := completeInstance(t, store, userID, uuid.New(), scenarioPredicted, scenarioActuals, fixedNow)

		decision, err := s.Evaluate(context.Background(), inst.ID())

		require.NoError(t, err)
		assert.False(t, decision.Fired)
		assert.Equal(t, ReasonDailyCap, decision.Reason)
		assert.Equal(t, decision.Matched, decision.Suppressed)
		assert.Len(t, recordsOf(t, store, userID), 3)
	})

	t.Run("counts the UTC calendar day only", func(t *testing.T) {
		store := newTestStore()
		s := newTestScheduler(store, &capturePublisher{}, nil)
		userID := uuid.New()
		yesterday := fixedNow.Add(-16 * time.Hour)
		seedRecord(t, store, userID, trigger.PartialCompletion, yesterday)
		seedRecord(t, store, userID, trigger.VeryLowCompletion, yesterday)
		seedRecord(t, store, userID, trigger.Procrastination, yesterday)
		inst := completeInstance(t, store, userID, uuid.New(), scenarioPredicted, scenarioActuals, fixedNow)

		decision, err := s.Evaluate(context.Background(), inst.ID())

		require.NoError(t, err)
		assert.True(t, decision.Fired)
		assert.Equal(t, trigger.NegativeAffect, decision.TriggerID)
	})

	t.Run("cooldown limits successive completions before the cap", func(t *testing.T) {
		store := newTestStore()
		s := newTestScheduler(store, &capturePublisher{}, nil)
		userID := uuid.New()

		var fired int
		for range 5 {
			inst := completeInstance(t, store, userID, uuid.New(), scenarioPredicted, scenarioActuals, fixedNow)
			decision, err := s.Evaluate(context.Background(), inst.ID())
			require.NoError(t, err)
			if decision.Fired {
				fired++
			}
		}

		// negative_affect then time_overrun, then both are cooling down
		assert.Equal(t, 2, fired)
	})
}

func TestScheduler_Evaluate_Procrastination(t *testing.T) {
	store := newTestStore()
	s := newTestScheduler(store, &capturePublisher{}, nil)
	userID := uuid.New()
	profile, err := domain.NewSurveyProfile(userID, []domain.Struggle{domain.StruggleProcrastination})
	require.NoError(t, err)
	require.NoError(t, store.SaveSurveyProfile(context.Background(), profile))

	actuals := calmActuals
	actuals.TimeActualMinutes = 90
	actuals.StartupDelayMinutes = 120
	inst := completeInstance(t, store, userID, uuid.New(), scenarioPredicted, actuals, fixedNow)

	decision, err := s.Evaluate(context.Background(), inst.ID())

	require.NoError(t, err)
	assert.True(t, decision.Fired)
	assert.Equal(t, trigger.Procrastination, decision.TriggerID)
}

func TestScheduler_Evaluate_Errors(t *testing.T) {
	t.Run("unknown instance", func(t *testing.T) {
		s := newTestScheduler(newTestStore(), &capturePublisher{}, nil)

		_, err := s.Evaluate(context.Background(), uuid.New())

		assert.ErrorIs(t, err, domain.ErrInstanceNotFound)
	})

	t.Run("pending instance", func(t *testing.T) {
		store := newTestStore()
		s := newTestScheduler(store, &capturePublisher{}, nil)
		inst, err := domain.NewTaskInstance(uuid.New(), uuid.New(), scenarioPredicted)
		require.NoError(t, err)
		require.NoError(t, store.Save(context.Background(), inst))

		_, err = s.Evaluate(context.Background(), inst.ID())

		assert.ErrorIs(t, err, domain.ErrInstanceNotCompleted)
	})

	t.Run("store unavailable", func(t *testing.T) {
		store := newTestStore()
		s := newTestScheduler(store, &capturePublisher{}, nil)
		inst := completeInstance(t, store, uuid.New(), uuid.New(), scenarioPredicted, scenarioActuals, fixedNow)
		store.goOffline(errStoreDown)

		_, err := s.Evaluate(context.Background(), inst.ID())

		assert.ErrorIs(t, err, ErrCollaboratorUnavailable)
		assert.ErrorIs(t, err, errStoreDown)
	})
}
