package services

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coherenceFixture struct {
	store     *testStore
	publisher *capturePublisher
	cache     *ScoreCache
	scorer    *Scorer
	coherence *Coherence
}

func newCoherenceFixture() *coherenceFixture {
	store := newTestStore()
	publisher := &capturePublisher{}
	scorer := newTestScorer(store, 0)
	cache := NewScoreCache(scorer.Compute, store, nil, DefaultScoreCacheConfig(), nil, nil)
	return &coherenceFixture{
		store:     store,
		publisher: publisher,
		cache:     cache,
		scorer:    scorer,
		coherence: NewCoherence(store, scorer, cache, publisher, nil, nil, nil),
	}
}

func TestCoherence_CompleteRefreshesAndInvalidates(t *testing.T) {
	f := newCoherenceFixture()
	ctx := context.Background()
	userID, taskID := uuid.New(), uuid.New()

	before, _, err := f.cache.Get(ctx, userID, domain.ScopeAll)
	require.NoError(t, err)
	assert.Zero(t, before.Instances)

	inst, err := domain.NewTaskInstance(userID, taskID, scenarioPredicted)
	require.NoError(t, err)
	require.NoError(t, inst.Complete(scenarioActuals, fixedNow))

	require.NoError(t, f.coherence.Create(ctx, inst))

	stored, err := f.store.FindByID(ctx, inst.ID())
	require.NoError(t, err)
	derived, err := stored.Derived()
	require.NoError(t, err)
	assert.InDelta(t, expectedBreakdown(t, inst, 1).Composite, derived.Composite, 1e-9)

	after, _, err := f.cache.Get(ctx, userID, domain.ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Instances)
	assert.InDelta(t, derived.Composite, after.Composite, 1e-9)

	task, _, err := f.cache.Get(ctx, userID, domain.TaskScope(taskID))
	require.NoError(t, err)
	assert.InDelta(t, derived.Composite, task.Composite, 1e-9)

	assert.Equal(t, []string{domain.RoutingKeyInstanceCreated, domain.RoutingKeyInstanceCompleted}, f.publisher.routingKeys())
	assert.Empty(t, inst.DomainEvents())
}

func TestCoherence_DeleteRemovesFromScores(t *testing.T) {
	f := newCoherenceFixture()
	ctx := context.Background()
	userID, taskID := uuid.New(), uuid.New()
	inst := completeInstance(t, f.store, userID, taskID, scenarioPredicted, scenarioActuals, fixedNow)

	before, _, err := f.cache.Get(ctx, userID, domain.TaskScope(taskID))
	require.NoError(t, err)
	require.Equal(t, 1, before.Instances)

	_, err = f.coherence.Mutate(ctx, MutationDelete, inst.ID(), userID, func(inst *domain.TaskInstance) error {
		inst.MarkDeleted()
		return nil
	})
	require.NoError(t, err)

	after, _, err := f.cache.Get(ctx, userID, domain.TaskScope(taskID))
	require.NoError(t, err)
	assert.Zero(t, after.Instances)
	assert.Equal(t, []string{domain.RoutingKeyInstanceDeleted}, f.publisher.routingKeys())
}

func TestCoherence_StoreFailureStillInvalidates(t *testing.T) {
	f := newCoherenceFixture()
	ctx := context.Background()
	userID, taskID := uuid.New(), uuid.New()

	_, _, err := f.cache.Get(ctx, userID, domain.ScopeAll)
	require.NoError(t, err)
	versionBefore := f.cache.Version(userID, domain.ScopeAll)

	inst, err := domain.NewTaskInstance(userID, taskID, scenarioPredicted)
	require.NoError(t, err)
	f.store.goOffline(errStoreDown)

	err = f.coherence.Create(ctx, inst)

	assert.ErrorIs(t, err, ErrCollaboratorUnavailable)
	assert.Greater(t, f.cache.Version(userID, domain.ScopeAll), versionBefore)
	assert.Equal(t, uint64(1), f.cache.Version(userID, domain.TaskScope(taskID)))
	assert.Empty(t, f.publisher.routingKeys())
}

func TestCoherence_Mutate(t *testing.T) {
	noop := func(*domain.TaskInstance) error { return nil }

	t.Run("unknown instance", func(t *testing.T) {
		f := newCoherenceFixture()

		_, err := f.coherence.Mutate(context.Background(), MutationUpdate, uuid.New(), uuid.New(), noop)

		assert.ErrorIs(t, err, domain.ErrInstanceNotFound)
		assert.NotErrorIs(t, err, ErrCollaboratorUnavailable)
	})

	t.Run("other user's instance", func(t *testing.T) {
		f := newCoherenceFixture()
		inst := completeInstance(t, f.store, uuid.New(), uuid.New(), scenarioPredicted, calmActuals, fixedNow)

		_, err := f.coherence.Mutate(context.Background(), MutationUpdate, inst.ID(), uuid.New(), noop)

		assert.ErrorIs(t, err, domain.ErrNotOwner)
	})

	t.Run("mutation error leaves the store untouched", func(t *testing.T) {
		f := newCoherenceFixture()
		userID := uuid.New()
		inst := completeInstance(t, f.store, userID, uuid.New(), scenarioPredicted, calmActuals, fixedNow)

		_, err := f.coherence.Mutate(context.Background(), MutationUpdate, inst.ID(), userID, func(inst *domain.TaskInstance) error {
			return inst.Complete(scenarioActuals, fixedNow)
		})

		assert.ErrorIs(t, err, domain.ErrInstanceAlreadyCompleted)
		stored, err := f.store.FindByID(context.Background(), inst.ID())
		require.NoError(t, err)
		actuals, _ := stored.Actuals()
		assert.Equal(t, calmActuals.ActualRelief, actuals.ActualRelief)
	})

	t.Run("update refreshes the derived snapshot", func(t *testing.T) {
		f := newCoherenceFixture()
		userID := uuid.New()
		inst := completeInstance(t, f.store, userID, uuid.New(), scenarioPredicted, calmActuals, fixedNow)

		updated, err := f.coherence.Mutate(context.Background(), MutationUpdate, inst.ID(), userID, func(inst *domain.TaskInstance) error {
			return inst.UpdateActuals(scenarioActuals)
		})

		require.NoError(t, err)
		derived, err := updated.Derived()
		require.NoError(t, err)
		assert.InDelta(t, expectedBreakdown(t, updated, 1).Composite, derived.Composite, 1e-9)
		assert.Equal(t, []string{domain.RoutingKeyInstanceUpdated}, f.publisher.routingKeys())
	})
}

// completeThroughCoherence creates an instance of the task and completes it
// at the given time.
func completeThroughCoherence(t *testing.T, f *coherenceFixture, userID, taskID uuid.UUID, at time.Time) *domain.TaskInstance {
	t.Helper()
	ctx := context.Background()
	inst, err := domain.NewTaskInstance(userID, taskID, scenarioPredicted)
	require.NoError(t, err)
	require.NoError(t, f.coherence.Create(ctx, inst))
	done, err := f.coherence.Mutate(ctx, MutationComplete, inst.ID(), userID, func(inst *domain.TaskInstance) error {
		return inst.Complete(scenarioActuals, at)
	})
	require.NoError(t, err)
	return done
}

func storedGrit(t *testing.T, f *coherenceFixture, id uuid.UUID) float64 {
	t.Helper()
	inst, err := f.store.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, inst)
	derived, err := inst.Derived()
	require.NoError(t, err)
	return derived.Grit
}

func TestCoherence_DeleteRescoresLaterCompletions(t *testing.T) {
	f := newCoherenceFixture()
	ctx := context.Background()
	userID, taskID := uuid.New(), uuid.New()
	first := completeThroughCoherence(t, f, userID, taskID, fixedNow.Add(-2*time.Hour))
	second := completeThroughCoherence(t, f, userID, taskID, fixedNow.Add(-time.Hour))
	require.Equal(t, expectedBreakdown(t, second, 2).Grit, storedGrit(t, f, second.ID()))

	_, err := f.coherence.Mutate(ctx, MutationDelete, first.ID(), userID, func(inst *domain.TaskInstance) error {
		inst.MarkDeleted()
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, expectedBreakdown(t, second, 1).Grit, storedGrit(t, f, second.ID()))
	assert.NotEqual(t, expectedBreakdown(t, second, 2).Grit, storedGrit(t, f, second.ID()))

	score, _, err := f.cache.Get(ctx, userID, domain.TaskScope(taskID))
	require.NoError(t, err)
	assert.Equal(t, 1, score.Instances)
	assert.InDelta(t, storedGrit(t, f, second.ID()), score.Grit, 1e-9)
}

func TestCoherence_BackdatedCompletionRescoresLaterCompletions(t *testing.T) {
	f := newCoherenceFixture()
	userID, taskID := uuid.New(), uuid.New()
	later := completeThroughCoherence(t, f, userID, taskID, fixedNow.Add(-time.Hour))
	require.Equal(t, expectedBreakdown(t, later, 1).Grit, storedGrit(t, f, later.ID()))

	earlier := completeThroughCoherence(t, f, userID, taskID, fixedNow.Add(-3*time.Hour))

	assert.Equal(t, expectedBreakdown(t, earlier, 1).Grit, storedGrit(t, f, earlier.ID()))
	assert.Equal(t, expectedBreakdown(t, later, 2).Grit, storedGrit(t, f, later.ID()))
}
