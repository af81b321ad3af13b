package services

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/formula"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScorer(store *testStore, window int) *Scorer {
	s := NewScorer(formula.Default(), store, window)
	s.now = fixedClock
	return s
}

func expectedBreakdown(t *testing.T, inst *domain.TaskInstance, count int) formula.Breakdown {
	t.Helper()
	in, err := inst.FormulaInputs(count)
	require.NoError(t, err)
	b, err := formula.Default().Score(in)
	require.NoError(t, err)
	return b
}

func TestScorer_RefreshInstance(t *testing.T) {
	store := newTestStore()
	s := newTestScorer(store, 0)
	userID, taskID := uuid.New(), uuid.New()
	completeInstance(t, store, userID, taskID, scenarioPredicted, calmActuals, fixedNow.Add(-48*time.Hour))
	completeInstance(t, store, userID, taskID, scenarioPredicted, calmActuals, fixedNow.Add(-24*time.Hour))

	inst, err := domain.NewTaskInstance(userID, taskID, scenarioPredicted)
	require.NoError(t, err)
	require.NoError(t, inst.Complete(scenarioActuals, fixedNow))

	b, err := s.RefreshInstance(context.Background(), inst)

	require.NoError(t, err)
	assert.Equal(t, expectedBreakdown(t, inst, 3), b)
	derived, err := inst.Derived()
	require.NoError(t, err)
	assert.Equal(t, b.Grit, derived.Grit)
	assert.Equal(t, b.Composite, derived.Composite)
	assert.Equal(t, fixedNow, derived.ComputedAt)
}

func TestScorer_RefreshInstance_Pending(t *testing.T) {
	s := newTestScorer(newTestStore(), 0)
	inst, err := domain.NewTaskInstance(uuid.New(), uuid.New(), scenarioPredicted)
	require.NoError(t, err)

	b, err := s.RefreshInstance(context.Background(), inst)

	require.NoError(t, err)
	assert.Equal(t, formula.Breakdown{}, b)
	_, err = inst.Derived()
	assert.ErrorIs(t, err, domain.ErrInstanceNotCompleted)
}

func TestScorer_Compute_TaskScope(t *testing.T) {
	store := newTestStore()
	s := newTestScorer(store, 0)
	userID, taskID := uuid.New(), uuid.New()
	first := completeInstance(t, store, userID, taskID, scenarioPredicted, calmActuals, fixedNow.Add(-time.Hour))
	second := completeInstance(t, store, userID, taskID, scenarioPredicted, scenarioActuals, fixedNow)

	// pending instances do not count
	pending, err := domain.NewTaskInstance(userID, taskID, scenarioPredicted)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), pending))

	score, err := s.Compute(context.Background(), userID, domain.TaskScope(taskID))

	require.NoError(t, err)
	b1 := expectedBreakdown(t, first, 1)
	b2 := expectedBreakdown(t, second, 2)
	assert.Equal(t, 2, score.Instances)
	assert.InDelta(t, (b1.Grit+b2.Grit)/2, score.Grit, 1e-9)
	assert.InDelta(t, (b1.Productivity+b2.Productivity)/2, score.Productivity, 1e-9)
	assert.InDelta(t, (b1.Composite+b2.Composite)/2, score.Composite, 1e-9)
}

func TestScorer_Compute_WindowKeepsTrueOrdinals(t *testing.T) {
	store := newTestStore()
	s := newTestScorer(store, 2)
	userID, taskID := uuid.New(), uuid.New()
	var last *domain.TaskInstance
	for i := 4; i >= 0; i-- {
		last = completeInstance(t, store, userID, taskID, scenarioPredicted, calmActuals, fixedNow.Add(-time.Duration(i)*time.Hour))
	}

	score, err := s.Compute(context.Background(), userID, domain.TaskScope(taskID))

	require.NoError(t, err)
	assert.Equal(t, 2, score.Instances)
	b4 := expectedBreakdown(t, last, 4)
	b5 := expectedBreakdown(t, last, 5)
	assert.InDelta(t, (b4.Grit+b5.Grit)/2, score.Grit, 1e-9)
}

func TestScorer_Compute_AllScopeAveragesTasks(t *testing.T) {
	store := newTestStore()
	s := newTestScorer(store, 0)
	userID := uuid.New()
	taskA, taskB := uuid.New(), uuid.New()
	a1 := completeInstance(t, store, userID, taskA, scenarioPredicted, calmActuals, fixedNow.Add(-2*time.Hour))
	a2 := completeInstance(t, store, userID, taskA, scenarioPredicted, calmActuals, fixedNow.Add(-time.Hour))
	b1 := completeInstance(t, store, userID, taskB, scenarioPredicted, scenarioActuals, fixedNow)
	completeInstance(t, store, uuid.New(), taskA, scenarioPredicted, scenarioActuals, fixedNow)

	score, err := s.Compute(context.Background(), userID, domain.ScopeAll)

	require.NoError(t, err)
	meanA := (expectedBreakdown(t, a1, 1).Composite + expectedBreakdown(t, a2, 2).Composite) / 2
	meanB := expectedBreakdown(t, b1, 1).Composite
	assert.InDelta(t, (meanA+meanB)/2, score.Composite, 1e-9)
	assert.Equal(t, 3, score.Instances)
	assert.Equal(t, domain.ScopeAll, score.Scope)
}

func TestScorer_Compute_Empty(t *testing.T) {
	s := newTestScorer(newTestStore(), 0)

	score, err := s.Compute(context.Background(), uuid.New(), domain.ScopeAll)

	require.NoError(t, err)
	assert.Zero(t, score.Composite)
	assert.Zero(t, score.Instances)
}

func TestScorer_Compute_Errors(t *testing.T) {
	t.Run("invalid scope", func(t *testing.T) {
		s := newTestScorer(newTestStore(), 0)

		_, err := s.Compute(context.Background(), uuid.New(), domain.Scope("task:nope"))

		assert.ErrorIs(t, err, domain.ErrInvalidScope)
	})

	t.Run("store unavailable", func(t *testing.T) {
		store := newTestStore()
		store.goOffline(errStoreDown)
		s := newTestScorer(store, 0)

		_, err := s.Compute(context.Background(), uuid.New(), domain.ScopeAll)

		assert.ErrorIs(t, err, ErrCollaboratorUnavailable)
	})
}
