package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/formula"
	"github.com/felixgeelhaar/gritline/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/gritline/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/gritline/internal/shared/infrastructure/migrations"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	baseTime = time.Date(2026, 3, 14, 9, 30, 0, 123456789, time.UTC)

	testPredicted = domain.Predicted{
		ExpectedAversion:      40,
		ExpectedRelief:        60,
		ExpectedEmotionalLoad: 30,
		TimeEstimateMinutes:   60,
		TaskDifficulty:        80,
	}
	testActuals = domain.Actuals{
		CompletionPercent:   100,
		TimeActualMinutes:   150,
		ActualRelief:        20,
		ActualEmotionalLoad: 75,
		ActualDifficulty:    60,
		StartupDelayMinutes: 12,
		EmotionValues:       map[string]float64{"anxiety": 70, "pride": 15.5},
		Notes:               "took longer than planned",
	}
)

// setupSQLiteConn opens a migrated SQLite database in a temp directory.
func setupSQLiteConn(t *testing.T) database.Connection {
	t.Helper()

	ctx := context.Background()
	conn, err := sqlite.Open(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "gritline.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, migrations.Run(ctx, conn))
	return conn
}

type storeFactory func(t *testing.T) domain.DataStore

func storeFactories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) domain.DataStore {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) domain.DataStore {
			return NewSQLStore(setupSQLiteConn(t))
		},
	}
}

func newCompleted(t *testing.T, userID, taskID uuid.UUID, at time.Time) *domain.TaskInstance {
	t.Helper()
	inst, err := domain.NewTaskInstance(userID, taskID, testPredicted)
	require.NoError(t, err)
	require.NoError(t, inst.Complete(testActuals, at))
	return inst
}

func assertSameTime(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}

func TestDataStore_Instances(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("round trip of a fully answered instance", func(t *testing.T) {
				store := factory(t)
				inst := newCompleted(t, uuid.New(), uuid.New(), baseTime)
				require.NoError(t, inst.RecordScores(formula.Breakdown{Grit: 136.2, Productivity: 42.5, Composite: 88.1}, baseTime))
				require.NoError(t, inst.MarkTriggerEvaluated("negative_affect", baseTime))
				require.NoError(t, inst.RecordResponse(domain.TriggerResponse{
					TriggerID:      "negative_affect",
					AnswerCode:     "affect.anxious",
					AffectResponse: "anxious",
					FreeText:       "deadline pressure",
					Adjustments:    formula.Adjustments{ProductivityPenalty: 0.2},
					RespondedAt:    baseTime.Add(time.Minute),
				}))

				require.NoError(t, store.Save(ctx, inst))
				got, err := store.FindByID(ctx, inst.ID())

				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, inst.UserID(), got.UserID())
				assert.Equal(t, inst.TaskID(), got.TaskID())
				assert.Equal(t, testPredicted, got.Predicted())
				actuals, ok := got.Actuals()
				require.True(t, ok)
				assert.Equal(t, testActuals, actuals)
				require.NotNil(t, got.CompletedAt())
				assertSameTime(t, baseTime, *got.CompletedAt())

				derived, err := got.Derived()
				require.NoError(t, err)
				assert.Equal(t, 88.1, derived.Composite)
				assertSameTime(t, baseTime, derived.ComputedAt)

				assert.Equal(t, domain.TriggerStateResponded, got.TriggerState())
				assert.Equal(t, "negative_affect", got.FiredTrigger())
				response, ok := got.Response()
				require.True(t, ok)
				assert.Equal(t, "affect.anxious", response.AnswerCode)
				assert.Equal(t, 0.2, response.Adjustments.ProductivityPenalty)
				assert.Empty(t, got.DomainEvents())
			})

			t.Run("pending instance has no actuals", func(t *testing.T) {
				store := factory(t)
				inst, err := domain.NewTaskInstance(uuid.New(), uuid.New(), testPredicted)
				require.NoError(t, err)

				require.NoError(t, store.Save(ctx, inst))
				got, err := store.FindByID(ctx, inst.ID())

				require.NoError(t, err)
				_, ok := got.Actuals()
				assert.False(t, ok)
				assert.Nil(t, got.CompletedAt())
				assert.Equal(t, domain.TriggerStateNone, got.TriggerState())
			})

			t.Run("save updates an existing instance", func(t *testing.T) {
				store := factory(t)
				inst, err := domain.NewTaskInstance(uuid.New(), uuid.New(), testPredicted)
				require.NoError(t, err)
				require.NoError(t, store.Save(ctx, inst))

				require.NoError(t, inst.Complete(testActuals, baseTime))
				require.NoError(t, store.Save(ctx, inst))

				got, err := store.FindByID(ctx, inst.ID())
				require.NoError(t, err)
				assert.True(t, got.IsCompleted())
			})

			t.Run("unknown id returns nil", func(t *testing.T) {
				store := factory(t)

				got, err := store.FindByID(ctx, uuid.New())

				require.NoError(t, err)
				assert.Nil(t, got)
			})

			t.Run("find by task is scoped to user and task", func(t *testing.T) {
				store := factory(t)
				userID, taskID := uuid.New(), uuid.New()
				first := newCompleted(t, userID, taskID, baseTime)
				require.NoError(t, store.Save(ctx, first))
				second := newCompleted(t, userID, taskID, baseTime.Add(time.Hour))
				require.NoError(t, store.Save(ctx, second))
				require.NoError(t, store.Save(ctx, newCompleted(t, uuid.New(), taskID, baseTime)))
				require.NoError(t, store.Save(ctx, newCompleted(t, userID, uuid.New(), baseTime)))

				got, err := store.FindByTask(ctx, userID, taskID)

				require.NoError(t, err)
				require.Len(t, got, 2)
				ids := []uuid.UUID{got[0].ID(), got[1].ID()}
				assert.ElementsMatch(t, []uuid.UUID{first.ID(), second.ID()}, ids)
			})

			t.Run("delete", func(t *testing.T) {
				store := factory(t)
				inst := newCompleted(t, uuid.New(), uuid.New(), baseTime)
				require.NoError(t, store.Save(ctx, inst))

				require.NoError(t, store.Delete(ctx, inst.ID()))
				got, err := store.FindByID(ctx, inst.ID())
				require.NoError(t, err)
				assert.Nil(t, got)

				assert.ErrorIs(t, store.Delete(ctx, inst.ID()), domain.ErrInstanceNotFound)
			})
		})
	}
}

func TestDataStore_History(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)
			userID, taskID := uuid.New(), uuid.New()

			// saved out of completion order on purpose
			var saved []*domain.TaskInstance
			for _, offset := range []int{3, 0, 4, 1, 2} {
				inst := newCompleted(t, userID, taskID, baseTime.Add(time.Duration(offset)*time.Hour))
				require.NoError(t, store.Save(ctx, inst))
				saved = append(saved, inst)
			}
			pending, err := domain.NewTaskInstance(userID, taskID, testPredicted)
			require.NoError(t, err)
			require.NoError(t, store.Save(ctx, pending))
			otherTask := uuid.New()
			require.NoError(t, store.Save(ctx, newCompleted(t, userID, otherTask, baseTime)))

			t.Run("window keeps the latest completions oldest first", func(t *testing.T) {
				hist, err := store.LoadHistory(ctx, userID, taskID, 2)

				require.NoError(t, err)
				assert.Equal(t, 5, hist.TotalCount)
				require.Len(t, hist.Window, 2)
				assertSameTime(t, baseTime.Add(3*time.Hour), *hist.Window[0].CompletedAt())
				assertSameTime(t, baseTime.Add(4*time.Hour), *hist.Window[1].CompletedAt())
				assert.Equal(t, 4, hist.OrdinalOf(0))
				assert.Equal(t, 5, hist.OrdinalOf(1))
			})

			t.Run("window larger than the history", func(t *testing.T) {
				hist, err := store.LoadHistory(ctx, userID, taskID, 50)

				require.NoError(t, err)
				assert.Len(t, hist.Window, 5)
				assert.Equal(t, saved[1].ID(), hist.Window[0].ID())
			})

			t.Run("empty history", func(t *testing.T) {
				hist, err := store.LoadHistory(ctx, userID, uuid.New(), 10)

				require.NoError(t, err)
				assert.True(t, hist.IsEmpty())
			})

			t.Run("count completions strictly before", func(t *testing.T) {
				n, err := store.CountCompletions(ctx, userID, taskID, baseTime.Add(2*time.Hour))

				require.NoError(t, err)
				assert.Equal(t, 2, n)
			})

			t.Run("list tasks with completions", func(t *testing.T) {
				ids, err := store.ListTaskIDs(ctx, userID)

				require.NoError(t, err)
				assert.ElementsMatch(t, []uuid.UUID{taskID, otherTask}, ids)
			})
		})
	}
}

func TestDataStore_SurveyProfiles(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)
			userID := uuid.New()

			empty, err := store.LoadSurveyProfile(ctx, userID)
			require.NoError(t, err)
			assert.Empty(t, empty.Struggles())

			profile, err := domain.NewSurveyProfile(userID, []domain.Struggle{
				domain.StruggleProcrastination,
				domain.StruggleOverwhelm,
			})
			require.NoError(t, err)
			require.NoError(t, store.SaveSurveyProfile(ctx, profile))

			got, err := store.LoadSurveyProfile(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, profile.Struggles(), got.Struggles())

			cleared, err := domain.NewSurveyProfile(userID, nil)
			require.NoError(t, err)
			require.NoError(t, store.SaveSurveyProfile(ctx, cleared))

			got, err = store.LoadSurveyProfile(ctx, userID)
			require.NoError(t, err)
			assert.Empty(t, got.Struggles())
		})
	}
}

func TestDataStore_TriggerRecords(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)
			userID := uuid.New()

			old := domain.NewTriggerRecord(userID, uuid.New(), "time_overrun", baseTime.Add(-48*time.Hour))
			recent := domain.NewTriggerRecord(userID, uuid.New(), "negative_affect", baseTime)
			foreign := domain.NewTriggerRecord(uuid.New(), uuid.New(), "negative_affect", baseTime)
			for _, r := range []domain.TriggerRecord{old, recent, foreign} {
				require.NoError(t, store.PersistTriggerRecord(ctx, r))
			}

			got, err := store.LoadTriggerRecords(ctx, userID, baseTime.Add(-24*time.Hour))
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, recent.ID, got[0].ID)
			assert.Equal(t, recent.InstanceID, got[0].InstanceID)
			assert.Equal(t, "negative_affect", got[0].TriggerID)
			assertSameTime(t, baseTime, got[0].FiredAt)

			inclusive, err := store.LoadTriggerRecords(ctx, userID, baseTime)
			require.NoError(t, err)
			assert.Len(t, inclusive, 1)

			pruned, err := store.PruneTriggerRecords(ctx, baseTime.Add(-time.Hour))
			require.NoError(t, err)
			assert.Equal(t, int64(1), pruned)

			all, err := store.LoadTriggerRecords(ctx, userID, time.Time{})
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestDataStore_Scores(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := factory(t)
			userID := uuid.New()

			missing, err := store.FindScore(ctx, userID, domain.ScopeAll)
			require.NoError(t, err)
			assert.Nil(t, missing)

			score := domain.Score{
				UserID:       userID,
				Scope:        domain.ScopeAll,
				Grit:         120.5,
				Productivity: 64,
				Composite:    92.25,
				Instances:    7,
				Version:      3,
				ComputedAt:   baseTime,
			}
			require.NoError(t, store.PersistScore(ctx, score))
			score.Composite = 95
			score.Version = 4
			require.NoError(t, store.PersistScore(ctx, score))

			got, err := store.FindScore(ctx, userID, domain.ScopeAll)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, 95.0, got.Composite)
			assert.Equal(t, uint64(4), got.Version)
			assert.Equal(t, 7, got.Instances)
			assertSameTime(t, baseTime, got.ComputedAt)
		})
	}
}

func TestSQLStore_UnitOfWork(t *testing.T) {
	ctx := context.Background()
	conn := setupSQLiteConn(t)
	store := NewSQLStore(conn)
	uow := database.NewUnitOfWork(conn)
	inst := newCompleted(t, uuid.New(), uuid.New(), baseTime)

	t.Run("rollback discards writes", func(t *testing.T) {
		txCtx, err := uow.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, store.Save(txCtx, inst))
		require.NoError(t, store.PersistTriggerRecord(txCtx, domain.NewTriggerRecord(inst.UserID(), inst.ID(), "time_overrun", baseTime)))
		require.NoError(t, uow.Rollback(txCtx))

		got, err := store.FindByID(ctx, inst.ID())
		require.NoError(t, err)
		assert.Nil(t, got)
		records, err := store.LoadTriggerRecords(ctx, inst.UserID(), time.Time{})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("commit keeps writes", func(t *testing.T) {
		txCtx, err := uow.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, store.Save(txCtx, inst))

		// reads inside the unit of work see its own writes
		inTx, err := store.FindByID(txCtx, inst.ID())
		require.NoError(t, err)
		require.NotNil(t, inTx)

		require.NoError(t, uow.Commit(txCtx))

		got, err := store.FindByID(ctx, inst.ID())
		require.NoError(t, err)
		assert.NotNil(t, got)
	})
}
