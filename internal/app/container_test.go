package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/gritline/internal/grit/application/commands"
	"github.com/felixgeelhaar/gritline/internal/grit/application/queries"
	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/trigger"
	"github.com/felixgeelhaar/gritline/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/gritline/pkg/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testUserID is a fixed user ID for tests
var testUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestContainer(t *testing.T, driver string) *Container {
	t.Helper()

	cfg := &config.Config{
		AppEnv:         "test",
		LogLevel:       "error",
		UserID:         testUserID.String(),
		DatabaseDriver: driver,
	}
	if driver == "sqlite" {
		cfg.SQLitePath = filepath.Join(t.TempDir(), "gritline.db")
	}

	container, err := NewContainer(context.Background(), cfg, silentLogger())
	require.NoError(t, err)
	t.Cleanup(container.Close)
	return container
}

func TestNewContainer_LocalDrivers(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			c := newTestContainer(t, driver)

			assert.Equal(t, database.Driver(driver), c.DBDriver)
			assert.Equal(t, driver == "sqlite", c.DBConn != nil)
			assert.Equal(t, driver == "sqlite", c.UnitOfWork != nil)
			assert.Nil(t, c.RedisClient)
			assert.Nil(t, c.RabbitMQ)
			assert.NotNil(t, c.EventBus)
			assert.Equal(t, 1, c.EventBus.Registry().ConsumerCount())

			userID, err := c.CurrentUserID()
			require.NoError(t, err)
			assert.Equal(t, testUserID, userID)
		})
	}
}

func TestNewContainer_HealthChecks(t *testing.T) {
	c := newTestContainer(t, "sqlite")

	results := c.Health.Check(context.Background())

	require.Contains(t, results, "database")
	assert.Len(t, results, 1)
}

func TestNewContainer_InvalidTuning(t *testing.T) {
	cfg := &config.Config{
		AppEnv:         "test",
		DatabaseDriver: "memory",
		TuningFile:     filepath.Join(t.TempDir(), "missing.yaml"),
	}

	_, err := NewContainer(context.Background(), cfg, silentLogger())

	require.Error(t, err)
}

func TestContainer_InvalidUserID(t *testing.T) {
	c := newTestContainer(t, "memory")
	c.Config.UserID = "not-a-uuid"

	_, err := c.CurrentUserID()

	assert.ErrorContains(t, err, "GRITLINE_USER_ID")
}

// TestContainer_ScoreWorkflow drives one instance from creation through a
// popup answer and checks the scores follow each step.
func TestContainer_ScoreWorkflow(t *testing.T) {
	for _, driver := range []string{"memory", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			c := newTestContainer(t, driver)
			ctx := context.Background()

			created, err := c.CreateInstanceHandler.Handle(ctx, commands.CreateInstanceCommand{
				UserID: testUserID,
				Predicted: domain.Predicted{
					ExpectedRelief:      60,
					TimeEstimateMinutes: 60,
					TaskDifficulty:      80,
				},
			})
			require.NoError(t, err)

			completed, err := c.CompleteInstanceHandler.Handle(ctx, commands.CompleteInstanceCommand{
				InstanceID: created.InstanceID,
				UserID:     testUserID,
				Actuals: domain.Actuals{
					CompletionPercent:   100,
					TimeActualMinutes:   150,
					ActualRelief:        20,
					ActualEmotionalLoad: 75,
					ActualDifficulty:    80,
				},
			})
			require.NoError(t, err)
			require.True(t, completed.Decision.Fired)
			assert.Equal(t, trigger.NegativeAffect, completed.Decision.TriggerID)
			assert.Greater(t, completed.Derived.Grit, 0.0)

			before, err := c.GetScoreHandler.Handle(ctx, queries.GetScoreQuery{UserID: testUserID})
			require.NoError(t, err)
			assert.Equal(t, 1, before.Instances)
			assert.InDelta(t, completed.Derived.Composite, before.Composite, 1e-9)

			answered, err := c.RecordResponseHandler.Handle(ctx, commands.RecordResponseCommand{
				InstanceID: created.InstanceID,
				UserID:     testUserID,
				Path:       []string{"necessary"},
			})
			require.NoError(t, err)
			assert.Equal(t, "draining_but_necessary", answered.AnswerCode)
			assert.Greater(t, answered.Derived.Grit, completed.Derived.Grit)

			after, err := c.GetScoreHandler.Handle(ctx, queries.GetScoreQuery{
				UserID: testUserID,
				Scope:  created.TaskID.String(),
			})
			require.NoError(t, err)
			assert.Greater(t, after.Composite, before.Composite)

			shown, err := c.GetInstanceHandler.Handle(ctx, queries.GetInstanceQuery{
				InstanceID: created.InstanceID,
				UserID:     testUserID,
			})
			require.NoError(t, err)
			assert.Equal(t, string(domain.TriggerStateResponded), shown.TriggerState)

			warmed, err := c.WarmScoresHandler.Handle(ctx, queries.WarmScoresQuery{UserID: testUserID})
			require.NoError(t, err)
			assert.Equal(t, []string{created.TaskID.String(), "all"}, warmed.Scopes)

			require.NoError(t, c.DeleteInstanceHandler.Handle(ctx, commands.DeleteInstanceCommand{
				InstanceID: created.InstanceID,
				UserID:     testUserID,
			}))
			emptied, err := c.GetScoreHandler.Handle(ctx, queries.GetScoreQuery{UserID: testUserID})
			require.NoError(t, err)
			assert.Zero(t, emptied.Instances)
		})
	}
}

func TestContainer_SurveyProfileFeedsTriggers(t *testing.T) {
	c := newTestContainer(t, "memory")
	ctx := context.Background()

	_, err := c.SetSurveyProfileHandler.Handle(ctx, commands.SetSurveyProfileCommand{
		UserID:    testUserID,
		Struggles: []string{"procrastination"},
	})
	require.NoError(t, err)

	created, err := c.CreateInstanceHandler.Handle(ctx, commands.CreateInstanceCommand{
		UserID:    testUserID,
		Predicted: domain.Predicted{TimeEstimateMinutes: 60, TaskDifficulty: 40},
	})
	require.NoError(t, err)

	completed, err := c.CompleteInstanceHandler.Handle(ctx, commands.CompleteInstanceCommand{
		InstanceID: created.InstanceID,
		UserID:     testUserID,
		Actuals: domain.Actuals{
			CompletionPercent:   100,
			TimeActualMinutes:   90,
			ActualRelief:        60,
			ActualEmotionalLoad: 40,
			StartupDelayMinutes: 120,
		},
	})
	require.NoError(t, err)

	require.True(t, completed.Decision.Fired)
	assert.Equal(t, trigger.Procrastination, completed.Decision.TriggerID)
}
