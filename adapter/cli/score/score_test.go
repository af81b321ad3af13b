package score

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	"github.com/felixgeelhaar/gritline/adapter/cli/clitest"
	"github.com/felixgeelhaar/gritline/internal/grit/application/commands"
	"github.com/felixgeelhaar/gritline/internal/grit/application/queries"
	"github.com/felixgeelhaar/gritline/internal/grit/application/services"
	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/formula"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCompletion(t *testing.T) commands.CreateInstanceResult {
	t.Helper()
	container := clitest.NewApp(t, Cmd)
	ctx := t.Context()

	created, err := container.CreateInstanceHandler.Handle(ctx, commands.CreateInstanceCommand{
		UserID:    clitest.UserID,
		Predicted: domain.Predicted{TimeEstimateMinutes: 60, ExpectedRelief: 50},
	})
	require.NoError(t, err)

	_, err = container.CompleteInstanceHandler.Handle(ctx, commands.CompleteInstanceCommand{
		InstanceID: created.InstanceID,
		UserID:     clitest.UserID,
		Actuals: domain.Actuals{
			CompletionPercent: 100,
			TimeActualMinutes: 50,
			ActualRelief:      60,
		},
	})
	require.NoError(t, err)
	return *created
}

func TestShow_AllScope(t *testing.T) {
	seedCompletion(t)

	var all queries.ScoreDTO
	clitest.RunJSON(t, &all, "score", "show")
	assert.Equal(t, "all", all.Scope)
	assert.Equal(t, 1, all.Instances)
	assert.Greater(t, all.Composite, 0.0)

	var explicit queries.ScoreDTO
	clitest.RunJSON(t, &explicit, "score", "show", "all")
	assert.Equal(t, all.Composite, explicit.Composite)
	assert.Equal(t, all.Version, explicit.Version)
}

func TestShow_TaskScope(t *testing.T) {
	created := seedCompletion(t)

	out, err := clitest.Run(t, "score", "show", created.TaskID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "Score ("+created.TaskID.String()+")")
	assert.Contains(t, out, "composite:")
}

func TestShow_InvalidScope(t *testing.T) {
	clitest.NewApp(t, Cmd)

	_, err := clitest.Run(t, "score", "show", "yesterday")
	require.Error(t, err)
}

type failingScores struct {
	err error
}

func (f failingScores) Get(context.Context, uuid.UUID, domain.Scope) (domain.Score, uint64, error) {
	return domain.Score{}, 0, f.err
}

func TestShow_UnavailableScore(t *testing.T) {
	tests := []struct {
		name    string
		failure error
		reason  string
	}{
		{
			name:    "invalid input",
			failure: &formula.InputError{Field: "time_actual_minutes", Value: -5, Reason: "must be >= 0"},
			reason:  "time_actual_minutes",
		},
		{
			name:    "data store unavailable",
			failure: fmt.Errorf("load history: %w: %w", services.ErrCollaboratorUnavailable, errors.New("database is locked")),
			reason:  "data store unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clitest.NewApp(t, Cmd)
			cli.GetApp().GetScoreHandler = queries.NewGetScoreHandler(failingScores{err: tt.failure}, nil, nil)

			var score queries.ScoreDTO
			clitest.RunJSON(t, &score, "score", "show")
			assert.Equal(t, "all", score.Scope)
			assert.Equal(t, queries.ScoreStatusUnavailable, score.Status)
			assert.Contains(t, score.Reason, tt.reason)
			assert.Zero(t, score.Composite)

			out, err := clitest.Run(t, "score", "show")
			require.NoError(t, err)
			assert.Contains(t, out, "unavailable: ")
			assert.NotContains(t, out, "composite:")
		})
	}
}

func TestShow_OtherFailuresStillFail(t *testing.T) {
	clitest.NewApp(t, Cmd)
	cli.GetApp().GetScoreHandler = queries.NewGetScoreHandler(failingScores{err: errors.New("boom")}, nil, nil)

	_, err := clitest.Run(t, "score", "show")
	require.Error(t, err)
}

func TestShow_Cached(t *testing.T) {
	created := seedCompletion(t)
	scope := created.TaskID.String()

	var fresh queries.ScoreDTO
	clitest.RunJSON(t, &fresh, "score", "show", scope)
	assert.Equal(t, queries.ScoreSourceEngine, fresh.Source)

	var cached queries.ScoreDTO
	clitest.RunJSON(t, &cached, "score", "show", scope, "--cached")
	assert.Equal(t, queries.ScoreSourceStore, cached.Source)
	assert.Equal(t, queries.ScoreStatusOK, cached.Status)
	assert.InDelta(t, fresh.Composite, cached.Composite, 1e-9)
	assert.Equal(t, fresh.Version, cached.Version)

	out, err := clitest.Run(t, "score", "show", scope, "--cached")
	require.NoError(t, err)
	assert.Contains(t, out, "cached from:  store")
}

func TestShow_CachedMiss(t *testing.T) {
	clitest.NewApp(t, Cmd)

	_, err := clitest.Run(t, "score", "show", uuid.New().String(), "--cached")
	require.Error(t, err)
	assert.ErrorIs(t, err, queries.ErrScoreNotCached)
}

func TestWarm(t *testing.T) {
	created := seedCompletion(t)

	var warmed queries.WarmScoresResult
	clitest.RunJSON(t, &warmed, "score", "warm")
	assert.Equal(t, []string{created.TaskID.String(), "all"}, warmed.Scopes)

	out, err := clitest.Run(t, "score", "warm")
	require.NoError(t, err)
	assert.Contains(t, out, "Warmed 2 score(s)")
}
