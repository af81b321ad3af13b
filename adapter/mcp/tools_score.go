package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	"github.com/felixgeelhaar/gritline/internal/grit/application/queries"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/trigger"
	"github.com/felixgeelhaar/mcp-go"
)

type scoreGetInput struct {
	Scope  string `json:"scope,omitempty"`
	Cached bool   `json:"cached,omitempty"`
}

type triggerView struct {
	ID       trigger.ID        `json:"id"`
	Priority string            `json:"priority"`
	Question *trigger.Question `json:"question"`
}

func registerScoreTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("score.get").
		Description("Get the grit, productivity and composite score of a task (scope = task id) or of all tasks (scope omitted or \"all\"). Set cached to read the last published score without computing. A score that cannot be trusted has status \"unavailable\" and a reason").
		Handler(func(ctx context.Context, input scoreGetInput) (*queries.ScoreDTO, error) {
			return getScore(ctx, app, input)
		})

	srv.Tool("score.warm").
		Description("Compute and cache the score of every task plus the overall score").
		Handler(func(ctx context.Context, input struct{}) (*queries.WarmScoresResult, error) {
			return warmScores(ctx, app)
		})

	srv.Tool("trigger.list").
		Description("List the follow-up triggers and their question trees").
		Handler(func(ctx context.Context, input struct{}) ([]triggerView, error) {
			return listTriggers(app)
		})

	return nil
}

func getScore(ctx context.Context, app *cli.App, input scoreGetInput) (*queries.ScoreDTO, error) {
	if app == nil || app.GetScoreHandler == nil {
		return nil, errors.New("scores not available")
	}
	score, err := app.GetScoreHandler.Handle(ctx, queries.GetScoreQuery{
		UserID: app.CurrentUserID,
		Scope:  input.Scope,
		Cached: input.Cached,
	})
	if err != nil {
		return queries.UnavailableScore(input.Scope, err)
	}
	return score, nil
}

func warmScores(ctx context.Context, app *cli.App) (*queries.WarmScoresResult, error) {
	if app == nil || app.WarmScoresHandler == nil {
		return nil, errors.New("scores not available")
	}
	return app.WarmScoresHandler.Handle(ctx, queries.WarmScoresQuery{UserID: app.CurrentUserID})
}

func listTriggers(app *cli.App) ([]triggerView, error) {
	if app == nil || app.Catalog == nil {
		return nil, errors.New("trigger catalog not available")
	}
	rules := app.Catalog.Rules()
	views := make([]triggerView, 0, len(rules))
	for _, r := range rules {
		views = append(views, triggerView{ID: r.ID, Priority: r.Priority.String(), Question: r.Questions})
	}
	return views, nil
}
