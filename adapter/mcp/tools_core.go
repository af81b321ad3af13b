package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	"github.com/felixgeelhaar/gritline/pkg/observability"
	"github.com/felixgeelhaar/mcp-go"
)

func registerCoreTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("cli.health").
		Description("Check the database, Redis and RabbitMQ connections").
		Handler(func(ctx context.Context, input struct{}) (*observability.OverallHealth, error) {
			return health(ctx, app)
		})

	srv.Tool("cli.version").
		Description("Get the gritline build information").
		Handler(func(ctx context.Context, input struct{}) (cli.BuildInfo, error) {
			return cli.Build(), nil
		})

	return nil
}

func health(ctx context.Context, app *cli.App) (*observability.OverallHealth, error) {
	if app == nil {
		return nil, errors.New("app not initialized")
	}
	if app.Health == nil {
		return &observability.OverallHealth{Status: observability.HealthStatusHealthy}, nil
	}
	overall := app.Health.GetOverallHealth(ctx)
	return &overall, nil
}
