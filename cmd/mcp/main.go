// Command gritline-mcp serves the gritline tools, resources and prompts
// over the Model Context Protocol.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/gritline/internal/app"
	mcpinternal "github.com/felixgeelhaar/gritline/internal/mcp"
	"github.com/felixgeelhaar/gritline/pkg/config"
	"github.com/felixgeelhaar/gritline/pkg/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		observability.LoggerForEnv("development", "", os.Stderr).Error("failed to load config", "error", err)
		return 1
	}
	logger := observability.LoggerForEnv(cfg.AppEnv, cfg.LogLevel, os.Stderr)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		return 1
	}
	defer container.Close()

	userID, err := container.CurrentUserID()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	err = mcpinternal.Serve(ctx, cfg, mcpinternal.NewCLIApp(container, userID), logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server stopped", "error", err)
		return 1
	}
	return 0
}
