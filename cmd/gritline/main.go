package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	"github.com/felixgeelhaar/gritline/adapter/cli/instance"
	"github.com/felixgeelhaar/gritline/adapter/cli/mcp"
	"github.com/felixgeelhaar/gritline/adapter/cli/score"
	"github.com/felixgeelhaar/gritline/adapter/cli/survey"
	"github.com/felixgeelhaar/gritline/adapter/cli/trigger"
	"github.com/felixgeelhaar/gritline/internal/app"
	mcpinternal "github.com/felixgeelhaar/gritline/internal/mcp"
	"github.com/felixgeelhaar/gritline/pkg/config"
	"github.com/felixgeelhaar/gritline/pkg/observability"
)

func main() {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		observability.LoggerForEnv("development", "", os.Stderr).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// The CLI prints results to stdout; logs stay quiet unless asked for.
	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = string(observability.LogLevelWarn)
	}
	logger := observability.LoggerForEnv(cfg.AppEnv, level, os.Stderr)
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	userID, err := container.CurrentUserID()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		container.Close()
		os.Exit(1)
	}

	cli.SetApp(mcpinternal.NewCLIApp(container, userID))

	// Register commands
	cli.AddCommand(instance.Cmd)
	cli.AddCommand(score.Cmd)
	cli.AddCommand(survey.Cmd)
	cli.AddCommand(trigger.Cmd)
	cli.AddCommand(mcp.Cmd)

	// Execute CLI
	cli.Execute(ctx)
}
