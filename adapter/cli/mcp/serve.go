package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	mcpinternal "github.com/felixgeelhaar/gritline/internal/mcp"
	"github.com/felixgeelhaar/gritline/pkg/config"
	"github.com/felixgeelhaar/gritline/pkg/observability"
	"github.com/spf13/cobra"
)

var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start an MCP server exposing the instance, trigger, score and survey
tools over HTTP. Set MCP_AUTH_TOKEN to require a bearer token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil {
			return fmt.Errorf("application not initialized")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if addr != "" {
			cfg.MCPAddr = addr
		}

		logger := observability.LoggerForEnv(cfg.AppEnv, cfg.LogLevel, cmd.ErrOrStderr())
		err = mcpinternal.Serve(cmd.Context(), cfg, app, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default MCP_ADDR)")
}
