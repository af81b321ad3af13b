package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/felixgeelhaar/gritline/pkg/observability"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	logger     *slog.Logger
)

type startedAtKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gritline",
	Short: "gritline - grit and productivity scores from your task history",
	Long: `gritline records task instances, scores them for grit, productivity
and a composite of both, and asks a short follow-up question when a
completion looks unusual. Answers correct the score inputs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ctx := observability.WithCorrelationID(cmd.Context(), "")
		ctx = context.WithValue(ctx, startedAtKey{}, time.Now())
		cmd.SetContext(ctx)
		cliLogger().DebugContext(ctx, "command start", "command", cmd.CommandPath())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		started, ok := ctx.Value(startedAtKey{}).(time.Time)
		if !ok {
			return
		}
		cliLogger().DebugContext(ctx, "command end",
			"command", cmd.CommandPath(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

// AddCommand adds a command to the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// JSONOutput reports whether results should be printed as JSON.
func JSONOutput() bool {
	return jsonOutput
}

// RootCommand returns the root command, for tests that drive the CLI.
func RootCommand() *cobra.Command {
	return rootCmd
}

// SetLogger sets the CLI logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

func cliLogger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
