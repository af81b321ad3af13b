package score

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	"github.com/felixgeelhaar/gritline/internal/grit/application/queries"
	"github.com/spf13/cobra"
)

// Cmd is the score command group
var Cmd = &cobra.Command{
	Use:   "score",
	Short: "Show grit, productivity and composite scores",
}

var showCached bool

var showCmd = &cobra.Command{
	Use:   "show [scope]",
	Short: "Show the score of a scope",
	Long: `Show the score of one task, or of all tasks when no scope is given.
Cached scores are returned until an instance of the scope changes.
With --cached the last published score is shown without computing.
When the score cannot be trusted it is shown as unavailable.

Examples:
  gritline score show
  gritline score show all
  gritline score show --cached
  gritline score show 6f1c...`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetScoreHandler == nil {
			return fmt.Errorf("application not initialized")
		}

		query := queries.GetScoreQuery{UserID: app.CurrentUserID, Cached: showCached}
		if len(args) == 1 {
			query.Scope = args[0]
		}

		score, err := app.GetScoreHandler.Handle(cmd.Context(), query)
		if err != nil {
			score, err = queries.UnavailableScore(query.Scope, err)
			if err != nil {
				return fmt.Errorf("failed to get score: %w", err)
			}
		}

		return cli.Render(cmd, score, func(w io.Writer) {
			cli.PrintScore(w, score)
		})
	},
}

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Compute and cache every score",
	Long: `Compute the score of every task with a completion, plus the score of
all tasks, and store them in the cache.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.WarmScoresHandler == nil {
			return fmt.Errorf("application not initialized")
		}

		result, err := app.WarmScoresHandler.Handle(cmd.Context(), queries.WarmScoresQuery{
			UserID: app.CurrentUserID,
		})
		if err != nil {
			return fmt.Errorf("failed to warm scores: %w", err)
		}

		return cli.Render(cmd, result, func(w io.Writer) {
			fmt.Fprintf(w, "Warmed %d score(s)\n", len(result.Scopes))
			for _, scope := range result.Scopes {
				fmt.Fprintf(w, "  %s\n", scope)
			}
		})
	},
}

func init() {
	showCmd.Flags().BoolVar(&showCached, "cached", false, "show the last published score without computing")

	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(warmCmd)
}
