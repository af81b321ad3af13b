package survey

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	"github.com/felixgeelhaar/gritline/internal/grit/application/commands"
	"github.com/spf13/cobra"
)

// Cmd is the survey command group
var Cmd = &cobra.Command{
	Use:   "survey",
	Short: "Manage your struggle survey",
	Long: `Struggles from the survey tune which follow-up questions appear.
Known struggles: procrastination, perfectionism, overwhelm, low_energy,
distractibility.`,
}

var setCmd = &cobra.Command{
	Use:   "set [struggle...]",
	Short: "Replace your survey struggles",
	Long: `Replace the struggles of your survey. Pass no struggle to clear it.

Examples:
  gritline survey set procrastination "low energy"
  gritline survey set`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.SetSurveyProfileHandler == nil {
			return fmt.Errorf("application not initialized")
		}

		struggles, err := app.SetSurveyProfileHandler.Handle(cmd.Context(), commands.SetSurveyProfileCommand{
			UserID:    app.CurrentUserID,
			Struggles: args,
		})
		if err != nil {
			return fmt.Errorf("failed to save survey: %w", err)
		}

		return cli.Render(cmd, map[string]any{"struggles": struggles}, func(w io.Writer) {
			if len(struggles) == 0 {
				fmt.Fprintln(w, "Survey cleared.")
				return
			}
			fmt.Fprintln(w, "Survey saved:")
			for _, s := range struggles {
				fmt.Fprintf(w, "  %s\n", s)
			}
		})
	},
}

func init() {
	Cmd.AddCommand(setCmd)
}
