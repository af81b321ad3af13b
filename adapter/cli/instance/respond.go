package instance

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	"github.com/felixgeelhaar/gritline/internal/grit/application/commands"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var freeText string

var respondCmd = &cobra.Command{
	Use:   "respond [instance-id] [option...]",
	Short: "Answer the follow-up question of an instance",
	Long: `Answer the question shown when the instance was completed. Pass the
option codes from the first question down to the last one.

Examples:
  gritline instance respond 6f1c... necessary
  gritline instance respond 6f1c... avoided --text "inbox first"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.RecordResponseHandler == nil {
			return fmt.Errorf("application not initialized")
		}

		instanceID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid instance ID: %w", err)
		}

		result, err := app.RecordResponseHandler.Handle(cmd.Context(), commands.RecordResponseCommand{
			InstanceID: instanceID,
			UserID:     app.CurrentUserID,
			Path:       args[1:],
			FreeText:   freeText,
		})
		if err != nil {
			return fmt.Errorf("failed to record response: %w", err)
		}

		return cli.Render(cmd, result, func(w io.Writer) {
			fmt.Fprintf(w, "Response recorded: %s (%s)\n", result.AnswerCode, result.TriggerID)
			adj := result.Adjustments
			if adj.IsZero() {
				fmt.Fprintln(w, "  no score adjustment")
			} else {
				fmt.Fprintf(w, "  time bonus discount:  %.2f\n", adj.TimeBonusDiscount)
				fmt.Fprintf(w, "  productivity penalty: %.2f\n", adj.ProductivityPenalty)
				fmt.Fprintf(w, "  passion shift:        %+.2f\n", adj.PassionShift)
			}
			fmt.Fprintf(w, "  grit:         %.2f\n", result.Derived.Grit)
			fmt.Fprintf(w, "  productivity: %.2f\n", result.Derived.Productivity)
			fmt.Fprintf(w, "  composite:    %.2f\n", result.Derived.Composite)
		})
	},
}

func init() {
	respondCmd.Flags().StringVar(&freeText, "text", "", "free-text comment")
}
