package instance

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	"github.com/felixgeelhaar/gritline/internal/grit/application/commands"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [instance-id]",
	Aliases: []string{"rm"},
	Short:   "Delete an instance",
	Long: `Delete an instance. Scores of its task and of all tasks are
recomputed without it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.DeleteInstanceHandler == nil {
			return fmt.Errorf("application not initialized")
		}

		instanceID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid instance ID: %w", err)
		}

		err = app.DeleteInstanceHandler.Handle(cmd.Context(), commands.DeleteInstanceCommand{
			InstanceID: instanceID,
			UserID:     app.CurrentUserID,
		})
		if err != nil {
			return fmt.Errorf("failed to delete instance: %w", err)
		}

		return cli.Render(cmd, map[string]string{"deleted": instanceID.String()}, func(w io.Writer) {
			fmt.Fprintf(w, "Instance deleted: %s\n", instanceID)
		})
	},
}
