package instance

import (
	"github.com/spf13/cobra"
)

// Cmd is the instance command group
var Cmd = &cobra.Command{
	Use:     "instance",
	Aliases: []string{"inst"},
	Short:   "Record and score task instances",
	Long: `Create task instances with predictions, complete them with what
actually happened, and answer the follow-up question a completion may raise.`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(updateCmd)
	Cmd.AddCommand(completeCmd)
	Cmd.AddCommand(respondCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(listCmd)
}
