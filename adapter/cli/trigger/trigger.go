package trigger

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/trigger"
	"github.com/spf13/cobra"
)

// Cmd is the trigger command group
var Cmd = &cobra.Command{
	Use:   "trigger",
	Short: "Inspect the follow-up question catalog",
}

// RuleView is the printable form of a catalog rule.
type RuleView struct {
	ID       trigger.ID        `json:"id"`
	Priority string            `json:"priority"`
	Question *trigger.Question `json:"question"`
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List triggers and their questions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Catalog == nil {
			return fmt.Errorf("application not initialized")
		}

		rules := app.Catalog.Rules()
		views := make([]RuleView, 0, len(rules))
		for _, r := range rules {
			views = append(views, RuleView{ID: r.ID, Priority: r.Priority.String(), Question: r.Questions})
		}

		return cli.Render(cmd, views, func(w io.Writer) {
			for _, v := range views {
				fmt.Fprintf(w, "%-24s %-6s", v.ID, v.Priority)
				if v.Question != nil {
					fmt.Fprintf(w, " %s", v.Question.Prompt)
				}
				fmt.Fprintln(w)
			}
		})
	},
}

func init() {
	Cmd.AddCommand(listCmd)
}
