package instance

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	"github.com/felixgeelhaar/gritline/internal/grit/application/queries"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var listTask string

var showCmd = &cobra.Command{
	Use:   "show [instance-id]",
	Short: "Show an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetInstanceHandler == nil {
			return fmt.Errorf("application not initialized")
		}

		instanceID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid instance ID: %w", err)
		}

		inst, err := app.GetInstanceHandler.Handle(cmd.Context(), queries.GetInstanceQuery{
			InstanceID: instanceID,
			UserID:     app.CurrentUserID,
		})
		if err != nil {
			return fmt.Errorf("failed to get instance: %w", err)
		}

		return cli.Render(cmd, inst, func(w io.Writer) {
			fmt.Fprintf(w, "Instance %s\n", inst.ID)
			printInstance(w, inst)
		})
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the instances of a task",
	Long: `List your instances of one task, oldest first.

Examples:
  gritline instance list --task 6f1c...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ListInstancesHandler == nil {
			return fmt.Errorf("application not initialized")
		}

		taskID, err := uuid.Parse(listTask)
		if err != nil {
			return fmt.Errorf("invalid task ID: %w", err)
		}

		instances, err := app.ListInstancesHandler.Handle(cmd.Context(), queries.ListInstancesQuery{
			UserID: app.CurrentUserID,
			TaskID: taskID,
		})
		if err != nil {
			return fmt.Errorf("failed to list instances: %w", err)
		}

		return cli.Render(cmd, instances, func(w io.Writer) {
			if len(instances) == 0 {
				fmt.Fprintln(w, "No instances found.")
				return
			}
			fmt.Fprintf(w, "%-36s  %-36s  %-10s  %9s\n", "ID", "TASK", "TRIGGER", "COMPOSITE")
			cli.Divider(w)
			for _, inst := range instances {
				composite := "-"
				if inst.Derived != nil {
					composite = fmt.Sprintf("%.2f", inst.Derived.Composite)
				}
				fmt.Fprintf(w, "%-36s  %-36s  %-10s  %9s\n", inst.ID, inst.TaskID, inst.TriggerState, composite)
			}
			fmt.Fprintf(w, "\n%d instance(s)\n", len(instances))
		})
	},
}

func init() {
	listCmd.Flags().StringVarP(&listTask, "task", "t", "", "task ID")
	_ = listCmd.MarkFlagRequired("task")
}

func printInstance(w io.Writer, inst *queries.InstanceDTO) {
	p := inst.Predicted
	fmt.Fprintf(w, "  task:      %s\n", inst.TaskID)
	fmt.Fprintf(w, "  predicted: aversion %.0f, relief %.0f, load %.0f, difficulty %.0f, %.0f min\n",
		p.ExpectedAversion, p.ExpectedRelief, p.ExpectedEmotionalLoad, p.TaskDifficulty, p.TimeEstimateMinutes)

	if inst.Actuals == nil {
		fmt.Fprintln(w, "  status:    pending")
		return
	}

	a := inst.Actuals
	fmt.Fprintf(w, "  actuals:   %.0f%% done, relief %.0f, load %.0f, difficulty %.0f, %.0f min\n",
		a.CompletionPercent, a.ActualRelief, a.ActualEmotionalLoad, a.ActualDifficulty, a.TimeActualMinutes)
	if inst.CompletedAt != nil {
		fmt.Fprintf(w, "  completed: %s\n", inst.CompletedAt.Format("2006-01-02 15:04"))
	}
	if inst.Derived != nil {
		fmt.Fprintf(w, "  scores:    grit %.2f, productivity %.2f, composite %.2f\n",
			inst.Derived.Grit, inst.Derived.Productivity, inst.Derived.Composite)
	}
	fmt.Fprintf(w, "  trigger:   %s", inst.TriggerState)
	if inst.FiredTrigger != "" {
		fmt.Fprintf(w, " (%s)", inst.FiredTrigger)
	}
	fmt.Fprintln(w)
	if inst.Response != nil {
		fmt.Fprintf(w, "  answer:    %s\n", inst.Response.AnswerCode)
	}
}
