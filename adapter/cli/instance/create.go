package instance

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	"github.com/felixgeelhaar/gritline/internal/grit/application/commands"
	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	taskIDFlag string
	aversion   float64
	relief     float64
	load       float64
	estimate   float64
	difficulty float64
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task instance with predictions",
	Long: `Create a pending task instance. Predictions are on a 0-100 scale and
the estimate is in minutes. Without --task a new task is started.

Examples:
  gritline instance create --aversion 70 --relief 40 --load 60 --estimate 45
  gritline instance create --task 6f1c... --estimate 30 --difficulty 80`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.CreateInstanceHandler == nil {
			return fmt.Errorf("application not initialized")
		}

		createCmd := commands.CreateInstanceCommand{
			UserID: app.CurrentUserID,
			Predicted: domain.Predicted{
				ExpectedAversion:      aversion,
				ExpectedRelief:        relief,
				ExpectedEmotionalLoad: load,
				TimeEstimateMinutes:   estimate,
				TaskDifficulty:        difficulty,
			},
		}

		if taskIDFlag != "" {
			taskID, err := uuid.Parse(taskIDFlag)
			if err != nil {
				return fmt.Errorf("invalid task ID: %w", err)
			}
			createCmd.TaskID = taskID
		}

		result, err := app.CreateInstanceHandler.Handle(cmd.Context(), createCmd)
		if err != nil {
			return fmt.Errorf("failed to create instance: %w", err)
		}

		return cli.Render(cmd, result, func(w io.Writer) {
			fmt.Fprintf(w, "Instance created: %s\n", result.InstanceID)
			fmt.Fprintf(w, "  task: %s\n", result.TaskID)
			fmt.Fprintf(w, "  estimate: %.0f minutes\n", estimate)
		})
	},
}

func init() {
	createCmd.Flags().StringVarP(&taskIDFlag, "task", "t", "", "existing task ID")
	addPredictedFlags(createCmd)
}

func addPredictedFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&aversion, "aversion", 0, "expected aversion (0-100)")
	cmd.Flags().Float64Var(&relief, "relief", 0, "expected relief (0-100)")
	cmd.Flags().Float64Var(&load, "load", 0, "expected emotional load (0-100)")
	cmd.Flags().Float64VarP(&estimate, "estimate", "e", 0, "time estimate in minutes")
	cmd.Flags().Float64Var(&difficulty, "difficulty", 0, "task difficulty (0-100)")
}
