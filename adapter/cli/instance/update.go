package instance

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	"github.com/felixgeelhaar/gritline/internal/grit/application/commands"
	"github.com/felixgeelhaar/gritline/internal/grit/application/queries"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var updateCmd = &cobra.Command{
	Use:   "update [instance-id]",
	Short: "Correct the predictions or actuals of an instance",
	Long: `Correct an instance. Only the flags you pass change; everything else
keeps its recorded value. Actual fields can only be corrected on a completed
instance. Scores of the instance's task and of all tasks are recomputed.

Examples:
  gritline instance update 6f1c... --estimate 90
  gritline instance update 6f1c... --actual 75 --actual-relief 50`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.UpdateInstanceHandler == nil || app.GetInstanceHandler == nil {
			return fmt.Errorf("application not initialized")
		}

		instanceID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid instance ID: %w", err)
		}

		ctx := cmd.Context()
		current, err := app.GetInstanceHandler.Handle(ctx, queries.GetInstanceQuery{
			InstanceID: instanceID,
			UserID:     app.CurrentUserID,
		})
		if err != nil {
			return fmt.Errorf("failed to load instance: %w", err)
		}

		updateCmd := commands.UpdateInstanceCommand{
			InstanceID: instanceID,
			UserID:     app.CurrentUserID,
		}

		flags := cmd.Flags()
		if anyChanged(flags, "aversion", "relief", "load", "estimate", "difficulty") {
			predicted := current.Predicted
			setIfChanged(flags, "aversion", &predicted.ExpectedAversion, aversion)
			setIfChanged(flags, "relief", &predicted.ExpectedRelief, relief)
			setIfChanged(flags, "load", &predicted.ExpectedEmotionalLoad, load)
			setIfChanged(flags, "estimate", &predicted.TimeEstimateMinutes, estimate)
			setIfChanged(flags, "difficulty", &predicted.TaskDifficulty, difficulty)
			updateCmd.Predicted = &predicted
		}

		if anyChanged(flags, "completion", "actual", "actual-relief", "actual-load", "actual-difficulty", "startup-delay", "notes") {
			if current.Actuals == nil {
				return fmt.Errorf("instance %s is not completed yet", instanceID)
			}
			actuals := *current.Actuals
			setIfChanged(flags, "completion", &actuals.CompletionPercent, completion)
			setIfChanged(flags, "actual", &actuals.TimeActualMinutes, actualMinutes)
			setIfChanged(flags, "actual-relief", &actuals.ActualRelief, actualRelief)
			setIfChanged(flags, "actual-load", &actuals.ActualEmotionalLoad, actualLoad)
			setIfChanged(flags, "actual-difficulty", &actuals.ActualDifficulty, actualDiff)
			setIfChanged(flags, "startup-delay", &actuals.StartupDelayMinutes, startupDelay)
			if flags.Changed("notes") {
				actuals.Notes = notes
			}
			updateCmd.Actuals = &actuals
		}

		if err := app.UpdateInstanceHandler.Handle(ctx, updateCmd); err != nil {
			return fmt.Errorf("failed to update instance: %w", err)
		}

		updated, err := app.GetInstanceHandler.Handle(ctx, queries.GetInstanceQuery{
			InstanceID: instanceID,
			UserID:     app.CurrentUserID,
		})
		if err != nil {
			return fmt.Errorf("failed to reload instance: %w", err)
		}

		return cli.Render(cmd, updated, func(w io.Writer) {
			fmt.Fprintf(w, "Instance updated: %s\n", instanceID)
			printInstance(w, updated)
		})
	},
}

func init() {
	f := updateCmd.Flags()
	f.Float64Var(&aversion, "aversion", 0, "expected aversion (0-100)")
	f.Float64Var(&relief, "relief", 0, "expected relief (0-100)")
	f.Float64Var(&load, "load", 0, "expected emotional load (0-100)")
	f.Float64VarP(&estimate, "estimate", "e", 0, "time estimate in minutes")
	f.Float64Var(&difficulty, "difficulty", 0, "task difficulty (0-100)")

	f.Float64Var(&completion, "completion", 100, "completion percent (0-100)")
	f.Float64VarP(&actualMinutes, "actual", "a", 0, "actual time in minutes")
	f.Float64Var(&actualRelief, "actual-relief", 0, "actual relief (0-100)")
	f.Float64Var(&actualLoad, "actual-load", 0, "actual emotional load (0-100)")
	f.Float64Var(&actualDiff, "actual-difficulty", 0, "actual difficulty (0-100)")
	f.Float64Var(&startupDelay, "startup-delay", 0, "minutes between planned and actual start")
	f.StringVar(&notes, "notes", "", "free-form notes")
}

func anyChanged(flags *pflag.FlagSet, names ...string) bool {
	for _, name := range names {
		if flags.Changed(name) {
			return true
		}
	}
	return false
}

func setIfChanged(flags *pflag.FlagSet, name string, dst *float64, value float64) {
	if flags.Changed(name) {
		*dst = value
	}
}
