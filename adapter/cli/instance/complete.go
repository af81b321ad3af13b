package instance

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/gritline/adapter/cli"
	"github.com/felixgeelhaar/gritline/internal/grit/application/commands"
	"github.com/felixgeelhaar/gritline/internal/grit/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	completion     float64
	actualMinutes  float64
	actualRelief   float64
	actualLoad     float64
	actualDiff     float64
	startupDelay   float64
	notes          string
	emotionEntries []string
)

var completeCmd = &cobra.Command{
	Use:   "complete [instance-id]",
	Short: "Record what actually happened",
	Long: `Complete a pending instance. The instance is scored and at most one
follow-up question is selected from the trigger catalog.

Examples:
  gritline instance complete 6f1c... --actual 90 --relief 30 --load 70
  gritline instance complete 6f1c... --completion 60 --actual 20 --emotion frustration=80`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.CompleteInstanceHandler == nil {
			return fmt.Errorf("application not initialized")
		}

		instanceID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid instance ID: %w", err)
		}

		actuals, err := actualsFromFlags()
		if err != nil {
			return err
		}

		result, err := app.CompleteInstanceHandler.Handle(cmd.Context(), commands.CompleteInstanceCommand{
			InstanceID: instanceID,
			UserID:     app.CurrentUserID,
			Actuals:    actuals,
		})
		if err != nil {
			return fmt.Errorf("failed to complete instance: %w", err)
		}

		return cli.Render(cmd, result, func(w io.Writer) {
			fmt.Fprintf(w, "Instance completed: %s\n", result.InstanceID)
			fmt.Fprintf(w, "  grit:         %.2f\n", result.Derived.Grit)
			fmt.Fprintf(w, "  productivity: %.2f\n", result.Derived.Productivity)
			fmt.Fprintf(w, "  composite:    %.2f\n", result.Derived.Composite)
			cli.PrintDecision(w, result.Decision)
		})
	},
}

func init() {
	addActualsFlags(completeCmd)
}

func addActualsFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&completion, "completion", 100, "completion percent (0-100)")
	cmd.Flags().Float64VarP(&actualMinutes, "actual", "a", 0, "actual time in minutes")
	cmd.Flags().Float64Var(&actualRelief, "relief", 0, "actual relief (0-100)")
	cmd.Flags().Float64Var(&actualLoad, "load", 0, "actual emotional load (0-100)")
	cmd.Flags().Float64Var(&actualDiff, "difficulty", 0, "actual difficulty (0-100)")
	cmd.Flags().Float64Var(&startupDelay, "startup-delay", 0, "minutes between planned and actual start")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().StringArrayVar(&emotionEntries, "emotion", nil, "emotion value as name=0-100 (repeatable)")
}

func actualsFromFlags() (domain.Actuals, error) {
	emotions, err := parseEmotions(emotionEntries)
	if err != nil {
		return domain.Actuals{}, err
	}
	return domain.Actuals{
		CompletionPercent:   completion,
		TimeActualMinutes:   actualMinutes,
		ActualRelief:        actualRelief,
		ActualEmotionalLoad: actualLoad,
		ActualDifficulty:    actualDiff,
		StartupDelayMinutes: startupDelay,
		EmotionValues:       emotions,
		Notes:               notes,
	}, nil
}

func parseEmotions(entries []string) (map[string]float64, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	emotions := make(map[string]float64, len(entries))
	for _, entry := range entries {
		name, raw, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid emotion %q (use name=value)", entry)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid emotion value for %s: %w", name, err)
		}
		emotions[strings.ToLower(name)] = value
	}
	return emotions, nil
}
