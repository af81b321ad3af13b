package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/felixgeelhaar/gritline/pkg/observability"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the backing services",
	Long: `Run the registered health checks (database, Redis, RabbitMQ) and
print their status. The memory driver registers no checks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}
		if app.Health == nil {
			return Render(cmd, map[string]string{"status": "ok"}, func(w io.Writer) {
				fmt.Fprintln(w, "ok")
			})
		}

		health := app.Health.GetOverallHealth(cmd.Context())
		if err := Render(cmd, health, func(w io.Writer) {
			fmt.Fprintf(w, "status: %s\n", health.Status)
			names := make([]string, 0, len(health.Checks))
			for name := range health.Checks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				check := health.Checks[name]
				fmt.Fprintf(w, "  %-10s %-10s %s\n", name, check.Status, check.Message)
			}
		}); err != nil {
			return err
		}

		if health.Status == observability.HealthStatusUnhealthy {
			return fmt.Errorf("one or more checks failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
