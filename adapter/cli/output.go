package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/application/queries"
	"github.com/felixgeelhaar/gritline/internal/grit/application/services"
	"github.com/spf13/cobra"
)

// Render prints v as indented JSON when --json is set and calls text otherwise.
func Render(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(out)
	return nil
}

// Divider prints a separator line.
func Divider(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("-", 40))
}

// PrintScore prints a score in text form.
func PrintScore(w io.Writer, score *queries.ScoreDTO) {
	fmt.Fprintf(w, "Score (%s)\n", score.Scope)
	Divider(w)
	if !score.Available() {
		fmt.Fprintf(w, "  unavailable: %s\n", score.Reason)
		return
	}
	fmt.Fprintf(w, "  composite:    %8.2f\n", score.Composite)
	fmt.Fprintf(w, "  grit:         %8.2f\n", score.Grit)
	fmt.Fprintf(w, "  productivity: %8.2f\n", score.Productivity)
	fmt.Fprintf(w, "  instances:    %8d\n", score.Instances)
	fmt.Fprintf(w, "  version:      %8d\n", score.Version)
	if score.Source != queries.ScoreSourceEngine {
		fmt.Fprintf(w, "  cached from:  %s at %s\n", score.Source, score.ComputedAt.Format(time.RFC3339))
	}
}

// PrintDecision prints the popup decision of a completion, including the
// question and its options when a trigger fired.
func PrintDecision(w io.Writer, d services.Decision) {
	if !d.Fired {
		if d.Reason != "" {
			fmt.Fprintf(w, "No follow-up question (%s)\n", d.Reason)
		}
		return
	}

	fmt.Fprintf(w, "Follow-up [%s, %s priority]\n", d.TriggerID, d.Priority)
	if d.Question == nil {
		return
	}
	fmt.Fprintf(w, "  %s\n", d.Question.Prompt)
	for _, opt := range d.Question.Options {
		fmt.Fprintf(w, "    %-16s %s\n", opt.Code, opt.Label)
	}
	fmt.Fprintf(w, "Answer with: gritline instance respond %s <option>...\n", d.InstanceID)
}
