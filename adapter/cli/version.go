package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/felixgeelhaar/gritline/adapter/cli.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Build returns the build information of this binary.
func Build() BuildInfo {
	return BuildInfo{Version: Version, Commit: Commit, BuildDate: BuildDate}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := Build()
		return Render(cmd, info, func(w io.Writer) {
			fmt.Fprintf(w, "gritline %s (commit %s, built %s)\n", info.Version, info.Commit, info.BuildDate)
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
