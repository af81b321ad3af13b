// Package mcp holds the CLI commands that run the MCP server in process.
package mcp

import "github.com/spf13/cobra"

// Cmd groups the MCP server commands.
var Cmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the score engine to MCP clients",
	Long: `Serve instance, score and trigger tools over the Model Context Protocol
so that assistants can record completions and answer follow-up questions.`,
}

func init() {
	Cmd.AddCommand(serveCmd)
}
