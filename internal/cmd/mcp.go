package cmd

import (
	"github.com/spf13/cobra"

	"github.com/strrl/dayflow/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the timeline to MCP clients over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout with read-only
tools: get_timeline, get_segments and get_stats.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	srv := mcp.NewServer(a.Store, a.Analyzer, a.Location(), Version)
	return srv.Run(cmd.Context())
}
