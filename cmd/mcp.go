package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/actimerge/internal/mcp"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the actimerge MCP server",
	Long:  `Launch an MCP server that allows AI agents to merge actigraphy workspaces and inspect R files via standard tools.`,
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Profiling and ledger notices go to stderr; stdout carries the protocol.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, runStore, logger)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
