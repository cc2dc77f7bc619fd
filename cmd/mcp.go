package cmd

import (
	"github.com/huangsam/safeupdate/internal/iocache"
	"github.com/huangsam/safeupdate/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the safeupdate MCP server",
	Long:  `Launch an MCP server over stdio that lets AI agents check gem upgrades with the configured policy.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Stdio carries the protocol, so the handlers suppress the run header.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		defer iocache.CloseCaching()
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager, version)
	},
}
