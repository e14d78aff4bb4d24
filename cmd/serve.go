package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/sheetdoctor-cli/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	Long: `Serve exposes diagnose_file, inspect_healing_plan, heal_file, and
report_file as MCP tools over stdio, so AI agents can inspect and repair
tabular files through the Model Context Protocol.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpserver.New(cfg).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
