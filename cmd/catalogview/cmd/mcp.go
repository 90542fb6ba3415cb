package cmd

import (
	"github.com/spf13/cobra"
	mcpserver "github.com/wesm/catalogview/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for assistant integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This allows any MCP client to read the catalog using the tools
list_orders, get_order, list_portfolios, list_portfolio_items and
list_platforms. The server is read-only.

Add to an MCP client config:
  {
    "mcpServers": {
      "catalogview": {
        "command": "catalogview",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		return mcpserver.Serve(cmd.Context(), b, Version)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
