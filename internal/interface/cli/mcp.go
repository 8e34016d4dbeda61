package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ruleref/ruleref/cmd/ruleref/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start an MCP server exposing rules lookup tools",
	Long: `Start an MCP (Model Context Protocol) server over stdio that lets MCP
clients browse the game catalog, ask rules questions, and search your
local conversation history.

Example client config:
  {
    "mcpServers": {
      "ruleref": {
        "command": "ruleref",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	if err := mcp.StartServer(dbPath); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
