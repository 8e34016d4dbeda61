package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ruleref/ruleref/internal/core/config"
)

var (
	dbPath      string
	verbose     bool
	versionInfo string
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ruleref",
	Short: "Tabletop rules assistant",
	Long: `ruleref - ask natural-language questions about tabletop-game rules

A terminal client for the tabletop-rules API: browse the game catalog,
chat about rules with cited sources, and keep your conversation history
local and searchable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to TUI if no subcommand specified
		return tuiCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "Database path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
