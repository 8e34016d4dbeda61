package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ruleref/ruleref/internal/core/config"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration and session status",
	Long: `Display the active configuration, storage paths, and local statistics.

Useful for checking which backend you are talking to and whether you
are logged in.`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	configDir, _ := config.Dir()

	fmt.Println("ruleref")
	fmt.Println("=======")
	fmt.Println()
	fmt.Printf("API URL:      %s\n", app.cfg.BaseURL)
	fmt.Printf("Config dir:   %s\n", configDir)
	fmt.Printf("Database:     %s\n", dbPath)
	if fi, err := os.Stat(dbPath); err == nil {
		fmt.Printf("Database size: %s\n", humanize.Bytes(uint64(fi.Size())))
	}
	if _, err := os.Stat(filepath.Join(configDir, "export_template.md")); err == nil {
		fmt.Println("Export template: custom (export_template.md)")
	} else {
		fmt.Println("Export template: built-in")
	}
	fmt.Println()

	if app.session.IsAuthenticated() {
		if user := app.session.User(); user != nil {
			fmt.Printf("Logged in as: %s\n", user.Username)
		} else {
			fmt.Println("Logged in (no user identity reported by the server)")
		}
	} else {
		fmt.Println("Not logged in")
	}

	if game, ok := app.catalog.Selected(); ok {
		fmt.Printf("Selected game: %s (%s)\n", game.Name, game.GameID)
	}
	fmt.Println()

	var totalConversations, totalMessages int
	if err := app.db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&totalConversations); err != nil {
		return fmt.Errorf("failed to count conversations: %w", err)
	}
	if err := app.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&totalMessages); err != nil {
		return fmt.Errorf("failed to count messages: %w", err)
	}
	fmt.Printf("Conversations: %d\n", totalConversations)
	fmt.Printf("Messages:      %d\n", totalMessages)
	fmt.Printf("Cached games:  %d\n", len(app.catalog.Games()))
	return nil
}
