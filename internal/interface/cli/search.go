package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search past conversations",
	Long: `Full-text search over saved conversation messages.

Supports FTS5 query syntax: words, "quoted phrases", AND/OR/NOT.

Examples:
  ruleref search "en passant"
  ruleref search castling
  ruleref search "monopoly AND jail"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	results, err := app.db.SearchMessages(query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Printf("No messages matching %q.\n", query)
		return nil
	}

	fmt.Printf("Found %d result(s) for %q:\n\n", len(results), query)
	for _, r := range results {
		title := r.ConversationTitle
		if title == "" {
			title = "(unsaved conversation)"
		}
		fmt.Printf("%s — %s, %s\n", title, r.Message.Role, humanize.Time(r.Message.Timestamp))
		fmt.Printf("    %s\n", strings.ReplaceAll(r.Snippet, "\n", " "))
		if r.Message.ConversationID != "" {
			fmt.Printf("    conversation: %s\n", r.Message.ConversationID)
		}
		fmt.Println()
	}
	return nil
}
