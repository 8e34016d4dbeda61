package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"
)

var (
	conversationsGame  string
	conversationsSince string
	conversationsLimit int
)

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List saved conversations",
	Long: `List conversations in reverse chronological order.

--since accepts natural language dates.

Examples:
  ruleref conversations
  ruleref conversations --game chess
  ruleref conversations --since "last week"
  ruleref conversations delete 0ccfddc4`,
	RunE: runConversations,
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete <conversation-id>",
	Short: "Delete a conversation and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationsDelete,
}

func init() {
	rootCmd.AddCommand(conversationsCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)
	conversationsCmd.Flags().StringVarP(&conversationsGame, "game", "g", "", "Filter by game id")
	conversationsCmd.Flags().StringVar(&conversationsSince, "since", "", "Only conversations active since this time (natural language ok)")
	conversationsCmd.Flags().IntVar(&conversationsLimit, "limit", 20, "Maximum number of conversations to display")
}

func runConversations(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	var since time.Time
	if conversationsSince != "" {
		since, err = parseNaturalTime(conversationsSince)
		if err != nil {
			return err
		}
	}

	conversations, err := app.convs.List(conversationsGame, since)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(conversations) > conversationsLimit {
		conversations = conversations[:conversationsLimit]
	}

	if len(conversations) == 0 {
		fmt.Println("No conversations found. Start one with 'ruleref ask' or the TUI.")
		return nil
	}

	for _, c := range conversations {
		marker := " "
		if c.IsActive {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, c.ID)
		fmt.Printf("    Title: %s\n", c.Title)
		fmt.Printf("    Game: %s\n", c.GameName)
		fmt.Printf("    Messages: %d\n", c.MessageCount)
		if !c.LastMessageAt.IsZero() {
			fmt.Printf("    Last activity: %s\n", humanize.Time(c.LastMessageAt))
		} else {
			fmt.Printf("    Created: %s\n", humanize.Time(c.CreatedAt))
		}
		fmt.Println()
	}
	return nil
}

func runConversationsDelete(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.convs.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	fmt.Println("Deleted.")
	return nil
}

func parseNaturalTime(input string) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(input, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", input, err)
	}
	if result == nil {
		// Fall back to a plain date
		t, perr := time.Parse("2006-01-02", input)
		if perr != nil {
			return time.Time{}, fmt.Errorf("could not understand time %q", input)
		}
		return t, nil
	}
	return result.Time, nil
}
