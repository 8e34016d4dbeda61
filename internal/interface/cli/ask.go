package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/ruleref/ruleref/internal/core/models"
)

var (
	askGame    string
	askNewConv bool
	askPlain   bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a rules question",
	Long: `Send one rules question and print the answer with its sections and
cited sources.

The question goes to the selected game (see 'ruleref games --select')
unless --game overrides it. The exchange is appended to the active
conversation for that game, or to a new one with --new.

Examples:
  ruleref ask "How do pawns move?" --game chess
  ruleref ask "Can I trade during another player's turn?"
  ruleref ask "What does the robber do?" --game catan --new`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askGame, "game", "g", "", "Game id to ask about (defaults to the selected game)")
	askCmd.Flags().BoolVar(&askNewConv, "new", false, "Start a new conversation for this question")
	askCmd.Flags().BoolVar(&askPlain, "plain", false, "Plain text output, no markdown rendering")
}

func runAsk(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.requireAuth(); err != nil {
		return err
	}

	gameID := askGame
	gameName := gameID
	if gameID == "" {
		selected, ok := app.catalog.Selected()
		if !ok {
			return fmt.Errorf("no game selected. Use --game or 'ruleref games --select <id>'")
		}
		gameID = selected.GameID
		gameName = selected.Name
	} else if g, ok := app.catalog.Game(gameID); ok {
		gameName = g.Name
	}

	// Ensure the exchange lands in a conversation for this game
	if askNewConv || app.convs.ActiveConversationID() == "" || app.convs.CurrentGameID() != gameID {
		if _, err := app.convs.NewConversation(gameID, gameName); err != nil {
			return fmt.Errorf("failed to start conversation: %w", err)
		}
	}

	answer, err := app.chat.Send(context.Background(), args[0], gameID)
	if err != nil {
		// The error turn is already in the conversation; surface it here too
		return err
	}

	return printAnswer(answer)
}

func printAnswer(answer models.ChatMessage) error {
	md := answerMarkdown(answer)

	if askPlain {
		fmt.Println(md)
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	fmt.Print(out)
	return nil
}

// answerMarkdown flattens a chat answer into markdown: summary first, then
// each section, then the cited sources.
func answerMarkdown(answer models.ChatMessage) string {
	var b strings.Builder

	if answer.Structured == nil {
		b.WriteString(answer.Content)
		return b.String()
	}

	content := answer.Structured.Content
	b.WriteString(content.Summary.Text)
	b.WriteString("\n")

	for _, section := range content.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", section.Title, section.Content)
	}

	if len(content.Sources) > 0 {
		b.WriteString("\n---\n")
		for _, src := range content.Sources {
			if src.Page != nil {
				fmt.Fprintf(&b, "- %s: %s (p. %d)\n", src.Type, src.Reference, *src.Page)
			} else {
				fmt.Fprintf(&b, "- %s: %s\n", src.Type, src.Reference)
			}
		}
	}

	fmt.Fprintf(&b, "\n*confidence %.0f%%*\n", content.Summary.Confidence*100)
	return b.String()
}
