package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cbroglie/mustache"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <conversation-id>",
	Short: "Export a conversation to markdown",
	Long: `Export a conversation to a markdown file.

By default exports to the current directory as conversation-<id>.md.
The template can be customized by placing export_template.md in the
config directory.

Examples:
  ruleref export 0ccfddc4-00e7-443a-bb82-58ede5936619
  ruleref export 0ccfddc4-00e7-443a-bb82-58ede5936619 -o chess-rules.md`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: conversation-<id>.md in current directory)")
}

func runExport(cmd *cobra.Command, args []string) error {
	conversationID := args[0]

	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	conv, err := app.db.GetConversation(conversationID)
	if err != nil {
		return fmt.Errorf("failed to look up conversation: %w", err)
	}
	if conv == nil {
		return fmt.Errorf("conversation %s not found", conversationID)
	}

	messages, err := app.db.MessagesForConversation(conversationID)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}

	templateMessages := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		templateMessages = append(templateMessages, map[string]string{
			"role":      string(m.Role),
			"timestamp": m.Timestamp.Format(time.RFC1123),
			"content":   m.Content,
		})
	}

	data := map[string]interface{}{
		"title":         conv.Title,
		"game_name":     conv.GameName,
		"game_id":       conv.GameID,
		"created_at":    conv.CreatedAt.Format(time.RFC1123),
		"message_count": conv.MessageCount,
		"messages":      templateMessages,
	}

	rendered, err := mustache.Render(app.cfg.ExportTemplate, data)
	if err != nil {
		return fmt.Errorf("failed to render export template: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	outputPath := exportOutput
	if outputPath == "" {
		shortID := conversationID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		outputPath = filepath.Join(cwd, fmt.Sprintf("conversation-%s.md", shortID))
	} else if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(cwd, outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(rendered), 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	fmt.Printf("Exported %d messages to %s\n", len(messages), outputPath)
	return nil
}
