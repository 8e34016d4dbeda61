package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Conversation is a named, timestamped thread of messages scoped to one
// game. GameName is a denormalized copy taken at creation time and may
// drift from the catalog if the game is renamed upstream.
type Conversation struct {
	ID            string    `json:"id"`
	GameID        string    `json:"game_id"`
	GameName      string    `json:"game_name"`
	Title         string    `json:"title"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	MessageCount  int       `json:"message_count"`
	CreatedAt     time.Time `json:"created_at"`
	IsActive      bool      `json:"is_active"`
}

// Validate checks if the conversation has required fields
func (c *Conversation) Validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	if c.GameID == "" {
		return errors.New("game_id is required")
	}
	return nil
}

// DefaultTitle is the placeholder title a conversation carries until the
// first user message arrives.
func DefaultTitle(gameName string) string {
	return fmt.Sprintf("New %s Chat", gameName)
}

const titleMaxLen = 40

// DeriveTitle builds a conversation title from the first user message:
// the first four words, truncated to 40 characters with an ellipsis.
// Returns empty for whitespace-only input so callers keep the prior title.
func DeriveTitle(content string) string {
	words := strings.Fields(content)
	if len(words) == 0 {
		return ""
	}
	if len(words) > 4 {
		words = words[:4]
	}
	title := strings.Join(words, " ")
	// Truncate on rune boundaries; byte slicing would split multibyte
	// characters and persist invalid UTF-8
	if runes := []rune(title); len(runes) > titleMaxLen {
		title = string(runes[:titleMaxLen]) + "..."
	}
	return title
}
