package models

import (
	"time"
)

// Role identifies which side of the conversation a message belongs to.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn in a conversation. A message belongs to at most
// one conversation and is never re-parented.
type ChatMessage struct {
	ID             string              `json:"id"`
	Role           Role                `json:"role"`
	Content        string              `json:"content"`
	GameID         string              `json:"game_id,omitempty"`
	ConversationID string              `json:"conversation_id,omitempty"`
	Timestamp      time.Time           `json:"timestamp"`
	Sources        []RuleChunk         `json:"sources,omitempty"`
	Structured     *StructuredResponse `json:"structured_response,omitempty"`
}

// RuleChunk is a unit of rulebook text returned by the legacy query endpoint.
type RuleChunk struct {
	GameID     string         `json:"game_id"`
	CategoryID string         `json:"category_id"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Metadata   *ChunkMetadata `json:"chunk_metadata,omitempty"`
}

// ChunkMetadata carries provenance for a rule chunk.
type ChunkMetadata struct {
	SourceFile        string `json:"source_file,omitempty"`
	UploadedWithoutAI bool   `json:"uploaded_without_ai,omitempty"`
}

// StructuredResponse is the assistant's answer decomposed into a summary,
// expandable rule sections, and cited sources. Read-only once received;
// expand/collapse state lives in the UI, not here.
type StructuredResponse struct {
	ID      string          `json:"id"`
	Content ResponseContent `json:"content"`
}

// ResponseContent is the body of a structured response.
type ResponseContent struct {
	Summary  Summary           `json:"summary"`
	Sections []ResponseSection `json:"sections"`
	Sources  []ResponseSource  `json:"sources"`
}

// Summary is the short answer with the backend's confidence in it.
type Summary struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// ResponseSection is one expandable block of the structured answer.
type ResponseSection struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Type        string `json:"type"`
	Level       int    `json:"level"`
	Collapsible bool   `json:"collapsible"`
	Expanded    bool   `json:"expanded"`
}

// ResponseSource is one citation attached to a structured answer.
type ResponseSource struct {
	Type      string `json:"type"`
	Reference string `json:"reference"`
	URL       string `json:"url,omitempty"`
	Page      *int   `json:"page,omitempty"`
}
