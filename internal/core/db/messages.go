package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ruleref/ruleref/internal/core/models"
)

// InsertMessage appends a message. Sources and structured responses are
// stored as JSON blobs; older rows without them scan back as nil.
func (db *DB) InsertMessage(m models.ChatMessage) error {
	var sources, structured interface{}
	if len(m.Sources) > 0 {
		data, err := json.Marshal(m.Sources)
		if err != nil {
			return fmt.Errorf("marshal sources: %w", err)
		}
		sources = string(data)
	}
	if m.Structured != nil {
		data, err := json.Marshal(m.Structured)
		if err != nil {
			return fmt.Errorf("marshal structured response: %w", err)
		}
		structured = string(data)
	}

	_, err := db.conn.Exec(`
		INSERT INTO messages (id, conversation_id, game_id, role, content, timestamp, sequence, sources, structured)
		VALUES (?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(sequence), 0) + 1 FROM messages),
			?, ?)
	`, m.ID, nullString(m.ConversationID), nullString(m.GameID), string(m.Role), m.Content, m.Timestamp, sources, structured)
	return err
}

// MessagesForConversation returns a conversation's messages in append order.
func (db *DB) MessagesForConversation(conversationID string) ([]models.ChatMessage, error) {
	return db.queryMessages(`
		SELECT id, COALESCE(conversation_id, ''), COALESCE(game_id, ''), role, content, timestamp, sources, structured
		FROM messages WHERE conversation_id = ? ORDER BY sequence
	`, conversationID)
}

// UnscopedMessages returns the buffer of messages sent outside any named
// conversation, in append order.
func (db *DB) UnscopedMessages() ([]models.ChatMessage, error) {
	return db.queryMessages(`
		SELECT id, COALESCE(conversation_id, ''), COALESCE(game_id, ''), role, content, timestamp, sources, structured
		FROM messages WHERE conversation_id IS NULL ORDER BY sequence
	`)
}

// DeleteUnscopedMessages drops the unscoped buffer. Conversation-scoped
// history is untouched.
func (db *DB) DeleteUnscopedMessages() error {
	_, err := db.conn.Exec(`DELETE FROM messages WHERE conversation_id IS NULL`)
	return err
}

// SearchResult is one full-text match over stored chat history.
type SearchResult struct {
	Message           models.ChatMessage
	ConversationTitle string
	Snippet           string
}

// SearchMessages runs an FTS query over message content, newest-first.
func (db *DB) SearchMessages(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT m.id, COALESCE(m.conversation_id, ''), COALESCE(m.game_id, ''), m.role, m.content, m.timestamp,
			COALESCE(c.title, ''),
			snippet(messages_fts, 0, '>', '<', '...', 16)
		FROM messages_fts f
		JOIN messages m ON m.rowid = f.rowid
		LEFT JOIN conversations c ON c.id = m.conversation_id
		WHERE messages_fts MATCH ?
		ORDER BY m.timestamp DESC
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var role string
		if err := rows.Scan(&r.Message.ID, &r.Message.ConversationID, &r.Message.GameID, &role,
			&r.Message.Content, &r.Message.Timestamp, &r.ConversationTitle, &r.Snippet); err != nil {
			return nil, err
		}
		r.Message.Role = models.Role(role)
		results = append(results, r)
	}
	return results, rows.Err()
}

func (db *DB) queryMessages(query string, args ...interface{}) ([]models.ChatMessage, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var role string
		var sources, structured sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.GameID, &role, &m.Content, &m.Timestamp, &sources, &structured); err != nil {
			return nil, err
		}
		m.Role = models.Role(role)
		if sources.Valid {
			if err := json.Unmarshal([]byte(sources.String), &m.Sources); err != nil {
				return nil, fmt.Errorf("unmarshal sources for %s: %w", m.ID, err)
			}
		}
		if structured.Valid {
			if err := json.Unmarshal([]byte(structured.String), &m.Structured); err != nil {
				return nil, fmt.Errorf("unmarshal structured response for %s: %w", m.ID, err)
			}
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
