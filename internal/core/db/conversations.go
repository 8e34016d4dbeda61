package db

import (
	"database/sql"
	"time"

	"github.com/ruleref/ruleref/internal/core/models"
)

// SaveConversation upserts a conversation row.
func (db *DB) SaveConversation(c models.Conversation) error {
	_, err := db.conn.Exec(`
		INSERT INTO conversations
		(id, game_id, game_name, title, last_message, last_message_at, message_count, created_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			game_name = excluded.game_name,
			title = excluded.title,
			last_message = excluded.last_message,
			last_message_at = excluded.last_message_at,
			message_count = excluded.message_count,
			is_active = excluded.is_active
	`, c.ID, c.GameID, c.GameName, c.Title, c.LastMessage, nullTime(c.LastMessageAt), c.MessageCount, c.CreatedAt, c.IsActive)
	return err
}

// GetConversation returns one conversation, or nil if it does not exist.
func (db *DB) GetConversation(id string) (*models.Conversation, error) {
	row := db.conn.QueryRow(`
		SELECT id, game_id, game_name, title, COALESCE(last_message, ''), last_message_at, message_count, created_at, is_active
		FROM conversations WHERE id = ?
	`, id)

	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListConversations returns conversations newest-first, optionally
// filtered by game and by a lower bound on the last activity time.
func (db *DB) ListConversations(gameID string, since time.Time) ([]models.Conversation, error) {
	query := `
		SELECT id, game_id, game_name, title, COALESCE(last_message, ''), last_message_at, message_count, created_at, is_active
		FROM conversations
		WHERE 1=1`
	args := []interface{}{}
	if gameID != "" {
		query += " AND game_id = ?"
		args = append(args, gameID)
	}
	if !since.IsZero() {
		query += " AND COALESCE(last_message_at, created_at) >= ?"
		args = append(args, since)
	}
	query += " ORDER BY COALESCE(last_message_at, created_at) DESC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *c)
	}
	return conversations, rows.Err()
}

// SetActiveConversation flips the is_active flag so that exactly one
// conversation (the given one) carries it. An empty id deactivates all.
func (db *DB) SetActiveConversation(id string) error {
	_, err := db.conn.Exec(`UPDATE conversations SET is_active = (id = ?)`, id)
	return err
}

// DeleteConversation removes a conversation; its messages go with it via
// the foreign-key cascade.
func (db *DB) DeleteConversation(id string) error {
	_, err := db.conn.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	return err
}

// DeleteAllConversations wipes the conversation list and all scoped
// messages. Used by the explicit logout reset.
func (db *DB) DeleteAllConversations() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM conversations`); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	var c models.Conversation
	var lastMessageAt sql.NullTime
	err := row.Scan(&c.ID, &c.GameID, &c.GameName, &c.Title, &c.LastMessage, &lastMessageAt, &c.MessageCount, &c.CreatedAt, &c.IsActive)
	if err != nil {
		return nil, err
	}
	if lastMessageAt.Valid {
		c.LastMessageAt = lastMessageAt.Time
	}
	return &c, nil
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
