// Package conversation owns the chat state: the per-conversation message
// history, the transient visible buffer, and the conversation list with
// its metadata. Every mutation is written through to SQLite so the whole
// store survives restarts.
//
// Messages are keyed by conversation id in storage; the flat buffer the UI
// renders is derived state, loaded for whichever conversation is active
// (or for no-conversation chatting), never the source of truth.
package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ruleref/ruleref/internal/core/db"
	"github.com/ruleref/ruleref/internal/core/models"
)

const currentGameKey = "current_game"

// ErrNotFound is returned when a conversation id does not exist.
var ErrNotFound = errors.New("conversation not found")

// Store is the conversation state machine. Safe for concurrent use.
type Store struct {
	mu            sync.Mutex
	db            *db.DB
	conversations []models.Conversation
	buffer        []models.ChatMessage
	activeID      string
	currentGameID string
	loading       bool
}

// New rehydrates the store from the database: the conversation list, the
// active conversation's messages, and the current game.
func New(database *db.DB) (*Store, error) {
	s := &Store{db: database}

	conversations, err := database.ListConversations("", time.Time{})
	if err != nil {
		return nil, err
	}
	s.conversations = conversations

	for _, c := range conversations {
		if c.IsActive {
			s.activeID = c.ID
			break
		}
	}

	currentGame, err := database.GetState(currentGameKey)
	if err != nil {
		return nil, err
	}
	s.currentGameID = currentGame

	if s.activeID != "" {
		s.buffer, err = database.MessagesForConversation(s.activeID)
	} else {
		s.buffer, err = database.UnscopedMessages()
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewConversation starts a fresh thread for a game: new id, default title,
// zero messages, marked active (deactivating any previous active
// conversation), and an emptied message buffer for the new context.
func (s *Store) NewConversation(gameID, gameName string) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := models.Conversation{
		ID:        uuid.NewString(),
		GameID:    gameID,
		GameName:  gameName,
		Title:     models.DefaultTitle(gameName),
		CreatedAt: time.Now(),
		IsActive:  true,
	}

	if err := s.db.SaveConversation(conv); err != nil {
		return models.Conversation{}, err
	}
	if err := s.db.SetActiveConversation(conv.ID); err != nil {
		return models.Conversation{}, err
	}

	for i := range s.conversations {
		s.conversations[i].IsActive = false
	}
	s.conversations = append([]models.Conversation{conv}, s.conversations...)
	s.activeID = conv.ID
	s.buffer = nil
	s.currentGameID = gameID
	if err := s.db.SetState(currentGameKey, gameID); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// NewMessage is the input to AddMessage; id and timestamp are assigned by
// the store.
type NewMessage struct {
	Role       models.Role
	Content    string
	GameID     string
	Sources    []models.RuleChunk
	Structured *models.StructuredResponse
}

// AddMessage appends a message to the buffer and to storage, scoped to the
// active conversation if there is one. A user message arriving in an
// active conversation also updates the conversation's metadata: the title
// derives from the message only while the conversation still carries its
// default title, and lastMessage/lastMessageAt/messageCount always move.
func (s *Store) AddMessage(in NewMessage) (models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := models.ChatMessage{
		ID:             uuid.NewString(),
		Role:           in.Role,
		Content:        in.Content,
		GameID:         in.GameID,
		ConversationID: s.activeID,
		Timestamp:      time.Now(),
		Sources:        in.Sources,
		Structured:     in.Structured,
	}

	// Persist first; the buffer must never hold a message storage rejected.
	if err := s.db.InsertMessage(msg); err != nil {
		return models.ChatMessage{}, err
	}
	s.buffer = append(s.buffer, msg)

	if in.Role == models.RoleUser && s.activeID != "" {
		if err := s.updateConversationLastMessageLocked(msg); err != nil {
			return models.ChatMessage{}, err
		}
	}
	return msg, nil
}

func (s *Store) updateConversationLastMessageLocked(msg models.ChatMessage) error {
	for i := range s.conversations {
		c := &s.conversations[i]
		if c.ID != s.activeID {
			continue
		}
		if c.Title == models.DefaultTitle(c.GameName) {
			if title := models.DeriveTitle(msg.Content); title != "" {
				c.Title = title
			}
		}
		c.LastMessage = msg.Content
		c.LastMessageAt = msg.Timestamp
		c.MessageCount++
		return s.db.SaveConversation(*c)
	}
	return ErrNotFound
}

// Messages returns the visible buffer in append order.
func (s *Store) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.buffer))
	copy(out, s.buffer)
	return out
}

// MessagesForGame returns the buffered messages for one game, in append
// order. A linear scan is fine at this scale.
func (s *Store) MessagesForGame(gameID string) []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range s.buffer {
		if m.GameID == gameID {
			out = append(out, m)
		}
	}
	return out
}

// LoadConversation activates a conversation (deactivating others), points
// the current game at it, and loads its full message history into the
// buffer. Switching never loses the previous conversation's history; it
// stays in storage under its own id.
func (s *Store) LoadConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.db.GetConversation(id)
	if err != nil {
		return err
	}
	if conv == nil {
		return ErrNotFound
	}

	if err := s.db.SetActiveConversation(id); err != nil {
		return err
	}
	messages, err := s.db.MessagesForConversation(id)
	if err != nil {
		return err
	}

	for i := range s.conversations {
		s.conversations[i].IsActive = s.conversations[i].ID == id
	}
	s.activeID = id
	s.buffer = messages
	s.currentGameID = conv.GameID
	return s.db.SetState(currentGameKey, conv.GameID)
}

// Delete removes a conversation and its messages. Deleting the active one
// also clears the buffer and the current game.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteConversation(id); err != nil {
		return err
	}

	for i := range s.conversations {
		if s.conversations[i].ID == id {
			s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
			break
		}
	}

	if s.activeID == id {
		s.activeID = ""
		s.buffer = nil
		s.currentGameID = ""
		return s.db.SetState(currentGameKey, "")
	}
	return nil
}

// Clear empties the visible buffer and resets the loading flag. The
// conversation list is untouched; history scoped to conversations stays in
// storage. Unscoped buffered messages are dropped for good.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = nil
	s.loading = false
	return s.db.DeleteUnscopedMessages()
}

// Conversations returns the conversation list, most recent first.
func (s *Store) Conversations() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// ConversationsForGame filters the list by game.
func (s *Store) ConversationsForGame(gameID string) []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Conversation
	for _, c := range s.conversations {
		if c.GameID == gameID {
			out = append(out, c)
		}
	}
	return out
}

// List queries stored conversations with optional game and last-activity
// filters, newest first.
func (s *Store) List(gameID string, since time.Time) ([]models.Conversation, error) {
	return s.db.ListConversations(gameID, since)
}

// ActiveConversationID returns the id of the active conversation, empty
// when none is active.
func (s *Store) ActiveConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// CurrentGameID returns the game the chat context is pointed at.
func (s *Store) CurrentGameID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentGameID
}

// SetCurrentGame points the chat context at a game without starting a
// conversation. Empty clears it.
func (s *Store) SetCurrentGame(gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentGameID = gameID
	return s.db.SetState(currentGameKey, gameID)
}

// SetLoading flags an in-flight chat request. The UI disables sending
// while this is set, which is what serializes message appends.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

// IsLoading reports whether a chat request is outstanding.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Reset wipes all conversations, messages, and chat context. Called by the
// explicit logout path.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteAllConversations(); err != nil {
		return err
	}
	s.conversations = nil
	s.buffer = nil
	s.activeID = ""
	s.currentGameID = ""
	s.loading = false
	return s.db.SetState(currentGameKey, "")
}
