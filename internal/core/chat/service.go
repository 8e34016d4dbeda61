// Package chat orchestrates the send-message flow: append the user's turn,
// call the backend, and append the assistant's turn (or a visible error
// turn) into the conversation store.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/ruleref/ruleref/internal/core/api"
	"github.com/ruleref/ruleref/internal/core/conversation"
	"github.com/ruleref/ruleref/internal/core/models"
)

// ErrSessionExpired means the backend rejected our token mid-session. The
// service has already torn the session down; the caller should send the
// user back to login.
var ErrSessionExpired = errors.New("session expired, please log in again")

// ErrConversationSwitched means the answer arrived after the user had
// moved to a different conversation; it was dropped rather than appended
// into the wrong thread.
var ErrConversationSwitched = errors.New("conversation switched before the answer arrived")

// QueryClient is the slice of the API client the chat flow needs.
type QueryClient interface {
	Query(ctx context.Context, query, gameSystem string) (*api.StructuredChatResponse, error)
}

// SessionControl is what the service needs from the session store to
// handle forced logout.
type SessionControl interface {
	Logout() error
}

// Service wires the conversation store to the backend.
type Service struct {
	store   *conversation.Store
	client  QueryClient
	session SessionControl
	log     *log.Logger
}

// New builds a chat service. session may be nil when forced logout is
// handled elsewhere.
func New(store *conversation.Store, client QueryClient, sess SessionControl, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{store: store, client: client, session: sess, log: logger}
}

// Send appends the user's question, queries the backend, and appends the
// assistant's answer. On failure a visible assistant-role error turn is
// appended instead, so the user always sees that the turn took place.
//
// The target conversation id is captured before the request goes out; if
// the user switches conversations while the request is in flight, the
// late answer is dropped instead of leaking into the wrong thread.
func (s *Service) Send(ctx context.Context, content, gameID string) (models.ChatMessage, error) {
	if _, err := s.store.AddMessage(conversation.NewMessage{
		Role:    models.RoleUser,
		Content: content,
		GameID:  gameID,
	}); err != nil {
		return models.ChatMessage{}, err
	}

	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	target := s.store.ActiveConversationID()

	resp, err := s.client.Query(ctx, content, gameID)
	if err != nil {
		if api.IsUnauthorized(err) {
			s.log.Warn("token rejected by backend, logging out")
			if s.session != nil {
				if lerr := s.session.Logout(); lerr != nil {
					s.log.Error("logout after 401 failed", "err", lerr)
				}
			}
			return models.ChatMessage{}, ErrSessionExpired
		}

		if s.store.ActiveConversationID() != target {
			return models.ChatMessage{}, ErrConversationSwitched
		}

		errTurn, aerr := s.store.AddMessage(conversation.NewMessage{
			Role:    models.RoleAssistant,
			Content: fmt.Sprintf("Sorry, I encountered an error while processing your question. Please try again. Error: %v", err),
			GameID:  gameID,
		})
		if aerr != nil {
			return models.ChatMessage{}, aerr
		}
		return errTurn, err
	}

	if s.store.ActiveConversationID() != target {
		s.log.Debug("dropping stale answer", "target", target)
		return models.ChatMessage{}, ErrConversationSwitched
	}

	return s.store.AddMessage(conversation.NewMessage{
		Role:       models.RoleAssistant,
		Content:    resp.Structured.Content.Summary.Text,
		GameID:     gameID,
		Structured: resp.Structured,
	})
}
