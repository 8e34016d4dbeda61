package tui

import (
	"context"
	"errors"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ruleref/ruleref/internal/core/chat"
	"github.com/ruleref/ruleref/internal/core/models"
	"github.com/ruleref/ruleref/internal/core/session"
)

type errMsg struct {
	err error
}

type loggedInMsg struct {
	warning string
}

type loginFailedMsg struct {
	err error
}

// clearLoginErrMsg expires an auth error shown on the login screen. The
// seq ties it to the error it was scheduled for, so a newer error is not
// wiped by an older timer.
type clearLoginErrMsg struct {
	seq int
}

type gamesLoadedMsg struct {
	warning string
}

type conversationsLoadedMsg struct {
	conversations []models.Conversation
}

type conversationOpenedMsg struct {
	gameID   string
	gameName string
}

type answerMsg struct {
	message models.ChatMessage
}

type answerDroppedMsg struct{}

type sessionExpiredMsg struct{}

type copiedMsg struct{}

func performLogin(deps Deps, username, password string) tea.Cmd {
	return func() tea.Msg {
		token, err := deps.Client.Login(context.Background(), username, password)
		if err != nil {
			return loginFailedMsg{err}
		}
		warning := ""
		if err := deps.Session.Login(token.AccessToken, token.User); err != nil {
			if !errors.Is(err, session.ErrNoIdentity) {
				return loginFailedMsg{err}
			}
			warning = "logged in, but the server reported no user identity"
		}
		return loggedInMsg{warning: warning}
	}
}

const loginErrTTL = 5 * time.Second

func expireLoginError(seq int) tea.Cmd {
	return tea.Tick(loginErrTTL, func(time.Time) tea.Msg {
		return clearLoginErrMsg{seq: seq}
	})
}

func loadGames(deps Deps) tea.Cmd {
	return func() tea.Msg {
		// A failed refresh still leaves the cached catalog usable; the
		// warning carries the staleness note.
		_ = deps.Catalog.LoadGames(context.Background())
		return gamesLoadedMsg{warning: deps.Catalog.Err()}
	}
}

func loadConversations(deps Deps, gameID string) tea.Cmd {
	return func() tea.Msg {
		conversations := deps.Convs.Conversations()
		if gameID != "" {
			conversations = deps.Convs.ConversationsForGame(gameID)
		}
		return conversationsLoadedMsg{conversations: conversations}
	}
}

func openConversation(deps Deps, id string) tea.Cmd {
	return func() tea.Msg {
		if err := deps.Convs.LoadConversation(id); err != nil {
			return errMsg{err}
		}
		gameID := deps.Convs.CurrentGameID()
		gameName := gameID
		if game, ok := deps.Catalog.Game(gameID); ok {
			gameName = game.Name
		}
		return conversationOpenedMsg{gameID: gameID, gameName: gameName}
	}
}

func startConversation(deps Deps, gameID, gameName string) tea.Cmd {
	return func() tea.Msg {
		// Resume the active conversation when it already belongs to this
		// game; otherwise start fresh.
		if deps.Convs.ActiveConversationID() == "" || deps.Convs.CurrentGameID() != gameID {
			if _, err := deps.Convs.NewConversation(gameID, gameName); err != nil {
				return errMsg{err}
			}
		}
		return conversationOpenedMsg{gameID: gameID, gameName: gameName}
	}
}

func sendQuestion(deps Deps, question, gameID string) tea.Cmd {
	return func() tea.Msg {
		answer, err := deps.Chat.Send(context.Background(), question, gameID)
		switch {
		case errors.Is(err, chat.ErrSessionExpired):
			return sessionExpiredMsg{}
		case errors.Is(err, chat.ErrConversationSwitched):
			return answerDroppedMsg{}
		}
		// Other failures already appended a visible error turn; render it
		// like any answer.
		return answerMsg{message: answer}
	}
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return errMsg{err}
		}
		return copiedMsg{}
	}
}
