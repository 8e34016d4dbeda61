package tui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/ruleref/ruleref/internal/core/api"
	"github.com/ruleref/ruleref/internal/core/catalog"
	"github.com/ruleref/ruleref/internal/core/chat"
	"github.com/ruleref/ruleref/internal/core/conversation"
	"github.com/ruleref/ruleref/internal/core/session"
)

type viewMode int

const (
	loginView viewMode = iota
	gamesView
	conversationsView
	chatView
	helpView
)

// Deps are the stores and services the TUI renders and drives. The TUI
// owns no domain state of its own; everything lives in the stores.
type Deps struct {
	Session *session.Store
	Catalog *catalog.Store
	Convs   *conversation.Store
	Client  *api.Client
	Chat    *chat.Service
	Log     *log.Logger
}

type Model struct {
	deps   Deps
	mode   viewMode
	width  int
	height int
	err    error
	status string

	// Login form
	usernameInput textinput.Model
	passwordInput textinput.Model
	loginFocus    int
	loggingIn     bool
	loginErrSeq   int

	// Games list
	gamesList    list.Model
	gamesLoaded  bool
	loadingGames bool

	// Conversations list
	convList list.Model

	// Chat
	chatViewport viewport.Model
	chatInput    textarea.Model
	spin         spinner.Model
	chatReady    bool
	chatGameID   string
	chatGameName string

	// Where to return from the help view
	prevMode viewMode
}

func New(deps Deps) Model {
	username := textinput.New()
	username.Placeholder = "username"
	username.Prompt = "Username: "
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'

	input := textarea.New()
	input.Placeholder = "Ask about the rules..."
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		deps:          deps,
		mode:          loginView,
		usernameInput: username,
		passwordInput: password,
		chatInput:     input,
		spin:          sp,
	}
	if deps.Session.IsAuthenticated() {
		m.mode = gamesView
		m.loadingGames = true
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.mode == gamesView {
		return tea.Batch(m.spin.Tick, loadGames(m.deps))
	}
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.gamesLoaded {
			m.gamesList.SetSize(msg.Width, msg.Height-2)
		}
		m.resizeChat()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case loginView:
			return m.updateLogin(msg)
		case gamesView:
			return m.updateGames(msg)
		case conversationsView:
			return m.updateConversations(msg)
		case chatView:
			return m.updateChat(msg)
		case helpView:
			return m.updateHelp(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		// The user's turn lands in the store from inside the in-flight
		// send; pick it up on the next tick.
		if m.mode == chatView && m.deps.Convs.IsLoading() {
			m.refreshChatViewport(true)
		}
		return m, cmd

	case loggedInMsg:
		m.loggingIn = false
		m.err = nil
		m.status = msg.warning
		m.mode = gamesView
		m.loadingGames = true
		return m, tea.Batch(m.spin.Tick, loadGames(m.deps))

	case loginFailedMsg:
		m.loggingIn = false
		m.err = msg.err
		m.passwordInput.SetValue("")
		m.loginErrSeq++
		return m, expireLoginError(m.loginErrSeq)

	case clearLoginErrMsg:
		if m.mode == loginView && msg.seq == m.loginErrSeq {
			m.err = nil
		}
		return m, nil

	case gamesLoadedMsg:
		m.loadingGames = false
		m.gamesLoaded = true
		m.status = msg.warning
		m.gamesList = newGameList(m.deps, m.width, m.height)
		return m, nil

	case conversationsLoadedMsg:
		m.convList = newConversationList(msg.conversations, m.width, m.height)
		m.mode = conversationsView
		return m, nil

	case conversationOpenedMsg:
		m.enterChat(msg.gameID, msg.gameName)
		return m, m.spin.Tick

	case answerMsg:
		m.refreshChatViewport(true)
		return m, nil

	case answerDroppedMsg:
		// The store already handled it; just stop showing the spinner.
		return m, nil

	case sessionExpiredMsg:
		m.mode = loginView
		m.err = chat.ErrSessionExpired
		m.passwordInput.SetValue("")
		m.focusLogin(0)
		m.loginErrSeq++
		return m, tea.Batch(textinput.Blink, expireLoginError(m.loginErrSeq))

	case copiedMsg:
		m.status = "copied to clipboard"
		return m, nil

	case errMsg:
		m.err = msg.err
		m.loadingGames = false
		m.loggingIn = false
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	switch m.mode {
	case loginView:
		return m.viewLogin()
	case gamesView:
		return m.viewGames()
	case conversationsView:
		return m.viewConversations()
	case chatView:
		return m.viewChat()
	case helpView:
		return m.viewHelp()
	}
	return ""
}
