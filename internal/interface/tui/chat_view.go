package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/ruleref/ruleref/internal/core/models"
)

const chatInputHeight = 3

func (m *Model) enterChat(gameID, gameName string) {
	m.mode = chatView
	m.chatGameID = gameID
	m.chatGameName = gameName
	m.err = nil
	m.status = ""
	m.chatInput.Reset()
	m.chatInput.Focus()

	width, height := m.chatSize()
	m.chatViewport = viewport.New(width, height)
	m.chatReady = true
	m.refreshChatViewport(true)
}

func (m *Model) chatSize() (int, int) {
	width := m.width
	if width <= 0 {
		width = 80
	}
	// Header, status line, input, and footer share the screen with the
	// transcript.
	height := m.height - chatInputHeight - 4
	if height < 5 {
		height = 5
	}
	return width, height
}

func (m *Model) resizeChat() {
	if !m.chatReady {
		return
	}
	width, height := m.chatSize()
	m.chatViewport.Width = width
	m.chatViewport.Height = height
	m.chatInput.SetWidth(width)
	m.refreshChatViewport(false)
}

func (m *Model) refreshChatViewport(gotoBottom bool) {
	if !m.chatReady {
		return
	}
	m.chatViewport.SetContent(m.renderTranscript())
	if gotoBottom {
		m.chatViewport.GotoBottom()
	}
}

func (m *Model) renderTranscript() string {
	messages := m.deps.Convs.Messages()
	if len(messages) == 0 {
		return fmt.Sprintf("Ask your first question about %s.", m.chatGameName)
	}

	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleUser:
			b.WriteString(userStyle.Render("You"))
		default:
			b.WriteString(assistantStyle.Render("Assistant"))
		}
		b.WriteString(" " + timestampStyle.Render(msg.Timestamp.Format("15:04")))
		b.WriteString("\n")
		b.WriteString(m.renderMessageBody(msg))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderMessageBody(msg models.ChatMessage) string {
	md := chatMarkdown(msg)
	if msg.Role == models.RoleUser {
		return md + "\n"
	}

	wrap := m.chatViewport.Width - 4
	if wrap < 20 {
		wrap = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return md + "\n"
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md + "\n"
	}
	return out
}

// chatMarkdown flattens an answer into markdown: summary, sections, then
// cited sources.
func chatMarkdown(msg models.ChatMessage) string {
	if msg.Structured == nil {
		return msg.Content
	}

	var b strings.Builder
	content := msg.Structured.Content
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

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = gamesView
		return m, nil

	case "ctrl+n":
		if m.deps.Convs.IsLoading() {
			return m, nil
		}
		if _, err := m.deps.Convs.NewConversation(m.chatGameID, m.chatGameName); err != nil {
			m.err = err
			return m, nil
		}
		m.refreshChatViewport(true)
		return m, nil

	case "ctrl+l":
		if m.deps.Convs.IsLoading() {
			return m, nil
		}
		if err := m.deps.Convs.Clear(); err != nil {
			m.err = err
			return m, nil
		}
		m.refreshChatViewport(true)
		return m, nil

	case "ctrl+y":
		if last, ok := lastAssistantMessage(m.deps.Convs.Messages()); ok {
			return m, copyToClipboard(chatMarkdown(last))
		}
		return m, nil

	case "pgup":
		m.chatViewport.HalfViewUp()
		return m, nil

	case "pgdown":
		m.chatViewport.HalfViewDown()
		return m, nil

	case "enter":
		// One question in flight at a time
		if m.deps.Convs.IsLoading() {
			return m, nil
		}
		question := strings.TrimSpace(m.chatInput.Value())
		if question == "" {
			return m, nil
		}
		m.chatInput.Reset()
		m.err = nil
		m.status = ""
		return m, tea.Batch(m.spin.Tick, sendQuestion(m.deps, question, m.chatGameID))
	}

	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

func lastAssistantMessage(messages []models.ChatMessage) (models.ChatMessage, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleAssistant {
			return messages[i], true
		}
	}
	return models.ChatMessage{}, false
}

func (m Model) viewChat() string {
	header := titleStyle.Render(m.chatGameName)
	if id := m.deps.Convs.ActiveConversationID(); id != "" {
		for _, c := range m.deps.Convs.Conversations() {
			if c.ID == id {
				header += timestampStyle.Render("  " + c.Title)
				break
			}
		}
	}

	statusLine := ""
	switch {
	case m.deps.Convs.IsLoading():
		statusLine = m.spin.View() + " thinking..."
	case m.err != nil:
		statusLine = errorStyle.Render(m.err.Error())
	case m.status != "":
		statusLine = statusStyle.Render(m.status)
	}

	footer := helpStyle.Render("enter send • ctrl+n new • ctrl+l clear • ctrl+y copy answer • pgup/pgdn scroll • esc back")

	return header + "\n" +
		m.chatViewport.View() + "\n" +
		statusLine + "\n" +
		m.chatInput.View() + "\n" +
		footer
}
