package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ruleref/ruleref/internal/core/api"
)

func friendlyLoginError(err error) string {
	if errors.Is(err, api.ErrAuthenticationFailed) {
		return "authentication failed: check your credentials"
	}
	return err.Error()
}

func (m *Model) focusLogin(idx int) {
	m.loginFocus = idx
	if idx == 0 {
		m.usernameInput.Focus()
		m.passwordInput.Blur()
	} else {
		m.usernameInput.Blur()
		m.passwordInput.Focus()
	}
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		return m, tea.Quit

	case "tab", "shift+tab", "up", "down":
		m.focusLogin((m.loginFocus + 1) % 2)
		return m, textinput.Blink

	case "enter":
		if m.loggingIn {
			return m, nil
		}
		username := strings.TrimSpace(m.usernameInput.Value())
		password := m.passwordInput.Value()
		if username == "" {
			m.focusLogin(0)
			return m, nil
		}
		if password == "" {
			m.focusLogin(1)
			return m, nil
		}
		m.loggingIn = true
		m.err = nil
		return m, tea.Batch(m.spin.Tick, performLogin(m.deps, username, password))
	}

	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.usernameInput, cmd = m.usernameInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m Model) viewLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ruleref — log in"))
	b.WriteString("\n\n")
	b.WriteString(m.usernameInput.View())
	b.WriteString("\n")
	b.WriteString(m.passwordInput.View())
	b.WriteString("\n\n")

	if m.loggingIn {
		b.WriteString(m.spin.View() + " logging in...")
	} else if m.err != nil {
		b.WriteString(errorStyle.Render(friendlyLoginError(m.err)))
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("tab switch field • enter submit • esc quit"))
	return b.String()
}
