package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = m.prevMode
	return m, nil
}

func (m Model) viewHelp() string {
	help := `
ruleref - Help
══════════════

GAMES VIEW
──────────
  ↑/↓, j/k     Navigate games
  Enter        Chat about the selected game
  c            Conversations for the selected game
  C            All conversations
  r            Refresh the catalog
  /            Filter games
  q            Quit

CONVERSATIONS VIEW
──────────────────
  Enter        Open conversation
  d            Delete conversation
  /            Filter conversations
  esc          Back to games

CHAT VIEW
─────────
  Type + Enter Send a question
  ctrl+n       New conversation for this game
  ctrl+l       Clear the visible thread
  ctrl+y       Copy the last answer to the clipboard
  pgup/pgdn    Scroll the transcript
  esc          Back to games

Press any key to go back
`

	return helpStyle.Render(help)
}
