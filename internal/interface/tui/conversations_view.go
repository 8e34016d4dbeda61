package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/ruleref/ruleref/internal/core/models"
)

type conversationListItem struct {
	conversation models.Conversation
}

func (i conversationListItem) FilterValue() string {
	return i.conversation.Title + " " + i.conversation.GameName
}

func (i conversationListItem) Title() string {
	if i.conversation.IsActive {
		return i.conversation.Title + " *"
	}
	return i.conversation.Title
}

func (i conversationListItem) Description() string {
	when := i.conversation.CreatedAt
	if !i.conversation.LastMessageAt.IsZero() {
		when = i.conversation.LastMessageAt
	}
	return fmt.Sprintf("%s | %d messages | %s",
		i.conversation.GameName, i.conversation.MessageCount, humanize.Time(when))
}

type conversationDelegate struct {
	list.DefaultDelegate
}

func (d conversationDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	c, ok := item.(conversationListItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	title := c.Title()
	desc := c.Description()
	switch {
	case index == m.Index():
		title = selectedItemStyle.Render(title)
		desc = selectedItemStyle.Faint(true).Render(desc)
	case c.conversation.IsActive:
		title = activeItemStyle.Render(title)
		desc = itemStyle.Render(desc)
	default:
		title = itemStyle.Render(title)
		desc = itemStyle.Render(desc)
	}
	fmt.Fprintf(w, "%s\n%s", title, desc)
}

func newConversationList(conversations []models.Conversation, width, height int) list.Model {
	items := make([]list.Item, len(conversations))
	for i, c := range conversations {
		items[i] = conversationListItem{conversation: c}
	}

	delegate := conversationDelegate{DefaultDelegate: list.NewDefaultDelegate()}
	l := list.New(items, delegate, width, height-2)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(true)
	return l
}

func (m Model) updateConversations(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.convList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.convList, cmd = m.convList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "esc":
		m.mode = gamesView
		return m, nil

	case "?":
		m.prevMode = conversationsView
		m.mode = helpView
		return m, nil

	case "enter":
		if selected, ok := m.convList.SelectedItem().(conversationListItem); ok {
			m.err = nil
			return m, openConversation(m.deps, selected.conversation.ID)
		}
		return m, nil

	case "d":
		if selected, ok := m.convList.SelectedItem().(conversationListItem); ok {
			if err := m.deps.Convs.Delete(selected.conversation.ID); err != nil {
				m.err = err
				return m, nil
			}
			return m, loadConversations(m.deps, "")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.convList, cmd = m.convList.Update(msg)
	return m, cmd
}

func (m Model) viewConversations() string {
	header := titleStyle.Render("Conversations")

	body := m.convList.View()
	if len(m.convList.Items()) == 0 {
		body = "No conversations yet. Pick a game and start chatting."
	}

	footer := helpStyle.Render("enter open • d delete • / filter • esc back • ? help")
	if m.err != nil {
		footer = errorStyle.Render(m.err.Error())
	}

	return header + "\n" + body + "\n" + footer
}
