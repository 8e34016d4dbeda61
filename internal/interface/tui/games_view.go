package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ruleref/ruleref/internal/core/models"
	"github.com/ruleref/ruleref/internal/core/session"
)

type gameListItem struct {
	game     models.Game
	selected bool
}

func (i gameListItem) FilterValue() string {
	return i.game.Name + " " + strings.Join(i.game.Categories, " ")
}

func (i gameListItem) Title() string {
	if i.selected {
		return i.game.Name + " *"
	}
	return i.game.Name
}

func (i gameListItem) Description() string {
	return fmt.Sprintf("%s | %d-%d players | %d rules",
		i.game.Complexity, i.game.MinPlayers, i.game.MaxPlayers, i.game.RuleCount)
}

type gameDelegate struct {
	list.DefaultDelegate
}

func (d gameDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	g, ok := item.(gameListItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	title := g.Title()
	desc := g.Description()
	switch {
	case index == m.Index():
		title = selectedItemStyle.Render(title)
		desc = selectedItemStyle.Faint(true).Render(desc)
	case g.selected:
		title = activeItemStyle.Render(title)
		desc = itemStyle.Render(desc)
	default:
		title = itemStyle.Render(title)
		desc = itemStyle.Render(desc)
	}
	fmt.Fprintf(w, "%s\n%s", title, desc)
}

func newGameList(deps Deps, width, height int) list.Model {
	games := deps.Catalog.Games()
	selectedID := ""
	if selected, ok := deps.Catalog.Selected(); ok {
		selectedID = selected.GameID
	}

	items := make([]list.Item, len(games))
	for i, g := range games {
		items[i] = gameListItem{game: g, selected: g.GameID == selectedID}
	}

	delegate := gameDelegate{DefaultDelegate: list.NewDefaultDelegate()}
	l := list.New(items, delegate, width, height-2)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(true)
	return l
}

func (m Model) updateGames(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While the built-in filter is capturing input, don't steal its keys
	if m.gamesLoaded && m.gamesList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.gamesList, cmd = m.gamesList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit

	case "?":
		m.prevMode = gamesView
		m.mode = helpView
		return m, nil

	case "enter":
		if selected, ok := m.gamesList.SelectedItem().(gameListItem); ok {
			m.err = nil
			_ = m.deps.Catalog.Select(selected.game)
			gameID := selected.game.GameID
			_ = m.deps.Session.UpdatePreferences(session.PreferencesPatch{SelectedGameID: &gameID})
			return m, startConversation(m.deps, gameID, selected.game.Name)
		}
		return m, nil

	case "c":
		gameID := ""
		if selected, ok := m.gamesList.SelectedItem().(gameListItem); ok {
			gameID = selected.game.GameID
		}
		return m, loadConversations(m.deps, gameID)

	case "C":
		return m, loadConversations(m.deps, "")

	case "r":
		m.loadingGames = true
		return m, tea.Batch(m.spin.Tick, loadGames(m.deps))
	}

	if !m.gamesLoaded {
		return m, nil
	}
	var cmd tea.Cmd
	m.gamesList, cmd = m.gamesList.Update(msg)
	return m, cmd
}

func (m Model) viewGames() string {
	header := titleStyle.Render("Games")
	if user := m.deps.Session.User(); user != nil {
		header += timestampStyle.Render("  logged in as " + user.Username)
	}

	var body string
	switch {
	case m.loadingGames:
		body = m.spin.View() + " loading games..."
	case !m.gamesLoaded || len(m.deps.Catalog.Games()) == 0:
		body = "No games available. Press 'r' to refresh."
	default:
		body = m.gamesList.View()
	}

	footer := helpStyle.Render("enter chat • c conversations • r refresh • / filter • ? help • q quit")
	if m.err != nil {
		footer = errorStyle.Render(m.err.Error())
	} else if m.status != "" {
		footer = statusStyle.Render(m.status)
	}

	return header + "\n" + body + "\n" + footer
}
