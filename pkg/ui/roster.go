// Package ui provides grimnote's terminal surfaces: the roster browser
// and the note prompt used while attached to the host page.
package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/grimnote/pkg/roster"
)

// rosterFilter narrows the roster browser to one status.
type rosterFilter int

const (
	filterAll rosterFilter = iota
	filterFriends
	filterBlocked
)

func (f rosterFilter) next() rosterFilter {
	switch f {
	case filterAll:
		return filterFriends
	case filterFriends:
		return filterBlocked
	default:
		return filterAll
	}
}

func (f rosterFilter) label() string {
	switch f {
	case filterFriends:
		return "friends"
	case filterBlocked:
		return "blocked"
	default:
		return "all"
	}
}

// visibleRecords returns the records the current filter admits.
func visibleRecords(records []roster.Record, f rosterFilter) []roster.Record {
	if f == filterAll {
		return records
	}
	want := roster.StatusFriend
	if f == filterBlocked {
		want = roster.StatusBlocked
	}
	var out []roster.Record
	for _, rec := range records {
		if rec.Status == want {
			out = append(out, rec)
		}
	}
	return out
}

// rosterItem renders a single record in the list.
type rosterItem struct {
	record roster.Record
}

func (i rosterItem) FilterValue() string {
	return i.record.DisplayName() + " " + i.record.ID
}

func (i rosterItem) Title() string {
	title := i.record.DisplayName()
	switch i.record.Status {
	case roster.StatusFriend:
		title += " " + friendStyle.Render("[friend]")
	case roster.StatusBlocked:
		title += " " + blockedStyle.Render("[blocked]")
	}
	return title
}

func (i rosterItem) Description() string {
	note := strings.ReplaceAll(i.record.NoteText(), "\n", " ")
	if note == "" {
		note = "no notes"
	}
	if len(note) > 77 {
		note = note[:77] + "..."
	}
	return fmt.Sprintf("#%s  %s", i.record.ID, note)
}

// RosterModel is the bubbletea model for the roster browser.
type RosterModel struct {
	store  *roster.Store
	list   list.Model
	filter rosterFilter
	status string
	width  int
	height int
}

// NewRosterModel creates the roster browser over a loaded store.
func NewRosterModel(store *roster.Store) *RosterModel {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(accentGreen).
		BorderForeground(accentGreen)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(mutedGray).
		BorderForeground(accentGreen)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Known Players"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = headerStyle

	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{
			key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "cycle filter")),
			key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy id")),
			key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "copy notes")),
		}
	}

	m := &RosterModel{store: store, list: l}
	m.reload()
	return m
}

// Init implements tea.Model.
func (m *RosterModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *RosterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Let list filtering consume keys while it is active.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			m.filter = m.filter.next()
			m.status = fmt.Sprintf("showing %s", m.filter.label())
			m.reload()
			return m, nil
		case "c":
			m.copySelected(func(rec roster.Record) string { return rec.ID }, "id")
			return m, nil
		case "n":
			m.copySelected(func(rec roster.Record) string { return rec.NoteText() }, "notes")
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-2, msg.Height-3)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *RosterModel) View() string {
	statusBar := statusBarStyle.Render(
		fmt.Sprintf("filter: %s  •  %d known players  %s", m.filter.label(), m.store.Len(), m.status))
	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), statusBar)
}

func (m *RosterModel) reload() {
	records := visibleRecords(m.store.All(), m.filter)
	items := make([]list.Item, len(records))
	for i, rec := range records {
		items[i] = rosterItem{record: rec}
	}
	m.list.SetItems(items)
}

func (m *RosterModel) copySelected(extract func(roster.Record) string, what string) {
	item, ok := m.list.SelectedItem().(rosterItem)
	if !ok {
		return
	}
	if err := clipboard.WriteAll(extract(item.record)); err != nil {
		m.status = fmt.Sprintf("clipboard unavailable: %v", err)
		return
	}
	m.status = fmt.Sprintf("copied %s of %s", what, item.record.DisplayName())
}

// RunRoster runs the roster browser until the user quits.
func RunRoster(store *roster.Store) error {
	program := tea.NewProgram(NewRosterModel(store), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("roster browser failed: %w", err)
	}
	return nil
}
