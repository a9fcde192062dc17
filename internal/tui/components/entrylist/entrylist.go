package entrylist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/driftlog/internal/models"
)

type AddEntryMsg struct{}

type ToggleEntryMsg struct {
	Item Item
}

type EditEntryMsg struct {
	Item Item
}

type DeleteEntryMsg struct {
	Item Item
}

type Item struct {
	Category models.Category
	Entry    models.Entry
}

func (i Item) Title() string {
	box := "☐"
	if i.Entry.Checked {
		box = "☑"
	}
	return box + " " + i.Entry.Text
}

func (i Item) Description() string {
	desc := fmt.Sprintf("%s | %s", i.Category, i.Entry.Timestamp)
	if n := len(i.Entry.SubEntries); n > 0 {
		done := 0
		for _, s := range i.Entry.SubEntries {
			if s.Checked {
				done++
			}
		}
		desc += fmt.Sprintf(" | %d/%d sub-entries", done, n)
	}
	if i.Entry.Checked {
		desc += " | done " + i.Entry.CompletedTime
	}
	return desc
}

func (i Item) FilterValue() string { return i.Entry.Text }

type KeyMap struct {
	Add    key.Binding
	Toggle key.Binding
	Edit   key.Binding
	Delete key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("x", " "),
			key.WithHelp("x/space", "check"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(day models.DayRecord, width, height int) Model {
	l := list.New(items(day), list.NewDefaultDelegate(), width, height)
	l.Title = "Entries"
	l.SetShowTitle(false)
	l.SetShowHelp(false) // We handle help globally in the main model

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Toggle, keys.Edit, keys.Delete}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Add, keys.Toggle, keys.Edit, keys.Delete}
	}

	return Model{list: l, keys: keys}
}

// items flattens a day in category order.
func items(day models.DayRecord) []list.Item {
	var out []list.Item
	for _, c := range models.Categories {
		for _, e := range day.Entries(c) {
			out = append(out, Item{Category: c, Entry: e})
		}
	}
	return out
}

func (m *Model) SetDay(day models.DayRecord) {
	m.list.SetItems(items(day))
}

// Items returns the listed entries in display order.
func (m Model) Items() []Item {
	var out []Item
	for _, it := range m.list.Items() {
		if i, ok := it.(Item); ok {
			out = append(out, i)
		}
	}
	return out
}

// Selected returns the highlighted entry.
func (m Model) Selected() (Item, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i, ok
}

func (m *Model) Select(index int) {
	m.list.Select(index)
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddEntryMsg{} }
		case key.Matches(msg, m.keys.Toggle):
			if i, ok := m.Selected(); ok {
				return m, func() tea.Msg { return ToggleEntryMsg{Item: i} }
			}
		case key.Matches(msg, m.keys.Edit):
			if i, ok := m.Selected(); ok {
				return m, func() tea.Msg { return EditEntryMsg{Item: i} }
			}
		case key.Matches(msg, m.keys.Delete):
			if i, ok := m.Selected(); ok {
				return m, func() tea.Msg { return DeleteEntryMsg{Item: i} }
			}
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  Nothing captured on this day.\n  Press 'a' to add an entry."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
