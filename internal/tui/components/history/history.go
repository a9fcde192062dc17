package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/driftlog/internal/models"
)

var (
	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(12)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	categoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// Model shows every stored date, newest first, with its entry counts.
type Model struct {
	viewport viewport.Model
	store    models.EntryStore
	dates    []string
	width    int
	height   int
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.dates) == 0 {
		return "No entries yet."
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.Render()
}

// SetStore replaces the shown data. dates must be newest first.
func (m *Model) SetStore(store models.EntryStore, dates []string) {
	m.store = store
	m.dates = dates
	m.Render()
}

func (m *Model) Render() {
	if len(m.dates) == 0 {
		m.viewport.SetContent("")
		return
	}

	var b strings.Builder
	for _, date := range m.dates {
		day := m.store[date]
		total, done := 0, 0
		var parts []string
		for _, c := range models.Categories {
			list := day.Entries(c)
			if len(list) == 0 {
				continue
			}
			for _, e := range list {
				total++
				if e.Checked {
					done++
				}
			}
			parts = append(parts, fmt.Sprintf("%s %d", c, len(list)))
		}

		line := fmt.Sprintf("%s %s %s\n",
			dateStyle.Render(date),
			countStyle.Render(fmt.Sprintf("%d/%d done", done, total)),
			categoryStyle.Render(strings.Join(parts, ", ")),
		)
		b.WriteString(line)
	}
	m.viewport.SetContent(b.String())
}
