package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string

	switch m.state {
	case StateDay:
		content = m.viewDay()
	case StateHistory:
		content = docStyle.Render(m.historyModel.View())
	case StateEditing:
		content = m.viewForm()
	case StateConfirmDelete:
		content = m.viewConfirmDelete()
	}

	ui := lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		m.viewStatus(),
		content,
		m.help.View(m),
	)
	return ui
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range []string{"Day", "History"} {
		if m.state == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewStatus() string {
	var parts []string
	if m.quotaWarning != "" {
		parts = append(parts, warningStyle.Render(m.quotaWarning))
	}
	if m.validationWarning != "" {
		parts = append(parts, warningStyle.Render(m.validationWarning))
	}
	if m.formError != "" && m.state != StateEditing {
		parts = append(parts, dangerStyle.Render(m.formError))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) viewDay() string {
	header := dateStyle.Render(fmt.Sprintf("📅 %s", m.date))
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, m.entryList.View()))
}

func (m Model) viewForm() string {
	view := m.form.View()
	if m.formError != "" {
		view = lipgloss.JoinVertical(lipgloss.Left, view, dangerStyle.Render(m.formError))
	}
	return docStyle.Render(view)
}

func (m Model) viewConfirmDelete() string {
	text := ""
	if m.toDelete != nil {
		text = m.toDelete.Entry.Text
	}
	return lipgloss.Place(m.width, m.height-4,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render("Delete this entry?"),
			text,
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}
