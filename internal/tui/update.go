package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/driftlog/internal/models"
	"github.com/julianstephens/driftlog/internal/tui/components/entrylist"
	"github.com/julianstephens/driftlog/internal/utils"
)

// chromeHeight is the rows taken by the tabs, status line and help.
const chromeHeight = 6

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.state {
	case StateEditing:
		cmd := m.handleEditingState(msg)
		return m, cmd
	case StateConfirmDelete:
		m.handleConfirmDeleteState(msg)
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.entryList.SetSize(msg.Width, msg.Height-chromeHeight)
		m.historyModel.SetSize(msg.Width, msg.Height-chromeHeight)
		return m, nil

	case entrylist.AddEntryMsg:
		cmd := m.openForm(nil)
		return m, cmd

	case entrylist.EditEntryMsg:
		item := msg.Item
		cmd := m.openForm(&item)
		return m, cmd

	case entrylist.ToggleEntryMsg:
		if _, err := m.mgr.ToggleEntryCheck(m.ctx, m.date, msg.Item.Category, msg.Item.Entry.ID); err != nil {
			m.formError = fmt.Sprintf("Failed to check entry: %v", err)
		} else {
			m.formError = ""
		}
		m.refresh()
		return m, nil

	case entrylist.DeleteEntryMsg:
		item := msg.Item
		m.toDelete = &item
		m.state = StateConfirmDelete
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + tabCount) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

		if m.state == StateDay {
			switch {
			case key.Matches(msg, m.keys.PrevDay):
				m.shiftDay(-1)
				return m, nil
			case key.Matches(msg, m.keys.NextDay):
				m.shiftDay(1)
				return m, nil
			case key.Matches(msg, m.keys.Today):
				m.date = utils.Today(m.clock())
				m.refresh()
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateDay:
		m.entryList, cmd = m.entryList.Update(msg)
	case StateHistory:
		m.historyModel, cmd = m.historyModel.Update(msg)
	}
	return m, cmd
}

// openForm shows the entry form. A nil item adds a new entry to the shown day.
func (m *Model) openForm(item *entrylist.Item) tea.Cmd {
	m.editing = item
	m.entryForm = &EntryFormModel{Category: string(models.CategoryWork)}

	text := huh.NewInput().
		Title("What distracted you?").
		Value(&m.entryForm.Text).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("text cannot be empty")
			}
			return nil
		})

	var group *huh.Group
	if item == nil {
		options := make([]huh.Option[string], len(models.Categories))
		for i, c := range models.Categories {
			options[i] = huh.NewOption(string(c), string(c))
		}
		group = huh.NewGroup(
			huh.NewSelect[string]().
				Title("Category").
				Options(options...).
				Value(&m.entryForm.Category),
			text,
		)
	} else {
		m.entryForm.Category = string(item.Category)
		m.entryForm.Text = item.Entry.Text
		group = huh.NewGroup(text)
	}

	m.form = huh.NewForm(group)
	m.formError = ""
	m.state = StateEditing
	return m.form.Init()
}

// handleEditingState drives the entry form and saves it on completion.
func (m *Model) handleEditingState(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.formError = ""
		m.state = StateDay
		return nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		if err := m.saveForm(); err != nil {
			// Stay in the form so the user can correct it or cancel with ESC
			m.formError = err.Error()
			m.form.State = huh.StateNormal
			return tea.Batch(cmds...)
		}
		m.formError = ""
		m.editing = nil
		m.state = StateDay
		m.refresh()
	case huh.StateAborted:
		m.formError = ""
		m.editing = nil
		m.state = StateDay
	}
	return tea.Batch(cmds...)
}

func (m *Model) saveForm() error {
	if m.editing != nil {
		if _, err := m.mgr.UpdateEntryText(m.ctx, m.date, m.editing.Category, m.editing.Entry.ID, m.entryForm.Text); err != nil {
			return fmt.Errorf("failed to update entry: %w", err)
		}
		return nil
	}

	category, err := models.ParseCategory(m.entryForm.Category)
	if err != nil {
		return err
	}
	if _, err := m.mgr.AddEntry(m.ctx, m.date, category, m.entryForm.Text); err != nil {
		return fmt.Errorf("failed to add entry: %w", err)
	}
	return nil
}

func (m *Model) handleConfirmDeleteState(msg tea.Msg) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return
	}
	switch keyMsg.String() {
	case "y", "Y":
		if m.toDelete != nil {
			if err := m.mgr.RemoveEntry(m.ctx, m.date, m.toDelete.Category, m.toDelete.Entry.ID); err != nil {
				m.formError = fmt.Sprintf("Failed to delete entry: %v", err)
			}
			m.refresh()
		}
		m.toDelete = nil
		m.state = StateDay
	case "n", "N", "esc":
		m.toDelete = nil
		m.state = StateDay
	}
}
