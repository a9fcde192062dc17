package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/driftlog/internal/manager"
	"github.com/julianstephens/driftlog/internal/quota"
	"github.com/julianstephens/driftlog/internal/tui/components/entrylist"
	"github.com/julianstephens/driftlog/internal/tui/components/history"
	"github.com/julianstephens/driftlog/internal/utils"
	"github.com/julianstephens/driftlog/internal/validation"
)

type SessionState int

const (
	StateDay SessionState = iota
	StateHistory
	StateEditing
	StateConfirmDelete
)

// tabCount is the number of tab states; they come first in SessionState.
const tabCount = 2

type EntryFormModel struct {
	Category string
	Text     string
}

type Model struct {
	ctx               context.Context
	mgr               *manager.Manager
	monitor           *quota.Monitor
	clock             utils.Clock
	date              string
	state             SessionState
	keys              KeyMap
	help              help.Model
	entryList         entrylist.Model
	historyModel      history.Model
	form              *huh.Form
	entryForm         *EntryFormModel
	editing           *entrylist.Item // nil while adding
	toDelete          *entrylist.Item
	quitting          bool
	width             int
	height            int
	quotaWarning      string
	validationWarning string
	formError         string
}

func NewModel(ctx context.Context, mgr *manager.Manager, monitor *quota.Monitor, clock utils.Clock) Model {
	if clock == nil {
		clock = utils.SystemClock
	}
	date := utils.Today(clock())

	m := Model{
		ctx:          ctx,
		mgr:          mgr,
		monitor:      monitor,
		clock:        clock,
		date:         date,
		state:        StateDay,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		entryList:    entrylist.New(mgr.Day(date), 0, 0),
		historyModel: history.New(0, 0),
	}
	m.refresh()
	return m
}

// Date is the day being shown.
func (m Model) Date() string {
	return m.date
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	if m.state == StateDay {
		keys = append(keys, m.keys.PrevDay, m.keys.NextDay, m.keys.Add, m.keys.Toggle)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}
	navigation := []key.Binding{m.keys.Up, m.keys.Down, m.keys.PrevDay, m.keys.NextDay, m.keys.Today}

	var actions []key.Binding
	if m.state == StateDay {
		actions = []key.Binding{m.keys.Add, m.keys.Toggle, m.keys.Edit, m.keys.Delete}
	}

	return [][]key.Binding{global, navigation, actions}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// refresh reloads the shown day, the history and the status line from the
// manager's committed state.
func (m *Model) refresh() {
	m.entryList.SetDay(m.mgr.Day(m.date))

	snapshot := m.mgr.Snapshot()
	m.historyModel.SetStore(snapshot, m.mgr.Dates())

	m.quotaWarning = ""
	if m.monitor != nil {
		info := m.monitor.CheckQuota(m.ctx, snapshot)
		if info.ShowWarning {
			m.quotaWarning = fmt.Sprintf("⚠ Storage %.0f%% full, run 'driftlog optimize'", info.Percentage)
		}
	}

	result := validation.New().ValidateStore(snapshot)
	if result.HasConflicts() {
		m.validationWarning = fmt.Sprintf("⚠ %d validation warning(s), run 'driftlog doctor'", len(result.Conflicts))
	} else {
		m.validationWarning = ""
	}
}

// shiftDay moves the shown date by days.
func (m *Model) shiftDay(days int) {
	t, err := utils.ParseDate(m.date)
	if err != nil {
		return
	}
	m.date = utils.Today(t.AddDate(0, 0, days))
	m.refresh()
}
