package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/driftlog/internal/manager"
	"github.com/julianstephens/driftlog/internal/models"
	"github.com/julianstephens/driftlog/internal/quota"
	"github.com/julianstephens/driftlog/internal/storage"
	"github.com/julianstephens/driftlog/internal/tui/components/entrylist"
	"github.com/julianstephens/driftlog/internal/utils"
)

var testNow = time.Date(2024, 6, 30, 10, 0, 0, 0, time.UTC)

func setupModel(t *testing.T) (Model, *manager.Manager) {
	t.Helper()
	clock := utils.FixedClock(testNow)
	mgr := manager.New(storage.NewMemoryStore(), manager.WithClock(clock))
	if err := mgr.Open(context.Background()); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := mgr.AddEntry(context.Background(), "2024-06-30", models.CategoryWork, "review PR"); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.AddEntry(context.Background(), "2024-06-29", models.CategoryLife, "laundry"); err != nil {
		t.Fatal(err)
	}

	m := NewModel(context.Background(), mgr, quota.NewMonitor(quota.WithClock(clock)), clock)
	return m, mgr
}

// send feeds msg to the model and follows any command it returns once.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd != nil {
		if follow := cmd(); follow != nil {
			if _, isBatch := follow.(tea.BatchMsg); !isBatch {
				next, _ = m.Update(follow)
				m = next.(Model)
			}
		}
	}
	return m
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModelShowsToday(t *testing.T) {
	m, _ := setupModel(t)

	if m.Date() != "2024-06-30" {
		t.Errorf("Date() = %s, want 2024-06-30", m.Date())
	}
	items := m.entryList.Items()
	if len(items) != 1 || items[0].Entry.Text != "review PR" {
		t.Errorf("items = %+v", items)
	}
	if !strings.Contains(m.View(), "2024-06-30") {
		t.Error("View() should show the date")
	}
}

func TestDayNavigation(t *testing.T) {
	m, _ := setupModel(t)

	m = send(t, m, keyMsg("h"))
	if m.Date() != "2024-06-29" {
		t.Fatalf("after prev day: Date() = %s", m.Date())
	}
	if items := m.entryList.Items(); len(items) != 1 || items[0].Category != models.CategoryLife {
		t.Errorf("items on 2024-06-29 = %+v", items)
	}

	m = send(t, m, keyMsg("l"))
	m = send(t, m, keyMsg("l"))
	if m.Date() != "2024-07-01" {
		t.Errorf("after two next days: Date() = %s", m.Date())
	}
	if n := len(m.entryList.Items()); n != 0 {
		t.Errorf("empty day lists %d items", n)
	}

	m = send(t, m, keyMsg("t"))
	if m.Date() != "2024-06-30" {
		t.Errorf("after today: Date() = %s", m.Date())
	}
}

func TestToggleEntry(t *testing.T) {
	m, mgr := setupModel(t)

	m = send(t, m, keyMsg("x"))

	got := mgr.Day("2024-06-30").Entries(models.CategoryWork)
	if len(got) != 1 || !got[0].Checked {
		t.Fatalf("entry not checked: %+v", got)
	}
	if items := m.entryList.Items(); !items[0].Entry.Checked {
		t.Error("list was not refreshed after the toggle")
	}
}

func TestDeleteEntry(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   int
	}{
		{"confirmed", "y", 0},
		{"declined", "n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, mgr := setupModel(t)

			m = send(t, m, keyMsg("d"))
			if m.state != StateConfirmDelete {
				t.Fatalf("state = %v, want StateConfirmDelete", m.state)
			}
			if !strings.Contains(m.View(), "review PR") {
				t.Error("confirmation should name the entry")
			}

			m = send(t, m, keyMsg(tt.answer))
			if m.state != StateDay {
				t.Errorf("state = %v, want StateDay", m.state)
			}
			if n := len(mgr.Day("2024-06-30").Entries(models.CategoryWork)); n != tt.want {
				t.Errorf("%d entries left, want %d", n, tt.want)
			}
		})
	}
}

func TestSaveForm(t *testing.T) {
	m, mgr := setupModel(t)

	m.openForm(nil)
	if m.state != StateEditing {
		t.Fatalf("state = %v, want StateEditing", m.state)
	}
	m.entryForm.Category = string(models.CategoryUpskilling)
	m.entryForm.Text = "try the new linter"
	if err := m.saveForm(); err != nil {
		t.Fatalf("saveForm() add failed: %v", err)
	}
	if n := len(mgr.Day("2024-06-30").Entries(models.CategoryUpskilling)); n != 1 {
		t.Errorf("added %d entries, want 1", n)
	}

	item := m.entryList.Items()[0]
	m.openForm(&item)
	if m.entryForm.Text != "review PR" {
		t.Errorf("edit form prefilled with %q", m.entryForm.Text)
	}
	m.entryForm.Text = "review PR #42"
	if err := m.saveForm(); err != nil {
		t.Fatalf("saveForm() edit failed: %v", err)
	}
	if e := mgr.Day("2024-06-30").Entries(models.CategoryWork); e[0].Text != "review PR #42" {
		t.Errorf("edited text = %q", e[0].Text)
	}

	m.openForm(nil)
	m.entryForm.Text = "   "
	if err := m.saveForm(); err == nil {
		t.Error("blank text should be rejected")
	}
}

func TestEscapeLeavesForm(t *testing.T) {
	m, _ := setupModel(t)

	m = send(t, m, keyMsg("a"))
	if m.state != StateEditing {
		t.Fatalf("state = %v, want StateEditing", m.state)
	}
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m = next.(Model); m.state != StateDay {
		t.Errorf("state = %v after esc, want StateDay", m.state)
	}
}

func TestTabsAndQuit(t *testing.T) {
	m, _ := setupModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = next.(Model)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if m.state != StateHistory {
		t.Fatalf("state = %v after tab, want StateHistory", m.state)
	}
	if !strings.Contains(m.View(), "2024-06-29") {
		t.Error("history should list every date")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m = next.(Model); m.state != StateDay {
		t.Errorf("state = %v after second tab, want StateDay", m.state)
	}

	next, cmd := m.Update(keyMsg("q"))
	if m = next.(Model); !m.quitting || cmd == nil {
		t.Error("q should quit")
	}
	if m.View() != "" {
		t.Error("View() should be empty after quitting")
	}
}

func TestItemDescription(t *testing.T) {
	e := models.NewEntry("plan trip", testNow)
	e.SubEntries = []models.SubEntry{models.NewSubEntry("book train", testNow), models.NewSubEntry("hotel", testNow)}
	e.SubEntries[0].SetChecked(true, testNow)

	item := entrylist.Item{Category: models.CategoryLife, Entry: e}
	if got := item.Description(); !strings.Contains(got, "1/2 sub-entries") {
		t.Errorf("Description() = %q", got)
	}
	if got := item.Title(); !strings.HasPrefix(got, "☐") {
		t.Errorf("Title() = %q", got)
	}
}
