package optimizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/julianstephens/driftlog/internal/archive"
	apperrors "github.com/julianstephens/driftlog/internal/errors"
	"github.com/julianstephens/driftlog/internal/manager"
	"github.com/julianstephens/driftlog/internal/models"
	"github.com/julianstephens/driftlog/internal/storage"
	"github.com/julianstephens/driftlog/internal/utils"
)

var testNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func TestShouldOptimize(t *testing.T) {
	tests := []struct {
		percentage float64
		want       bool
	}{
		{0, false},
		{85, false},
		{85.01, true},
		{99, true},
	}
	for _, tt := range tests {
		if got := ShouldOptimize(tt.percentage); got != tt.want {
			t.Errorf("ShouldOptimize(%v) = %v, want %v", tt.percentage, got, tt.want)
		}
	}
}

func TestGetOptimizationSteps(t *testing.T) {
	tests := []struct {
		name       string
		percentage float64
		want       []Step
	}{
		{name: "low usage", percentage: 50, want: nil},
		{name: "exactly 70", percentage: 70, want: nil},
		{
			name:       "moderate",
			percentage: 75,
			want: []Step{
				{PriorityMedium, archive.ActionCompressEntries, "Clean up empty days"},
			},
		},
		{
			name:       "high",
			percentage: 90,
			want: []Step{
				{PriorityHigh, archive.ActionCleanOldEntries, "Remove entries older than 90 days"},
				{PriorityHigh, archive.ActionCompressEntries, "Remove empty days"},
				{PriorityMedium, archive.ActionCompressEntries, "Clean up empty days"},
			},
		},
		{
			name:       "critical",
			percentage: 97,
			want: []Step{
				{PriorityCritical, archive.ActionEmergencyCleanup, "⚠️ CRITICAL: Keep only last 30 days to free up space immediately"},
				{PriorityHigh, archive.ActionCleanOldEntries, "Remove entries older than 90 days"},
				{PriorityHigh, archive.ActionCompressEntries, "Remove empty days"},
				{PriorityMedium, archive.ActionCompressEntries, "Clean up empty days"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetOptimizationSteps(tt.percentage)
			if len(got) != len(tt.want) {
				t.Fatalf("GetOptimizationSteps(%v) returned %d steps, want %d: %+v", tt.percentage, len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("step %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func setupManager(t *testing.T) (*manager.Manager, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	m := manager.New(store, manager.WithClock(utils.FixedClock(testNow)))
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("Open() returned error: %v", err)
	}
	ctx := context.Background()
	for _, date := range []string{"2024-01-05", "2024-05-01", "2024-06-20"} {
		if _, err := m.AddEntry(ctx, date, models.CategoryWork, "note "+date); err != nil {
			t.Fatal(err)
		}
	}
	// An empty day inside every retention window.
	e, err := m.AddEntry(ctx, "2024-06-25", models.CategoryLife, "gone")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.RemoveEntry(ctx, "2024-06-25", models.CategoryLife, e.ID); err != nil {
		t.Fatal(err)
	}
	return m, store
}

func TestApply(t *testing.T) {
	tests := []struct {
		name        string
		action      archive.Action
		wantDates   []string
		wantRemoved int
		wantDays    int
	}{
		{
			name:        "clean old entries",
			action:      archive.ActionCleanOldEntries,
			wantDates:   []string{"2024-06-25", "2024-06-20", "2024-05-01"},
			wantRemoved: 1,
			wantDays:    1,
		},
		{
			name:      "compress entries",
			action:    archive.ActionCompressEntries,
			wantDates: []string{"2024-06-20", "2024-05-01", "2024-01-05"},
			wantDays:  1,
		},
		{
			name:        "emergency cleanup",
			action:      archive.ActionEmergencyCleanup,
			wantDates:   []string{"2024-06-25", "2024-06-20"},
			wantRemoved: 2,
			wantDays:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := setupManager(t)
			engine := archive.NewEngine(archive.WithClock(utils.FixedClock(testNow)))

			res, err := Apply(context.Background(), m, engine, tt.action)
			if err != nil {
				t.Fatalf("Apply() returned error: %v", err)
			}
			if res.RemovedCount != tt.wantRemoved || res.RemovedDays != tt.wantDays {
				t.Errorf("Apply() = %+v, want removed %d entries over %d days", res, tt.wantRemoved, tt.wantDays)
			}

			dates := m.Dates()
			if len(dates) != len(tt.wantDates) {
				t.Fatalf("Dates() = %v, want %v", dates, tt.wantDates)
			}
			for i := range dates {
				if dates[i] != tt.wantDates[i] {
					t.Errorf("Dates() = %v, want %v", dates, tt.wantDates)
					break
				}
			}
			log := engine.Log()
			if len(log) != 1 || log[0].Action != tt.action || !log[0].Success {
				t.Fatalf("engine log = %+v", log)
			}
			if log[0].RemovedDays != tt.wantDays || !log[0].Timestamp.Equal(testNow) {
				t.Errorf("record = %+v, want %d removed days at %v", log[0], tt.wantDays, testNow)
			}
		})
	}
}

func TestApplyUnknownAction(t *testing.T) {
	m, store := setupManager(t)
	commits := store.Commits()
	if _, err := Apply(context.Background(), m, archive.NewEngine(), "defragment"); err == nil {
		t.Error("Apply() with unknown action returned nil error")
	}
	if store.Commits() != commits {
		t.Error("unknown action committed")
	}
}

func TestApplyCommitFailure(t *testing.T) {
	m, store := setupManager(t)
	store.FailCommit = apperrors.ErrQuotaExceeded
	engine := archive.NewEngine(archive.WithClock(utils.FixedClock(testNow)))

	_, err := Apply(context.Background(), m, engine, archive.ActionEmergencyCleanup)
	if !errors.Is(err, apperrors.ErrQuotaExceeded) {
		t.Errorf("Apply() error = %v, want ErrQuotaExceeded", err)
	}
	if len(m.Dates()) != 4 {
		t.Errorf("store changed despite failed commit: %v", m.Dates())
	}
	log := engine.Log()
	if len(log) != 1 || log[0].Action != archive.ActionEmergencyCleanup || log[0].Success {
		t.Errorf("engine log = %+v, want one failed emergencyCleanup record", log)
	}
}
