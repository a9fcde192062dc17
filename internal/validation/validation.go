// Package validation checks an entry store for integrity problems that
// normalization cannot repair on its own.
package validation

import (
	"fmt"

	"github.com/julianstephens/driftlog/internal/models"
	"github.com/julianstephens/driftlog/internal/utils"
)

// ConflictType represents the type of integrity problem
type ConflictType string

const (
	ConflictInvalidDateKey     ConflictType = "invalid_date_key"
	ConflictDuplicateID        ConflictType = "duplicate_id"
	ConflictMissingID          ConflictType = "missing_id"
	ConflictEmptyText          ConflictType = "empty_text"
	ConflictMissingCompletion  ConflictType = "missing_completion"
	ConflictInvalidCompletedOn ConflictType = "invalid_completed_date"
)

// Conflict represents one detected problem
type Conflict struct {
	Type        ConflictType
	Description string
	Date        string
	Category    models.Category
	ID          models.ID
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// Count returns how many conflicts of type t were found.
func (vr *ValidationResult) Count(t ConflictType) int {
	n := 0
	for _, c := range vr.Conflicts {
		if c.Type == t {
			n++
		}
	}
	return n
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	report := "Conflicts detected:\n"
	for _, conflict := range vr.Conflicts {
		report += fmt.Sprintf("- %s\n", conflict.Description)
	}
	return report
}

// FixAction describes a repair made by Fix
type FixAction struct {
	Action         string
	SourceConflict Conflict
}

// Validator checks entry stores
type Validator struct {
	newID func() models.ID
}

// New creates a new Validator
func New() *Validator {
	return &Validator{newID: models.NewID}
}

// ValidateStore walks every date in key order and reports problems.
// Ids must be unique across the whole store, sub-entries included.
func (v *Validator) ValidateStore(store models.EntryStore) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}
	seen := make(map[models.ID]string)

	add := func(t ConflictType, date string, c models.Category, id models.ID, format string, args ...interface{}) {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        t,
			Description: fmt.Sprintf(format, args...),
			Date:        date,
			Category:    c,
			ID:          id,
		})
	}

	checkItem := func(date string, c models.Category, kind string, id models.ID, text string, checked bool, completedDate string) {
		switch {
		case id == "":
			add(ConflictMissingID, date, c, id, "%s on %s in %s has no id", kind, date, c)
		case seen[id] != "":
			add(ConflictDuplicateID, date, c, id, "%s id %s on %s in %s is also used on %s", kind, id, date, c, seen[id])
		default:
			seen[id] = date
		}
		if text == "" {
			add(ConflictEmptyText, date, c, id, "%s %s on %s in %s has no text", kind, id, date, c)
		}
		if checked && completedDate == "" {
			add(ConflictMissingCompletion, date, c, id, "%s %s on %s in %s is checked but has no completion date", kind, id, date, c)
		}
		if completedDate != "" && utils.ValidateDate(completedDate) != nil {
			add(ConflictInvalidCompletedOn, date, c, id, "%s %s on %s in %s has invalid completion date %q", kind, id, date, c, completedDate)
		}
	}

	for _, date := range store.Dates() {
		if err := utils.ValidateDate(date); err != nil {
			add(ConflictInvalidDateKey, date, "", "", "Invalid date key: %q", date)
		}
		day := store[date]
		for _, c := range models.Categories {
			for _, e := range day[c] {
				checkItem(date, c, "Entry", e.ID, e.Text, e.Checked, e.CompletedDate)
				for _, sub := range e.SubEntries {
					checkItem(date, c, "Sub-entry", sub.ID, sub.Text, sub.Checked, sub.CompletedDate)
				}
			}
		}
	}

	return result
}

// Fix returns a repaired copy of store: duplicate or missing ids get fresh
// ones, and checked items without a completion date are stamped with their
// creation date and time. Other conflicts need a human and are left alone.
func (v *Validator) Fix(store models.EntryStore) (models.EntryStore, []FixAction) {
	out := store.Clone()
	var actions []FixAction
	seen := make(map[models.ID]bool)

	fixItem := func(date string, c models.Category, kind string, id *models.ID, checked bool, created, timestamp string, completedDate, completedTime *string) {
		if *id == "" || seen[*id] {
			old := *id
			*id = v.newID()
			conflictType := ConflictDuplicateID
			if old == "" {
				conflictType = ConflictMissingID
			}
			actions = append(actions, FixAction{
				Action:         fmt.Sprintf("Assigned new id %s to %s on %s in %s", *id, kind, date, c),
				SourceConflict: Conflict{Type: conflictType, Date: date, Category: c, ID: old},
			})
		}
		seen[*id] = true

		if checked && *completedDate == "" {
			if created == "" {
				created = date
			}
			*completedDate, *completedTime = created, timestamp
			actions = append(actions, FixAction{
				Action:         fmt.Sprintf("Stamped completion on %s %s as %s", kind, *id, created),
				SourceConflict: Conflict{Type: ConflictMissingCompletion, Date: date, Category: c, ID: *id},
			})
		}
	}

	for _, date := range out.Dates() {
		day := out[date]
		for _, c := range models.Categories {
			entries := day[c]
			for i := range entries {
				e := &entries[i]
				fixItem(date, c, "entry", &e.ID, e.Checked, e.CreatedDate, e.Timestamp, &e.CompletedDate, &e.CompletedTime)
				for j := range e.SubEntries {
					s := &e.SubEntries[j]
					fixItem(date, c, "sub-entry", &s.ID, s.Checked, s.CreatedDate, s.Timestamp, &s.CompletedDate, &s.CompletedTime)
				}
			}
		}
	}
	return out, actions
}
