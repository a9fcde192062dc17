package manager

import (
	"context"
	"time"

	"github.com/julianstephens/driftlog/internal/logger"
	"github.com/julianstephens/driftlog/internal/models"
)

// AddEntry appends a fresh unchecked entry to a category. A date seen for
// the first time gets every category.
func (m *Manager) AddEntry(ctx context.Context, date string, category models.Category, text string) (models.Entry, error) {
	if err := validateTarget(date, category); err != nil {
		return models.Entry{}, err
	}
	text, err := cleanText(text)
	if err != nil {
		return models.Entry{}, err
	}

	var added models.Entry
	err = m.mutate(ctx, "add_entry", func(doc models.EntryStore, now time.Time) (models.EntryStore, bool, error) {
		day, ok := doc[date]
		if !ok {
			day = models.NewDayRecord()
			doc[date] = day
		}
		added = models.NewEntry(text, now)
		day[category] = append(day.Entries(category), added)
		return doc, true, nil
	})
	if err != nil {
		return models.Entry{}, err
	}
	return added, nil
}

// RemoveEntry deletes an entry. A missing date, category or entry is a no-op.
func (m *Manager) RemoveEntry(ctx context.Context, date string, category models.Category, id models.ID) error {
	return m.mutate(ctx, "remove_entry", func(doc models.EntryStore, now time.Time) (models.EntryStore, bool, error) {
		day, ok := doc[date]
		if !ok {
			return doc, false, nil
		}
		idx := day.FindEntry(category, id)
		if idx < 0 {
			return doc, false, nil
		}
		entries := day[category]
		day[category] = append(entries[:idx:idx], entries[idx+1:]...)
		return doc, true, nil
	})
}

// ClearCategory empties one category of a date. Nothing is committed when
// it is already empty or the date is unknown.
func (m *Manager) ClearCategory(ctx context.Context, date string, category models.Category) error {
	return m.mutate(ctx, "clear_category", func(doc models.EntryStore, now time.Time) (models.EntryStore, bool, error) {
		day, ok := doc[date]
		if !ok || len(day[category]) == 0 {
			return doc, false, nil
		}
		day[category] = []models.Entry{}
		return doc, true, nil
	})
}

// ToggleEntryCheck flips an entry's checked state and applies the same
// state, with fresh completion stamps, to every sub-entry.
func (m *Manager) ToggleEntryCheck(ctx context.Context, date string, category models.Category, id models.ID) (models.Entry, error) {
	var toggled models.Entry
	err := m.mutate(ctx, "toggle_entry", func(doc models.EntryStore, now time.Time) (models.EntryStore, bool, error) {
		day, ok := doc[date]
		idx := -1
		if ok {
			idx = day.FindEntry(category, id)
		}
		if idx < 0 {
			logger.Anomaly("Toggle target missing", "date", date, "category", category, "id", id)
			return doc, false, notFound("entry", date, category, id)
		}

		e := &day[category][idx]
		checked := !e.Checked
		e.SetChecked(checked, now)
		for i := range e.SubEntries {
			e.SubEntries[i].SetChecked(checked, now)
		}
		toggled = e.Clone()
		return doc, true, nil
	})
	return toggled, err
}

// UpdateEntryText replaces an entry's text in place.
func (m *Manager) UpdateEntryText(ctx context.Context, date string, category models.Category, id models.ID, text string) (models.Entry, error) {
	text, err := cleanText(text)
	if err != nil {
		return models.Entry{}, err
	}

	var updated models.Entry
	err = m.mutate(ctx, "update_entry", func(doc models.EntryStore, now time.Time) (models.EntryStore, bool, error) {
		day, ok := doc[date]
		idx := -1
		if ok {
			idx = day.FindEntry(category, id)
		}
		if idx < 0 {
			return doc, false, notFound("entry", date, category, id)
		}
		e := &day[category][idx]
		if e.Text == text {
			updated = e.Clone()
			return doc, false, nil
		}
		e.Text = text
		updated = e.Clone()
		return doc, true, nil
	})
	return updated, err
}

// findParent locates the entry owning sub-entries, or returns nil.
func findParent(doc models.EntryStore, date string, category models.Category, entryID models.ID) *models.Entry {
	day, ok := doc[date]
	if !ok {
		return nil
	}
	idx := day.FindEntry(category, entryID)
	if idx < 0 {
		return nil
	}
	return &day[category][idx]
}

// AddSubEntry appends an unchecked sub-entry to an existing entry.
func (m *Manager) AddSubEntry(ctx context.Context, date string, category models.Category, entryID models.ID, text string) (models.SubEntry, error) {
	text, err := cleanText(text)
	if err != nil {
		return models.SubEntry{}, err
	}

	var added models.SubEntry
	err = m.mutate(ctx, "add_sub_entry", func(doc models.EntryStore, now time.Time) (models.EntryStore, bool, error) {
		parent := findParent(doc, date, category, entryID)
		if parent == nil {
			logger.Anomaly("Sub-entry parent missing", "date", date, "category", category, "id", entryID)
			return doc, false, notFound("entry", date, category, entryID)
		}
		added = models.NewSubEntry(text, now)
		parent.SubEntries = append(parent.SubEntries, added)
		return doc, true, nil
	})
	if err != nil {
		return models.SubEntry{}, err
	}
	return added, nil
}

// RemoveSubEntry deletes a sub-entry. Missing targets are a no-op.
func (m *Manager) RemoveSubEntry(ctx context.Context, date string, category models.Category, entryID, subID models.ID) error {
	return m.mutate(ctx, "remove_sub_entry", func(doc models.EntryStore, now time.Time) (models.EntryStore, bool, error) {
		parent := findParent(doc, date, category, entryID)
		if parent == nil {
			return doc, false, nil
		}
		idx := parent.FindSubEntry(subID)
		if idx < 0 {
			return doc, false, nil
		}
		subs := parent.SubEntries
		parent.SubEntries = append(subs[:idx:idx], subs[idx+1:]...)
		return doc, true, nil
	})
}

// ToggleSubEntryCheck flips one sub-entry. The parent is left untouched.
func (m *Manager) ToggleSubEntryCheck(ctx context.Context, date string, category models.Category, entryID, subID models.ID) (models.SubEntry, error) {
	var toggled models.SubEntry
	err := m.mutate(ctx, "toggle_sub_entry", func(doc models.EntryStore, now time.Time) (models.EntryStore, bool, error) {
		parent := findParent(doc, date, category, entryID)
		idx := -1
		if parent != nil {
			idx = parent.FindSubEntry(subID)
		}
		if idx < 0 {
			logger.Anomaly("Toggle target missing", "date", date, "category", category, "id", entryID, "sub_id", subID)
			return doc, false, notFound("sub-entry", date, category, subID)
		}
		sub := &parent.SubEntries[idx]
		sub.SetChecked(!sub.Checked, now)
		toggled = *sub
		return doc, true, nil
	})
	return toggled, err
}

// UpdateSubEntryText replaces a sub-entry's text in place.
func (m *Manager) UpdateSubEntryText(ctx context.Context, date string, category models.Category, entryID, subID models.ID, text string) (models.SubEntry, error) {
	text, err := cleanText(text)
	if err != nil {
		return models.SubEntry{}, err
	}

	var updated models.SubEntry
	err = m.mutate(ctx, "update_sub_entry", func(doc models.EntryStore, now time.Time) (models.EntryStore, bool, error) {
		parent := findParent(doc, date, category, entryID)
		idx := -1
		if parent != nil {
			idx = parent.FindSubEntry(subID)
		}
		if idx < 0 {
			return doc, false, notFound("sub-entry", date, category, subID)
		}
		sub := &parent.SubEntries[idx]
		changed := sub.Text != text
		sub.Text = text
		updated = *sub
		return doc, changed, nil
	})
	return updated, err
}
