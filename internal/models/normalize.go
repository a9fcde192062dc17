package models

// Normalize upgrades a document of any historical schema to the current one.
// It is applied once on every load and import so that no operation has to
// defend against missing fields:
//   - every day record carries all six categories, unknown categories are dropped
//   - every entry has a non-nil sub-entry sequence
//   - entries without a created date inherit the date key they are filed under
//   - unchecked items never carry completion stamps
//
// The input is not modified. Normalize is idempotent.
func Normalize(store EntryStore) EntryStore {
	out := make(EntryStore, len(store))
	for date, day := range store {
		out[date] = normalizeDay(date, day)
	}
	return out
}

func normalizeDay(date string, day DayRecord) DayRecord {
	out := make(DayRecord, len(Categories))
	for _, c := range Categories {
		src := day[c]
		entries := make([]Entry, 0, len(src))
		for _, e := range src {
			entries = append(entries, normalizeEntry(date, e))
		}
		out[c] = entries
	}
	return out
}

func normalizeEntry(date string, e Entry) Entry {
	out := e
	if out.CreatedDate == "" {
		out.CreatedDate = date
	}
	if !out.Checked {
		out.CompletedDate, out.CompletedTime = "", ""
	}
	out.SubEntries = make([]SubEntry, 0, len(e.SubEntries))
	for _, sub := range e.SubEntries {
		if sub.CreatedDate == "" {
			sub.CreatedDate = out.CreatedDate
		}
		if !sub.Checked {
			sub.CompletedDate, sub.CompletedTime = "", ""
		}
		out.SubEntries = append(out.SubEntries, sub)
	}
	return out
}
