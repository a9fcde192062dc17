package models

import "sort"

// DayRecord maps each category to its ordered entries for one date.
// A category that is absent reads as an empty sequence.
type DayRecord map[Category][]Entry

// EntryStore is the complete dataset, keyed by YYYY-MM-DD date.
type EntryStore map[string]DayRecord

// NewDayRecord returns a record with every category present and empty.
func NewDayRecord() DayRecord {
	day := make(DayRecord, len(Categories))
	for _, c := range Categories {
		day[c] = []Entry{}
	}
	return day
}

// Entries returns the entries of a category; never nil.
func (d DayRecord) Entries(c Category) []Entry {
	if entries, ok := d[c]; ok && entries != nil {
		return entries
	}
	return []Entry{}
}

// FindEntry returns the index of the entry with the given id in category c, or -1.
func (d DayRecord) FindEntry(c Category, id ID) int {
	for i, e := range d[c] {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// EntryCount sums the top-level entries across all categories.
func (d DayRecord) EntryCount() int {
	total := 0
	for _, entries := range d {
		total += len(entries)
	}
	return total
}

// IsEmpty reports whether every category sequence is empty.
func (d DayRecord) IsEmpty() bool {
	for _, entries := range d {
		if len(entries) > 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the record.
func (d DayRecord) Clone() DayRecord {
	out := make(DayRecord, len(d))
	for c, entries := range d {
		cloned := make([]Entry, len(entries))
		for i, e := range entries {
			cloned[i] = e.Clone()
		}
		out[c] = cloned
	}
	return out
}

// Clone returns a deep copy of the store.
func (s EntryStore) Clone() EntryStore {
	out := make(EntryStore, len(s))
	for date, day := range s {
		out[date] = day.Clone()
	}
	return out
}

// EntryCount sums the top-level entries of every date.
func (s EntryStore) EntryCount() int {
	total := 0
	for _, day := range s {
		total += day.EntryCount()
	}
	return total
}

// Dates returns the date keys in ascending order.
func (s EntryStore) Dates() []string {
	dates := make([]string, 0, len(s))
	for date := range s {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}
