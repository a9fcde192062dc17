package models

import (
	"time"

	"github.com/julianstephens/driftlog/internal/constants"
)

// SubEntry is a refinement nested under an Entry.
type SubEntry struct {
	ID            ID     `json:"id"`
	Text          string `json:"text"`
	Timestamp     string `json:"timestamp"`
	CreatedDate   string `json:"createdDate"`
	Checked       bool   `json:"checked"`
	CompletedDate string `json:"completedDate,omitempty"` // YYYY-MM-DD, set iff Checked
	CompletedTime string `json:"completedTime,omitempty"` // display time, set iff Checked
}

// Entry is a single captured thought.
type Entry struct {
	ID            ID         `json:"id"`
	Text          string     `json:"text"`
	Timestamp     string     `json:"timestamp"`
	CreatedDate   string     `json:"createdDate"`
	Checked       bool       `json:"checked"`
	CompletedDate string     `json:"completedDate,omitempty"`
	CompletedTime string     `json:"completedTime,omitempty"`
	SubEntries    []SubEntry `json:"subEntries"`
}

// NewEntry builds an unchecked entry stamped with now.
func NewEntry(text string, now time.Time) Entry {
	return Entry{
		ID:          NewID(),
		Text:        text,
		Timestamp:   now.Format(constants.DisplayTimeFormat),
		CreatedDate: now.Format(constants.DateFormat),
		SubEntries:  []SubEntry{},
	}
}

// NewSubEntry builds an unchecked sub-entry stamped with now.
func NewSubEntry(text string, now time.Time) SubEntry {
	return SubEntry{
		ID:          NewID(),
		Text:        text,
		Timestamp:   now.Format(constants.DisplayTimeFormat),
		CreatedDate: now.Format(constants.DateFormat),
	}
}

// SetChecked sets the checked state, stamping completion fields when
// checked and clearing them when unchecked.
func (e *Entry) SetChecked(checked bool, now time.Time) {
	e.Checked = checked
	e.CompletedDate, e.CompletedTime = completionStamp(checked, now)
}

// SetChecked sets the checked state of a sub-entry; see Entry.SetChecked.
func (s *SubEntry) SetChecked(checked bool, now time.Time) {
	s.Checked = checked
	s.CompletedDate, s.CompletedTime = completionStamp(checked, now)
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	out := e
	out.SubEntries = make([]SubEntry, len(e.SubEntries))
	copy(out.SubEntries, e.SubEntries)
	return out
}

// FindSubEntry returns the index of the sub-entry with the given id, or -1.
func (e Entry) FindSubEntry(id ID) int {
	for i, sub := range e.SubEntries {
		if sub.ID == id {
			return i
		}
	}
	return -1
}

func completionStamp(checked bool, now time.Time) (string, string) {
	if !checked {
		return "", ""
	}
	return now.Format(constants.DateFormat), now.Format(constants.DisplayTimeFormat)
}
