package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Category
		wantErr bool
	}{
		{name: "exact", input: "work", want: CategoryWork},
		{name: "mixed case and spaces", input: "  UpSkilling ", want: CategoryUpskilling},
		{name: "unknown", input: "hobbies", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownCategory) {
					t.Fatalf("ParseCategory(%q) error = %v, want ErrUnknownCategory", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCategory(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseCategory(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIDUnmarshalLegacyNumbers(t *testing.T) {
	var entry Entry
	if err := json.Unmarshal([]byte(`{"id":1717243200123,"text":"x"}`), &entry); err != nil {
		t.Fatalf("unmarshal numeric id: %v", err)
	}
	if entry.ID != "1717243200123" {
		t.Errorf("ID = %q, want %q", entry.ID, "1717243200123")
	}

	if err := json.Unmarshal([]byte(`{"id":"abc","text":"x"}`), &entry); err != nil {
		t.Fatalf("unmarshal string id: %v", err)
	}
	if entry.ID != "abc" {
		t.Errorf("ID = %q, want %q", entry.ID, "abc")
	}

	out, err := json.Marshal(Entry{ID: "42", SubEntries: []SubEntry{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(out, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if _, ok := raw["id"].(string); !ok {
		t.Errorf("marshalled id = %#v, want a string", raw["id"])
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %q after %d iterations", id, i)
		}
		seen[id] = true
	}
}

func TestSetChecked(t *testing.T) {
	now := time.Date(2024, 6, 1, 15, 4, 0, 0, time.UTC)
	e := NewEntry("finish report", now)

	e.SetChecked(true, now)
	if !e.Checked || e.CompletedDate != "2024-06-01" || e.CompletedTime != "3:04 PM" {
		t.Errorf("after check: %+v", e)
	}

	e.SetChecked(false, now)
	if e.Checked || e.CompletedDate != "" || e.CompletedTime != "" {
		t.Errorf("after uncheck: completion stamps not cleared: %+v", e)
	}
}

func TestDayRecordEmptiness(t *testing.T) {
	day := NewDayRecord()
	if !day.IsEmpty() {
		t.Error("NewDayRecord().IsEmpty() = false, want true")
	}
	if len(day) != len(Categories) {
		t.Errorf("NewDayRecord() has %d categories, want %d", len(day), len(Categories))
	}

	day[CategoryWork] = append(day[CategoryWork], Entry{ID: "1", Text: "x", SubEntries: []SubEntry{}})
	if day.IsEmpty() {
		t.Error("IsEmpty() = true for a day with an entry")
	}
	if day.EntryCount() != 1 {
		t.Errorf("EntryCount() = %d, want 1", day.EntryCount())
	}

	var missing DayRecord
	if got := missing.Entries(CategoryLife); got == nil || len(got) != 0 {
		t.Errorf("Entries on nil record = %#v, want empty slice", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	store := EntryStore{
		"2024-06-01": DayRecord{
			CategoryWork: {{ID: "1", Text: "a", SubEntries: []SubEntry{{ID: "1a", Text: "sub"}}}},
		},
	}
	clone := store.Clone()
	clone["2024-06-01"][CategoryWork][0].Text = "changed"
	clone["2024-06-01"][CategoryWork][0].SubEntries[0].Text = "changed"

	if store["2024-06-01"][CategoryWork][0].Text != "a" {
		t.Error("mutating clone changed original entry text")
	}
	if store["2024-06-01"][CategoryWork][0].SubEntries[0].Text != "sub" {
		t.Error("mutating clone changed original sub-entry text")
	}
}

func TestNormalizeLegacyDocument(t *testing.T) {
	// A five-category record with numeric ids and no checked/subEntries fields.
	legacy := `{
		"2023-11-02": {
			"relationships": [],
			"school": null,
			"work": [{"id": 1698912000000, "text": "email Sam", "timestamp": "9:15 AM"}],
			"emotional": [],
			"life": [],
			"hobbies": [{"id": 5, "text": "dropped"}]
		}
	}`

	var store EntryStore
	if err := json.Unmarshal([]byte(legacy), &store); err != nil {
		t.Fatalf("unmarshal legacy: %v", err)
	}

	got := Normalize(store)
	day := got["2023-11-02"]

	for _, c := range Categories {
		entries, ok := day[c]
		if !ok || entries == nil {
			t.Errorf("category %q missing or nil after Normalize", c)
		}
	}
	if _, ok := day[Category("hobbies")]; ok {
		t.Error("unknown category survived Normalize")
	}

	work := day[CategoryWork]
	if len(work) != 1 {
		t.Fatalf("work entries = %d, want 1", len(work))
	}
	if work[0].ID != "1698912000000" {
		t.Errorf("ID = %q, want legacy numeric id as string", work[0].ID)
	}
	if work[0].SubEntries == nil {
		t.Error("SubEntries is nil after Normalize")
	}
	if work[0].CreatedDate != "2023-11-02" {
		t.Errorf("CreatedDate = %q, want date key", work[0].CreatedDate)
	}

	again := Normalize(got)
	a, _ := json.Marshal(got)
	b, _ := json.Marshal(again)
	if string(a) != string(b) {
		t.Error("Normalize is not idempotent")
	}
}

func TestNormalizeClearsStampsOnUnchecked(t *testing.T) {
	store := EntryStore{
		"2024-01-01": DayRecord{
			CategoryLife: {{
				ID: "1", Text: "x", Checked: false, CompletedDate: "2024-01-02", CompletedTime: "1:00 PM",
				SubEntries: []SubEntry{{ID: "2", Checked: false, CompletedDate: "2024-01-02"}},
			}},
		},
	}
	got := Normalize(store)
	e := got["2024-01-01"][CategoryLife][0]
	if e.CompletedDate != "" || e.CompletedTime != "" {
		t.Errorf("unchecked entry kept stamps: %+v", e)
	}
	if e.SubEntries[0].CompletedDate != "" {
		t.Errorf("unchecked sub-entry kept stamps: %+v", e.SubEntries[0])
	}
	if store["2024-01-01"][CategoryLife][0].CompletedDate == "" {
		t.Error("Normalize modified its input")
	}
}
