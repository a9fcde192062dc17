package manager

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"testing"

	"github.com/julianstephens/driftlog/internal/models"
)

// refSub, refEntry and refModel are a plain-map model of the store that
// ignores timestamps and normalization.
type refSub struct {
	id      models.ID
	text    string
	checked bool
}

type refEntry struct {
	id      models.ID
	text    string
	checked bool
	subs    []refSub
}

type refModel map[string]map[models.Category][]refEntry

func (r refModel) cloneDay(date string) map[models.Category][]refEntry {
	out := map[models.Category][]refEntry{}
	for c, entries := range r[date] {
		cp := make([]refEntry, len(entries))
		for i, e := range entries {
			cp[i] = e
			cp[i].subs = append([]refSub(nil), e.subs...)
		}
		out[c] = cp
	}
	return out
}

func (r refModel) render() string {
	dates := make([]string, 0, len(r))
	for d := range r {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var b strings.Builder
	for _, d := range dates {
		b.WriteString(d + "\n")
		for _, c := range models.Categories {
			for _, e := range r[d][c] {
				fmt.Fprintf(&b, "  %s %s %q %t\n", c, e.id, e.text, e.checked)
				for _, s := range e.subs {
					fmt.Fprintf(&b, "    %s %q %t\n", s.id, s.text, s.checked)
				}
			}
		}
	}
	return b.String()
}

// project maps a manager store onto the reference shape.
func project(store models.EntryStore) refModel {
	r := refModel{}
	for date, day := range store {
		r[date] = map[models.Category][]refEntry{}
		for _, c := range models.Categories {
			for _, e := range day.Entries(c) {
				re := refEntry{id: e.ID, text: e.Text, checked: e.Checked}
				for _, s := range e.SubEntries {
					re.subs = append(re.subs, refSub{id: s.ID, text: s.Text, checked: s.Checked})
				}
				r[date][c] = append(r[date][c], re)
			}
		}
	}
	return r
}

type entryRef struct {
	date     string
	category models.Category
	idx      int
}

// entryRefs lists every entry of the reference model in a stable order.
func (r refModel) entryRefs() []entryRef {
	dates := make([]string, 0, len(r))
	for d := range r {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var out []entryRef
	for _, d := range dates {
		for _, c := range models.Categories {
			for i := range r[d][c] {
				out = append(out, entryRef{date: d, category: c, idx: i})
			}
		}
	}
	return out
}

func (r refModel) sortedDates() []string {
	dates := make([]string, 0, len(r))
	for d := range r {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

type archived struct {
	data models.EntryStore
	days map[string]map[models.Category][]refEntry
}

func TestSerialReplayMatchesReferenceModel(t *testing.T) {
	dates := []string{"2024-05-01", "2024-05-02", "2024-06-01", "2024-06-02"}
	categories := models.Categories[:3]

	for _, seed := range []uint64{1, 7, 42, 1234} {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			m, store, _ := setupManager(t)
			ctx := context.Background()
			rng := rand.New(rand.NewPCG(seed, seed))
			ref := refModel{}
			var archives []archived

			for step := 0; step < 300; step++ {
				op := rng.IntN(10)
				refs := ref.entryRefs()
				var pick *entryRef
				if len(refs) > 0 {
					pick = &refs[rng.IntN(len(refs))]
				}
				desc := fmt.Sprintf("step %d op %d", step, op)

				switch op {
				case 0:
					date := dates[rng.IntN(len(dates))]
					c := categories[rng.IntN(len(categories))]
					text := fmt.Sprintf("thought %d", step)
					e, err := m.AddEntry(ctx, date, c, text)
					if err != nil {
						t.Fatalf("%s: AddEntry: %v", desc, err)
					}
					if ref[date] == nil {
						ref[date] = map[models.Category][]refEntry{}
					}
					ref[date][c] = append(ref[date][c], refEntry{id: e.ID, text: text})

				case 1:
					if pick == nil || rng.IntN(4) == 0 {
						date := dates[rng.IntN(len(dates))]
						if err := m.RemoveEntry(ctx, date, categories[0], "missing"); err != nil {
							t.Fatalf("%s: RemoveEntry(missing): %v", desc, err)
						}
						break
					}
					entries := ref[pick.date][pick.category]
					if err := m.RemoveEntry(ctx, pick.date, pick.category, entries[pick.idx].id); err != nil {
						t.Fatalf("%s: RemoveEntry: %v", desc, err)
					}
					ref[pick.date][pick.category] = append(entries[:pick.idx:pick.idx], entries[pick.idx+1:]...)

				case 2:
					date := dates[rng.IntN(len(dates))]
					c := categories[rng.IntN(len(categories))]
					if err := m.ClearCategory(ctx, date, c); err != nil {
						t.Fatalf("%s: ClearCategory: %v", desc, err)
					}
					if ref[date] != nil {
						ref[date][c] = nil
					}

				case 3:
					if pick == nil {
						break
					}
					e := &ref[pick.date][pick.category][pick.idx]
					if _, err := m.ToggleEntryCheck(ctx, pick.date, pick.category, e.id); err != nil {
						t.Fatalf("%s: ToggleEntryCheck: %v", desc, err)
					}
					e.checked = !e.checked
					for i := range e.subs {
						e.subs[i].checked = e.checked
					}

				case 4:
					if pick == nil {
						break
					}
					e := &ref[pick.date][pick.category][pick.idx]
					text := fmt.Sprintf("detail %d", step)
					s, err := m.AddSubEntry(ctx, pick.date, pick.category, e.id, text)
					if err != nil {
						t.Fatalf("%s: AddSubEntry: %v", desc, err)
					}
					e.subs = append(e.subs, refSub{id: s.ID, text: text})

				case 5, 6:
					if pick == nil {
						break
					}
					e := &ref[pick.date][pick.category][pick.idx]
					if len(e.subs) == 0 {
						break
					}
					i := rng.IntN(len(e.subs))
					if op == 5 {
						if _, err := m.ToggleSubEntryCheck(ctx, pick.date, pick.category, e.id, e.subs[i].id); err != nil {
							t.Fatalf("%s: ToggleSubEntryCheck: %v", desc, err)
						}
						e.subs[i].checked = !e.subs[i].checked
					} else {
						if err := m.RemoveSubEntry(ctx, pick.date, pick.category, e.id, e.subs[i].id); err != nil {
							t.Fatalf("%s: RemoveSubEntry: %v", desc, err)
						}
						e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
					}

				case 7:
					if pick == nil {
						break
					}
					e := &ref[pick.date][pick.category][pick.idx]
					text := fmt.Sprintf("edited %d", step)
					if _, err := m.UpdateEntryText(ctx, pick.date, pick.category, e.id, text); err != nil {
						t.Fatalf("%s: UpdateEntryText: %v", desc, err)
					}
					e.text = text

				case 8:
					known := ref.sortedDates()
					if len(known) == 0 {
						break
					}
					date := known[rng.IntN(len(known))]
					env, err := m.ArchiveEntries(ctx, models.EntryStore{date: models.NewDayRecord()})
					if err != nil {
						t.Fatalf("%s: ArchiveEntries: %v", desc, err)
					}
					archives = append(archives, archived{
						data: env.Data,
						days: map[string]map[models.Category][]refEntry{date: ref.cloneDay(date)},
					})
					delete(ref, date)

				case 9:
					if len(archives) == 0 {
						break
					}
					a := archives[0]
					archives = archives[1:]
					if _, err := m.MergeArchiveWithCurrent(ctx, a.data); err != nil {
						t.Fatalf("%s: MergeArchiveWithCurrent: %v", desc, err)
					}
					for date, day := range a.days {
						if _, exists := ref[date]; !exists {
							ref[date] = day
						}
					}
				}

				if got, want := project(m.Entries()).render(), ref.render(); got != want {
					t.Fatalf("%s: manager diverged from reference\ngot:\n%s\nwant:\n%s", desc, got, want)
				}
			}

			assertPersisted(t, m, store)
		})
	}
}
