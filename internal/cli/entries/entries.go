package entries

import (
	"fmt"
	"strings"

	"github.com/julianstephens/driftlog/internal/cli"
	apperrors "github.com/julianstephens/driftlog/internal/errors"
	"github.com/julianstephens/driftlog/internal/models"
)

// shortIDLen is how much of an id the listings show.
const shortIDLen = 8

type AddCmd struct {
	Category string   `arg:"" help:"Category (relationships, school, work, emotional, life, upskilling)."`
	Text     []string `arg:"" help:"What distracted you."`
	Date     string   `help:"Date to file the entry under (YYYY-MM-DD, today, yesterday)." default:"today"`
}

func (c *AddCmd) Run(ctx *cli.Context) error {
	date, category, err := target(ctx, c.Date, c.Category)
	if err != nil {
		return err
	}

	entry, err := ctx.Manager.AddEntry(ctx.Ctx, date, category, strings.Join(c.Text, " "))
	if err != nil {
		return err
	}

	fmt.Printf("✓ Added to %s on %s [%s]\n", category, date, shortID(entry.ID))
	warnIfNearQuota(ctx)
	return nil
}

type RemoveCmd struct {
	Category string `arg:"" help:"Category of the entry."`
	ID       string `arg:"" help:"Entry id or unique id prefix."`
	Date     string `help:"Date of the entry." default:"today"`
}

func (c *RemoveCmd) Run(ctx *cli.Context) error {
	date, category, err := target(ctx, c.Date, c.Category)
	if err != nil {
		return err
	}
	entry, err := findEntry(ctx.Manager.Day(date), category, c.ID)
	if err != nil {
		return err
	}

	if err := ctx.Manager.RemoveEntry(ctx.Ctx, date, category, entry.ID); err != nil {
		return err
	}
	fmt.Printf("✓ Removed %q\n", entry.Text)
	return nil
}

type ClearCmd struct {
	Category string `arg:"" help:"Category to clear."`
	Date     string `help:"Date to clear." default:"today"`
	Yes      bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *ClearCmd) Run(ctx *cli.Context) error {
	date, category, err := target(ctx, c.Date, c.Category)
	if err != nil {
		return err
	}

	count := len(ctx.Manager.Day(date).Entries(category))
	if count == 0 {
		fmt.Printf("Nothing to clear in %s on %s.\n", category, date)
		return nil
	}

	ok, err := cli.Confirm(
		fmt.Sprintf("Clear %d %s entries on %s?", count, category, date),
		"Cleared entries are not archived.",
		c.Yes,
	)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Clear cancelled.")
		return nil
	}

	if err := ctx.Manager.ClearCategory(ctx.Ctx, date, category); err != nil {
		return err
	}
	fmt.Printf("✓ Cleared %d entries from %s on %s\n", count, category, date)
	return nil
}

type CheckCmd struct {
	Category string `arg:"" help:"Category of the entry."`
	ID       string `arg:"" help:"Entry id or unique id prefix."`
	Date     string `help:"Date of the entry." default:"today"`
}

func (c *CheckCmd) Run(ctx *cli.Context) error {
	date, category, err := target(ctx, c.Date, c.Category)
	if err != nil {
		return err
	}
	entry, err := findEntry(ctx.Manager.Day(date), category, c.ID)
	if err != nil {
		return err
	}

	updated, err := ctx.Manager.ToggleEntryCheck(ctx.Ctx, date, category, entry.ID)
	if err != nil {
		return err
	}
	if updated.Checked {
		fmt.Printf("✓ Checked off %q at %s\n", updated.Text, updated.CompletedTime)
	} else {
		fmt.Printf("↺ Unchecked %q\n", updated.Text)
	}
	return nil
}

type EditCmd struct {
	Category string   `arg:"" help:"Category of the entry."`
	ID       string   `arg:"" help:"Entry id or unique id prefix."`
	Text     []string `arg:"" help:"Replacement text."`
	Date     string   `help:"Date of the entry." default:"today"`
}

func (c *EditCmd) Run(ctx *cli.Context) error {
	date, category, err := target(ctx, c.Date, c.Category)
	if err != nil {
		return err
	}
	entry, err := findEntry(ctx.Manager.Day(date), category, c.ID)
	if err != nil {
		return err
	}

	updated, err := ctx.Manager.UpdateEntryText(ctx.Ctx, date, category, entry.ID, strings.Join(c.Text, " "))
	if err != nil {
		return err
	}
	fmt.Printf("✓ Updated [%s] %q\n", shortID(updated.ID), updated.Text)
	return nil
}

func target(ctx *cli.Context, dateInput, categoryInput string) (string, models.Category, error) {
	date, err := ctx.ResolveDate(dateInput)
	if err != nil {
		return "", "", err
	}
	category, err := cli.ParseCategory(categoryInput)
	if err != nil {
		return "", "", err
	}
	return date, category, nil
}

// findEntry resolves ref as a full id or an unambiguous id prefix.
func findEntry(day models.DayRecord, category models.Category, ref string) (models.Entry, error) {
	ref = strings.TrimSpace(ref)
	var matches []models.Entry
	for _, e := range day.Entries(category) {
		if string(e.ID) == ref {
			return e, nil
		}
		if ref != "" && strings.HasPrefix(string(e.ID), ref) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return models.Entry{}, fmt.Errorf("%w: no %s entry with id %q", apperrors.ErrNotFound, category, ref)
	case 1:
		return matches[0], nil
	default:
		return models.Entry{}, fmt.Errorf("id %q is ambiguous: it matches %d entries", ref, len(matches))
	}
}

func findSubEntry(entry models.Entry, ref string) (models.SubEntry, error) {
	ref = strings.TrimSpace(ref)
	var matches []models.SubEntry
	for _, s := range entry.SubEntries {
		if string(s.ID) == ref {
			return s, nil
		}
		if ref != "" && strings.HasPrefix(string(s.ID), ref) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return models.SubEntry{}, fmt.Errorf("%w: no sub-entry with id %q under %q", apperrors.ErrNotFound, ref, entry.Text)
	case 1:
		return matches[0], nil
	default:
		return models.SubEntry{}, fmt.Errorf("id %q is ambiguous: it matches %d sub-entries", ref, len(matches))
	}
}

func shortID(id models.ID) string {
	s := string(id)
	if len(s) > shortIDLen {
		return s[:shortIDLen]
	}
	return s
}

func warnIfNearQuota(ctx *cli.Context) {
	info := ctx.CheckQuota()
	if info.ShowWarning {
		fmt.Printf("⚠️  Storage is %.0f%% full. Run 'driftlog optimize' or 'driftlog archive' to free space.\n", info.Percentage)
	}
}
