package archives

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"

	"github.com/julianstephens/driftlog/internal/cli"
	"github.com/julianstephens/driftlog/internal/constants"
	"github.com/julianstephens/driftlog/internal/models"
	"github.com/julianstephens/driftlog/internal/quota"
)

type ArchiveCreateCmd struct {
	Days   int  `help:"Archive dates older than this many days (1-365). Defaults to archive.days from the config."`
	Pick   bool `help:"Choose the age window from a list of presets."`
	DryRun bool `help:"Show what would be archived without changing anything."`
	Yes    bool `short:"y" help:"Skip the confirmation prompt."`
}

func (c *ArchiveCreateCmd) Run(ctx *cli.Context) error {
	days := c.Days
	if c.Pick {
		picked, err := pickDays(ctx.Config.Archive.Days)
		if err != nil {
			return err
		}
		days = picked
	}
	if days == 0 {
		days = ctx.Config.Archive.Days
	}
	if clamped := ClampDays(days); clamped != days {
		fmt.Printf("⚠️  Archive window must be %d-%d days, using %d\n", constants.MinArchiveDays, constants.MaxArchiveDays, clamped)
		days = clamped
	}

	part := ctx.Monitor.GetArchivableEntries(ctx.Manager.Snapshot(), days)
	if len(part.ToArchive) == 0 {
		fmt.Printf("Nothing older than %d days to archive.\n", days)
		return nil
	}

	printPreview(part.ToArchive, days)
	if c.DryRun {
		fmt.Println("\n💡 This was a dry run. Run without --dry-run to archive these dates.")
		return nil
	}

	ok, err := cli.Confirm(
		fmt.Sprintf("Archive %d dates older than %d days?", len(part.ToArchive), days),
		"Archived dates are written to a bundle and can be restored with 'driftlog merge'.",
		c.Yes,
	)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Archive cancelled.")
		return nil
	}

	bundler, err := ctx.Bundler()
	if err != nil {
		return err
	}
	ctx.PerformAutomaticBackup()

	env, err := ctx.Manager.ArchiveEntries(ctx.Ctx, part.ToArchive)
	if err != nil {
		return fmt.Errorf("archive failed: %w", err)
	}
	if len(env.Data) == 0 {
		fmt.Println("Nothing left to archive.")
		return nil
	}

	locations, err := bundler.Write(ctx.Ctx, env)
	if err != nil {
		// Put the dates back so a failed write loses nothing.
		if _, mergeErr := ctx.Manager.MergeArchiveWithCurrent(ctx.Ctx, env.Data); mergeErr != nil {
			return fmt.Errorf("%w; restoring the archived dates also failed: %v", err, mergeErr)
		}
		return fmt.Errorf("%w (archived dates were restored)", err)
	}

	fmt.Printf("✓ Archived %d entries from %d dates\n", env.ArchivedCount, len(env.Data))
	for _, loc := range locations {
		fmt.Printf("  → %s\n", loc)
	}
	return nil
}

type ArchiveListCmd struct{}

func (c *ArchiveListCmd) Run(ctx *cli.Context) error {
	sinks, err := ctx.Sinks()
	if err != nil {
		return err
	}

	total := 0
	for _, sink := range sinks {
		bundles, err := sink.List(ctx.Ctx)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			continue
		}
		for _, b := range bundles {
			fmt.Printf("  %s  %8s  %s\n", b.Name, humanize.IBytes(uint64(b.Size)), humanize.Time(b.CreatedAt))
			fmt.Printf("    %s\n", b.Location)
		}
		total += len(bundles)
	}

	if total == 0 {
		fmt.Println("No archive bundles found.")
		fmt.Printf("Archives are stored in: %s\n", ctx.Config.Archive.Dir)
	}
	return nil
}

// ClampDays bounds an archive window to the supported range.
func ClampDays(days int) int {
	return max(constants.MinArchiveDays, min(constants.MaxArchiveDays, days))
}

func printPreview(selection models.EntryStore, days int) {
	dates := selection.Dates()
	fmt.Printf("📦 %d dates older than %d days (%s to %s)\n", len(dates), days, dates[0], dates[len(dates)-1])
	fmt.Printf("   Entries: %d\n", selection.EntryCount())
	fmt.Printf("   Size:    %s\n", quota.FormatBytes(quota.CalculateDataSize(selection)))
}

func pickDays(current int) (int, error) {
	choice := strconv.Itoa(current)
	options := make([]huh.Option[string], 0, len(constants.ArchiveDayPresets))
	for _, d := range constants.ArchiveDayPresets {
		options = append(options, huh.NewOption(fmt.Sprintf("Older than %d days", d), strconv.Itoa(d)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Archive entries older than...").
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return 0, fmt.Errorf("interactive form error: %w", err)
	}
	return strconv.Atoi(choice)
}
