package optimize

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/driftlog/internal/archive"
	"github.com/julianstephens/driftlog/internal/cli"
	"github.com/julianstephens/driftlog/internal/optimizer"
	"github.com/julianstephens/driftlog/internal/quota"
)

type OptimizeCmd struct {
	DryRun      bool   `help:"Show optimization suggestions without applying them (report mode)." default:"false"`
	Interactive bool   `help:"Interactively review and apply optimizations." default:"false"`
	AutoApply   bool   `help:"Automatically apply all optimizations without confirmation." default:"false"`
	Action      string `help:"Apply one action now, whatever the usage." enum:",cleanOldEntries,compressEntries,emergencyCleanup" default:""`
}

func (c *OptimizeCmd) Run(ctx *cli.Context) error {
	if c.Action != "" {
		err := applyStep(ctx, archive.Action(c.Action))
		printLog(ctx)
		return err
	}

	info := ctx.CheckQuota()
	steps := optimizer.GetOptimizationSteps(info.Percentage)
	if len(steps) == 0 {
		fmt.Printf("✅ Storage is at %.1f%%. No optimizations needed.\n", info.Percentage)
		return nil
	}

	fmt.Printf("Storage is at %.1f%% (%s of %s)\n", info.Percentage, quota.FormatBytes(info.Usage), quota.FormatBytes(info.Quota))
	fmt.Printf("\n📊 Found %d optimization suggestion(s):\n\n", len(steps))
	for i, step := range steps {
		displayStep(i+1, step)
	}

	// Dry run mode - just show suggestions
	if c.DryRun {
		fmt.Println("\n💡 This was a dry run. Use --interactive to apply optimizations.")
		return nil
	}

	if c.AutoApply {
		fmt.Println("\n🚀 Applying all optimizations...")
		applied := 0
		for _, step := range steps {
			if err := applyStep(ctx, step.Action); err != nil {
				fmt.Printf("  ❌ Failed to apply %s: %v\n", step.Action, err)
			} else {
				applied++
			}
		}
		fmt.Printf("\n✨ Successfully applied %d/%d optimizations.\n", applied, len(steps))
		printLog(ctx)
		printUsage(ctx)
		return nil
	}

	if c.Interactive {
		return c.runInteractive(ctx, steps)
	}

	fmt.Println("\n💡 To apply these optimizations:")
	fmt.Println("  - Use --interactive to review and select which to apply")
	fmt.Println("  - Use --auto-apply to apply all automatically")
	fmt.Println("  - Use --dry-run to just see the suggestions (current mode)")
	return nil
}

func (c *OptimizeCmd) runInteractive(ctx *cli.Context, steps []optimizer.Step) error {
	fmt.Println("\n🎯 Interactive optimization mode")
	fmt.Println("Review each suggestion and choose whether to apply it.")

	applied := 0
	skipped := 0

loop:
	for i, step := range steps {
		fmt.Printf("\n[%d/%d] ", i+1, len(steps))
		displayStep(0, step)

		var choice string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Apply this optimization?").
					Options(
						huh.NewOption("Apply", "apply"),
						huh.NewOption("Skip", "skip"),
						huh.NewOption("Skip remaining", "skip_all"),
					).
					Value(&choice),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive form error: %w", err)
		}

		switch choice {
		case "apply":
			if err := applyStep(ctx, step.Action); err != nil {
				fmt.Printf("  ❌ Failed to apply: %v\n", err)
			} else {
				applied++
			}
		case "skip":
			fmt.Println("  ⏭️  Skipped")
			skipped++
		case "skip_all":
			fmt.Println("  ⏭️  Skipping all remaining optimizations")
			skipped += len(steps) - i
			break loop
		}
	}

	fmt.Printf("\n✨ Completed: %d applied, %d skipped\n", applied, skipped)
	printLog(ctx)
	printUsage(ctx)
	return nil
}

func applyStep(ctx *cli.Context, action archive.Action) error {
	if action == archive.ActionEmergencyCleanup {
		ctx.PerformAutomaticBackup()
	}

	res, err := optimizer.Apply(ctx.Ctx, ctx.Manager, ctx.Engine, action)
	if err != nil {
		return err
	}

	if res.RemovedDays == 0 && res.RemovedCount == 0 {
		fmt.Printf("  ✅ %s: nothing to remove\n", action)
		return nil
	}
	fmt.Printf("  ✅ %s: removed %d entries across %d days, saved %s\n",
		action, res.RemovedCount, res.RemovedDays, quota.FormatBytes(res.SavedBytes))
	return nil
}

func displayStep(num int, step optimizer.Step) {
	prefix := ""
	if num > 0 {
		prefix = fmt.Sprintf("%d. ", num)
	}

	var icon string
	switch step.Priority {
	case optimizer.PriorityCritical:
		icon = criticalStyle.Render("🔴 " + string(step.Priority))
	case optimizer.PriorityHigh:
		icon = warningStyle.Render("🟠 " + string(step.Priority))
	default:
		icon = normalStyle.Render("🟡 " + string(step.Priority))
	}

	fmt.Printf("%s%s  %s\n", prefix, icon, step.Message)
	fmt.Printf("   Action: %s\n", step.Action)
}

// printLog lists the compactions applied during this run.
func printLog(ctx *cli.Context) {
	log := ctx.Engine.Log()
	if len(log) == 0 {
		return
	}
	fmt.Println("\nOptimization log:")
	for _, rec := range log {
		status := "✓"
		if !rec.Success {
			status = criticalStyle.Render("✗")
		}
		fmt.Printf("  %s %s %s, saved %s\n", rec.Timestamp.Format("15:04:05"), status, rec.Action, quota.FormatBytes(rec.SavedBytes))
	}
}

func printUsage(ctx *cli.Context) {
	info := ctx.CheckQuota()
	fmt.Printf("\nStorage now at %.1f%%\n", info.Percentage)
	fmt.Println(RenderBar(info))
}
