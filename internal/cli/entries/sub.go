package entries

import (
	"fmt"
	"strings"

	"github.com/julianstephens/driftlog/internal/cli"
)

type SubCmd struct {
	Add   SubAddCmd    `cmd:"" help:"Add a sub-entry under an entry."`
	Rm    SubRemoveCmd `cmd:"" help:"Remove a sub-entry."`
	Check SubCheckCmd  `cmd:"" help:"Toggle a sub-entry's checked state."`
	Edit  SubEditCmd   `cmd:"" help:"Replace a sub-entry's text."`
}

type SubAddCmd struct {
	Category string   `arg:"" help:"Category of the parent entry."`
	Entry    string   `arg:"" help:"Parent entry id or unique id prefix."`
	Text     []string `arg:"" help:"Text of the sub-entry."`
	Date     string   `help:"Date of the parent entry." default:"today"`
}

func (c *SubAddCmd) Run(ctx *cli.Context) error {
	date, category, err := target(ctx, c.Date, c.Category)
	if err != nil {
		return err
	}
	parent, err := findEntry(ctx.Manager.Day(date), category, c.Entry)
	if err != nil {
		return err
	}

	sub, err := ctx.Manager.AddSubEntry(ctx.Ctx, date, category, parent.ID, strings.Join(c.Text, " "))
	if err != nil {
		return err
	}
	fmt.Printf("✓ Added under %q [%s]\n", parent.Text, shortID(sub.ID))
	warnIfNearQuota(ctx)
	return nil
}

type SubRemoveCmd struct {
	Category string `arg:"" help:"Category of the parent entry."`
	Entry    string `arg:"" help:"Parent entry id or unique id prefix."`
	Sub      string `arg:"" help:"Sub-entry id or unique id prefix."`
	Date     string `help:"Date of the parent entry." default:"today"`
}

func (c *SubRemoveCmd) Run(ctx *cli.Context) error {
	date, category, err := target(ctx, c.Date, c.Category)
	if err != nil {
		return err
	}
	parent, err := findEntry(ctx.Manager.Day(date), category, c.Entry)
	if err != nil {
		return err
	}
	sub, err := findSubEntry(parent, c.Sub)
	if err != nil {
		return err
	}

	if err := ctx.Manager.RemoveSubEntry(ctx.Ctx, date, category, parent.ID, sub.ID); err != nil {
		return err
	}
	fmt.Printf("✓ Removed %q\n", sub.Text)
	return nil
}

type SubCheckCmd struct {
	Category string `arg:"" help:"Category of the parent entry."`
	Entry    string `arg:"" help:"Parent entry id or unique id prefix."`
	Sub      string `arg:"" help:"Sub-entry id or unique id prefix."`
	Date     string `help:"Date of the parent entry." default:"today"`
}

func (c *SubCheckCmd) Run(ctx *cli.Context) error {
	date, category, err := target(ctx, c.Date, c.Category)
	if err != nil {
		return err
	}
	parent, err := findEntry(ctx.Manager.Day(date), category, c.Entry)
	if err != nil {
		return err
	}
	sub, err := findSubEntry(parent, c.Sub)
	if err != nil {
		return err
	}

	updated, err := ctx.Manager.ToggleSubEntryCheck(ctx.Ctx, date, category, parent.ID, sub.ID)
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

type SubEditCmd struct {
	Category string   `arg:"" help:"Category of the parent entry."`
	Entry    string   `arg:"" help:"Parent entry id or unique id prefix."`
	Sub      string   `arg:"" help:"Sub-entry id or unique id prefix."`
	Text     []string `arg:"" help:"Replacement text."`
	Date     string   `help:"Date of the parent entry." default:"today"`
}

func (c *SubEditCmd) Run(ctx *cli.Context) error {
	date, category, err := target(ctx, c.Date, c.Category)
	if err != nil {
		return err
	}
	parent, err := findEntry(ctx.Manager.Day(date), category, c.Entry)
	if err != nil {
		return err
	}
	sub, err := findSubEntry(parent, c.Sub)
	if err != nil {
		return err
	}

	updated, err := ctx.Manager.UpdateSubEntryText(ctx.Ctx, date, category, parent.ID, sub.ID, strings.Join(c.Text, " "))
	if err != nil {
		return err
	}
	fmt.Printf("✓ Updated [%s] %q\n", shortID(updated.ID), updated.Text)
	return nil
}
