package entries

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/driftlog/internal/cli"
	"github.com/julianstephens/driftlog/internal/models"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	categoryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
)

type DayCmd struct {
	Date string `arg:"" optional:"" help:"Date to show (YYYY-MM-DD, today, yesterday)." default:"today"`
	JSON bool   `help:"Print the day record as JSON."`
	All  bool   `help:"Show empty categories too."`
}

func (c *DayCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ResolveDate(c.Date)
	if err != nil {
		return err
	}
	day := ctx.Manager.Day(date)

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(day)
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("📅 %s", date)))
	if day.IsEmpty() && !c.All {
		fmt.Println(mutedStyle.Render("No entries."))
		return nil
	}

	for _, category := range models.Categories {
		list := day.Entries(category)
		if len(list) == 0 && !c.All {
			continue
		}
		fmt.Println()
		fmt.Println(categoryStyle.Render(fmt.Sprintf("%s (%d)", displayName(category), len(list))))
		for _, e := range list {
			fmt.Println("  " + renderLine(e.Checked, e.ID, e.Timestamp, e.Text, e.CompletedTime))
			for _, s := range e.SubEntries {
				fmt.Println("      " + renderLine(s.Checked, s.ID, s.Timestamp, s.Text, s.CompletedTime))
			}
		}
	}
	return nil
}

type DatesCmd struct {
	Limit int `help:"Show at most this many dates (0 for all)." default:"0"`
}

func (c *DatesCmd) Run(ctx *cli.Context) error {
	dates := ctx.Manager.Dates()
	if len(dates) == 0 {
		fmt.Println("No entries yet. Add one with 'driftlog add <category> <text>'.")
		return nil
	}
	if c.Limit > 0 && len(dates) > c.Limit {
		dates = dates[:c.Limit]
	}

	for _, date := range dates {
		day := ctx.Manager.Day(date)
		total, done := 0, 0
		for _, category := range models.Categories {
			for _, e := range day.Entries(category) {
				total++
				if e.Checked {
					done++
				}
			}
		}
		fmt.Printf("  %s  %3d entries  %s\n", date, total, mutedStyle.Render(fmt.Sprintf("(%d done)", done)))
	}
	return nil
}

func renderLine(checked bool, id models.ID, stamp, text, completed string) string {
	box := "[ ]"
	body := text
	if checked {
		box = "[x]"
		body = doneStyle.Render(text)
	}
	line := fmt.Sprintf("%s %s  %s  %s", box, mutedStyle.Render(shortID(id)), mutedStyle.Render(stamp), body)
	if checked && completed != "" {
		line += mutedStyle.Render(fmt.Sprintf("  (done %s)", completed))
	}
	return line
}

func displayName(c models.Category) string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
