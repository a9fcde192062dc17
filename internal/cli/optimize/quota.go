package optimize

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/driftlog/internal/cli"
	"github.com/julianstephens/driftlog/internal/optimizer"
	"github.com/julianstephens/driftlog/internal/quota"
)

const barWidth = 30

var (
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type quotaReport struct {
	Usage       int64        `json:"usage"`
	Quota       int64        `json:"quota"`
	Percentage  float64      `json:"percentage"`
	ShowWarning bool         `json:"showWarning"`
	Source      quota.Source `json:"source"`
	Level       quota.Level  `json:"level"`
	Persistent  bool         `json:"persistent"`
}

type QuotaCmd struct {
	JSON bool `help:"Print the reading as JSON."`
}

func (c *QuotaCmd) Run(ctx *cli.Context) error {
	info := ctx.CheckQuota()
	persistent := ctx.Monitor.RequestPersistentStorage(ctx.Ctx)

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(quotaReport{
			Usage:       info.Usage,
			Quota:       info.Quota,
			Percentage:  info.Percentage,
			ShowWarning: info.ShowWarning,
			Source:      info.Source,
			Level:       info.Level(),
			Persistent:  persistent,
		})
	}

	fmt.Printf("Storage: %s of %s (%.1f%%)\n", quota.FormatBytes(info.Usage), quota.FormatBytes(info.Quota), info.Percentage)
	fmt.Println(RenderBar(info))
	if info.Source == quota.SourceFallback {
		fmt.Println(mutedStyle.Render("No storage ceiling reported, assuming " + quota.FormatBytes(info.Quota)))
	}
	if !persistent {
		fmt.Println(mutedStyle.Render("Durable storage was not granted"))
	}

	switch {
	case optimizer.ShouldOptimize(info.Percentage):
		fmt.Println("\n💡 Storage is running low. Run 'driftlog optimize' to see suggestions.")
	case info.ShowWarning:
		fmt.Println("\n⚠️  Storage is getting full. Consider 'driftlog archive'.")
	}
	return nil
}

// RenderBar draws the usage bar, coloured by quota level.
func RenderBar(info quota.Info) string {
	filled := int(info.Percentage / 100 * barWidth)
	filled = max(0, min(barWidth, filled))

	style := normalStyle
	switch info.Level() {
	case quota.LevelCritical:
		style = criticalStyle
	case quota.LevelWarning:
		style = warningStyle
	}

	return style.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", barWidth-filled))
}
