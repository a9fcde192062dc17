package system

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/driftlog/internal/cli"
	"github.com/julianstephens/driftlog/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	// Perform automatic backup on TUI startup
	ctx.PerformAutomaticBackup()

	p := tea.NewProgram(tui.NewModel(ctx.Ctx, ctx.Manager, ctx.Monitor, ctx.Clock), tea.WithAltScreen(), tea.WithContext(ctx.Ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
