package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/driftlog/internal/cli"
	"github.com/julianstephens/driftlog/internal/cli/archives"
	"github.com/julianstephens/driftlog/internal/cli/backups"
	"github.com/julianstephens/driftlog/internal/cli/entries"
	"github.com/julianstephens/driftlog/internal/cli/optimize"
	"github.com/julianstephens/driftlog/internal/cli/system"
	"github.com/julianstephens/driftlog/internal/cli/transfers"
	"github.com/julianstephens/driftlog/internal/config"
	"github.com/julianstephens/driftlog/internal/constants"
	apperrors "github.com/julianstephens/driftlog/internal/errors"
	"github.com/julianstephens/driftlog/internal/lock"
	"github.com/julianstephens/driftlog/internal/logger"
)

type CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"string" default:"~/.config/driftlog/config.yaml" env:"DRIFTLOG_CONFIG"`
	Debug   bool   `help:"Mirror debug logging to stderr."`

	Init    system.InitCmd    `cmd:"" help:"Initialize driftlog storage."`
	Migrate system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor  system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Tui     system.TuiCmd     `cmd:"" help:"Browse and edit entries interactively."`

	Day   entries.DayCmd    `cmd:"" help:"Show the entries for a day." default:"1"`
	Dates entries.DatesCmd  `cmd:"" help:"List dates that have entries."`
	Add   entries.AddCmd    `cmd:"" help:"Capture a distraction."`
	Rm    entries.RemoveCmd `cmd:"" help:"Remove an entry."`
	Clear entries.ClearCmd  `cmd:"" help:"Remove every entry in a category for a day."`
	Check entries.CheckCmd  `cmd:"" help:"Toggle an entry's checked state."`
	Edit  entries.EditCmd   `cmd:"" help:"Replace an entry's text."`
	Sub   entries.SubCmd    `cmd:"" help:"Manage sub-entries."`

	Export transfers.ExportCmd `cmd:"" help:"Export all entries as JSON."`
	Import transfers.ImportCmd `cmd:"" help:"Replace all entries with an export."`
	Merge  transfers.MergeCmd  `cmd:"" help:"Restore dates from an archive bundle."`

	Archive struct {
		Create archives.ArchiveCreateCmd `cmd:"" help:"Archive entries older than N days." default:"withargs"`
		List   archives.ArchiveListCmd   `cmd:"" help:"List archive bundles."`
	} `cmd:"" help:"Move old entries into archive bundles."`
	Quota    optimize.QuotaCmd    `cmd:"" help:"Show storage usage."`
	Optimize optimize.OptimizeCmd `cmd:"" help:"Suggest and apply storage optimizations."`

	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string, password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check whether the OS keyring is usable."`
	} `cmd:"" help:"Manage database credentials in the OS keyring."`
}

// Commands that never touch the store, and those that only read it.
var (
	storeless = map[string]bool{"keyring": true}
	readOnly  = map[string]bool{"day": true, "dates": true, "export": true, "quota": true}
)

func newParser(c *CLI, opts ...kong.Option) (*kong.Kong, error) {
	opts = append([]kong.Option{
		kong.Name(constants.AppName),
		kong.Description("Capture distractions during focused work and review them later"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	}, opts...)
	return kong.New(c, opts...)
}

func main() {
	var c CLI
	parser, err := newParser(&c)
	if err != nil {
		apperrors.Fatal(err)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := run(kctx, &c); err != nil {
		apperrors.Fatal(err)
	}
}

func run(kctx *kong.Context, c *CLI) error {
	configPath, err := config.ExpandHome(c.Config)
	if err != nil {
		return err
	}
	configDir := filepath.Dir(configPath)

	if err := config.LoadEnv(configDir); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Config{Debug: c.Debug || cfg.Log.Debug, ConfigDir: configDir}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCtx := cli.NewContext(ctx, cfg)
	appCtx.ConfigPath = configPath

	command := strings.Fields(kctx.Command())[0]
	if !storeless[command] {
		if !readOnly[command] {
			l, err := lock.Acquire(cfg.Dir)
			if err != nil {
				return err
			}
			defer l.Release()
		}

		// Init opens the store itself, after an optional reset.
		if command != "init" {
			if err := appCtx.Open(); err != nil {
				return err
			}
		}
		defer appCtx.Close()
	}

	return kctx.Run(appCtx)
}
