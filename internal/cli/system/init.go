package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/driftlog/internal/cli"
	"github.com/julianstephens/driftlog/internal/storage"
	"github.com/julianstephens/driftlog/internal/storage/postgres"
	"github.com/julianstephens/driftlog/internal/storage/sqlite"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to copy entries from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if ctx.Store == nil {
		store, err := cli.NewProvider(ctx.Config)
		if err != nil {
			return err
		}
		ctx.Store = store
	}

	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Open(); err != nil {
		return err
	}
	if ctx.Manager.Degraded() {
		return fmt.Errorf("failed to initialize storage at %s (see the log for details)", ctx.Store.Path())
	}
	fmt.Printf("Initialized driftlog storage at: %s\n", ctx.Store.Path())

	if ctx.ConfigPath != "" {
		if _, err := os.Stat(ctx.ConfigPath); errors.Is(err, os.ErrNotExist) {
			if err := ctx.Config.Save(ctx.ConfigPath); err != nil {
				return err
			}
			fmt.Printf("Wrote default config to: %s\n", ctx.ConfigPath)
		}
	}

	if ctx.Monitor.RequestPersistentStorage(ctx.Ctx) {
		fmt.Println("✓ Durable storage enabled")
	}

	if c.Source != "" {
		fmt.Printf("Copying entries from: %s\n", c.Source)
		added, err := c.copyFrom(ctx, c.Source)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Printf("Migration completed successfully! %d dates copied.\n", added)
	}

	return nil
}

// reset deletes the SQLite database and its WAL files. A PostgreSQL store
// is never dropped.
func (c *InitCmd) reset(ctx *cli.Context) error {
	store, ok := ctx.Store.(*sqlite.Store)
	if !ok {
		return fmt.Errorf("--force is only supported for the SQLite store")
	}

	dbPath := store.Path()
	if c.Source != "" {
		absDbPath, err := filepath.Abs(dbPath)
		if err == nil {
			dbPath = absDbPath
		}
		absSource, err := filepath.Abs(c.Source)
		if err == nil && absSource == dbPath {
			return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
		}
	}

	if _, err := os.Stat(dbPath); err == nil {
		if err := store.Close(); err != nil {
			return fmt.Errorf("failed to close existing database: %w", err)
		}
		for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
		}
		fmt.Printf("Deleted existing database at: %s\n", dbPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access existing database: %w", err)
	}
	return nil
}

// copyFrom merges every date of the source store into the current one.
// Dates already present are kept.
func (c *InitCmd) copyFrom(ctx *cli.Context, source string) (int, error) {
	var sourceStore storage.Provider
	if postgres.IsConnString(source) {
		if valid, err := postgres.ValidateConnString(source); !valid {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return 0, fmt.Errorf("PostgreSQL source connection string contains embedded credentials. Use environment variables or .pgpass instead")
			}
			return 0, err
		}
		sourceStore = postgres.New(source)
	} else {
		if _, err := os.Stat(source); err != nil {
			return 0, fmt.Errorf("source database not found: %w", err)
		}
		sourceStore = sqlite.NewStore(source)
	}

	if err := sourceStore.Init(ctx.Ctx); err != nil {
		return 0, fmt.Errorf("failed to open source database: %w", err)
	}
	defer sourceStore.Close()

	doc, err := sourceStore.Load(ctx.Ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load source database: %w", err)
	}
	return ctx.Manager.MergeArchiveWithCurrent(ctx.Ctx, doc)
}
