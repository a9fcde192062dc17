package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/driftlog/internal/cli"
)

type migrator interface {
	Migrate(ctx context.Context, logFn func(string)) (int, error)
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	if ctx.Manager.Degraded() {
		return fmt.Errorf("database at %s is unavailable", ctx.Store.Path())
	}

	store, ok := ctx.Store.(migrator)
	if !ok {
		return fmt.Errorf("migrate command is not supported for %s", ctx.Store.Path())
	}

	count, err := store.Migrate(ctx.Ctx, func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		fmt.Println("No migrations to apply. Database is up to date.")
	} else {
		fmt.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
