package transfers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/julianstephens/driftlog/internal/archive"
	"github.com/julianstephens/driftlog/internal/cli"
	"github.com/julianstephens/driftlog/internal/models"
)

// ErrImportRejected is returned when an import payload could not be applied.
var ErrImportRejected = errors.New("import failed: not a valid driftlog export (see the log for details)")

type ExportCmd struct {
	Output string `short:"o" help:"Write the export to this file instead of stdout." type:"path"`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	env := ctx.Manager.ExportData()
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	data = append(data, '\n')

	if c.Output == "" || c.Output == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.Output), 0700); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(c.Output, data, 0600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Printf("✓ Exported %d entries across %d dates to %s\n", env.Data.EntryCount(), len(env.Data), c.Output)
	return nil
}

type ImportCmd struct {
	File string `arg:"" help:"Export file to import, or - for stdin."`
	Yes  bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	data, err := readInput(c.File)
	if err != nil {
		return err
	}

	current := ctx.Manager.Snapshot()
	ok, err := cli.Confirm(
		"Replace all current entries with the import?",
		fmt.Sprintf("%d entries across %d dates will be replaced. A backup is taken first.", current.EntryCount(), len(current)),
		c.Yes,
	)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Import cancelled.")
		return nil
	}

	ctx.PerformAutomaticBackup()

	if !ctx.Manager.ImportData(ctx.Ctx, data) {
		return ErrImportRejected
	}

	imported := ctx.Manager.Snapshot()
	fmt.Printf("✓ Imported %d entries across %d dates\n", imported.EntryCount(), len(imported))
	return nil
}

type MergeCmd struct {
	Source string `arg:"" help:"Archive bundle path, or the name of a bundle in a configured archive sink."`
}

func (c *MergeCmd) Run(ctx *cli.Context) error {
	archived, err := c.load(ctx)
	if err != nil {
		return err
	}

	added, err := ctx.Manager.MergeArchiveWithCurrent(ctx.Ctx, archived)
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	fmt.Printf("✓ Restored %d dates from the archive\n", added)
	if kept := len(archived) - added; kept > 0 {
		fmt.Printf("  %d dates already had entries and were left unchanged\n", kept)
	}
	return nil
}

func (c *MergeCmd) load(ctx *cli.Context) (models.EntryStore, error) {
	if _, err := os.Stat(c.Source); err == nil {
		return archive.ReadBundle(c.Source)
	}
	if !archive.IsBundleName(c.Source) {
		return nil, fmt.Errorf("archive not found: %s", c.Source)
	}

	sinks, err := ctx.Sinks()
	if err != nil {
		return nil, err
	}
	var lastErr error
	for _, sink := range sinks {
		data, err := sink.Get(ctx.Ctx, c.Source)
		if err != nil {
			lastErr = err
			continue
		}
		return archive.DecodeBundle(data)
	}
	return nil, fmt.Errorf("archive %s not found in any sink: %w", c.Source, lastErr)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	return data, nil
}
