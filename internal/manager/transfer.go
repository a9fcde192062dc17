package manager

import (
	"bytes"
	"context"
	"time"

	"github.com/julianstephens/driftlog/internal/constants"
	"github.com/julianstephens/driftlog/internal/logger"
	"github.com/julianstephens/driftlog/internal/models"
)

// ExportData wraps a copy of the committed store for export. It never writes.
func (m *Manager) ExportData() models.ExportEnvelope {
	return models.ExportEnvelope{
		ExportedAt: m.clock().UTC().Format(constants.ExportTimeFormat),
		Data:       m.Entries(),
	}
}

// ImportData replaces the whole store with payload, which may be a raw store
// or any envelope carrying one under "data". It reports false, and changes
// nothing, when the payload cannot be parsed or committed.
func (m *Manager) ImportData(ctx context.Context, payload []byte) bool {
	doc, err := models.ParseDocument(payload)
	if err != nil {
		logger.Warn("Import rejected", "error", err)
		return false
	}

	err = m.mutate(ctx, "import", func(_ models.EntryStore, _ time.Time) (models.EntryStore, bool, error) {
		return doc, true, nil
	})
	if err != nil {
		logger.Warn("Import failed", "error", err)
		return false
	}

	logger.Info("Import complete", "dates", len(doc), "entries", doc.EntryCount())
	return true
}

// MergeArchiveWithCurrent adds the archive's dates that the active store
// does not have. On overlapping dates the active record wins whole. It
// returns how many dates were added; nothing is committed when none were.
func (m *Manager) MergeArchiveWithCurrent(ctx context.Context, archive models.EntryStore) (int, error) {
	incoming := models.Normalize(archive)

	added := 0
	err := m.mutate(ctx, "merge_archive", func(doc models.EntryStore, _ time.Time) (models.EntryStore, bool, error) {
		added = 0
		for date, day := range incoming {
			if _, exists := doc[date]; exists {
				continue
			}
			doc[date] = day
			added++
		}
		return doc, added > 0, nil
	})
	if err != nil {
		return 0, err
	}

	if skipped := len(incoming) - added; skipped > 0 {
		logger.Info("Merge kept active records for overlapping dates", "skipped", skipped)
	}
	return added, nil
}

// ArchiveEntries removes the selected dates from the store and returns them
// as an archive envelope. The envelope carries the committed records for
// those dates, so a selection computed from an older snapshot cannot
// resurrect stale data.
func (m *Manager) ArchiveEntries(ctx context.Context, selection models.EntryStore) (models.ArchiveEnvelope, error) {
	var env models.ArchiveEnvelope
	err := m.mutate(ctx, "archive", func(doc models.EntryStore, now time.Time) (models.EntryStore, bool, error) {
		archived := models.EntryStore{}
		for date := range selection {
			if day, ok := doc[date]; ok {
				archived[date] = day
				delete(doc, date)
			}
		}
		env = models.ArchiveEnvelope{
			ExportedAt:    now.UTC().Format(constants.ExportTimeFormat),
			Data:          archived,
			ArchivedCount: archived.EntryCount(),
		}
		return doc, len(archived) > 0, nil
	})
	if err != nil {
		return models.ArchiveEnvelope{}, err
	}

	logger.Info("Archived entries", "dates", len(env.Data), "entries", env.ArchivedCount)
	return env, nil
}

// ApplyCompaction runs fn against a snapshot under the writer and commits
// whatever it returns, unless the result is identical to the snapshot.
func (m *Manager) ApplyCompaction(ctx context.Context, fn func(models.EntryStore) models.EntryStore) error {
	return m.mutate(ctx, "compaction", func(doc models.EntryStore, _ time.Time) (models.EntryStore, bool, error) {
		before, err := models.EncodeDocument(doc)
		if err != nil {
			return doc, false, err
		}
		next := fn(doc)
		after, err := models.EncodeDocument(next)
		if err != nil {
			return doc, false, err
		}
		return next, !bytes.Equal(before, after), nil
	})
}
