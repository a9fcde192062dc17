// Package manager owns the in-memory mirror of the entry store and is the
// only writer to the persistent store.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	apperrors "github.com/julianstephens/driftlog/internal/errors"
	"github.com/julianstephens/driftlog/internal/logger"
	"github.com/julianstephens/driftlog/internal/models"
	"github.com/julianstephens/driftlog/internal/storage"
	"github.com/julianstephens/driftlog/internal/utils"
)

// ErrEmptyText is returned when an entry or sub-entry would have no text.
var ErrEmptyText = errors.New("entry text cannot be empty")

// Manager serializes every mutation through a single writer. Each mutation
// works on a clone of the last committed document and the mirror is only
// replaced once the commit succeeds.
type Manager struct {
	provider storage.Provider
	clock    utils.Clock
	writer   *semaphore.Weighted

	mu       sync.RWMutex
	mirror   models.EntryStore
	degraded bool
}

type Option func(*Manager)

func WithClock(c utils.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

func New(provider storage.Provider, opts ...Option) *Manager {
	m := &Manager{
		provider: provider,
		clock:    utils.SystemClock,
		writer:   semaphore.NewWeighted(1),
		mirror:   models.EntryStore{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open initializes the provider and loads the committed document. When the
// engine is unavailable the manager falls back to an in-memory store and
// reports Degraded.
func (m *Manager) Open(ctx context.Context) error {
	if err := m.provider.Init(ctx); err != nil {
		if !apperrors.IsStoreUnavailable(err) {
			return err
		}
		logger.Warn("Persistent store unavailable, changes will not survive restart",
			"path", m.provider.Path(),
			"error", err,
		)
		m.provider = storage.NewMemoryStore()
		m.degraded = true
	}

	doc, err := m.provider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load entries: %w", err)
	}

	m.mu.Lock()
	m.mirror = doc
	m.mu.Unlock()

	logger.Debug("Store opened", "path", m.provider.Path(), "dates", len(doc), "degraded", m.degraded)
	return nil
}

func (m *Manager) Close() error {
	return m.provider.Close()
}

// Degraded reports whether the manager is running on the in-memory fallback.
func (m *Manager) Degraded() bool {
	return m.degraded
}

// Provider returns the store the manager commits to.
func (m *Manager) Provider() storage.Provider {
	return m.provider
}

// mutation receives a private clone of the committed document and returns
// the next document and whether anything changed.
type mutation func(doc models.EntryStore, now time.Time) (models.EntryStore, bool, error)

func (m *Manager) mutate(ctx context.Context, op string, fn mutation) error {
	if err := m.writer.Acquire(ctx, 1); err != nil {
		return err
	}
	defer m.writer.Release(1)

	m.mu.RLock()
	base := m.mirror.Clone()
	m.mu.RUnlock()

	next, changed, err := fn(base, m.clock())
	if err != nil || !changed {
		return err
	}

	// The commit runs to completion once started.
	if err := m.provider.Commit(context.WithoutCancel(ctx), next); err != nil {
		logger.Error("Commit failed", "op", op, "error", err)
		return err
	}

	m.mu.Lock()
	m.mirror = next
	m.mu.Unlock()

	logger.Debug("Committed", "op", op, "dates", len(next))
	return nil
}

// Entries returns a deep copy of the committed store.
func (m *Manager) Entries() models.EntryStore {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mirror.Clone()
}

// Snapshot is a read-only copy for the quota monitor and archival engine.
func (m *Manager) Snapshot() models.EntryStore {
	return m.Entries()
}

// Day returns a copy of one date's record; an unknown date reads as empty.
func (m *Manager) Day(date string) models.DayRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if day, ok := m.mirror[date]; ok {
		return day.Clone()
	}
	return models.NewDayRecord()
}

// Dates returns every date key, newest first.
func (m *Manager) Dates() []string {
	m.mu.RLock()
	dates := m.mirror.Dates()
	m.mu.RUnlock()

	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

func validateTarget(date string, category models.Category) error {
	if err := utils.ValidateDate(date); err != nil {
		return err
	}
	if !category.Valid() {
		return fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
	}
	return nil
}

func cleanText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

func notFound(what, date string, category models.Category, id models.ID) error {
	return fmt.Errorf("%w: %s %s in %s on %s", apperrors.ErrNotFound, what, id, category, date)
}
