package storage

import (
	"context"
	"time"

	"github.com/julianstephens/driftlog/internal/models"
)

// Provider persists the whole entry store as a single document.
type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error

	// Document
	Load(ctx context.Context) (models.EntryStore, error)
	// Commit atomically replaces the stored document. A write rejected for
	// capacity wraps errors.ErrQuotaExceeded.
	Commit(ctx context.Context, doc models.EntryStore) error

	// Utils
	Path() string
}

// CommitRecord is one row of a store's commit history.
type CommitRecord struct {
	SizeBytes   int64
	CommittedAt time.Time
}

// HistoryProvider is implemented by stores that keep a commit log.
type HistoryProvider interface {
	History(ctx context.Context, limit int) ([]CommitRecord, error)
}
