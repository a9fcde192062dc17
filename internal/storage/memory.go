package storage

import (
	"context"
	"sync"
	"time"

	"github.com/julianstephens/driftlog/internal/models"
)

// MemoryStore keeps the document in process memory only. It backs the
// manager when the persistent engine cannot be opened, and tests.
type MemoryStore struct {
	mu      sync.Mutex
	doc     models.EntryStore
	history []CommitRecord

	// FailCommit, when set, is returned by Commit instead of storing.
	FailCommit error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{doc: models.EntryStore{}}
}

func (m *MemoryStore) Init(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) Load(ctx context.Context) (models.EntryStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.Normalize(m.doc), nil
}

func (m *MemoryStore) Commit(ctx context.Context, doc models.EntryStore) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCommit != nil {
		return m.FailCommit
	}

	data, err := models.EncodeDocument(doc)
	if err != nil {
		return err
	}
	m.doc = doc.Clone()
	m.history = append(m.history, CommitRecord{
		SizeBytes:   int64(len(data)),
		CommittedAt: time.Now(),
	})
	return nil
}

// Commits reports how many commits have succeeded.
func (m *MemoryStore) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

func (m *MemoryStore) History(ctx context.Context, limit int) ([]CommitRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]CommitRecord, 0, len(m.history))
	for i := len(m.history) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.history[i])
	}
	return out, nil
}

func (m *MemoryStore) Path() string {
	return "memory"
}
