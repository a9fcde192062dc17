package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/julianstephens/driftlog/internal/constants"
	apperrors "github.com/julianstephens/driftlog/internal/errors"
	"github.com/julianstephens/driftlog/internal/logger"
	"github.com/julianstephens/driftlog/internal/migration"
	"github.com/julianstephens/driftlog/internal/models"
	"github.com/julianstephens/driftlog/internal/storage"
	"github.com/julianstephens/driftlog/migrations"
)

// commitLogRetention bounds the commit_log table so bookkeeping does not eat
// into the capacity it reports on.
const commitLogRetention = 100

type Store struct {
	path     string
	capacity int64
	db       *sql.DB
}

type Option func(*Store)

// WithCapacity caps the database at roughly bytes. The engine enforces it
// through max_page_count and Commit rejects any single document larger
// than it.
func WithCapacity(bytes int64) Option {
	return func(s *Store) {
		s.capacity = bytes
	}
}

func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path: path,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Init(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	// Create config directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: failed to create config directory: %w", apperrors.ErrStoreUnavailable, err)
	}

	dsn := "file:" + s.path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("%w: failed to open database: %w", apperrors.ErrStoreUnavailable, err)
	}
	// One connection keeps per-connection pragmas such as max_page_count in force.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("%w: failed to open database: %w", apperrors.ErrStoreUnavailable, err)
	}
	s.db = db

	if err := s.runMigrations(ctx); err != nil {
		s.Close()
		return fmt.Errorf("%w: failed to run migrations: %w", apperrors.ErrStoreUnavailable, err)
	}

	if s.capacity > 0 {
		if err := s.applyCapacity(ctx); err != nil {
			s.Close()
			return fmt.Errorf("%w: failed to apply capacity: %w", apperrors.ErrStoreUnavailable, err)
		}
	}

	return nil
}

func (s *Store) applyCapacity(ctx context.Context) error {
	pageSize, err := s.pragmaInt(ctx, "page_size")
	if err != nil {
		return err
	}
	maxPages := s.capacity / pageSize
	if maxPages < 1 {
		maxPages = 1
	}
	// SQLite clamps the value to the current page count when it is lower.
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA max_page_count = %d", maxPages)); err != nil {
		return err
	}
	logger.Debug("Applied database capacity", "capacity", s.capacity, "max_pages", maxPages)
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (models.EntryStore, error) {
	if s.db == nil {
		return nil, fmt.Errorf("storage not initialized, run 'driftlog init' first")
	}

	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE key = ?", constants.DocumentKey,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EntryStore{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	doc, err := models.ParseDocument([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("stored document is corrupt: %w", err)
	}
	return doc, nil
}

func (s *Store) Commit(ctx context.Context, doc models.EntryStore) error {
	if s.db == nil {
		return fmt.Errorf("storage not initialized, run 'driftlog init' first")
	}

	data, err := models.EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if s.capacity > 0 && int64(len(data)) > s.capacity {
		return fmt.Errorf("%w: document is %d bytes, capacity is %d", apperrors.ErrQuotaExceeded, len(data), s.capacity)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, constants.DocumentKey, string(data), now); err != nil {
		return classify(err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO commit_log (key, size_bytes, committed_at) VALUES (?, ?, ?)",
		constants.DocumentKey, len(data), now,
	); err != nil {
		return classify(err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM commit_log WHERE id <= (SELECT MAX(id) FROM commit_log) - ?",
		commitLogRetention,
	); err != nil {
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps capacity failures onto ErrQuotaExceeded and leaves every
// other error as a plain write failure.
func classify(err error) error {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_FULL {
		return fmt.Errorf("%w: %w", apperrors.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("failed to commit document: %w", err)
}

// History returns the most recent commits, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]storage.CommitRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("storage not initialized, run 'driftlog init' first")
	}
	if limit <= 0 {
		limit = commitLogRetention
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT size_bytes, committed_at FROM commit_log WHERE key = ? ORDER BY id DESC LIMIT ?",
		constants.DocumentKey, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []storage.CommitRecord
	for rows.Next() {
		var (
			rec       storage.CommitRecord
			committed string
		)
		if err := rows.Scan(&rec.SizeBytes, &committed); err != nil {
			return nil, err
		}
		rec.CommittedAt, err = time.Parse(time.RFC3339Nano, committed)
		if err != nil {
			return nil, fmt.Errorf("invalid commit timestamp %q: %w", committed, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Usage reports the database size in bytes and the configured capacity
// (zero when none is set).
func (s *Store) Usage(ctx context.Context) (int64, int64, error) {
	if s.db == nil {
		return 0, 0, fmt.Errorf("storage not initialized, run 'driftlog init' first")
	}
	pages, err := s.pragmaInt(ctx, "page_count")
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := s.pragmaInt(ctx, "page_size")
	if err != nil {
		return 0, 0, err
	}
	return pages * pageSize, s.capacity, nil
}

// Persist asks the engine to fully sync every commit.
func (s *Store) Persist(ctx context.Context) (bool, error) {
	if s.db == nil {
		return false, fmt.Errorf("storage not initialized, run 'driftlog init' first")
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA synchronous = FULL"); err != nil {
		return false, err
	}
	return true, nil
}

// SchemaStatus returns the current and latest schema versions.
func (s *Store) SchemaStatus(ctx context.Context) (int, int, error) {
	if s.db == nil {
		return 0, 0, fmt.Errorf("storage not initialized, run 'driftlog init' first")
	}
	runner, err := s.runner()
	if err != nil {
		return 0, 0, err
	}
	current, err := runner.GetCurrentVersion(ctx)
	if err != nil {
		return 0, 0, err
	}
	latest, err := runner.GetLatestVersion()
	if err != nil {
		return 0, 0, err
	}
	return current, latest, nil
}

func (s *Store) pragmaInt(ctx context.Context, name string) (int64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA "+name).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return v, nil
}

// tableExists checks if a table exists in the SQLite database.
// The check is case-insensitive to match SQLite's behavior.
func (s *Store) tableExists(ctx context.Context, tableName string) (bool, error) {
	var count int
	row := s.db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name COLLATE NOCASE = ?", tableName)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) runner() (*migration.Runner, error) {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS, migration.DriverSQLite), nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	_, err := s.Migrate(ctx, func(msg string) {
		logger.Info(msg)
	})
	return err
}

// Migrate applies pending schema migrations and returns how many ran.
func (s *Store) Migrate(ctx context.Context, logFn func(string)) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("storage not initialized, run 'driftlog init' first")
	}
	runner, err := s.runner()
	if err != nil {
		return 0, err
	}
	return runner.ApplyMigrations(ctx, logFn)
}

func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying database connection, or nil before Init.
func (s *Store) DB() *sql.DB {
	return s.db
}
