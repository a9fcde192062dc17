package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/driftlog/internal/constants"
	apperrors "github.com/julianstephens/driftlog/internal/errors"
	"github.com/julianstephens/driftlog/internal/logger"
	"github.com/julianstephens/driftlog/internal/migration"
	"github.com/julianstephens/driftlog/internal/models"
	"github.com/julianstephens/driftlog/internal/storage"
	"github.com/julianstephens/driftlog/migrations"
)

const commitLogRetention = 100

type Store struct {
	connStr  string
	capacity int64
	db       *sql.DB
}

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
)

type Option func(*Store)

// WithCapacity rejects any document larger than bytes and reports bytes as
// the ceiling to the quota monitor.
func WithCapacity(bytes int64) Option {
	return func(s *Store) {
		s.capacity = bytes
	}
}

func New(connStr string, opts ...Option) *Store {
	s := &Store{
		connStr: connStr,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ensureSearchPath()
	return s
}

// IsConnString reports whether a database setting names a PostgreSQL server
// rather than a SQLite file.
func IsConnString(s string) bool {
	return strings.HasPrefix(s, "postgres://") ||
		strings.HasPrefix(s, "postgresql://") ||
		strings.Contains(s, "host=")
}

func (s *Store) ensureSearchPath() {
	if strings.HasPrefix(s.connStr, "postgres://") || strings.HasPrefix(s.connStr, "postgresql://") {
		u, err := url.Parse(s.connStr)
		if err != nil {
			logger.Warn("Failed to parse Postgres connection string", "error", err)
			return
		}
		q := u.Query()
		if q.Get("search_path") == "" {
			q.Set("search_path", constants.AppName)
			u.RawQuery = q.Encode()
			s.connStr = u.String()
		}
		return
	}
	if !hasSearchPathParam(s.connStr) {
		s.connStr = strings.TrimSpace(s.connStr) + " search_path=" + constants.AppName
	}
}

// hasSearchPathParam returns true if the given DSN-style connection string
// contains a search_path parameter key (case-insensitive).
func hasSearchPathParam(connStr string) bool {
	return hasDSNKey(connStr, "search_path")
}

// hasSSLMode checks if the connection string contains an sslmode parameter
// key (case-insensitive), in either URL or DSN form.
func hasSSLMode(connStr string) bool {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" {
		for key := range u.Query() {
			if strings.EqualFold(key, "sslmode") {
				return true
			}
		}
	}
	return hasDSNKey(connStr, "sslmode")
}

func hasDSNKey(connStr, key string) bool {
	for _, part := range strings.Fields(connStr) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		if strings.EqualFold(kv[0], key) {
			return true
		}
	}
	return false
}

// ValidateConnString checks if a connection string is a valid
// PostgreSQL connection string (URI or DSN) and ensures it does not
// contain a password.
func ValidateConnString(connStr string) (bool, error) {
	if strings.TrimSpace(connStr) == "" {
		return false, fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}

	if _, err := pq.NewConnector(connStr); err != nil {
		return false, fmt.Errorf("%w: invalid connection string format: %v", ErrInvalidConnectionString, err)
	}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		parsedURL, err := url.Parse(connStr)
		if err != nil {
			return false, fmt.Errorf("%w: failed to parse connection URL: %v", ErrInvalidConnectionString, err)
		}
		if _, isSet := parsedURL.User.Password(); isSet {
			return false, ErrEmbeddedCredentials
		}
		if parsedURL.Host == "" && parsedURL.User == nil && (parsedURL.Path == "" || parsedURL.Path == "/") {
			return false, fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
		}
		return true, nil
	}

	if hasDSNKey(connStr, "password") {
		return false, ErrEmbeddedCredentials
	}
	return true, nil
}

func (s *Store) Init(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("%w: failed to open database: %w", apperrors.ErrStoreUnavailable, err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasSSLMode(s.connStr) {
			return fmt.Errorf("%w: failed to connect to database: %w (hint: try adding ?sslmode=disable to your connection string)", apperrors.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("%w: failed to connect to database: %w", apperrors.ErrStoreUnavailable, err)
	}

	// schema_version lands in the search_path schema, so it must exist first
	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+constants.AppName); err != nil {
		db.Close()
		return fmt.Errorf("%w: failed to create schema: %w", apperrors.ErrStoreUnavailable, err)
	}
	s.db = db

	if err := s.runMigrations(ctx); err != nil {
		s.Close()
		return fmt.Errorf("%w: failed to run migrations: %w", apperrors.ErrStoreUnavailable, err)
	}
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
		"SELECT data::text FROM documents WHERE key = $1", constants.DocumentKey,
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

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (key, data, updated_at) VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, constants.DocumentKey, string(data), now); err != nil {
		return classify(err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO commit_log (key, size_bytes, committed_at) VALUES ($1, $2, $3)",
		constants.DocumentKey, len(data), now,
	); err != nil {
		return classify(err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM commit_log WHERE id <= (SELECT MAX(id) FROM commit_log) - $1",
		commitLogRetention,
	); err != nil {
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

// isCapacityError reports whether a server error belongs to class 53
// (insufficient resources, including disk_full) or is program_limit_exceeded.
func isCapacityError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code.Class() == "53" || pqErr.Code == "54000"
}

func classify(err error) error {
	if isCapacityError(err) {
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
		"SELECT size_bytes, committed_at FROM commit_log WHERE key = $1 ORDER BY id DESC LIMIT $2",
		constants.DocumentKey, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []storage.CommitRecord
	for rows.Next() {
		var rec storage.CommitRecord
		if err := rows.Scan(&rec.SizeBytes, &rec.CommittedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Usage reports the on-disk size of driftlog's tables and the configured
// capacity (zero when none is set).
func (s *Store) Usage(ctx context.Context) (int64, int64, error) {
	if s.db == nil {
		return 0, 0, fmt.Errorf("storage not initialized, run 'driftlog init' first")
	}
	var used int64
	err := s.db.QueryRowContext(ctx,
		"SELECT pg_total_relation_size('documents') + pg_total_relation_size('commit_log')",
	).Scan(&used)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to measure tables: %w", err)
	}
	return used, s.capacity, nil
}

// Persist reports whether commits are synchronously durable on the server.
func (s *Store) Persist(ctx context.Context) (bool, error) {
	if s.db == nil {
		return false, fmt.Errorf("storage not initialized, run 'driftlog init' first")
	}
	var mode string
	if err := s.db.QueryRowContext(ctx, "SHOW synchronous_commit").Scan(&mode); err != nil {
		return false, err
	}
	return mode != "off", nil
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

func (s *Store) runner() (*migration.Runner, error) {
	subFS, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS, migration.DriverPostgres), nil
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
	// A non-sensitive identifier instead of the connection string
	return "postgresql"
}
