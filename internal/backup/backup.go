// Package backup snapshots the SQLite database file and restores it.
package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/driftlog/internal/constants"
	"github.com/julianstephens/driftlog/internal/logger"
	"github.com/julianstephens/driftlog/internal/utils"
)

const (
	minuteLayout = "20060102-1504"
	secondLayout = "20060102-150405"
)

// ErrNoDatabase is returned when there is no database file to back up.
var ErrNoDatabase = errors.New("database does not exist")

// BackupInfo contains information about a backup file
type BackupInfo struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Manager handles backup operations
type Manager struct {
	dbPath    string
	backupDir string
	clock     utils.Clock
}

type Option func(*Manager)

func WithClock(c utils.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithBackupDir overrides the default <db dir>/backups location.
func WithBackupDir(dir string) Option {
	return func(m *Manager) { m.backupDir = dir }
}

// NewManager creates a backup manager for the database at dbPath
func NewManager(dbPath string, opts ...Option) *Manager {
	m := &Manager{
		dbPath:    dbPath,
		backupDir: filepath.Join(filepath.Dir(dbPath), constants.BackupDirName),
		clock:     utils.SystemClock,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetBackupDir returns the backup directory path
func (m *Manager) GetBackupDir() string {
	return m.backupDir
}

// CreateBackup snapshots the database and rotates old backups.
func (m *Manager) CreateBackup(ctx context.Context) (string, error) {
	return m.createBackup(ctx, false)
}

// skipRotation is set while restoring so the pre-restore snapshot cannot
// rotate away the backup being restored.
func (m *Manager) createBackup(ctx context.Context, skipRotation bool) (string, error) {
	if err := os.MkdirAll(m.backupDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrNoDatabase, m.dbPath)
	}

	backupPath, err := m.nextBackupPath()
	if err != nil {
		return "", err
	}

	if err := m.backupDatabase(ctx, backupPath); err != nil {
		return "", fmt.Errorf("failed to backup database: %w", err)
	}
	logger.Info("Created backup", "path", backupPath)

	if !skipRotation {
		if err := m.rotateBackups(); err != nil {
			logger.Warn("Failed to rotate old backups", "error", err)
		}
	}

	return backupPath, nil
}

// nextBackupPath names a backup by minute, falling back to seconds and then
// a counter when that name is taken.
func (m *Manager) nextBackupPath() (string, error) {
	now := m.clock()
	candidate := func(stamp string, counter int) string {
		name := constants.BackupFilePrefix + stamp
		if counter > 0 {
			name = fmt.Sprintf("%s-%d", name, counter)
		}
		return filepath.Join(m.backupDir, name+constants.BackupFileSuffix)
	}

	path := candidate(now.Format(minuteLayout), 0)
	if !exists(path) {
		return path, nil
	}
	stamp := now.Format(secondLayout)
	for counter := 0; counter <= 100; counter++ {
		path = candidate(stamp, counter)
		if !exists(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique backup filename")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// backupDatabase writes a compacted copy with VACUUM INTO, falling back to a
// file copy if the engine refuses.
func (m *Manager) backupDatabase(ctx context.Context, destPath string) error {
	srcDB, err := sql.Open("sqlite", "file:"+m.dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer srcDB.Close()

	var count int
	if err := srcDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master").Scan(&count); err != nil {
		return fmt.Errorf("source database appears to be corrupted: %w", err)
	}

	if _, err := srcDB.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		logger.Debug("VACUUM INTO failed, copying file instead", "error", err)
		srcDB.Close()
		return copyFile(m.dbPath, destPath)
	}
	return nil
}

// ListBackups returns all backups, newest first
func (m *Manager) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []BackupInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []BackupInfo{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		timestamp, ok := parseBackupName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Path:      filepath.Join(m.backupDir, entry.Name()),
			Timestamp: timestamp,
			Size:      info.Size(),
		})
	}

	sort.SliceStable(backups, func(i, j int) bool {
		if backups[i].Timestamp.Equal(backups[j].Timestamp) {
			return backups[i].Path > backups[j].Path
		}
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// parseBackupName extracts the timestamp from driftlog-YYYYMMDD-HHMM[SS][-N].db.
func parseBackupName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, constants.BackupFilePrefix) || !strings.HasSuffix(name, constants.BackupFileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), constants.BackupFileSuffix)

	// Drop a trailing collision counter.
	parts := strings.Split(stamp, "-")
	if len(parts) == 3 && isDigits(parts[2]) {
		stamp = parts[0] + "-" + parts[1]
	}

	for _, layout := range []string{minuteLayout, secondLayout} {
		if t, err := time.ParseInLocation(layout, stamp, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// rotateBackups removes the oldest backups beyond the retention limit
func (m *Manager) rotateBackups() error {
	backups, err := m.ListBackups()
	if err != nil {
		return err
	}
	for i := constants.MaxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
		logger.Debug("Rotated backup", "path", backups[i].Path)
	}
	return nil
}

// RestoreBackup replaces the database file with backupPath. The current
// database, if any, is snapshotted first. The store must be closed.
func (m *Manager) RestoreBackup(ctx context.Context, backupPath string) error {
	if !exists(backupPath) {
		return fmt.Errorf("backup file does not exist: %s", backupPath)
	}

	if err := verifyBackup(ctx, backupPath); err != nil {
		return fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	if exists(m.dbPath) {
		current, err := m.createBackup(ctx, true)
		if err != nil {
			return fmt.Errorf("failed to backup current database before restore: %w", err)
		}
		logger.Info("Backed up current database before restore", "path", current)
	}

	tempPath := m.dbPath + ".restore.tmp"
	if err := copyFile(backupPath, tempPath); err != nil {
		return fmt.Errorf("failed to copy backup file: %w", err)
	}

	if err := os.Rename(tempPath, m.dbPath); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			logger.Warn("Failed to remove temporary file", "path", tempPath, "error", removeErr)
		}
		return fmt.Errorf("failed to restore database: %w", err)
	}

	// A WAL left from the replaced database would be replayed over the restored one.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(m.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove stale journal file", "path", m.dbPath+suffix, "error", err)
		}
	}

	logger.Info("Restored database", "from", backupPath)
	return nil
}

// verifyBackup checks that path is a SQLite database holding the document table.
func verifyBackup(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return err
	}
	defer db.Close()

	var name string
	err = db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'documents'",
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.New("not a driftlog database")
	}
	return err
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := destFile.ReadFrom(sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}
