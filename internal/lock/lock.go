// Package lock keeps a second driftlog process from writing to the same
// store. The lockfile records "<pid>|<executable>"; a lock whose process is
// gone, or whose pid now belongs to another program, is stale and taken over.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/driftlog/internal/constants"
	apperrors "github.com/julianstephens/driftlog/internal/errors"
	"github.com/julianstephens/driftlog/internal/logger"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

// Lock is a held lockfile.
type Lock struct {
	path string
	pid  int
}

// Acquire takes the lock in dir, clearing a stale lockfile first.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	path := filepath.Join(dir, constants.LockfileName)
	pid := getpidFunc()
	content := fmt.Sprintf("%d|%s", pid, executableName(pid))

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err == nil {
			_, werr := f.WriteString(content)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("failed to write lockfile: %w", errors.Join(werr, cerr))
			}
			logger.Debug("Acquired lock", "path", path, "pid", pid)
			return &Lock{path: path, pid: pid}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lockfile: %w", err)
		}

		holder, live := holderOf(path)
		if live {
			return nil, fmt.Errorf("%w (pid %d)", apperrors.ErrLocked, holder)
		}
		logger.Warn("Removing stale lockfile", "path", path, "pid", holder)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lockfile: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: lockfile keeps reappearing", apperrors.ErrLocked)
}

// Release removes the lockfile if this process still owns it.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	content, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if pid, _, ok := parse(string(content)); !ok || pid != l.pid {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lockfile: %w", err)
	}
	logger.Debug("Released lock", "path", l.path)
	return nil
}

// Path returns the lockfile location.
func (l *Lock) Path() string {
	return l.path
}

// holderOf reports the recorded pid and whether that process is still the
// program that wrote the lockfile. Malformed lockfiles are stale.
func holderOf(path string) (int, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, exe, ok := parse(string(content))
	if !ok {
		return 0, false
	}
	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return pid, false
	}
	return pid, strings.HasPrefix(process.Executable(), exe)
}

func parse(content string) (int, string, bool) {
	parts := strings.Split(strings.TrimSpace(content), "|")
	if len(parts) != 2 {
		return 0, "", false
	}
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid <= 0 || parts[1] == "" {
		return 0, "", false
	}
	return pid, parts[1], true
}

func executableName(pid int) string {
	if process, err := findProcessFunc(pid); err == nil && process != nil && process.Executable() != "" {
		return process.Executable()
	}
	return constants.AppName
}
