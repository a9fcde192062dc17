package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/driftlog/internal/constants"
	apperrors "github.com/julianstephens/driftlog/internal/errors"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int {
	return m.pid
}

func (m *mockProcess) PPid() int {
	return 1
}

func (m *mockProcess) Executable() string {
	return m.executable
}

// withProcesses replaces the process table for the duration of a test.
func withProcesses(t *testing.T, self int, table map[int]string) {
	t.Helper()
	oldFind, oldPid := findProcessFunc, getpidFunc
	t.Cleanup(func() {
		findProcessFunc, getpidFunc = oldFind, oldPid
	})
	getpidFunc = func() int { return self }
	findProcessFunc = func(pid int) (ps.Process, error) {
		exe, ok := table[pid]
		if !ok {
			return nil, nil
		}
		return &mockProcess{pid: pid, executable: exe}, nil
	}
}

func TestAcquireAndRelease(t *testing.T) {
	withProcesses(t, 100, map[int]string{100: "driftlog"})
	dir := t.TempDir()

	l, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() returned error: %v", err)
	}
	content, err := os.ReadFile(filepath.Join(dir, constants.LockfileName))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "100|driftlog" {
		t.Errorf("lockfile content = %q", content)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release() returned error: %v", err)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Error("lockfile still present after Release")
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() returned error: %v", err)
	}
}

func TestAcquireHeldByLiveProcess(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, constants.LockfileName), []byte("200|driftlog"), 0600); err != nil {
		t.Fatal(err)
	}
	withProcesses(t, 100, map[int]string{100: "driftlog", 200: "driftlog"})

	if _, err := Acquire(dir); !errors.Is(err, apperrors.ErrLocked) {
		t.Errorf("Acquire() error = %v, want ErrLocked", err)
	}
}

func TestAcquireClearsStaleLock(t *testing.T) {
	tests := []struct {
		name    string
		content string
		table   map[int]string
	}{
		{"process gone", "200|driftlog", map[int]string{100: "driftlog"}},
		{"pid reused by another program", "200|driftlog", map[int]string{100: "driftlog", 200: "postgres"}},
		{"malformed", "garbage", map[int]string{100: "driftlog"}},
		{"empty", "", map[int]string{100: "driftlog"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, constants.LockfileName), []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			withProcesses(t, 100, tt.table)

			l, err := Acquire(dir)
			if err != nil {
				t.Fatalf("Acquire() returned error: %v", err)
			}
			defer l.Release()

			content, _ := os.ReadFile(l.Path())
			if string(content) != "100|driftlog" {
				t.Errorf("lockfile content = %q, want it taken over", content)
			}
		})
	}
}

func TestReleaseLeavesForeignLock(t *testing.T) {
	withProcesses(t, 100, map[int]string{100: "driftlog"})
	dir := t.TempDir()

	l, err := Acquire(dir)
	if err != nil {
		t.Fatal(err)
	}
	// Another process took over after this one was presumed dead.
	if err := os.WriteFile(l.Path(), []byte("300|driftlog"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release() returned error: %v", err)
	}
	if _, err := os.Stat(l.Path()); err != nil {
		t.Error("Release removed a lockfile owned by another process")
	}
}

func TestAcquireRealProcessTwice(t *testing.T) {
	dir := t.TempDir()
	l, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() returned error: %v", err)
	}
	defer l.Release()

	if _, err := Acquire(dir); !errors.Is(err, apperrors.ErrLocked) {
		t.Errorf("second Acquire() error = %v, want ErrLocked", err)
	}
}
