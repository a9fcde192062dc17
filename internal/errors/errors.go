package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/driftlog/internal/logger"
)

var (
	// ErrStoreUnavailable means the backing engine could not be opened.
	// Callers degrade to an in-memory store and report it.
	ErrStoreUnavailable = stderrors.New("store unavailable")

	// ErrQuotaExceeded means a commit was rejected for capacity reasons.
	// It is distinct from any other write failure so callers can prompt for
	// archival instead of retrying.
	ErrQuotaExceeded = stderrors.New("storage quota exceeded")

	// ErrParse means a payload is not a valid serialized entry store.
	ErrParse = stderrors.New("invalid document")

	// ErrNotFound means a referenced date, category, entry or sub-entry is absent.
	ErrNotFound = stderrors.New("not found")

	// ErrInvalidDate means a date key is not in YYYY-MM-DD form.
	ErrInvalidDate = stderrors.New("invalid date")

	// ErrLocked means another process holds the writer lock.
	ErrLocked = stderrors.New("store is locked by another process")
)

// IsQuotaExceeded reports whether err is, or wraps, ErrQuotaExceeded.
func IsQuotaExceeded(err error) bool {
	return stderrors.Is(err, ErrQuotaExceeded)
}

// IsStoreUnavailable reports whether err is, or wraps, ErrStoreUnavailable.
func IsStoreUnavailable(err error) bool {
	return stderrors.Is(err, ErrStoreUnavailable)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	if IsQuotaExceeded(err) {
		return fmt.Sprintf("Error: %v (run 'driftlog archive' to free space)", err)
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
