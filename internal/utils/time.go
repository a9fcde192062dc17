package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/driftlog/internal/constants"
	apperrors "github.com/julianstephens/driftlog/internal/errors"
)

// Clock returns the current time. Components take one so tests can pin "now".
type Clock func() time.Time

// SystemClock is the wall clock in the local timezone.
func SystemClock() time.Time {
	return time.Now()
}

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// Today returns now's date string (YYYY-MM-DD) in now's location.
func Today(now time.Time) string {
	return now.Format(constants.DateFormat)
}

// CutoffDate returns the date key that is days before now. Date keys that
// sort strictly before the cutoff are considered older than the window.
func CutoffDate(now time.Time, days int) string {
	return now.AddDate(0, 0, -days).Format(constants.DateFormat)
}

// ParseDate parses a date key (YYYY-MM-DD).
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidDate, date)
	}
	return t, nil
}

// ValidateDate checks that date is a well-formed, canonical date key.
func ValidateDate(date string) error {
	t, err := ParseDate(date)
	if err != nil {
		return err
	}
	// time.Parse accepts some non-canonical forms; keys must round-trip exactly.
	if t.Format(constants.DateFormat) != date {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidDate, date)
	}
	return nil
}

// ResolveDate maps the shorthands "today" and "yesterday" to date keys and
// validates anything else.
func ResolveDate(input string, now time.Time) (string, error) {
	switch input {
	case "", "today":
		return Today(now), nil
	case "yesterday":
		return Today(now.AddDate(0, 0, -1)), nil
	}
	if err := ValidateDate(input); err != nil {
		return "", err
	}
	return input, nil
}
