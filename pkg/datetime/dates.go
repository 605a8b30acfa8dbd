// Package datetime provides date and time utility functions.
package datetime

import (
	"time"

	"github.com/pfallmann/loantrack/pkg/constants"
)

// DateLayout is the format expected in config files and API payloads and is
// also the output date format.
const DateLayout = constants.DateLayout

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// OffsetMonths returns the given date offset by the given number of months.
func OffsetMonths(date time.Time, months int) time.Time {
	return date.AddDate(0, months, 0)
}

// DaysBetween returns the number of whole days from first to second. The
// result is negative when second precedes first.
func DaysBetween(first, second time.Time) int {
	return int(second.Sub(first).Hours() / 24)
}

// SameOrBefore returns true if first falls on or before second.
func SameOrBefore(first, second time.Time) bool {
	return !first.After(second)
}

// Fallback returns date if it is usable, otherwise the first usable
// alternative. A zero time is never returned unless every candidate is zero.
func Fallback(date time.Time, alternatives ...time.Time) time.Time {
	if !date.IsZero() {
		return date
	}
	for _, alt := range alternatives {
		if !alt.IsZero() {
			return alt
		}
	}
	return date
}
