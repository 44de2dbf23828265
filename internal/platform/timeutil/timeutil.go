// Package timeutil provides minute-based arithmetic over "HH:MM"
// wall-clock strings as used throughout OR scheduling. All intervals
// are half-open: a block ending at 12:00 does not conflict with one
// starting at 12:00.
package timeutil

import (
	"fmt"
	"time"

	"github.com/orflow/orflow/pkg/errs"
)

// ParseClock parses an "HH:MM" wall-clock string into minutes since
// midnight. Returns a BadRequest error for malformed input.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, errs.BadRequest("invalid time %q, expected HH:MM", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || len(s) != 5 || s[2] != ':' {
		return 0, errs.BadRequest("invalid time %q, expected HH:MM", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Overlaps reports whether the half-open ranges [s1,e1) and [s2,e2)
// intersect.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// ClockOverlaps is Overlaps for "HH:MM" ranges. Malformed input is
// reported as a BadRequest error.
func ClockOverlaps(start1, end1, start2, end2 string) (bool, error) {
	s1, err := ParseClock(start1)
	if err != nil {
		return false, err
	}
	e1, err := ParseClock(end1)
	if err != nil {
		return false, err
	}
	s2, err := ParseClock(start2)
	if err != nil {
		return false, err
	}
	e2, err := ParseClock(end2)
	if err != nil {
		return false, err
	}
	return Overlaps(s1, e1, s2, e2), nil
}

// RangeMinutes returns the length of ["HH:MM","HH:MM") in minutes.
func RangeMinutes(start, end string) (int, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, err
	}
	return e - s, nil
}

// MinutesOfDay returns minutes since local midnight for t.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// AtMinutes returns midnight of day plus the given minutes, preserving
// day's location.
func AtMinutes(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, day.Location())
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
