// Package scheduling holds the pure scheduling rules of the inspection station:
// clock arithmetic, calendar rules, slot generation, the capacity decision and
// certificate validity. Nothing here touches storage.
package scheduling

import (
	"errors"
	"fmt"
	"time"
)

// MinutesPerDay bounds every clock value.
const MinutesPerDay = 24 * 60

// DateLayout is the wire and storage layout of a calendar date.
const DateLayout = "2006-01-02"

var ErrInvalidClock = errors.New("invalid time of day, use HH:MM")

// ParseClock converts a zero-padded "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return 0, ErrInvalidClock
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Interval is a half-open [Start, End) range of minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// NewInterval builds [start, start+duration).
func NewInterval(start, duration int) Interval {
	return Interval{Start: start, End: start + duration}
}

// Overlaps reports whether two half-open intervals share at least one minute.
// Touching intervals (a.End == b.Start) do not overlap.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Contains reports whether minute m falls inside [Start, End).
func (a Interval) Contains(m int) bool {
	return a.Start <= m && m < a.End
}

// Empty reports whether the interval covers no time.
func (a Interval) Empty() bool {
	return a.End <= a.Start
}

// Within reports whether a lies entirely inside outer.
func (a Interval) Within(outer Interval) bool {
	return a.Start >= outer.Start && a.End <= outer.End
}

// DateOnly strips the time of day, keeping the calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses "YYYY-MM-DD" into a UTC midnight date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(t), nil
}
