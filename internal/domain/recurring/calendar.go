package recurring

import (
	"fmt"
	"time"
)

const hoursPerDay = 24

// DateOf truncates t to its calendar date, read in t's own location, and returns it
// as midnight UTC. All engine dates use this representation so that day arithmetic
// never crosses a DST transition.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CivilDate returns the calendar date of instant t as observed in loc
func CivilDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(t.In(loc))
}

// Date builds a civil date
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// AddDays moves a civil date by n calendar days
func AddDays(date time.Time, n int) time.Time {
	return DateOf(date).AddDate(0, 0, n)
}

// DaysBetween returns the number of whole calendar days from a to b. It is negative
// when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / hoursPerDay)
}

// SameDate reports whether a and b fall on the same calendar date
func SameDate(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}

// LastDayOfMonth returns the number of days in the given month, leap years included
func LastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseDate parses a YYYY-MM-DD civil date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FixedZone returns the reference location for a whole-hour UTC offset, e.g. -3 gives "UTC-3"
func FixedZone(offsetHours int) *time.Location {
	name := "UTC"
	if offsetHours != 0 {
		name = fmt.Sprintf("UTC%+d", offsetHours)
	}
	return time.FixedZone(name, offsetHours*60*60)
}

// Clock is the single source of "today" for the sweep and the projector
type Clock interface {
	Today() time.Time
}

// ZoneClock reports today's date in a fixed reference location, independent of the
// server locale.
type ZoneClock struct {
	loc *time.Location
	now func() time.Time
}

// NewZoneClock creates a clock reading the wall clock in loc
func NewZoneClock(loc *time.Location) *ZoneClock {
	return &ZoneClock{loc: loc, now: time.Now}
}

// Location returns the reference location
func (c *ZoneClock) Location() *time.Location {
	return c.loc
}

// Today returns the current civil date in the reference location
func (c *ZoneClock) Today() time.Time {
	return CivilDate(c.now(), c.loc)
}

// FixedClock always reports the same date
type FixedClock time.Time

// Today returns the fixed date
func (c FixedClock) Today() time.Time {
	return DateOf(time.Time(c))
}
