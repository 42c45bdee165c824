// Package calendar provides calendar-day keys and the clock used to derive them.
package calendar

import (
	"fmt"
	"time"
)

// Layout is the wire format of a Day.
const Layout = "2006-01-02"

// Day is a calendar-day key ("YYYY-MM-DD") with no time component.
// The zero value means "not given" and is resolved to today by callers.
// Keys compare correctly with < and > because the layout is fixed-width.
type Day string

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	return Day(t.Format(Layout))
}

// ParseDay validates s as a YYYY-MM-DD key.
func ParseDay(s string) (Day, error) {
	if _, err := time.Parse(Layout, s); err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return Day(s), nil
}

// IsZero reports whether the day was left unset.
func (d Day) IsZero() bool { return d == "" }

// String implements fmt.Stringer.
func (d Day) String() string { return string(d) }

// Time returns midnight of d in loc.
func (d Day) Time(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(Layout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays shifts d by n days. AddDate handles month and year boundaries.
func (d Day) AddDays(n int) Day {
	return DayOf(d.Time(time.UTC).AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d Day) Before(other Day) bool { return d < other }

// After reports whether d is strictly later than other.
func (d Day) After(other Day) bool { return d > other }
