package domain

import (
	"fmt"
	"time"
)

// dayKeyLayout is the canonical civil-date format used to bucket and query
// tasks.
const dayKeyLayout = "2006-01-02"

// DayClock projects absolute instants onto civil calendar days in one fixed
// IANA timezone. It is pure and safe for concurrent use.
type DayClock struct {
	loc *time.Location
}

// NewDayClock resolves zone against the platform tz database. The zone is
// configuration, not a hardcoded constant, so the engine can be exercised
// against multiple zones and DST eras.
func NewDayClock(zone string) (DayClock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return DayClock{}, fmt.Errorf("unsupported timezone %q: %w", zone, err)
	}
	return DayClock{loc: loc}, nil
}

// Zone returns the name of the civil timezone the clock was built with.
func (c DayClock) Zone() string { return c.loc.String() }

// StartOfDay returns the instant of 00:00:00.000 civil time on the civil
// date t falls on. time.Date normalizes civil times that never occur (the
// spring-forward gap) to the post-transition offset, so the result is always
// a real instant even on transition days.
func (c DayClock) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

// EndOfDay returns the last representable instant of the civil date t falls
// on. On DST transition days the span from StartOfDay may be 23 or 25 hours;
// both endpoints are still correct absolute instants.
func (c DayClock) EndOfDay(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, c.loc).Add(-time.Nanosecond)
}

// DayKey maps an instant to its canonical YYYY-MM-DD civil date. Two
// instants share a key exactly when they fall in the same
// [StartOfDay, EndOfDay] window.
func (c DayClock) DayKey(t time.Time) string {
	return t.In(c.loc).Format(dayKeyLayout)
}

// DayWindow is the inverse of DayKey: it returns the [start, end] instant
// range covered by a civil date, for building store query ranges.
func (c DayClock) DayWindow(key string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation(dayKeyLayout, key, c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid day key %q: %w", key, err)
	}
	return c.StartOfDay(t), c.EndOfDay(t), nil
}

// NextDayKey returns the civil date immediately following key.
func (c DayClock) NextDayKey(key string) (string, error) {
	t, err := time.ParseInLocation(dayKeyLayout, key, c.loc)
	if err != nil {
		return "", fmt.Errorf("invalid day key %q: %w", key, err)
	}
	return c.DayKey(time.Date(t.Year(), t.Month(), t.Day()+1, 12, 0, 0, 0, c.loc)), nil
}
