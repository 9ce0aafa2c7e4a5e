package date

import (
	"fmt"
	"time"
)

// TimeBeforeOrEquals returns whether t1 is before or equal t2
func TimeBeforeOrEquals(t1 time.Time, t2 time.Time) bool {
	ts := t1.UnixNano()
	us := t2.UnixNano()
	return ts <= us
}

// TimeAfterOrEquals returns whether t1 is after or equal t2
func TimeAfterOrEquals(t1 time.Time, t2 time.Time) bool {
	ts := t1.UnixNano()
	us := t2.UnixNano()
	return ts >= us
}

// Timespan is a simple timespan between to times/dates
type Timespan struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration simply get the duration of a Timespan
func (t *Timespan) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// String prints a timespan string
func (t *Timespan) String() string {
	return fmt.Sprintf("%s - %s", t.Start, t.End)
}

// Includes checks if a point in time lies in [Start, End)
func (t *Timespan) Includes(instant time.Time) bool {
	return TimeAfterOrEquals(instant, t.Start) && instant.Before(t.End)
}

// Contains checks if one timespan t contains another Timespan timespan
func (t *Timespan) Contains(timespan Timespan) bool {
	if TimeAfterOrEquals(timespan.Start, t.Start) &&
		TimeBeforeOrEquals(timespan.End, t.End) {
		return true
	}

	return false
}

// Day returns the calendar day of t in t's location as a Timespan from midnight to the next midnight
func Day(t time.Time) Timespan {
	year, month, day := t.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, t.Location())

	return Timespan{Start: start, End: start.AddDate(0, 0, 1)}
}

// Month returns the span of a whole month in loc
func Month(year int, month time.Month, loc *time.Location) Timespan {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)

	return Timespan{Start: start, End: start.AddDate(0, 1, 0)}
}
