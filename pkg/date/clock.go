package date

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CalendarCells is the number of cells of a month view: six weeks
const CalendarCells = 42

// ErrUnparseable is returned when a due date string matches none of the accepted layouts
var ErrUnparseable = errors.New("date could not be parsed")

// layouts accepted by Parse, tried in order. Layouts without a zone are interpreted in the caller's location.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parse parses user or API supplied timestamps
func Parse(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrUnparseable
	}

	if loc == nil {
		loc = time.Local
	}

	for _, layout := range layouts {
		parsed, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, errors.Wrapf(ErrUnparseable, "%q", value)
}

// IsSameDay compares year, month and day of both times in loc
func IsSameDay(t1 time.Time, t2 time.Time, loc *time.Location) bool {
	y1, m1, d1 := t1.In(loc).Date()
	y2, m2, d2 := t2.In(loc).Date()

	return y1 == y2 && m1 == m2 && d1 == d2
}

// MonthGrid returns the 42 days shown for a month: the tail of the previous month back to Sunday, the month
// itself and the head of the next month
func MonthGrid(year int, month time.Month, loc *time.Location) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	grid := make([]time.Time, 0, CalendarCells)
	for i := 0; i < CalendarCells; i++ {
		grid = append(grid, start.AddDate(0, 0, i))
	}

	return grid
}

// RemainingCategory classifies how much time is left until a due date
type RemainingCategory string

const (
	// RemainingOverdue means the due date has passed
	RemainingOverdue RemainingCategory = "overdue"
	// RemainingDays means at least one whole day is left
	RemainingDays RemainingCategory = "days"
	// RemainingHours means at least one whole hour but less than a day is left
	RemainingHours RemainingCategory = "hours"
	// RemainingVerySoon means less than an hour is left
	RemainingVerySoon RemainingCategory = "very_soon"
)

// Remaining is the categorical time left until a due date
type Remaining struct {
	Category RemainingCategory `json:"category"`
	Count    int64             `json:"count,omitempty"`
}

// TimeUntil computes the categorical time left from now until due using floor division on milliseconds
func TimeUntil(due time.Time, now time.Time) Remaining {
	diff := due.Sub(now).Milliseconds()
	if diff < 0 {
		return Remaining{Category: RemainingOverdue}
	}

	const hour = int64(time.Hour / time.Millisecond)
	const day = 24 * hour

	days := diff / day
	hours := (diff % day) / hour

	if days > 0 {
		return Remaining{Category: RemainingDays, Count: days}
	}
	if hours > 0 {
		return Remaining{Category: RemainingHours, Count: hours}
	}

	return Remaining{Category: RemainingVerySoon}
}

// String renders the text shown next to a due date
func (r Remaining) String() string {
	switch r.Category {
	case RemainingOverdue:
		return "Overdue"
	case RemainingDays:
		return fmt.Sprintf("%d %s remaining", r.Count, plural(r.Count, "day"))
	case RemainingHours:
		return fmt.Sprintf("%d %s remaining", r.Count, plural(r.Count, "hour"))
	default:
		return "Due very soon"
	}
}

func plural(count int64, word string) string {
	if count == 1 {
		return word
	}
	return word + "s"
}

// FormatDateTime renders e.g. "Mar 1, 2025 at 9:00 AM"
func FormatDateTime(t time.Time) string {
	return t.Format("Jan 2, 2006 at 3:04 PM")
}

// FormatDate renders e.g. "March 1, 2025"
func FormatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// FormatDateTimeLocal renders the value of a datetime-local input, e.g. "2025-03-01T09:00"
func FormatDateTimeLocal(t time.Time) string {
	return t.Format("2006-01-02T15:04")
}
