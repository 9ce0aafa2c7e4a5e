package assignments

import (
	"sort"
	"time"

	"github.com/timeliness-app/assignment-tracker/pkg/date"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DueSoonWindow is the highlight window of a single assignment
const DueSoonWindow = 3 * 24 * time.Hour

// Status filters by completion
type Status string

const (
	// StatusComplete only keeps completed assignments
	StatusComplete Status = "complete"
	// StatusIncomplete only keeps open assignments
	StatusIncomplete Status = "incomplete"
)

// SortKey selects the order of FilterAndSort
type SortKey string

const (
	// SortDueDate sorts by ascending due date
	SortDueDate SortKey = "dueDate"
	// SortPriority sorts high before medium before low
	SortPriority SortKey = "priority"
	// SortClass sorts by class name
	SortClass SortKey = "class"
	// SortTitle sorts by title
	SortTitle SortKey = "title"
)

// Filter is AND-combined, empty fields don't filter
type Filter struct {
	Class    string
	Priority Priority
	Status   Status
}

// Matches checks a single assignment against the filter
func (f Filter) Matches(a Assignment) bool {
	if f.Class != "" && a.Class != f.Class {
		return false
	}
	if f.Priority != "" && a.Priority != f.Priority {
		return false
	}

	switch f.Status {
	case StatusComplete:
		return a.Completed
	case StatusIncomplete:
		return !a.Completed
	}

	return true
}

// FilterAndSort returns a new slice of the matching assignments. Sorting is stable, unknown keys keep snapshot order.
func FilterAndSort(snapshot []Assignment, filter Filter, key SortKey) []Assignment {
	result := make([]Assignment, 0, len(snapshot))
	for _, a := range snapshot {
		if filter.Matches(a) {
			result = append(result, a)
		}
	}

	var less func(a, b Assignment) bool
	switch key {
	case SortDueDate:
		less = func(a, b Assignment) bool {
			return a.DueDate.Before(b.DueDate)
		}
	case SortPriority:
		less = func(a, b Assignment) bool {
			return a.Priority.Rank() < b.Priority.Rank()
		}
	case SortClass:
		// a Collator is not safe for concurrent use
		collator := collate.New(language.English)
		less = func(a, b Assignment) bool {
			return collator.CompareString(a.Class, b.Class) < 0
		}
	case SortTitle:
		collator := collate.New(language.English)
		less = func(a, b Assignment) bool {
			return collator.CompareString(a.Title, b.Title) < 0
		}
	default:
		return result
	}

	sort.SliceStable(result, func(i, j int) bool {
		return less(result[i], result[j])
	})

	return result
}

// OnDate returns the assignments due on the calendar day of day, in day's location
func OnDate(snapshot []Assignment, day time.Time) []Assignment {
	span := date.Day(day)

	result := make([]Assignment, 0)
	for _, a := range snapshot {
		if span.Includes(a.DueDate) {
			result = append(result, a)
		}
	}

	return result
}

// IsOverdue is true for open assignments past their due date
func IsOverdue(a Assignment, now time.Time) bool {
	return a.DueDate.Before(now) && !a.Completed
}

// IsDueSoon is true for open assignments due within DueSoonWindow
func IsDueSoon(a Assignment, now time.Time) bool {
	return !a.Completed && a.DueDate.After(now) && a.DueDate.Sub(now) < DueSoonWindow
}

// TimeRemaining categorises the time left until the due date
func TimeRemaining(a Assignment, now time.Time) date.Remaining {
	return date.TimeUntil(a.DueDate, now)
}

// View is an Assignment with the derived display fields
type View struct {
	Assignment
	Overdue           bool           `json:"overdue"`
	DueSoon           bool           `json:"dueSoon"`
	TimeRemaining     date.Remaining `json:"timeRemaining"`
	TimeRemainingText string         `json:"timeRemainingText"`
	DueDateText       string         `json:"dueDateText"`
}

// NewView derives the display fields of a at now. Dates are rendered in now's location.
func NewView(a Assignment, now time.Time) View {
	remaining := TimeRemaining(a, now)

	return View{
		Assignment:        a,
		Overdue:           IsOverdue(a, now),
		DueSoon:           IsDueSoon(a, now),
		TimeRemaining:     remaining,
		TimeRemainingText: remaining.String(),
		DueDateText:       date.FormatDateTime(a.DueDate.In(now.Location())),
	}
}

// NewViews maps NewView over a slice
func NewViews(snapshot []Assignment, now time.Time) []View {
	views := make([]View, 0, len(snapshot))
	for _, a := range snapshot {
		views = append(views, NewView(a, now))
	}

	return views
}
