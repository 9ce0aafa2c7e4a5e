package assignments

import (
	"time"

	"github.com/timeliness-app/assignment-tracker/pkg/date"
)

// CalendarDay is one cell of the month view
type CalendarDay struct {
	Date        time.Time    `json:"date"`
	InMonth     bool         `json:"inMonth"`
	Today       bool         `json:"today"`
	Assignments []Assignment `json:"assignments"`
}

// Calendar projects the snapshot onto the 42 cells of a month view in now's location. Only cells of the viewed
// month carry assignments.
func Calendar(snapshot []Assignment, year int, month time.Month, now time.Time) []CalendarDay {
	loc := now.Location()
	grid := date.MonthGrid(year, month, loc)
	span := date.Month(year, month, loc)

	days := make([]CalendarDay, 0, len(grid))
	for _, day := range grid {
		cell := CalendarDay{
			Date:        day,
			InMonth:     span.Contains(date.Day(day)),
			Today:       date.IsSameDay(day, now, loc),
			Assignments: []Assignment{},
		}

		if cell.InMonth {
			cell.Assignments = OnDate(snapshot, day)
		}

		days = append(days, cell)
	}

	return days
}
