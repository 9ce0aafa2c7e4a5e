package assignments

import "time"

// StatsDueSoonWindow is the look-ahead of the due soon counter, distinct from DueSoonWindow
const StatsDueSoonWindow = 7 * 24 * time.Hour

// Stats are the counters shown above the list
type Stats struct {
	Total      int `json:"total"`
	Incomplete int `json:"incomplete"`
	DueSoon    int `json:"dueSoon"`
}

// ComputeStats counts the snapshot at now
func ComputeStats(snapshot []Assignment, now time.Time) Stats {
	stats := Stats{Total: len(snapshot)}

	for _, a := range snapshot {
		if a.Completed {
			continue
		}

		stats.Incomplete++
		if a.DueDate.After(now) && a.DueDate.Sub(now) < StatsDueSoonWindow {
			stats.DueSoon++
		}
	}

	return stats
}
