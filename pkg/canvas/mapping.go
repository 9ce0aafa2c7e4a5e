package canvas

import (
	"sort"
	"strconv"
)

// Mapping maps a remote course id to a local class. A missing entry means the course is skipped.
type Mapping map[string]string

// Copy returns an independent Mapping
func (m Mapping) Copy() Mapping {
	result := make(Mapping, len(m))
	for courseID, class := range m {
		result[courseID] = class
	}

	return result
}

// CourseIDs returns the mapped course ids, numeric ids ascending first, other ids after them in lexical order
func (m Mapping) CourseIDs() []string {
	courseIDs := make([]string, 0, len(m))
	for courseID, class := range m {
		if class != "" {
			courseIDs = append(courseIDs, courseID)
		}
	}

	sort.Slice(courseIDs, func(i, j int) bool {
		a, errA := strconv.ParseUint(courseIDs[i], 10, 64)
		b, errB := strconv.ParseUint(courseIDs[j], 10, 64)

		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return courseIDs[i] < courseIDs[j]
		}
	})

	return courseIDs
}
