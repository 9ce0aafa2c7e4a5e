package assignments

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Priority of an assignment
type Priority string

const (
	// PriorityHigh sorts first
	PriorityHigh Priority = "high"
	// PriorityMedium is the default
	PriorityMedium Priority = "medium"
	// PriorityLow sorts last
	PriorityLow Priority = "low"
)

// Rank orders priorities high < medium < low
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Assignment is the model for a single trackable task
type Assignment struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Class       string    `json:"class"`
	DueDate     time.Time `json:"dueDate"`
	Priority    Priority  `json:"priority"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	SourceID    string    `json:"sourceId,omitempty"`
}

// Input is the view of an assignment for creation
type Input struct {
	Title       string   `json:"title" validate:"required"`
	Class       string   `json:"class"`
	DueDate     string   `json:"dueDate" validate:"required"`
	Priority    Priority `json:"priority" validate:"omitempty,oneof=high medium low"`
	Description string   `json:"description"`
	// SourceID is only set by the LMS import
	SourceID string `json:"-"`
}

// Patch is the view of an assignment for an update. Nil fields stay untouched, id and createdAt cannot be patched.
type Patch struct {
	Title       *string   `json:"title" validate:"omitempty,min=1"`
	Class       *string   `json:"class"`
	DueDate     *string   `json:"dueDate" validate:"omitempty,min=1"`
	Priority    *Priority `json:"priority" validate:"omitempty,oneof=high medium low"`
	Description *string   `json:"description"`
	Completed   *bool     `json:"completed"`
}

// ErrValidation is matched by every *ValidationError
var ErrValidation = errors.New("validation failed")

// ErrNotFound is returned when no assignment has the requested id
var ErrNotFound = errors.New("assignment not found")

// ValidationError describes bad user input. It is never persisted.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) work
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
