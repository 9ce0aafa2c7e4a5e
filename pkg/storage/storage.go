package storage

import (
	"context"
)

// Keys used by the tracker
const (
	KeyAssignments    = "assignments"
	KeyCanvasConfig   = "canvasConfig"
	KeyCourseMappings = "courseMappings"
	KeyTheme          = "theme"
)

// Interface is a key-value string store. A missing key is reported with ok == false, not with an error.
type Interface interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}
