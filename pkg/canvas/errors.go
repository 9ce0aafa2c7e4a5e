package canvas

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrAuth is returned for HTTP 401
	ErrAuth = errors.New("authentication failed")
	// ErrPermission is returned for HTTP 403
	ErrPermission = errors.New("access forbidden")
	// ErrEndpointNotFound is returned for HTTP 404
	ErrEndpointNotFound = errors.New("api endpoint not found")

	// ErrNotConfigured is returned by operations that need a tested configuration
	ErrNotConfigured = errors.New("canvas is not configured")
	// ErrNoMappedCourses is returned by an import without any course mapped to a class
	ErrNoMappedCourses = errors.New("no course is mapped to a class")
	// ErrIncompleteConfig is returned when url or token are missing
	ErrIncompleteConfig = errors.New("url and access token are required")
	// ErrInvalidURL is returned when the url is not absolute
	ErrInvalidURL = errors.New("url must be absolute")
)

const remoteErrorExcerpt = 200

// RemoteError is any other non-2xx answer
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	var parsed struct {
		Errors json.RawMessage `json:"errors"`
	}

	err := json.Unmarshal([]byte(e.Body), &parsed)
	if err != nil {
		excerpt := []rune(e.Body)
		if len(excerpt) > remoteErrorExcerpt {
			excerpt = excerpt[:remoteErrorExcerpt]
		}
		return fmt.Sprintf("Connection failed (HTTP %d). Response: %s", e.Status, string(excerpt))
	}

	if len(parsed.Errors) > 0 && !bytes.Equal(parsed.Errors, []byte("null")) {
		var compact bytes.Buffer
		if json.Compact(&compact, parsed.Errors) == nil {
			return fmt.Sprintf("Canvas error: %s", compact.String())
		}
	}

	return fmt.Sprintf("Connection failed (HTTP %d)", e.Status)
}

// NetworkError means the request never got an HTTP answer
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: unable to connect to %s: %v", e.Endpoint, e.Err)
}

// Unwrap returns the transport error
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err belongs to the connection error family
func IsConnectionError(err error) bool {
	var remoteError *RemoteError
	var networkError *NetworkError

	return errors.Is(err, ErrAuth) ||
		errors.Is(err, ErrPermission) ||
		errors.Is(err, ErrEndpointNotFound) ||
		errors.As(err, &remoteError) ||
		errors.As(err, &networkError)
}

// ImportCourseError is the failure of a single course during an import. It is tallied, never returned.
type ImportCourseError struct {
	CourseID string `json:"courseId"`
	Class    string `json:"class"`
	Message  string `json:"message"`
	Err      error  `json:"-"`
}

func newImportCourseError(courseID string, class string, err error) *ImportCourseError {
	return &ImportCourseError{CourseID: courseID, Class: class, Message: Describe(err), Err: err}
}

func (e *ImportCourseError) Error() string {
	return fmt.Sprintf("course %s (%s): %v", e.CourseID, e.Class, e.Err)
}

// Unwrap returns the cause
func (e *ImportCourseError) Unwrap() error {
	return e.Err
}

// Describe turns an error into the short text shown to the user
func Describe(err error) string {
	var remoteError *RemoteError
	var networkError *NetworkError

	switch {
	case errors.Is(err, ErrAuth):
		return "Authentication failed. Please check your access token."
	case errors.Is(err, ErrPermission):
		return "Access forbidden. Your token may not have the required permissions."
	case errors.Is(err, ErrEndpointNotFound):
		return "API endpoint not found. Please verify your Canvas URL."
	case errors.Is(err, ErrNotConfigured):
		return "Please configure Canvas first."
	case errors.Is(err, ErrNoMappedCourses):
		return "Please map at least one course to a class."
	case errors.Is(err, ErrIncompleteConfig):
		return "Please provide both URL and access token."
	case errors.Is(err, ErrInvalidURL):
		return "Please enter the full Canvas URL, e.g. https://canvas.instructure.com."
	case errors.As(err, &remoteError):
		return remoteError.Error()
	case errors.As(err, &networkError):
		return fmt.Sprintf("Network error: Unable to connect to %s. This may be due to CORS restrictions.",
			networkError.Endpoint)
	default:
		return err.Error()
	}
}
