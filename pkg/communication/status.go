package communication

// StatusType is the display category of a status message
type StatusType string

const (
	// StatusInfo is neutral progress information
	StatusInfo StatusType = "info"
	// StatusSuccess reports a completed operation
	StatusSuccess StatusType = "success"
	// StatusError reports a failed operation
	StatusError StatusType = "error"
)

// Status is a short message for the presentation layer
type Status struct {
	Type    StatusType `json:"type"`
	Message string     `json:"message"`
}

// Info builds an info Status
func Info(message string) Status {
	return Status{Type: StatusInfo, Message: message}
}

// Success builds a success Status
func Success(message string) Status {
	return Status{Type: StatusSuccess, Message: message}
}

// Error builds an error Status
func Error(message string) Status {
	return Status{Type: StatusError, Message: message}
}
