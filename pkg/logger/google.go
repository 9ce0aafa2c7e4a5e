package logger

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/logging"
)

// GoogleLogger sends log entries to Google Cloud Logging
type GoogleLogger struct {
	client *logging.Client
	logger *logging.Logger
}

// NewGoogleLogger connects to Cloud Logging for the given project
func NewGoogleLogger(ctx context.Context, projectID string, logName string) (*GoogleLogger, error) {
	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return &GoogleLogger{
		client: client,
		logger: client.Logger(logName),
	}, nil
}

// Error logs with severity Error
func (l *GoogleLogger) Error(message string, err error) {
	l.logger.Log(logging.Entry{
		Severity: logging.Error,
		Payload:  fmt.Sprintf("%s: %v", message, err),
	})
}

// Info logs with severity Info
func (l *GoogleLogger) Info(message string) {
	l.logger.Log(logging.Entry{Severity: logging.Info, Payload: message})
}

// Debug logs with severity Debug
func (l *GoogleLogger) Debug(message string) {
	l.logger.Log(logging.Entry{Severity: logging.Debug, Payload: message})
}

// Fatal logs with severity Critical, flushes and exits
func (l *GoogleLogger) Fatal(err error) {
	l.logger.Log(logging.Entry{Severity: logging.Critical, Payload: err.Error()})
	_ = l.Close()
	log.Fatalf("[FATAL] %v\n", err)
}

// Close flushes buffered entries and closes the client
func (l *GoogleLogger) Close() error {
	return l.client.Close()
}
