package embeddings

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when the input text is empty after trimming.
	ErrEmptyInput = errors.New("embedding input is empty")

	// ErrInputTooLarge is returned when the input exceeds the backing
	// model's token limit. The input is never truncated silently; the
	// caller must chunk it first.
	ErrInputTooLarge = errors.New("embedding input exceeds model limit")
)

// ServiceError is the failure surface of an embedding provider. Retriable
// failures (timeouts, rate limits, 5xx responses) may be retried by the
// Retrying decorator; fatal failures (auth, malformed input) are not, so a
// misconfiguration surfaces immediately instead of burning quota.
type ServiceError struct {
	Cause     error
	Retriable bool
}

func (e *ServiceError) Error() string {
	kind := "fatal"
	if e.Retriable {
		kind = "retriable"
	}
	return fmt.Sprintf("embedding service error (%s): %v", kind, e.Cause)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Transient wraps err as a retriable service error.
func Transient(err error) *ServiceError {
	return &ServiceError{Cause: err, Retriable: true}
}

// Fatal wraps err as a non-retriable service error.
func Fatal(err error) *ServiceError {
	return &ServiceError{Cause: err, Retriable: false}
}

// IsRetriable reports whether err is a retriable embedding failure.
func IsRetriable(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Retriable
	}
	return false
}
