package api

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Concrete errors match the sentinel of their kind.
var (
	ErrRequestFailed         = errors.New("request failed")
	ErrConnectionUnavailable = errors.New("backend unreachable")
	ErrValidation            = errors.New("invalid request payload")
)

// RequestFailedError reports a non-success HTTP status from the backend.
type RequestFailedError struct {
	Status  int
	Message string
}

func (e *RequestFailedError) Error() string {
	return e.Message
}

// Is matches ErrRequestFailed.
func (e *RequestFailedError) Is(target error) bool {
	return target == ErrRequestFailed
}

// ConnectionUnavailableError reports that the backend could not be reached
// at all. URL is the resolved base URL so the caller can tell the user which
// address it tried.
type ConnectionUnavailableError struct {
	URL string
	Err error
}

func (e *ConnectionUnavailableError) Error() string {
	return fmt.Sprintf("cannot reach backend at %s: %v", e.URL, e.Err)
}

func (e *ConnectionUnavailableError) Unwrap() error {
	return e.Err
}

// Is matches ErrConnectionUnavailable.
func (e *ConnectionUnavailableError) Is(target error) bool {
	return target == ErrConnectionUnavailable
}

// ValidationError reports an outbound payload rejected before sending.
// Fields maps JSON field names to a short reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), formatFields(e.Fields))
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
