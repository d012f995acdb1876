package common

import (
	"errors"
	"fmt"
)

// Domain errors - use errors.Is() to check
var (
	// Generic errors
	ErrInternal      = errors.New("internal error")
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConflict      = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	ErrConfiguration = errors.New("configuration error")
	ErrUnavailable   = errors.New("service unavailable")

	// Authentication errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Resource-specific errors
	ErrJobNotFound        = fmt.Errorf("job %w", ErrNotFound)
	ErrVideoNotFound      = fmt.Errorf("video %w", ErrNotFound)
	ErrTranscriptNotFound = fmt.Errorf("transcript %w", ErrNotFound)
	ErrFileNotFound       = fmt.Errorf("file %w", ErrNotFound)

	ErrVideoExists      = fmt.Errorf("video %w", ErrConflict)
	ErrTranscriptExists = fmt.Errorf("transcript %w", ErrConflict)
	ErrJobActive        = &kindError{msg: "transcription already in progress", kind: ErrConflict}

	ErrQueueFull  = &kindError{msg: "job queue full", kind: ErrUnavailable}
	ErrNoEmbedder = &kindError{msg: "embeddings are not configured", kind: ErrConfiguration}

	// Job lifecycle
	ErrInvalidTransition = errors.New("invalid status transition")

	// Validation errors
	ErrValidation = errors.New("validation error")
)

// kindError carries its own message while matching a generic kind via errors.Is.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// ValidationError represents a validation error with field details
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is implements errors.Is for ValidationError
func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if error is a conflict error
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsUnauthorized checks if error is an unauthorized error
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenExpired)
}

// IsBadRequest checks if error is a bad request error
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

// IsConfiguration checks if error is a missing or invalid configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsUnavailable checks if error reports a temporarily unavailable dependency
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsValidation checks if error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
