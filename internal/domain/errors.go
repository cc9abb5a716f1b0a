package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a user or image does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated is returned when no valid session accompanies a request.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrEmailTaken is returned by signup for an already registered email.
	ErrEmailTaken = errors.New("user with this email already exists")

	// ErrInvalidCredentials is returned by login for a wrong email/password pair.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError reports malformed client input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InsufficientCreditsError is returned when a balance cannot cover a cost.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

// MalformedResponseError reports text model output that could not be parsed
// into the expected shape.
type MalformedResponseError struct {
	Kind string // stats, moves, ability, flavor
	Raw  string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: %v", e.Kind, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ArtworkGenerationError reports a failed image generation.
type ArtworkGenerationError struct {
	Message string
	Err     error
}

func (e *ArtworkGenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("artwork generation failed: %s: %v", e.Message, e.Err)
	}
	return "artwork generation failed: " + e.Message
}

func (e *ArtworkGenerationError) Unwrap() error { return e.Err }

// UpstreamError reports a failed call to the hosted text model.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s API returned HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s API call failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PersistenceError wraps a database or blob storage failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// InvalidCardError is returned when the assembled card fails validation.
// Nothing has been charged or persisted at that point.
type InvalidCardError struct {
	Card       *Card
	Validation CardValidation
	Balance    int
}

func (e *InvalidCardError) Error() string {
	return "generated card failed validation: " + strings.Join(e.Validation.Errors, "; ")
}
