package errors

import (
	"errors"
	"fmt"
)

// Sentinel conditions. Typed errors below unwrap to these so callers can use errors.Is.
var (
	ErrSelectionUnavailable = errors.New("no usable selection or section context")
	ErrValidationRejected   = errors.New("selection does not appear in section content")
	ErrGeneration           = errors.New("generation failed")
	ErrNoMatch              = errors.New("no match found for selected text")
	ErrNotFound             = errors.New("not found")
	ErrInvalidRequest       = errors.New("invalid request")
)

// NotFoundError represents a missing document, section or pending request.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError represents a malformed edit request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// GenerationError wraps a failure of the external text generation service.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("generation failed (%s)", e.Provider)
	}
	return fmt.Sprintf("generation failed (%s): %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() []error { return []error{ErrGeneration, e.Err} }

// NoMatchError is returned when every replacement strategy is exhausted.
// It carries enough context for the caller to offer a whole-section
// replacement or let the user retry the selection.
type NoMatchError struct {
	Original   string
	Preview    string
	Closest    string
	Similarity float64
	Attempted  []string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no match found for selected text %q after %d strategies", e.Preview, len(e.Attempted))
}

func (e *NoMatchError) Unwrap() error { return ErrNoMatch }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsGeneration reports whether err came from the generation service.
func IsGeneration(err error) bool {
	return errors.Is(err, ErrGeneration)
}

// AsNoMatch extracts a NoMatchError from err.
func AsNoMatch(err error) (*NoMatchError, bool) {
	var nm *NoMatchError
	if errors.As(err, &nm) {
		return nm, true
	}
	return nil, false
}
