package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine.
var (
	ErrInvalidParam = errors.New("invalid parameter")
	ErrUpstream     = errors.New("upstream fetch failed")
	ErrStale        = errors.New("stale response discarded")
	ErrNotFound     = errors.New("not found")
	ErrNoData       = errors.New("no dataset loaded")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// UpstreamError describes a failed fetch of one source record set.
// It matches ErrUpstream with errors.Is.
type UpstreamError struct {
	Source    string // "vehicles" or "inspections"
	Status    int    // HTTP status, 0 for transport or decode failures
	Retryable bool
	Err       error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s: http %d: %v", e.Source, e.Status, e.Err)
	}
	return fmt.Sprintf("upstream %s: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstream, e.Err} }

// IsRetryable reports whether err is a failure the caller may retry.
func IsRetryable(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retryable
	}
	return errors.Is(err, ErrStale)
}
