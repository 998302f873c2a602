package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDenied is matched by every authorization refusal.
	ErrDenied = errors.New("permission denied")
	// ErrNotFound covers both missing targets and targets the caller may not see.
	ErrNotFound = errors.New("not found")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrConflict reports a lost compare-and-set on the article lifecycle.
	ErrConflict = errors.New("article changed concurrently")
)

// DeniedError carries the reason for a refusal.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return "permission denied: " + e.Reason
}

func (e *DeniedError) Is(target error) bool {
	return target == ErrDenied
}

// Deny builds a *DeniedError.
func Deny(format string, args ...any) error {
	return &DeniedError{Reason: fmt.Sprintf(format, args...)}
}

// ValidationError describes a malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a *ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
