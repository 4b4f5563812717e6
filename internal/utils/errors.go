package utils

import (
	"errors"
	"fmt"
)

// ValidationError reports a rejected configuration value or request parameter.
type ValidationError struct {
	Message string
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError with a specific message.
//
// Parameters:
//   - message: The validation error message.
//
// Returns:
//   - An error interface wrapping the ValidationError.
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err, or anything it wraps, is a ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
