// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest     = errors.New("invalid request")
	ErrNameRequired       = errors.New("name is required")
	ErrTriggerRequired    = errors.New("a trigger type is required")
	ErrActionsRequired    = errors.New("at least one action is required")
	ErrUnknownActionType  = errors.New("unknown action type")
	ErrInvalidClockFormat = errors.New("time must be in HH:MM format")
	ErrInvalidTimezone    = errors.New("unknown timezone")
	ErrInvalidLimit       = errors.New("limit must not be negative")

	// Business Logic Conflicts (409 Conflict).
	ErrCannotEnableInvalid = errors.New("cannot enable a definition that fails validation")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrTriggerRequired) ||
		errors.Is(err, ErrActionsRequired) ||
		errors.Is(err, ErrUnknownActionType) ||
		errors.Is(err, ErrInvalidClockFormat) ||
		errors.Is(err, ErrInvalidTimezone) ||
		errors.Is(err, ErrInvalidLimit)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrCannotEnableInvalid)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
