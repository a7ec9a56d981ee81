// Package persistence provides standardized error types for persistence
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrAutomationNotFound indicates no automation exists for the id.
	ErrAutomationNotFound = errors.New("automation not found")

	// ErrWorkflowNotFound indicates no workflow definition exists for the id.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrEnrollmentNotFound indicates no enrollment exists for the lookup.
	ErrEnrollmentNotFound = errors.New("enrollment not found")

	// ErrEnrollmentExists indicates a run-once enrollment already exists
	// for the (workflow, contact) pair.
	ErrEnrollmentExists = errors.New("enrollment already exists")
)

// Error wraps persistence errors with operation context.
type Error struct {
	Op  string // operation being performed, e.g. "GetByID", "Save"
	ID  string // entity id if applicable
	Err error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.ID, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a persistence error with context.
func NewError(op, id string, err error) *Error {
	return &Error{Op: op, ID: id, Err: err}
}

// IsAutomationNotFound checks if an error indicates a missing automation.
func IsAutomationNotFound(err error) bool {
	return errors.Is(err, ErrAutomationNotFound)
}

// IsWorkflowNotFound checks if an error indicates a missing workflow.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsEnrollmentNotFound checks if an error indicates a missing enrollment.
func IsEnrollmentNotFound(err error) bool {
	return errors.Is(err, ErrEnrollmentNotFound)
}

// IsEnrollmentExists checks if an error indicates a duplicate run-once
// enrollment.
func IsEnrollmentExists(err error) bool {
	return errors.Is(err, ErrEnrollmentExists)
}
