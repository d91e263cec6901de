package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrProviderFailure = errors.New("provider failure")
	ErrInconsistent    = errors.New("internal consistency violation")
)

// ValidationError identifies the first request field that violated a
// constraint. It matches ErrValidation for errors.Is checks.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a field-identified validation failure.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError signals an operation that is illegal in the entity's current
// state, such as cancelling an already terminal job.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string        { return e.Message }
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// NewConflictError builds a state-conflict failure.
func NewConflictError(msg string) *ConflictError { return &ConflictError{Message: msg} }

// NotReadyError is raised when a result is requested before the job reached
// the completed state. Status carries the job's current state so callers can
// report it.
type NotReadyError struct {
	Status JobStatus
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("job is not completed yet (status: %s)", e.Status)
}
