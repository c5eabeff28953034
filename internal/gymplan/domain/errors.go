package domain

import (
	"errors"
	"fmt"

	"github.com/2beens/gymplanner/internal/datekey"
)

var (
	ErrValidationFailed  = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrRemoteUnavailable = errors.New("remote unavailable")
	ErrInvalidDate       = datekey.ErrInvalidDate
	ErrInvalidValue      = errors.New("invalid value")
	ErrAlreadyAssigned   = errors.New("activity already assigned for this date")
	ErrNotAssigned       = errors.New("activity assignment not found for this date")
	ErrNotFound          = errors.New("not found")
)

// ValidationError is returned for payloads rejected before any state change.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidationFailed, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidationFailed, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// ConflictError names the resource the authority rejected.
type ConflictError struct {
	Resource string
	Reason   string
}

func NewConflictError(resource, reason string) *ConflictError {
	return &ConflictError{Resource: resource, Reason: reason}
}

func (e *ConflictError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", ErrConflict, e.Resource)
	}
	return fmt.Sprintf("%s: %s: %s", ErrConflict, e.Resource, e.Reason)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// Classify maps any error onto the error taxonomy. Errors matching none of
// the known kinds are treated as remote failures.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidationFailed),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrRemoteUnavailable),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidValue),
		errors.Is(err, ErrAlreadyAssigned),
		errors.Is(err, ErrNotAssigned),
		errors.Is(err, ErrNotFound):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	}
}
