package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyEnrolled is returned when the user already holds an active or
// waitlisted enrollment in the workshop.
var ErrAlreadyEnrolled = errors.New("user already enrolled in this workshop")

// ErrInvalidTransition is returned for illegal status changes.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrCapacityInvariant signals that capacity or waitlist bookkeeping is
// inconsistent. It is never expected and is treated as data corruption.
var ErrCapacityInvariant = errors.New("capacity invariant violation")

// ErrForbidden is returned when the caller may not act on the resource.
var ErrForbidden = errors.New("forbidden")

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrWorkshopClosed is returned when enrolling in a workshop that is not
// active.
var ErrWorkshopClosed = errors.New("workshop is not accepting enrollments")
