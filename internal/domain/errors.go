package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCostumeNotFound = errors.New("costume not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrPastDate        = errors.New("event date is in the past")
	ErrForbidden       = errors.New("forbidden")
	ErrAlreadyFinal    = errors.New("booking is already in a terminal status")
	ErrRateLimited     = errors.New("only one booking attempt per 30 seconds")
	ErrNegativeStock   = errors.New("stock cannot go negative")
)

// ValidationError lists the request fields that are missing or malformed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s", strings.Join(e.Fields, ", "))
}

// NewValidationError builds a ValidationError for the given fields.
func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConflictError is returned when availability is exhausted for a size on a
// date. Size and Date survive to the API response so the caller knows what
// exactly is taken.
type ConflictError struct {
	Size string
	Date string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("size %s taken on %s", e.Size, e.Date)
}

// IsConflict reports whether err is an availability conflict or a terminal
// status transition.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce) || errors.Is(err, ErrAlreadyFinal)
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCostumeNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
