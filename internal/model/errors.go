package model

import (
	"errors"
	"fmt"
)

// Not-found conditions.
var (
	ErrItemNotFound  = errors.New("item not found")
	ErrClaimNotFound = errors.New("claim not found")
)

// Conflict conditions raised by the claim workflow and item updates.
var (
	ErrItemNotOpen       = errors.New("item is no longer available for claims")
	ErrOwnItem           = errors.New("you cannot claim your own item")
	ErrDuplicateClaim    = errors.New("you have already submitted a claim for this item")
	ErrClaimReviewed     = errors.New("claim has already been reviewed")
	ErrItemNotClaimed    = errors.New("item is not awaiting a claim decision")
	ErrInvalidDecision   = errors.New("invalid status")
	ErrInvalidTransition = errors.New("invalid status change")
	ErrEmailTaken        = errors.New("email already registered")
)

// IsConflict reports whether err is one of the workflow conflict conditions.
func IsConflict(err error) bool {
	for _, target := range []error{
		ErrItemNotOpen, ErrOwnItem, ErrDuplicateClaim, ErrClaimReviewed,
		ErrItemNotClaimed, ErrInvalidDecision, ErrInvalidTransition, ErrEmailTaken,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ValidationError reports invalid client input. Its message is safe to show.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Invalid returns a ValidationError with a formatted message.
func Invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
