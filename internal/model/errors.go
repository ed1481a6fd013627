package model

import (
	"errors"
	"fmt"
)

// ValidationError reports bad input: a non-positive amount, a missing regime
// on a hybrid owner, an unknown sort field and so on.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown entry, account or owner id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ReferentialIntegrityError reports an attempt to delete or reclassify a
// chart account that entries still reference.
type ReferentialIntegrityError struct {
	AccountID  string
	References int
	Reason     string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("account %q is referenced by %d entries: %s", e.AccountID, e.References, e.Reason)
}

// InsufficientDataError reports that an advisory figure (RBT12) cannot be
// computed from the available history.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return "insufficient data: " + e.Reason
}

// RetryableError wraps a transient store failure that outlived the retry
// policy. Callers may retry the whole request later.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s: temporarily unavailable: %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsReferentialIntegrity reports whether err is or wraps a *ReferentialIntegrityError.
func IsReferentialIntegrity(err error) bool {
	var target *ReferentialIntegrityError
	return errors.As(err, &target)
}

// IsInsufficientData reports whether err is or wraps an *InsufficientDataError.
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}

// IsRetryable reports whether err is or wraps a *RetryableError.
func IsRetryable(err error) bool {
	var target *RetryableError
	return errors.As(err, &target)
}
