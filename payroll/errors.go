/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is / errors.As; the HTTP layer maps the
  categories onto status codes.

ERROR CATEGORIES:
  1. Validation - Bad input (non-positive CTC, present > working days,
     empty rejection reason, negative reimbursement)
  2. Not found - Unknown entry, employee or period
  3. Illegal transition - Workflow rule violation, finalized entries
  4. Concurrency conflict - A write was superseded by a concurrent write

SEE ALSO:
  - workflow.go: Produces TransitionError
  - store.go: Stores produce ConflictError
  - api/handlers.go: Maps categories to HTTP status codes
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the category for every input validation failure.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is the category for unknown entries, employees and periods.
	ErrNotFound = errors.New("not found")

	ErrEntryNotFound    = fmt.Errorf("payroll entry %w", ErrNotFound)
	ErrEmployeeNotFound = fmt.Errorf("employee %w", ErrNotFound)
	ErrPeriodNotFound   = fmt.Errorf("payroll period %w", ErrNotFound)

	// ErrIllegalTransition is returned when the workflow forbids a status change.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrEntryFinalized is returned when a recalculation would overwrite an
	// approved or rejected entry without the force flag.
	ErrEntryFinalized = fmt.Errorf("entry already approved or rejected: %w", ErrIllegalTransition)

	// ErrConcurrentModification is returned when optimistic locking detects a conflict.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransitionError describes a refused workflow action.
type TransitionError struct {
	EntryID EntryID
	From    Status
	Action  string
	Err     error // defaults to ErrIllegalTransition
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s entry %s in status %s: %v", e.Action, e.EntryID, e.From, e.Unwrap())
}

func (e *TransitionError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrIllegalTransition
}

// ConflictError is returned by stores when the saved version does not match.
type ConflictError struct {
	Key      EntryKey
	Expected int
	Actual   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("entry %s: expected version %d, found %d", e.Key, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error { return ErrConcurrentModification }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrIllegalTransition)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
