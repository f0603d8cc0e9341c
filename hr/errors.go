/*
errors.go - Error taxonomy for the engine

PURPOSE:
  All error types in one place. Every engine operation returns either a
  success value or one of these (possibly wrapped with fmt.Errorf %w).

ERROR CATEGORIES:
  1. Validation        - malformed or contradictory input
  2. InvalidTransition - state machine violation
  3. DuplicateRecord   - uniqueness violation on a business key
  4. InsufficientBalance - leave balance would go negative
  5. ArithmeticOverflow  - decimal exceeds the declared precision
  6. NotFound          - referenced entity absent
  7. PermissionDenied  - actor lacks the role (raised at the boundary)

USAGE:
  Structured errors unwrap to their sentinel, so callers can use either:

    if errors.Is(err, hr.ErrDuplicateRecord) { ... }

    var dup *hr.DuplicateRecordError
    if errors.As(err, &dup) { log(dup.Key) }
*/
package hr

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrDuplicateRecord     = errors.New("duplicate record")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrArithmeticOverflow  = errors.New("arithmetic overflow")
	ErrNotFound            = errors.New("not found")
	ErrPermissionDenied    = errors.New("permission denied")

	// ErrConcurrentModification is returned by stores when a compare-and-set
	// update finds the row changed underneath it. Services translate it into
	// an InvalidTransitionError.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidTransitionError reports an action attempted from a state that does
// not allow it.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in status %s", e.Action, e.Entity, e.ID, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

type DuplicateRecordError struct {
	Entity string
	Key    string
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("%s already exists for %s", e.Entity, e.Key)
}

func (e *DuplicateRecordError) Unwrap() error { return ErrDuplicateRecord }

// InsufficientBalanceError provides details about a leave balance shortage.
type InsufficientBalanceError struct {
	EmployeeID string
	LeaveType  LeaveType
	Available  int
	Requested  int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for %s: available %d, requested %d",
		e.LeaveType, e.EmployeeID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

type ArithmeticOverflowError struct {
	Field string
	Value decimal.Decimal
}

func (e *ArithmeticOverflowError) Error() string {
	return fmt.Sprintf("%s value %s exceeds %d integer digits", e.Field, e.Value.String(), MaxIntegerDigits)
}

func (e *ArithmeticOverflowError) Unwrap() error { return ErrArithmeticOverflow }

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type PermissionDeniedError struct {
	Role   Role
	Action string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("role %q may not %s", e.Role, e.Action)
}

func (e *PermissionDeniedError) Unwrap() error { return ErrPermissionDenied }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrArithmeticOverflow)
}

// IsConflict returns true if the error reflects current state rather than input.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateRecord) ||
		errors.Is(err, ErrConcurrentModification)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
