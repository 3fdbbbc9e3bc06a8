package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiwari-pos/terminal/internal/enum"
)

// Errors returned by the lifecycle core. Match with errors.Is.
var (
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrPreconditionFailed   = errors.New("order status precondition failed")
	ErrTransport            = errors.New("store unreachable")
	ErrNotFound             = errors.New("not found")
	ErrShiftAlreadyOpen     = errors.New("staff member already has an open shift")
	ErrShiftNotOpen         = errors.New("shift is not open")
	ErrConsistencyViolation = errors.New("consistency violation")
	ErrForbidden            = errors.New("role not permitted for this action")
	ErrInvalidInput         = errors.New("invalid input")
)

// TransitionError is returned when an action is not allowed from the
// order's current status.
type TransitionError struct {
	From   enum.OrderStatus
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s an order in status %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ConflictError reports an expected-status mismatch: the order moved on
// (locally or in the store) before the write landed.
type ConflictError struct {
	OrderID  uuid.UUID
	Expected enum.OrderStatus
	Actual   enum.OrderStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("order %s: expected status %s, found %s", e.OrderID, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error { return ErrPreconditionFailed }

// ConsistencyError flags data that breaks an invariant. These are reported
// for manual review and never corrected automatically.
type ConsistencyError struct {
	OrderID uuid.UUID
	TableID *uuid.UUID
	Reason  string
}

func (e *ConsistencyError) Error() string {
	if e.TableID != nil {
		return fmt.Sprintf("order %s, table %s: %s", e.OrderID, *e.TableID, e.Reason)
	}
	return fmt.Sprintf("order %s: %s", e.OrderID, e.Reason)
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistencyViolation }

type inputError string

func (e inputError) Error() string { return string(e) }
func (e inputError) Unwrap() error { return ErrInvalidInput }

// InvalidInput returns a validation error matching ErrInvalidInput.
func InvalidInput(msg string) error { return inputError(msg) }

// TransportError wraps a low-level failure so callers can match ErrTransport
// while keeping the cause for logs.
func TransportError(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, cause)
}
