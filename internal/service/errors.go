package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated means no requester identity was supplied.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrPermissionDenied means the actor lacks rights over the target.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrSlotConflict means the slot is occupied, whether detected by
	// the pre-check or by the atomic write.
	ErrSlotConflict = errors.New("slot already booked")

	// ErrNotFound means the referenced booking does not exist.
	ErrNotFound = errors.New("booking not found")

	// ErrInvalidTransition means the requested status change is not in
	// the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports missing or malformed user input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// QueryError wraps a store read failure. The caller may retry the
// operation; reads are side-effect free.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string { return fmt.Sprintf("query %s: %v", e.Op, e.Err) }
func (e *QueryError) Unwrap() error { return e.Err }

// WriteError wraps a store write failure. All writes are idempotent or
// conflict-detecting, so retrying is safe.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Op, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }
