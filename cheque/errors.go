/*
errors.go - Centralized error types for the cheque engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers distinguish classes with errors.Is/errors.As.

ERROR CATEGORIES:
  1. Validation errors  - malformed registration or transition input
  2. Transition errors  - state machine rejections
  3. Lookup errors      - missing cheque/tenant/lease/invoice
  4. Conflict errors    - optimistic concurrency detection
  5. Dependency errors  - payment ledger failures

SEE ALSO:
  - machine.go: Produces IllegalTransitionError
  - registrar.go: Produces ValidationError
  - engine.go: Produces ConflictError and DependencyError
*/
package cheque

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrChequeNotFound is returned when a referenced cheque doesn't exist.
	ErrChequeNotFound = errors.New("cheque not found")

	// ErrTenantNotFound is returned when a referenced tenant doesn't exist.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrLeaseNotFound is returned when a referenced lease doesn't exist.
	ErrLeaseNotFound = errors.New("lease not found")

	// ErrInvoiceNotFound is returned when a referenced invoice doesn't exist.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrConcurrentModification is returned when an optimistic version check
	// detects that another request mutated the cheque first.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrIllegalTransition is returned when a transition is requested from a
	// state that does not permit it.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrPaymentRecording is returned when the invoice ledger rejects or fails
	// the payment command issued on clearance.
	ErrPaymentRecording = errors.New("payment recording failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldViolation describes one failed validation on one batch entry.
// EntryIndex is -1 for batch-level violations (e.g. size out of range).
type FieldViolation struct {
	EntryIndex int
	Field      string
	Message    string
}

func (v FieldViolation) String() string {
	if v.EntryIndex < 0 {
		return fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return fmt.Sprintf("entry[%d].%s: %s", v.EntryIndex, v.Field, v.Message)
}

// ValidationError aggregates every violation found in a registration or
// transition request. Batch validation reports all violations, not just the
// first, so the operator can fix the whole batch in one pass.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IllegalTransitionError reports a transition requested outside its
// precondition set. It names the current state, the attempted trigger and the
// triggers that are legal from that state, so the operator understands the
// cheque's real position rather than seeing a generic failure.
type IllegalTransitionError struct {
	ChequeID ChequeID
	Current  Status
	Trigger  Trigger
	Allowed  []Trigger
}

func (e *IllegalTransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, t := range e.Allowed {
		allowed[i] = string(t)
	}
	if len(allowed) == 0 {
		return fmt.Sprintf("cannot %s cheque %s: status %s is final",
			e.Trigger, e.ChequeID, e.Current)
	}
	return fmt.Sprintf("cannot %s cheque %s in status %s (allowed: %s)",
		e.Trigger, e.ChequeID, e.Current, strings.Join(allowed, ", "))
}

func (e *IllegalTransitionError) Unwrap() error { return ErrIllegalTransition }

// ConflictError reports that a concurrent request won the race on a cheque.
// The caller should re-read the record and retry if the transition still
// makes sense against the fresh state.
type ConflictError struct {
	ChequeID ChequeID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cheque %s was modified concurrently, re-read and retry", e.ChequeID)
}

func (e *ConflictError) Unwrap() error { return ErrConcurrentModification }

// DependencyError reports that the payment bridge's external call failed.
// The triggering transition is rolled back, never partially applied.
type DependencyError struct {
	ChequeID  ChequeID
	InvoiceID InvoiceID
	Cause     error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("cheque %s: recording payment on invoice %s failed: %v",
		e.ChequeID, e.InvoiceID, e.Cause)
}

func (e *DependencyError) Unwrap() error { return ErrPaymentRecording }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrPaymentRecording)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrIllegalTransition)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrChequeNotFound) ||
		errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrLeaseNotFound) ||
		errors.Is(err, ErrInvoiceNotFound)
}
