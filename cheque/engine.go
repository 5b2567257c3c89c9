/*
engine.go - Operator-driven lifecycle transitions

PURPOSE:
  Applies the state machine to stored records. Every operation follows the
  same shape: load the record inside a transaction, consult the transition
  table, apply the effects (status, date stamp, linked data), and commit with
  an optimistic version check. Two concurrent requests on the same cheque
  therefore resolve to exactly one winner and one ConflictError.

CLEARANCE AND PAYMENT:
  Clear issues the payment command to the invoice ledger inside the same
  transaction that writes the status change. A ledger failure rolls the whole
  transition back (DependencyError). If the ledger call succeeds but the local
  commit fails, the retried Clear converges: RecordPayment is idempotent keyed
  by the cheque id, so the invoice still sees exactly one payment.

NOTIFICATIONS:
  Events are emitted after the transaction commits, never inside it, so a
  rolled-back transition produces no notification.

SEE ALSO:
  - machine.go: The transition table this engine consults
  - bridge.go: The payment side of clearance
*/
package cheque

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Engine applies lifecycle transitions to cheque records.
type Engine struct {
	Store    TxStore
	Bridge   *PaymentBridge
	Notifier Notifier
}

// NewEngine wires an engine with its collaborators. A nil notifier is
// replaced with a no-op one.
func NewEngine(store TxStore, bridge *PaymentBridge, notifier Notifier) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{Store: store, Bridge: bridge, Notifier: notifier}
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Deposit marks a received or due cheque as presented to the bank.
func (e *Engine) Deposit(ctx context.Context, id ChequeID, depositDate Date, notes string) (*Record, error) {
	if depositDate.IsZero() {
		return nil, requiredField("depositDate")
	}

	rec, err := e.transition(ctx, id, TriggerDeposit, func(r *Record) error {
		d := depositDate
		r.DepositDate = &d
		appendNote(r, notes)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.Notifier.ChequeDeposited(ctx, eventFor(rec, depositDate, ""))
	return rec, nil
}

// Clear marks a deposited cheque as honored by the bank and, when the cheque
// is linked to an invoice, records the payment against it.
func (e *Engine) Clear(ctx context.Context, id ChequeID, clearedDate Date) (*Record, error) {
	if clearedDate.IsZero() {
		return nil, requiredField("clearedDate")
	}

	return e.transition(ctx, id, TriggerClear, func(r *Record) error {
		d := clearedDate
		r.ClearedDate = &d
		if _, err := e.Bridge.RecordClearance(ctx, r); err != nil {
			return err
		}
		return nil
	})
}

// Bounce marks a deposited cheque as rejected by the bank.
func (e *Engine) Bounce(ctx context.Context, id ChequeID, bouncedDate Date, reason string) (*Record, error) {
	var violations []FieldViolation
	if bouncedDate.IsZero() {
		violations = append(violations, FieldViolation{EntryIndex: -1, Field: "bouncedDate", Message: "is required"})
	}
	if reason == "" {
		violations = append(violations, FieldViolation{EntryIndex: -1, Field: "reason", Message: "is required"})
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	rec, err := e.transition(ctx, id, TriggerBounce, func(r *Record) error {
		d := bouncedDate
		r.BouncedDate = &d
		r.BounceReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.Notifier.ChequeBounced(ctx, eventFor(rec, bouncedDate, reason))
	return rec, nil
}

// ReplacementResult pairs the retired original with its fresh replacement.
type ReplacementResult struct {
	Original    *Record
	Replacement *Record
}

// Replace retires a bounced cheque and registers a fresh one in its place.
// The new cheque is validated with the registrar's entry rules, starts in
// status received, and is linked to the original in both directions.
func (e *Engine) Replace(ctx context.Context, id ChequeID, entry BatchEntry, createdBy string) (*ReplacementResult, error) {
	if violations := validateEntry(0, entry); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	if entry.InvoiceID != "" {
		exists, err := e.Bridge.Ledger.InvoiceExists(ctx, entry.InvoiceID)
		if err != nil {
			return nil, fmt.Errorf("failed to check invoice %s: %w", entry.InvoiceID, err)
		}
		if !exists {
			return nil, &ValidationError{Violations: []FieldViolation{{
				EntryIndex: 0,
				Field:      "invoiceId",
				Message:    fmt.Sprintf("invoice %s not found", entry.InvoiceID),
			}}}
		}
	}

	var result *ReplacementResult
	err := e.Store.WithTx(ctx, func(s Store) error {
		original, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if original == nil {
			return fmt.Errorf("cheque %s: %w", id, ErrChequeNotFound)
		}

		next, err := Next(original.ID, original.Status, TriggerReplace)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		replacement := newRecord(original.TenantID, original.LeaseID, entry, createdBy, now)
		if err := s.Insert(ctx, replacement); err != nil {
			return fmt.Errorf("failed to insert replacement cheque: %w", err)
		}
		if err := s.LinkReplacement(ctx, original.ID, replacement.ID); err != nil {
			return fmt.Errorf("failed to link replacement: %w", err)
		}

		prev := original.Version
		original.Status = next
		original.UpdatedAt = now
		if err := s.Update(ctx, *original, prev); err != nil {
			return translateConflict(id, err)
		}
		original.Version = prev + 1

		original.ReplacementChequeID = replacement.ID
		replacement.OriginalChequeID = original.ID
		result = &ReplacementResult{Original: original, Replacement: &replacement}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Withdraw pulls a cheque back before it reaches the bank, recording how the
// obligation was (or will be) settled instead. A newPaymentMethod of
// new_cheque is informational only; it does not create a linked record.
func (e *Engine) Withdraw(
	ctx context.Context,
	id ChequeID,
	date Date,
	reason string,
	method PaymentMethod,
	transactionRef string,
) (*Record, error) {
	var violations []FieldViolation
	if date.IsZero() {
		violations = append(violations, FieldViolation{EntryIndex: -1, Field: "withdrawalDate", Message: "is required"})
	}
	if reason == "" {
		violations = append(violations, FieldViolation{EntryIndex: -1, Field: "reason", Message: "is required"})
	}
	if !ValidPaymentMethod(method) {
		violations = append(violations, FieldViolation{EntryIndex: -1, Field: "newPaymentMethod", Message: fmt.Sprintf("unknown method %q", method)})
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	return e.transition(ctx, id, TriggerWithdraw, func(r *Record) error {
		d := date
		r.WithdrawalDate = &d
		r.WithdrawalReason = reason
		r.NewPaymentMethod = method
		r.TransactionRef = transactionRef
		return nil
	})
}

// Cancel removes a cheque from the active workflow before any irreversible
// bank-side event. The record is retained for audit.
func (e *Engine) Cancel(ctx context.Context, id ChequeID, notes string) (*Record, error) {
	return e.transition(ctx, id, TriggerCancel, func(r *Record) error {
		appendNote(r, notes)
		return nil
	})
}

// MarkDue promotes a received cheque whose date has entered the due window.
// Only the sweep calls this; it is exported for the sweep package boundary
// and for tests.
func (e *Engine) MarkDue(ctx context.Context, id ChequeID) (*Record, error) {
	return e.transition(ctx, id, TriggerMarkDue, func(*Record) error { return nil })
}

// =============================================================================
// INTERNALS
// =============================================================================

// transition runs the load / table-check / mutate / version-checked-update
// sequence for one trigger inside a single store transaction.
func (e *Engine) transition(ctx context.Context, id ChequeID, trig Trigger, mutate func(*Record) error) (*Record, error) {
	var out *Record
	err := e.Store.WithTx(ctx, func(s Store) error {
		rec, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("cheque %s: %w", id, ErrChequeNotFound)
		}

		next, err := Next(rec.ID, rec.Status, trig)
		if err != nil {
			return err
		}

		prev := rec.Version
		rec.Status = next
		if err := mutate(rec); err != nil {
			return err
		}
		rec.UpdatedAt = time.Now().UTC()

		if err := s.Update(ctx, *rec, prev); err != nil {
			return translateConflict(id, err)
		}
		rec.Version = prev + 1
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func translateConflict(id ChequeID, err error) error {
	if errors.Is(err, ErrConcurrentModification) {
		return &ConflictError{ChequeID: id}
	}
	return err
}

func requiredField(field string) error {
	return &ValidationError{Violations: []FieldViolation{{
		EntryIndex: -1,
		Field:      field,
		Message:    "is required",
	}}}
}

func appendNote(r *Record, note string) {
	if note == "" {
		return
	}
	if r.Notes == "" {
		r.Notes = note
		return
	}
	r.Notes = r.Notes + "\n" + note
}

func eventFor(r *Record, eventDate Date, reason string) Event {
	return Event{
		ChequeID:     r.ID,
		TenantID:     r.TenantID,
		ChequeNumber: r.ChequeNumber,
		Amount:       r.Amount,
		ChequeDate:   r.ChequeDate,
		EventDate:    eventDate,
		Reason:       reason,
	}
}
