/*
collaborators.go - Interfaces to the systems the cheque engine consumes

PURPOSE:
  The engine does not own invoices, tenants or notification dispatch. It
  consumes three narrow interfaces; the rest of the back office provides
  implementations (store/sqlite implements Directory, the ledger package
  provides an InvoiceLedger, api provides a zap Notifier).

SEE ALSO:
  - bridge.go: Uses InvoiceLedger on clearance
  - registrar.go: Uses Directory and InvoiceLedger for existence checks
  - sweep.go, engine.go: Emit Notifier events
*/
package cheque

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INVOICE LEDGER - External payment recording
// =============================================================================

// InvoiceLedger records payments against invoices.
//
// RecordPayment is idempotent keyed by sourceReference (the cheque id): a
// retried call for the same reference returns the original PaymentID and
// records nothing new. That key is what makes "exactly one payment per cheque
// clearance" hold across crashes and retries.
type InvoiceLedger interface {
	RecordPayment(ctx context.Context, invoiceID InvoiceID, amount decimal.Decimal, date Date, sourceReference string) (PaymentID, error)

	// InvoiceExists reports whether the invoice is known to the ledger.
	InvoiceExists(ctx context.Context, invoiceID InvoiceID) (bool, error)
}

// =============================================================================
// DIRECTORY - Tenant and lease resolution
// =============================================================================

// Directory resolves tenant and lease identity. Lookups return (nil, nil)
// when the record is absent.
type Directory interface {
	ResolveTenant(ctx context.Context, id TenantID) (*TenantSummary, error)
	ResolveLease(ctx context.Context, id LeaseID) (*LeaseSummary, error)
}

// =============================================================================
// NOTIFIER - Fire-and-forget lifecycle events
// =============================================================================

// Event carries what a dispatcher needs to build a notification. Fields not
// relevant to a given event kind are zero.
type Event struct {
	ChequeID     ChequeID
	TenantID     TenantID
	ChequeNumber string
	Amount       decimal.Decimal
	ChequeDate   Date
	EventDate    Date   // deposit/bounce date for those events
	Reason       string // bounce reason
}

// Notifier receives lifecycle events after the owning transaction commits.
// Dispatch mechanics (email, webhooks) are outside the core; implementations
// must not fail the caller.
type Notifier interface {
	ChequeDeposited(ctx context.Context, e Event)
	ChequeBounced(ctx context.Context, e Event)
	ChequeDepositDue(ctx context.Context, e Event)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) ChequeDeposited(context.Context, Event)  {}
func (NopNotifier) ChequeBounced(context.Context, Event)    {}
func (NopNotifier) ChequeDepositDue(context.Context, Event) {}
