/*
Package cheque implements the post-dated cheque (PDC) lifecycle engine.

PURPOSE:
  A post-dated cheque is an instrument a tenant hands over today that only
  becomes payable on the date printed on it. This package owns the full
  lifecycle of such an instrument: batch registration, the state machine
  that moves a cheque from RECEIVED through deposit and clearance (or
  bounce, replacement, withdrawal, cancellation), the daily due-date sweep,
  the payment bridge that settles cleared cheques against invoices, and the
  read-only dashboard projections.

KEY CONCEPTS IN THIS FILE (types.go):
  - Record: One post-dated cheque with its status, dates and relationships
  - Status: The lifecycle state (see machine.go for the transition table)
  - Typed IDs: ChequeID, TenantID, LeaseID, InvoiceID prevent mixups

DESIGN PRINCIPLES:
  1. Precision: amounts are decimal.Decimal, never floats
  2. Forward-only: lifecycle stamp dates are set exactly once, on transition
  3. Injected time: callers pass Date values; the core never consults a clock
  4. Auditability: records are never deleted; terminal states are retained

SEE ALSO:
  - machine.go: The authoritative transition table
  - registrar.go: Batch registration
  - engine.go: Transition operations
*/
package cheque

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ChequeID string
type TenantID string
type LeaseID string
type InvoiceID string
type PaymentID string

// NewChequeID mints a fresh cheque identifier.
func NewChequeID() ChequeID { return ChequeID(uuid.NewString()) }

// =============================================================================
// STATUS - Lifecycle state of a cheque
// =============================================================================

type Status string

const (
	StatusReceived  Status = "received"
	StatusDue       Status = "due"
	StatusDeposited Status = "deposited"
	StatusCleared   Status = "cleared"
	StatusBounced   Status = "bounced"
	StatusCancelled Status = "cancelled"
	StatusReplaced  Status = "replaced"
	StatusWithdrawn Status = "withdrawn"
)

// AllStatuses lists every lifecycle state, used for exhaustive checks.
var AllStatuses = []Status{
	StatusReceived, StatusDue, StatusDeposited, StatusCleared,
	StatusBounced, StatusCancelled, StatusReplaced, StatusWithdrawn,
}

// =============================================================================
// PAYMENT METHOD - How a withdrawn cheque was settled instead
// =============================================================================

type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCash         PaymentMethod = "cash"
	MethodNewCheque    PaymentMethod = "new_cheque"
)

// ValidPaymentMethod reports whether m is a known settlement method.
// The empty string is valid: the method is optional on withdrawal.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case "", MethodBankTransfer, MethodCash, MethodNewCheque:
		return true
	}
	return false
}

// =============================================================================
// RECORD - One post-dated cheque
// =============================================================================

// Record is the durable state of a single post-dated cheque.
//
// The replacement chain pointers (OriginalChequeID, ReplacementChequeID) are
// projections of the replacement_links side table; they are populated on load
// and never written directly. Each cheque has at most one predecessor and at
// most one successor, and the chain is acyclic by construction because a
// replacement is always a freshly created record.
type Record struct {
	ID           ChequeID
	ChequeNumber string
	BankName     string

	TenantID  TenantID
	LeaseID   LeaseID   // optional
	InvoiceID InvoiceID // optional: the invoice this cheque is expected to settle

	Amount     decimal.Decimal
	ChequeDate Date // date printed on the cheque; drives due/overdue computation

	// Lifecycle stamps. Each is set exactly once, by the transition that
	// introduces it, and is immutable afterwards.
	DepositDate    *Date
	ClearedDate    *Date
	BouncedDate    *Date
	WithdrawalDate *Date

	Status Status

	BounceReason string // required when Status is bounced

	// Withdrawal data, set only by the withdraw transition.
	WithdrawalReason string
	NewPaymentMethod PaymentMethod
	TransactionRef   string

	// Replacement chain projections (see replacement_links).
	OriginalChequeID    ChequeID
	ReplacementChequeID ChequeID

	Notes     string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Version supports optimistic concurrency: every successful transition
	// increments it, and updates carry the version they read.
	Version int
}

// IsOutstanding reports whether the cheque still counts toward outstanding
// value (registered but not yet settled or removed).
func (r *Record) IsOutstanding() bool {
	switch r.Status {
	case StatusReceived, StatusDue, StatusDeposited:
		return true
	}
	return false
}

// =============================================================================
// TENANT / LEASE SUMMARIES - What the directory resolves
// =============================================================================

type TenantSummary struct {
	ID    TenantID
	Name  string
	Email string
}

type LeaseSummary struct {
	ID       LeaseID
	TenantID TenantID
	Unit     string
	StartsOn Date
	EndsOn   Date
}
