/*
registrar.go - Batch registration of post-dated cheques

PURPOSE:
  A tenant typically hands over a year of rent as a stack of cheques at lease
  signing. The registrar validates the whole stack and creates one record per
  cheque, all in status received, as a single atomic unit: if any entry is
  malformed or references an unknown invoice, nothing is persisted.

VALIDATION RULES (per entry):
  - amount > 0
  - cheque date present
  - cheque number non-blank, length 3-50
  - bank name non-blank, length <= 100
  - invoice reference, when given, must exist in the ledger

BOUNDARY BEHAVIOR:
  Registration never promotes a cheque to due, even when its date is already
  inside the due window. Promotion is the sweep's job on its next run; keeping
  that single writer makes the promotion path testable and race-free.

SEE ALSO:
  - engine.go: Replace reuses the same entry validation
  - sweep.go: The promotion path
*/
package cheque

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Batch size bounds. A standard annual PDC stack is 12 cheques; 24 covers
// bi-monthly schedules with headroom.
const (
	MinBatchSize = 1
	MaxBatchSize = 24
)

// BatchEntry is one cheque in a registration request.
type BatchEntry struct {
	ChequeNumber string
	BankName     string
	Amount       decimal.Decimal
	ChequeDate   Date
	InvoiceID    InvoiceID // optional
	Notes        string
}

// Registrar creates cheque records in atomic batches.
type Registrar struct {
	Store     TxStore
	Directory Directory
	Ledger    InvoiceLedger
}

// RegisterBatch validates and creates 1..24 cheques for one tenant, all in
// status received, all-or-nothing. It returns the created records in entry
// order, or a ValidationError listing every violation.
func (r *Registrar) RegisterBatch(
	ctx context.Context,
	tenantID TenantID,
	leaseID LeaseID,
	entries []BatchEntry,
	createdBy string,
) ([]Record, error) {
	var violations []FieldViolation

	if len(entries) < MinBatchSize || len(entries) > MaxBatchSize {
		return nil, &ValidationError{Violations: []FieldViolation{{
			EntryIndex: -1,
			Field:      "entries",
			Message:    fmt.Sprintf("batch size must be between %d and %d, got %d", MinBatchSize, MaxBatchSize, len(entries)),
		}}}
	}

	tenant, err := r.Directory.ResolveTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tenant %s: %w", tenantID, err)
	}
	if tenant == nil {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, ErrTenantNotFound)
	}

	if leaseID != "" {
		lease, err := r.Directory.ResolveLease(ctx, leaseID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve lease %s: %w", leaseID, err)
		}
		if lease == nil {
			return nil, fmt.Errorf("lease %s: %w", leaseID, ErrLeaseNotFound)
		}
		if lease.TenantID != tenantID {
			violations = append(violations, FieldViolation{
				EntryIndex: -1,
				Field:      "leaseId",
				Message:    fmt.Sprintf("lease %s does not belong to tenant %s", leaseID, tenantID),
			})
		}
	}

	for i, e := range entries {
		violations = append(violations, validateEntry(i, e)...)

		if e.InvoiceID != "" {
			exists, err := r.Ledger.InvoiceExists(ctx, e.InvoiceID)
			if err != nil {
				return nil, fmt.Errorf("failed to check invoice %s: %w", e.InvoiceID, err)
			}
			if !exists {
				violations = append(violations, FieldViolation{
					EntryIndex: i,
					Field:      "invoiceId",
					Message:    fmt.Sprintf("invoice %s not found", e.InvoiceID),
				})
			}
		}
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	now := time.Now().UTC()
	records := make([]Record, len(entries))
	for i, e := range entries {
		records[i] = newRecord(tenantID, leaseID, e, createdBy, now)
	}

	// Single transaction: either every cheque in the batch becomes visible or
	// none does.
	err = r.Store.WithTx(ctx, func(s Store) error {
		for _, rec := range records {
			if err := s.Insert(ctx, rec); err != nil {
				return fmt.Errorf("failed to insert cheque %s: %w", rec.ChequeNumber, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// newRecord builds a fresh record in status received.
func newRecord(tenantID TenantID, leaseID LeaseID, e BatchEntry, createdBy string, now time.Time) Record {
	return Record{
		ID:           NewChequeID(),
		ChequeNumber: strings.TrimSpace(e.ChequeNumber),
		BankName:     strings.TrimSpace(e.BankName),
		TenantID:     tenantID,
		LeaseID:      leaseID,
		InvoiceID:    e.InvoiceID,
		Amount:       e.Amount,
		ChequeDate:   e.ChequeDate,
		Status:       StatusReceived,
		Notes:        e.Notes,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

// validateEntry checks one batch entry's fields and returns every violation.
func validateEntry(index int, e BatchEntry) []FieldViolation {
	var out []FieldViolation

	if !e.Amount.IsPositive() {
		out = append(out, FieldViolation{
			EntryIndex: index,
			Field:      "amount",
			Message:    fmt.Sprintf("must be positive, got %s", e.Amount),
		})
	}

	if e.ChequeDate.IsZero() {
		out = append(out, FieldViolation{
			EntryIndex: index,
			Field:      "chequeDate",
			Message:    "is required",
		})
	}

	number := strings.TrimSpace(e.ChequeNumber)
	if len(number) < 3 || len(number) > 50 {
		out = append(out, FieldViolation{
			EntryIndex: index,
			Field:      "chequeNumber",
			Message:    fmt.Sprintf("must be 3-50 characters, got %d", len(number)),
		})
	}

	bank := strings.TrimSpace(e.BankName)
	if bank == "" || len(bank) > 100 {
		out = append(out, FieldViolation{
			EntryIndex: index,
			Field:      "bankName",
			Message:    fmt.Sprintf("must be non-blank and at most 100 characters, got %d", len(bank)),
		})
	}

	return out
}
