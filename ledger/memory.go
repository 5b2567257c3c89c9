/*
Package ledger provides an in-process invoice ledger collaborator.

PURPOSE:
  The cheque engine consumes the invoice ledger through a narrow interface
  (cheque.InvoiceLedger); the real ledger lives in the finance system. This
  package implements that interface in memory for tests and for the demo
  server wiring, with the same contract the real one must honor: payment
  recording is idempotent keyed by sourceReference.

IDEMPOTENCY:
  RecordPayment deduplicates on sourceReference (the cheque id). A retried
  call returns the PaymentID minted the first time and records nothing new.
*/
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atrium/pdc-engine/cheque"
)

// Invoice is the minimal invoice the ledger needs to accept payments.
type Invoice struct {
	ID       cheque.InvoiceID
	TenantID cheque.TenantID
	Total    decimal.Decimal
}

// Payment is one recorded payment event.
type Payment struct {
	ID              cheque.PaymentID
	InvoiceID       cheque.InvoiceID
	Amount          decimal.Decimal
	Date            cheque.Date
	SourceReference string
	RecordedAt      time.Time
}

// Memory is an in-memory cheque.InvoiceLedger.
type Memory struct {
	mu       sync.RWMutex
	invoices map[cheque.InvoiceID]Invoice
	payments map[string]Payment // keyed by sourceReference
}

func NewMemory() *Memory {
	return &Memory{
		invoices: make(map[cheque.InvoiceID]Invoice),
		payments: make(map[string]Payment),
	}
}

// AddInvoice registers an invoice so payments against it are accepted.
func (m *Memory) AddInvoice(inv Invoice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[inv.ID] = inv
}

// RecordPayment records a payment exactly once per sourceReference.
func (m *Memory) RecordPayment(
	_ context.Context,
	invoiceID cheque.InvoiceID,
	amount decimal.Decimal,
	date cheque.Date,
	sourceReference string,
) (cheque.PaymentID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.payments[sourceReference]; ok {
		return existing.ID, nil
	}
	if _, ok := m.invoices[invoiceID]; !ok {
		return "", fmt.Errorf("invoice %s: %w", invoiceID, cheque.ErrInvoiceNotFound)
	}

	p := Payment{
		ID:              cheque.PaymentID(uuid.NewString()),
		InvoiceID:       invoiceID,
		Amount:          amount,
		Date:            date,
		SourceReference: sourceReference,
		RecordedAt:      time.Now().UTC(),
	}
	m.payments[sourceReference] = p
	return p.ID, nil
}

// InvoiceExists reports whether the invoice is registered.
func (m *Memory) InvoiceExists(_ context.Context, invoiceID cheque.InvoiceID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.invoices[invoiceID]
	return ok, nil
}

// PaymentsFor returns all payments recorded against an invoice.
func (m *Memory) PaymentsFor(invoiceID cheque.InvoiceID) []Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Payment
	for _, p := range m.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out
}
