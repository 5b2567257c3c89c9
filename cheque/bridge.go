/*
bridge.go - Payment recording on cheque clearance

PURPOSE:
  When a cheque linked to an invoice clears, the invoice must see exactly one
  payment for it: never zero, never two, even when the clear transition is
  retried after a crash. The bridge owns that guarantee; it does not own any
  invoice balance math.

IDEMPOTENCY:
  The cheque id is the payment's sourceReference. The ledger deduplicates on
  it, so a retried clearance returns the original PaymentID and records
  nothing new.

SEE ALSO:
  - engine.go: Calls RecordClearance inside the clear transaction
  - ledger/memory.go: Reference ledger implementation
*/
package cheque

import "context"

// PaymentBridge issues the idempotent payment command for cleared cheques.
type PaymentBridge struct {
	Ledger InvoiceLedger
}

// RecordClearance records the cheque's amount as a payment on its linked
// invoice, dated with the cleared date. Cheques without an invoice link are a
// no-op. A ledger failure is wrapped in a DependencyError so the caller rolls
// the clear transition back.
func (b *PaymentBridge) RecordClearance(ctx context.Context, r *Record) (PaymentID, error) {
	if r.InvoiceID == "" {
		return "", nil
	}

	paymentID, err := b.Ledger.RecordPayment(ctx, r.InvoiceID, r.Amount, *r.ClearedDate, string(r.ID))
	if err != nil {
		return "", &DependencyError{ChequeID: r.ID, InvoiceID: r.InvoiceID, Cause: err}
	}
	return paymentID, nil
}
