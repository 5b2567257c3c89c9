/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Cheques:
    ChequeDTO, RegisterBatchRequest, BatchEntryRequest,
    DepositRequest, ClearRequest, BounceRequest, ReplaceRequest,
    WithdrawRequest, CancelRequest, ActionsDTO

  Reporting:
    DashboardSummaryDTO, UpcomingChequeDTO, TenantHistoryDTO

  Directory:
    TenantDTO, CreateTenantRequest, LeaseDTO, CreateLeaseRequest

  Sweep:
    SweepReportDTO, SweepRunDTO

MONEY:
  Amounts travel as JSON strings ("1250.00"), never floats. The domain
  works in decimals end to end and the API does not round-trip through
  float64.

SEE ALSO:
  - handlers.go: Uses these types
  - cheque/types.go: The domain model these mirror
*/
package api

import (
	"time"

	"github.com/atrium/pdc-engine/cheque"
)

// =============================================================================
// CHEQUE TYPES
// =============================================================================

// ChequeDTO represents one post-dated cheque in API responses.
type ChequeDTO struct {
	ID           string `json:"id"`
	ChequeNumber string `json:"cheque_number"`
	BankName     string `json:"bank_name"`
	TenantID     string `json:"tenant_id"`
	LeaseID      string `json:"lease_id,omitempty"`
	InvoiceID    string `json:"invoice_id,omitempty"`

	Amount     string `json:"amount"`
	ChequeDate string `json:"cheque_date"`

	Status string `json:"status"`

	DepositDate    string `json:"deposit_date,omitempty"`
	ClearedDate    string `json:"cleared_date,omitempty"`
	BouncedDate    string `json:"bounced_date,omitempty"`
	WithdrawalDate string `json:"withdrawal_date,omitempty"`

	BounceReason     string `json:"bounce_reason,omitempty"`
	WithdrawalReason string `json:"withdrawal_reason,omitempty"`
	NewPaymentMethod string `json:"new_payment_method,omitempty"`
	TransactionRef   string `json:"transaction_ref,omitempty"`

	OriginalChequeID    string `json:"original_cheque_id,omitempty"`
	ReplacementChequeID string `json:"replacement_cheque_id,omitempty"`

	Notes     string `json:"notes,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	Version   int    `json:"version"`
}

// BatchEntryRequest is one cheque inside a registration batch.
type BatchEntryRequest struct {
	ChequeNumber string `json:"cheque_number"`
	BankName     string `json:"bank_name"`
	Amount       string `json:"amount"`
	ChequeDate   string `json:"cheque_date"`
	InvoiceID    string `json:"invoice_id,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// RegisterBatchRequest registers 1..24 cheques for a tenant.
type RegisterBatchRequest struct {
	LeaseID   string              `json:"lease_id,omitempty"`
	CreatedBy string              `json:"created_by,omitempty"`
	Entries   []BatchEntryRequest `json:"entries"`
}

// DepositRequest marks a cheque as presented to the bank.
type DepositRequest struct {
	DepositDate string `json:"deposit_date"`
	Notes       string `json:"notes,omitempty"`
}

// ClearRequest marks a deposited cheque as honored.
type ClearRequest struct {
	ClearedDate string `json:"cleared_date"`
}

// BounceRequest records a dishonored cheque.
type BounceRequest struct {
	BouncedDate string `json:"bounced_date"`
	Reason      string `json:"reason"`
}

// ReplaceRequest retires a bounced cheque with a fresh one.
type ReplaceRequest struct {
	CreatedBy   string            `json:"created_by,omitempty"`
	Replacement BatchEntryRequest `json:"replacement"`
}

// WithdrawRequest pulls a cheque back before it reaches the bank.
type WithdrawRequest struct {
	WithdrawalDate   string `json:"withdrawal_date"`
	Reason           string `json:"reason"`
	NewPaymentMethod string `json:"new_payment_method,omitempty"`
	TransactionRef   string `json:"transaction_ref,omitempty"`
}

// CancelRequest removes a cheque from the active workflow.
type CancelRequest struct {
	Notes string `json:"notes,omitempty"`
}

// ActionsDTO lists what an operator may do to a cheque right now. The UI
// renders buttons straight off these flags.
type ActionsDTO struct {
	ID     string `json:"id"`
	Status string `json:"status"`

	CanDeposit  bool `json:"can_deposit"`
	CanClear    bool `json:"can_clear"`
	CanBounce   bool `json:"can_bounce"`
	CanReplace  bool `json:"can_replace"`
	CanWithdraw bool `json:"can_withdraw"`
	CanCancel   bool `json:"can_cancel"`
}

// ReplacementDTO pairs the retired original with its fresh replacement.
type ReplacementDTO struct {
	Original    ChequeDTO `json:"original"`
	Replacement ChequeDTO `json:"replacement"`
}

// =============================================================================
// REPORTING TYPES
// =============================================================================

// DashboardSummaryDTO carries the operator KPIs.
type DashboardSummaryDTO struct {
	AsOf string `json:"as_of"`

	TotalPDCsReceived int `json:"total_pdcs_received"`

	DueThisWeekCount int    `json:"due_this_week_count"`
	DueThisWeekValue string `json:"due_this_week_value"`

	DepositedThisMonthCount int    `json:"deposited_this_month_count"`
	DepositedThisMonthValue string `json:"deposited_this_month_value"`

	TotalOutstandingValue string `json:"total_outstanding_value"`

	BouncedLast30Days int    `json:"bounced_last_30_days"`
	BounceRatePercent string `json:"bounce_rate_percent"`
}

// UpcomingChequeDTO is one entry in the deposit work queue.
type UpcomingChequeDTO struct {
	Cheque       ChequeDTO `json:"cheque"`
	DaysUntilDue int       `json:"days_until_due"`
}

// TenantHistoryDTO is one page of a tenant's cheques plus lifetime totals.
type TenantHistoryDTO struct {
	TenantID string `json:"tenant_id"`

	TotalCheques int `json:"total_cheques"`
	ClearedCount int `json:"cleared_count"`
	BouncedCount int `json:"bounced_count"`
	PendingCount int `json:"pending_count"`

	ClearedAmount string `json:"cleared_amount"`
	PendingAmount string `json:"pending_amount"`

	BounceRatePercent string `json:"bounce_rate_percent"`

	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Cheques  []ChequeDTO `json:"cheques"`
}

// =============================================================================
// DIRECTORY TYPES
// =============================================================================

// TenantDTO represents a tenant in API responses.
type TenantDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// CreateTenantRequest creates or updates a tenant.
type CreateTenantRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// LeaseDTO represents a lease in API responses.
type LeaseDTO struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Unit     string `json:"unit,omitempty"`
	StartsOn string `json:"starts_on"`
	EndsOn   string `json:"ends_on"`
}

// CreateLeaseRequest creates or updates a lease.
type CreateLeaseRequest struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Unit     string `json:"unit,omitempty"`
	StartsOn string `json:"starts_on"`
	EndsOn   string `json:"ends_on"`
}

// =============================================================================
// SWEEP TYPES
// =============================================================================

// SweepReportDTO summarizes one sweep execution.
type SweepReportDTO struct {
	AsOf     string `json:"as_of"`
	Promoted int    `json:"promoted"`
	Reminded int    `json:"reminded"`
	Failures int    `json:"failures"`
}

// SweepRunDTO is one recorded sweep run.
type SweepRunDTO struct {
	ID          string `json:"id"`
	AsOf        string `json:"as_of"`
	Promoted    int    `json:"promoted"`
	Reminded    int    `json:"reminded"`
	Failures    int    `json:"failures"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error      string   `json:"error"`
	Details    string   `json:"details,omitempty"`
	Violations []string `json:"violations,omitempty"`
}

// toChequeDTO maps a domain record to its API shape.
func toChequeDTO(r cheque.Record) ChequeDTO {
	dto := ChequeDTO{
		ID:                  string(r.ID),
		ChequeNumber:        r.ChequeNumber,
		BankName:            r.BankName,
		TenantID:            string(r.TenantID),
		LeaseID:             string(r.LeaseID),
		InvoiceID:           string(r.InvoiceID),
		Amount:              r.Amount.String(),
		ChequeDate:          r.ChequeDate.String(),
		Status:              string(r.Status),
		BounceReason:        r.BounceReason,
		WithdrawalReason:    r.WithdrawalReason,
		NewPaymentMethod:    string(r.NewPaymentMethod),
		TransactionRef:      r.TransactionRef,
		OriginalChequeID:    string(r.OriginalChequeID),
		ReplacementChequeID: string(r.ReplacementChequeID),
		Notes:               r.Notes,
		CreatedBy:           r.CreatedBy,
		Version:             r.Version,
	}
	if !r.CreatedAt.IsZero() {
		dto.CreatedAt = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !r.UpdatedAt.IsZero() {
		dto.UpdatedAt = r.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if r.DepositDate != nil {
		dto.DepositDate = r.DepositDate.String()
	}
	if r.ClearedDate != nil {
		dto.ClearedDate = r.ClearedDate.String()
	}
	if r.BouncedDate != nil {
		dto.BouncedDate = r.BouncedDate.String()
	}
	if r.WithdrawalDate != nil {
		dto.WithdrawalDate = r.WithdrawalDate.String()
	}
	return dto
}

func toChequeDTOs(records []cheque.Record) []ChequeDTO {
	dtos := make([]ChequeDTO, len(records))
	for i, r := range records {
		dtos[i] = toChequeDTO(r)
	}
	return dtos
}
