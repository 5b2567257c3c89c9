/*
handlers.go - HTTP API handlers for the post-dated cheque engine

PURPOSE:
  Exposes the cheque lifecycle engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Cheques:
    POST   /api/tenants/{id}/cheques       Register a batch of cheques
    GET    /api/tenants/{id}/cheques       Tenant history (paged)
    GET    /api/cheques/{id}               Get one cheque
    GET    /api/cheques/{id}/actions       Permitted operator actions
    POST   /api/cheques/{id}/deposit       Mark as presented to the bank
    POST   /api/cheques/{id}/clear         Mark as honored (records payment)
    POST   /api/cheques/{id}/bounce        Mark as dishonored
    POST   /api/cheques/{id}/replace       Retire and register a replacement
    POST   /api/cheques/{id}/withdraw      Pull back before banking
    POST   /api/cheques/{id}/cancel        Void before any bank event

  Reporting:
    GET    /api/dashboard/summary          Operator KPIs
    GET    /api/cheques/upcoming           Deposit work queue
    GET    /api/cheques/recently-deposited Awaiting clear/bounce

  Directory:
    GET    /api/tenants                    List tenants
    POST   /api/tenants                    Create/update tenant
    GET    /api/tenants/{id}               Get one tenant
    POST   /api/leases                     Create/update lease

  Admin:
    POST   /api/admin/sweep                Run the due-date sweep now
    GET    /api/admin/sweep/runs           Recent sweep executions

ERROR HANDLING:
  Domain errors map onto HTTP status by kind:
  - 400: ValidationError, malformed input
  - 404: Unknown cheque/tenant/lease/invoice
  - 409: Illegal transition, concurrent modification
  - 502: Payment ledger unavailable during clear
  - 500: Everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - cheque/engine.go: The lifecycle transitions these wrap
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atrium/pdc-engine/cheque"
	"github.com/atrium/pdc-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Registrar *cheque.Registrar
	Engine    *cheque.Engine
	Sweeper   *cheque.Sweeper
	Reporter  *cheque.Reporter

	// Now returns the business date requests are evaluated against.
	// Injectable so tests can pin the clock.
	Now func() cheque.Date
}

// NewHandler creates a handler wired to the given store and domain services.
func NewHandler(store *sqlite.Store, registrar *cheque.Registrar, engine *cheque.Engine, sweeper *cheque.Sweeper, reporter *cheque.Reporter) *Handler {
	return &Handler{
		Store:     store,
		Registrar: registrar,
		Engine:    engine,
		Sweeper:   sweeper,
		Reporter:  reporter,
		Now:       cheque.Today,
	}
}

// =============================================================================
// CHEQUE HANDLERS
// =============================================================================

// RegisterBatch creates 1..24 cheques for a tenant, all-or-nothing.
// POST /api/tenants/{id}/cheques
func (h *Handler) RegisterBatch(w http.ResponseWriter, r *http.Request) {
	tenantID := cheque.TenantID(chi.URLParam(r, "id"))

	var req RegisterBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entries := make([]cheque.BatchEntry, len(req.Entries))
	for i, e := range req.Entries {
		entry, err := toBatchEntry(e)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid batch entry", err)
			return
		}
		entries[i] = entry
	}

	records, err := h.Registrar.RegisterBatch(r.Context(), tenantID, cheque.LeaseID(req.LeaseID), entries, req.CreatedBy)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toChequeDTOs(records))
}

// GetCheque returns a single cheque.
// GET /api/cheques/{id}
func (h *Handler) GetCheque(w http.ResponseWriter, r *http.Request) {
	id := cheque.ChequeID(chi.URLParam(r, "id"))

	rec, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get cheque", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Cheque not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toChequeDTO(*rec))
}

// GetActions returns the operator actions the cheque's status permits.
// GET /api/cheques/{id}/actions
func (h *Handler) GetActions(w http.ResponseWriter, r *http.Request) {
	id := cheque.ChequeID(chi.URLParam(r, "id"))

	rec, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get cheque", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Cheque not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, ActionsDTO{
		ID:          string(rec.ID),
		Status:      string(rec.Status),
		CanDeposit:  cheque.CanDeposit(rec.Status),
		CanClear:    cheque.CanClear(rec.Status),
		CanBounce:   cheque.CanBounce(rec.Status),
		CanReplace:  cheque.CanReplace(rec.Status),
		CanWithdraw: cheque.CanWithdraw(rec.Status),
		CanCancel:   cheque.CanCancel(rec.Status),
	})
}

// Deposit marks a cheque as presented to the bank.
// POST /api/cheques/{id}/deposit
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	id := cheque.ChequeID(chi.URLParam(r, "id"))

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseDateOr(req.DepositDate, h.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid deposit_date (use YYYY-MM-DD)", err)
		return
	}

	rec, err := h.Engine.Deposit(r.Context(), id, date, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChequeDTO(*rec))
}

// Clear marks a deposited cheque as honored and records the payment.
// POST /api/cheques/{id}/clear
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	id := cheque.ChequeID(chi.URLParam(r, "id"))

	var req ClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseDateOr(req.ClearedDate, h.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cleared_date (use YYYY-MM-DD)", err)
		return
	}

	rec, err := h.Engine.Clear(r.Context(), id, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChequeDTO(*rec))
}

// Bounce records a dishonored cheque.
// POST /api/cheques/{id}/bounce
func (h *Handler) Bounce(w http.ResponseWriter, r *http.Request) {
	id := cheque.ChequeID(chi.URLParam(r, "id"))

	var req BounceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseDateOr(req.BouncedDate, h.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid bounced_date (use YYYY-MM-DD)", err)
		return
	}

	rec, err := h.Engine.Bounce(r.Context(), id, date, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChequeDTO(*rec))
}

// Replace retires a bounced cheque and registers a replacement.
// POST /api/cheques/{id}/replace
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	id := cheque.ChequeID(chi.URLParam(r, "id"))

	var req ReplaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := toBatchEntry(req.Replacement)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid replacement cheque", err)
		return
	}

	result, err := h.Engine.Replace(r.Context(), id, entry, req.CreatedBy)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ReplacementDTO{
		Original:    toChequeDTO(*result.Original),
		Replacement: toChequeDTO(*result.Replacement),
	})
}

// Withdraw pulls a cheque back before it reaches the bank.
// POST /api/cheques/{id}/withdraw
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id := cheque.ChequeID(chi.URLParam(r, "id"))

	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseDateOr(req.WithdrawalDate, h.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid withdrawal_date (use YYYY-MM-DD)", err)
		return
	}

	rec, err := h.Engine.Withdraw(r.Context(), id, date, req.Reason,
		cheque.PaymentMethod(req.NewPaymentMethod), req.TransactionRef)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChequeDTO(*rec))
}

// Cancel voids a cheque before any irreversible bank-side event.
// POST /api/cheques/{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := cheque.ChequeID(chi.URLParam(r, "id"))

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec, err := h.Engine.Cancel(r.Context(), id, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChequeDTO(*rec))
}

// =============================================================================
// REPORTING HANDLERS
// =============================================================================

// DashboardSummary returns the operator KPIs.
// GET /api/dashboard/summary
func (h *Handler) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reporter.DashboardSummary(r.Context(), h.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute summary", err)
		return
	}

	writeJSON(w, http.StatusOK, DashboardSummaryDTO{
		AsOf:                    summary.AsOf.String(),
		TotalPDCsReceived:       summary.TotalPDCsReceived,
		DueThisWeekCount:        summary.DueThisWeekCount,
		DueThisWeekValue:        summary.DueThisWeekValue.String(),
		DepositedThisMonthCount: summary.DepositedThisMonthCount,
		DepositedThisMonthValue: summary.DepositedThisMonthValue.String(),
		TotalOutstandingValue:   summary.TotalOutstandingValue.String(),
		BouncedLast30Days:       summary.BouncedLast30Days,
		BounceRatePercent:       summary.BounceRatePercent.String(),
	})
}

// UpcomingCheques returns the deposit work queue.
// GET /api/cheques/upcoming?days=30
func (h *Handler) UpcomingCheques(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)

	upcoming, err := h.Reporter.Upcoming(r.Context(), h.Now(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list upcoming cheques", err)
		return
	}

	dtos := make([]UpcomingChequeDTO, len(upcoming))
	for i, u := range upcoming {
		dtos[i] = UpcomingChequeDTO{
			Cheque:       toChequeDTO(u.Record),
			DaysUntilDue: u.DaysUntilDue,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecentlyDeposited returns cheques awaiting a clear or bounce outcome.
// GET /api/cheques/recently-deposited?limit=20
func (h *Handler) RecentlyDeposited(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)

	records, err := h.Reporter.RecentlyDeposited(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list deposited cheques", err)
		return
	}
	writeJSON(w, http.StatusOK, toChequeDTOs(records))
}

// TenantHistory returns one page of a tenant's cheques plus lifetime totals.
// GET /api/tenants/{id}/cheques?page=1&page_size=20
func (h *Handler) TenantHistory(w http.ResponseWriter, r *http.Request) {
	tenantID := cheque.TenantID(chi.URLParam(r, "id"))

	history, err := h.Reporter.TenantHistory(r.Context(), tenantID,
		queryInt(r, "page", 1), queryInt(r, "page_size", 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load tenant history", err)
		return
	}

	writeJSON(w, http.StatusOK, TenantHistoryDTO{
		TenantID:          string(history.TenantID),
		TotalCheques:      history.TotalCheques,
		ClearedCount:      history.ClearedCount,
		BouncedCount:      history.BouncedCount,
		PendingCount:      history.PendingCount,
		ClearedAmount:     history.ClearedAmount.String(),
		PendingAmount:     history.PendingAmount.String(),
		BounceRatePercent: history.BounceRatePercent.String(),
		Page:              history.Page,
		PageSize:          history.PageSize,
		Cheques:           toChequeDTOs(history.Cheques),
	})
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

// ListTenants returns all tenants.
// GET /api/tenants
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Store.ListTenants(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tenants", err)
		return
	}

	dtos := make([]TenantDTO, len(tenants))
	for i, t := range tenants {
		dtos[i] = TenantDTO{ID: string(t.ID), Name: t.Name, Email: t.Email}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTenant returns one tenant.
// GET /api/tenants/{id}
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	id := cheque.TenantID(chi.URLParam(r, "id"))

	tenant, err := h.Store.ResolveTenant(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get tenant", err)
		return
	}
	if tenant == nil {
		writeError(w, http.StatusNotFound, "Tenant not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, TenantDTO{ID: string(tenant.ID), Name: tenant.Name, Email: tenant.Email})
}

// CreateTenant creates or updates a tenant.
// POST /api/tenants
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	t := cheque.TenantSummary{ID: cheque.TenantID(req.ID), Name: req.Name, Email: req.Email}
	if err := h.Store.SaveTenant(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save tenant", err)
		return
	}
	writeJSON(w, http.StatusCreated, TenantDTO{ID: req.ID, Name: req.Name, Email: req.Email})
}

// CreateLease creates or updates a lease.
// POST /api/leases
func (h *Handler) CreateLease(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.TenantID == "" {
		writeError(w, http.StatusBadRequest, "id and tenant_id are required", nil)
		return
	}

	startsOn, err := cheque.ParseDate(req.StartsOn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid starts_on (use YYYY-MM-DD)", err)
		return
	}
	endsOn, err := cheque.ParseDate(req.EndsOn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ends_on (use YYYY-MM-DD)", err)
		return
	}

	tenant, err := h.Store.ResolveTenant(r.Context(), cheque.TenantID(req.TenantID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve tenant", err)
		return
	}
	if tenant == nil {
		writeError(w, http.StatusNotFound, "Tenant not found", nil)
		return
	}

	l := cheque.LeaseSummary{
		ID:       cheque.LeaseID(req.ID),
		TenantID: cheque.TenantID(req.TenantID),
		Unit:     req.Unit,
		StartsOn: startsOn,
		EndsOn:   endsOn,
	}
	if err := h.Store.SaveLease(r.Context(), l); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save lease", err)
		return
	}
	writeJSON(w, http.StatusCreated, LeaseDTO{
		ID:       req.ID,
		TenantID: req.TenantID,
		Unit:     req.Unit,
		StartsOn: startsOn.String(),
		EndsOn:   endsOn.String(),
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerSweep runs the due-date sweep immediately. Operators may pin the
// business date with ?as_of=YYYY-MM-DD, e.g. to replay a day the scheduler
// missed.
// POST /api/admin/sweep
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDateOr(r.URL.Query().Get("as_of"), h.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM-DD)", err)
		return
	}

	report, err := h.Sweeper.Run(r.Context(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Sweep failed", err)
		return
	}

	writeJSON(w, http.StatusOK, SweepReportDTO{
		AsOf:     report.AsOf.String(),
		Promoted: report.Promoted,
		Reminded: report.Reminded,
		Failures: report.Failures,
	})
}

// ListSweepRuns returns recent sweep executions, newest first.
// GET /api/admin/sweep/runs?limit=20
func (h *Handler) ListSweepRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)

	runs, err := h.Store.ListSweepRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sweep runs", err)
		return
	}

	dtos := make([]SweepRunDTO, len(runs))
	for i, run := range runs {
		dto := SweepRunDTO{
			ID:        run.ID,
			AsOf:      run.AsOf.String(),
			Promoted:  run.Promoted,
			Reminded:  run.Reminded,
			Failures:  run.Failures,
			Status:    run.Status,
			Error:     run.Error,
			StartedAt: run.StartedAt.UTC().Format(time.RFC3339),
		}
		if run.CompletedAt != nil {
			dto.CompletedAt = run.CompletedAt.UTC().Format(time.RFC3339)
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func toBatchEntry(e BatchEntryRequest) (cheque.BatchEntry, error) {
	amount, err := decimal.NewFromString(e.Amount)
	if err != nil {
		return cheque.BatchEntry{}, err
	}
	date, err := cheque.ParseDate(e.ChequeDate)
	if err != nil {
		return cheque.BatchEntry{}, err
	}
	return cheque.BatchEntry{
		ChequeNumber: e.ChequeNumber,
		BankName:     e.BankName,
		Amount:       amount,
		ChequeDate:   date,
		InvoiceID:    cheque.InvoiceID(e.InvoiceID),
		Notes:        e.Notes,
	}, nil
}

// parseDateOr returns fallback for an empty string.
func parseDateOr(s string, fallback cheque.Date) (cheque.Date, error) {
	if s == "" {
		return fallback, nil
	}
	return cheque.ParseDate(s)
}

func queryInt(r *http.Request, key string, fallback int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// writeDomainError maps domain error kinds onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var validation *cheque.ValidationError
	if errors.As(err, &validation) {
		resp := ErrorResponse{Error: "Validation failed"}
		for _, v := range validation.Violations {
			resp.Violations = append(resp.Violations, v.String())
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	var illegal *cheque.IllegalTransitionError
	switch {
	case cheque.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.As(err, &illegal):
		writeError(w, http.StatusConflict, "Operation not permitted in current status", err)
	case errors.Is(err, cheque.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "Cheque was modified concurrently, retry", err)
	case errors.Is(err, cheque.ErrPaymentRecording):
		writeError(w, http.StatusBadGateway, "Payment ledger unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
