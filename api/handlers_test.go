/*
handlers_test.go - HTTP-level tests for the cheque API

Tests drive the full router over httptest with a real in-memory SQLite
store, so routing, JSON shapes, and the domain-error-to-status mapping
are all exercised together.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atrium/pdc-engine/cheque"
	"github.com/atrium/pdc-engine/ledger"
	"github.com/atrium/pdc-engine/store/sqlite"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================

// testDate pins every handler's business date. A Tuesday.
var testDate = cheque.NewDate(2026, time.September, 1)

type apiFixture struct {
	store    *sqlite.Store
	invoices *ledger.Memory
	router   http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	invoices := ledger.NewMemory()
	notifier := cheque.NopNotifier{}
	bridge := &cheque.PaymentBridge{Ledger: invoices}
	engine := cheque.NewEngine(store, bridge, notifier)
	registrar := &cheque.Registrar{Store: store, Directory: store, Ledger: invoices}
	sweeper := cheque.NewSweeper(store, engine, notifier, cheque.DefaultSweepConfig(), zap.NewNop())
	reporter := &cheque.Reporter{Store: store}

	handler := NewHandler(store, registrar, engine, sweeper, reporter)
	handler.Now = func() cheque.Date { return testDate }

	ctx := context.Background()
	require.NoError(t, store.SaveTenant(ctx, cheque.TenantSummary{
		ID: "tenant-1", Name: "Al Noor Trading", Email: "owner@alnoor.example",
	}))
	require.NoError(t, store.SaveLease(ctx, cheque.LeaseSummary{
		ID: "lease-1", TenantID: "tenant-1", Unit: "1204",
		StartsOn: cheque.NewDate(2026, time.January, 1),
		EndsOn:   cheque.NewDate(2026, time.December, 31),
	}))

	return &apiFixture{
		store:    store,
		invoices: invoices,
		router:   NewRouter(handler, nil),
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), "body: %s", rec.Body.String())
	return out
}

func (f *apiFixture) register(t *testing.T, entries ...BatchEntryRequest) []ChequeDTO {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/tenants/tenant-1/cheques", RegisterBatchRequest{
		LeaseID:   "lease-1",
		CreatedBy: "ops@atrium",
		Entries:   entries,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return decode[[]ChequeDTO](t, rec)
}

func entry(n int, date string) BatchEntryRequest {
	return BatchEntryRequest{
		ChequeNumber: fmt.Sprintf("CHQ-%06d", n),
		BankName:     "Emirates NBD",
		Amount:       "2500.00",
		ChequeDate:   date,
	}
}

// =============================================================================
// LIFECYCLE OVER HTTP
// =============================================================================

func TestAPI_RegisterDepositClear_HappyPath(t *testing.T) {
	f := newAPIFixture(t)
	f.invoices.AddInvoice(ledger.Invoice{
		ID:       "inv-1",
		TenantID: "tenant-1",
		Total:    decimal.RequireFromString("2500.00"),
	})

	e := entry(1, "2026-09-15")
	e.InvoiceID = "inv-1"
	created := f.register(t, e)
	require.Len(t, created, 1)
	id := created[0].ID
	assert.Equal(t, "received", created[0].Status)
	assert.Equal(t, 1, created[0].Version)

	rec := f.do(t, http.MethodPost, "/api/cheques/"+id+"/deposit", DepositRequest{DepositDate: "2026-09-15"})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	deposited := decode[ChequeDTO](t, rec)
	assert.Equal(t, "deposited", deposited.Status)
	assert.Equal(t, "2026-09-15", deposited.DepositDate)
	assert.Equal(t, 2, deposited.Version)

	rec = f.do(t, http.MethodPost, "/api/cheques/"+id+"/clear", ClearRequest{ClearedDate: "2026-09-16"})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	cleared := decode[ChequeDTO](t, rec)
	assert.Equal(t, "cleared", cleared.Status)
	assert.Equal(t, "2026-09-16", cleared.ClearedDate)

	payments := f.invoices.PaymentsFor("inv-1")
	require.Len(t, payments, 1, "clearing records exactly one ledger payment")
}

func TestAPI_Deposit_DefaultsToBusinessDate(t *testing.T) {
	f := newAPIFixture(t)
	id := f.register(t, entry(1, "2026-08-20"))[0].ID

	rec := f.do(t, http.MethodPost, "/api/cheques/"+id+"/deposit", DepositRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testDate.String(), decode[ChequeDTO](t, rec).DepositDate)
}

func TestAPI_BounceThenReplace(t *testing.T) {
	f := newAPIFixture(t)
	id := f.register(t, entry(1, "2026-09-15"))[0].ID

	rec := f.do(t, http.MethodPost, "/api/cheques/"+id+"/deposit", DepositRequest{DepositDate: "2026-09-15"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/cheques/"+id+"/bounce", BounceRequest{
		BouncedDate: "2026-09-17", Reason: "insufficient funds",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	bounced := decode[ChequeDTO](t, rec)
	assert.Equal(t, "bounced", bounced.Status)
	assert.Equal(t, "insufficient funds", bounced.BounceReason)

	rec = f.do(t, http.MethodPost, "/api/cheques/"+id+"/replace", ReplaceRequest{
		CreatedBy:   "ops@atrium",
		Replacement: entry(2, "2026-10-01"),
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	pair := decode[ReplacementDTO](t, rec)
	assert.Equal(t, "replaced", pair.Original.Status)
	assert.Equal(t, pair.Replacement.ID, pair.Original.ReplacementChequeID)
	assert.Equal(t, "received", pair.Replacement.Status)
	assert.Equal(t, id, pair.Replacement.OriginalChequeID)
}

func TestAPI_Withdraw(t *testing.T) {
	f := newAPIFixture(t)
	id := f.register(t, entry(1, "2026-09-15"))[0].ID

	rec := f.do(t, http.MethodPost, "/api/cheques/"+id+"/withdraw", WithdrawRequest{
		WithdrawalDate:   "2026-09-02",
		Reason:           "tenant paid by transfer",
		NewPaymentMethod: "bank_transfer",
		TransactionRef:   "TXN-4471",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	dto := decode[ChequeDTO](t, rec)
	assert.Equal(t, "withdrawn", dto.Status)
	assert.Equal(t, "bank_transfer", dto.NewPaymentMethod)
	assert.Equal(t, "TXN-4471", dto.TransactionRef)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestAPI_RegisterBatch_ValidationIs400(t *testing.T) {
	f := newAPIFixture(t)

	bad := entry(1, "2026-09-15")
	bad.Amount = "-10"
	rec := f.do(t, http.MethodPost, "/api/tenants/tenant-1/cheques", RegisterBatchRequest{
		LeaseID: "lease-1",
		Entries: []BatchEntryRequest{bad},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.NotEmpty(t, resp.Violations)
}

func TestAPI_RegisterBatch_UnknownTenantIs404(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/tenants/tenant-ghost/cheques", RegisterBatchRequest{
		Entries: []BatchEntryRequest{entry(1, "2026-09-15")},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_GetCheque_UnknownIs404(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/cheques/chq-ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_IllegalTransitionIs409(t *testing.T) {
	f := newAPIFixture(t)
	id := f.register(t, entry(1, "2026-09-15"))[0].ID

	// Clearing before deposit is not a thing.
	rec := f.do(t, http.MethodPost, "/api/cheques/"+id+"/clear", ClearRequest{})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_MalformedDateIs400(t *testing.T) {
	f := newAPIFixture(t)
	id := f.register(t, entry(1, "2026-09-15"))[0].ID

	rec := f.do(t, http.MethodPost, "/api/cheques/"+id+"/deposit", DepositRequest{DepositDate: "15/09/2026"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// ACTIONS
// =============================================================================

func TestAPI_Actions_FollowStatus(t *testing.T) {
	f := newAPIFixture(t)
	id := f.register(t, entry(1, "2026-09-15"))[0].ID

	rec := f.do(t, http.MethodGet, "/api/cheques/"+id+"/actions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	actions := decode[ActionsDTO](t, rec)
	assert.True(t, actions.CanDeposit)
	assert.True(t, actions.CanWithdraw)
	assert.True(t, actions.CanCancel)
	assert.False(t, actions.CanClear)
	assert.False(t, actions.CanBounce)
	assert.False(t, actions.CanReplace)

	f.do(t, http.MethodPost, "/api/cheques/"+id+"/deposit", DepositRequest{})
	rec = f.do(t, http.MethodGet, "/api/cheques/"+id+"/actions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	actions = decode[ActionsDTO](t, rec)
	assert.False(t, actions.CanDeposit)
	assert.False(t, actions.CanWithdraw)
	assert.True(t, actions.CanClear)
	assert.True(t, actions.CanBounce)
	assert.True(t, actions.CanCancel)
}

// =============================================================================
// REPORTING ENDPOINTS
// =============================================================================

func TestAPI_DashboardAndUpcoming(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t,
		entry(1, "2026-09-03"), // this week
		entry(2, "2026-09-20"),
		entry(3, "2026-11-05"), // beyond the default window
	)

	rec := f.do(t, http.MethodGet, "/api/dashboard/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[DashboardSummaryDTO](t, rec)
	assert.Equal(t, testDate.String(), summary.AsOf)
	assert.Equal(t, 3, summary.TotalPDCsReceived)
	assert.Equal(t, 1, summary.DueThisWeekCount)

	// Upcoming only lists cheques the sweep has promoted to due.
	rec = f.do(t, http.MethodGet, "/api/cheques/upcoming?days=30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]UpcomingChequeDTO](t, rec))

	sweep := f.do(t, http.MethodPost, "/api/admin/sweep", nil)
	require.Equal(t, http.StatusOK, sweep.Code)

	rec = f.do(t, http.MethodGet, "/api/cheques/upcoming?days=30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	upcoming := decode[[]UpcomingChequeDTO](t, rec)
	require.Len(t, upcoming, 1, "only the cheque inside the due window was promoted")
	assert.Equal(t, "CHQ-000001", upcoming[0].Cheque.ChequeNumber)
	assert.Equal(t, "due", upcoming[0].Cheque.Status)
	assert.Equal(t, 2, upcoming[0].DaysUntilDue)
}

func TestAPI_TenantHistory_Paged(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, entry(1, "2026-09-01"), entry(2, "2026-10-01"), entry(3, "2026-11-01"))

	rec := f.do(t, http.MethodGet, "/api/tenants/tenant-1/cheques?page=1&page_size=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[TenantHistoryDTO](t, rec)
	assert.Equal(t, 3, history.TotalCheques)
	assert.Equal(t, 3, history.PendingCount)
	assert.Len(t, history.Cheques, 2)
	assert.Equal(t, "CHQ-000003", history.Cheques[0].ChequeNumber, "newest cheque date first")
}

// =============================================================================
// DIRECTORY AND ADMIN
// =============================================================================

func TestAPI_CreateTenantAndLease(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/tenants", CreateTenantRequest{
		ID: "tenant-2", Name: "Horizon LLC",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/leases", CreateLeaseRequest{
		ID: "lease-2", TenantID: "tenant-2", Unit: "0703",
		StartsOn: "2026-10-01", EndsOn: "2027-09-30",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/leases", CreateLeaseRequest{
		ID: "lease-x", TenantID: "tenant-ghost",
		StartsOn: "2026-10-01", EndsOn: "2027-09-30",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/tenants", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tenants := decode[[]TenantDTO](t, rec)
	assert.Len(t, tenants, 2)
}

func TestAPI_AdminSweep(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t,
		entry(1, "2026-09-05"), // inside the 7-day due window
		entry(2, "2026-12-01"),
	)

	rec := f.do(t, http.MethodPost, "/api/admin/sweep", nil)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	report := decode[SweepReportDTO](t, rec)
	assert.Equal(t, testDate.String(), report.AsOf)
	assert.Equal(t, 1, report.Promoted)
	assert.Equal(t, 0, report.Failures)

	// The promoted cheque now shows as due.
	all := f.do(t, http.MethodGet, "/api/tenants/tenant-1/cheques", nil)
	history := decode[TenantHistoryDTO](t, all)
	statuses := map[string]string{}
	for _, c := range history.Cheques {
		statuses[c.ChequeNumber] = c.Status
	}
	assert.Equal(t, "due", statuses["CHQ-000001"])
	assert.Equal(t, "received", statuses["CHQ-000002"])
}
