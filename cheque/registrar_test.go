package cheque_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium/pdc-engine/cheque"
	"github.com/atrium/pdc-engine/cheque/store"
	"github.com/atrium/pdc-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// mapDirectory is an in-test Directory.
type mapDirectory struct {
	tenants map[cheque.TenantID]cheque.TenantSummary
	leases  map[cheque.LeaseID]cheque.LeaseSummary
}

func (md *mapDirectory) ResolveTenant(_ context.Context, id cheque.TenantID) (*cheque.TenantSummary, error) {
	if t, ok := md.tenants[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (md *mapDirectory) ResolveLease(_ context.Context, id cheque.LeaseID) (*cheque.LeaseSummary, error) {
	if l, ok := md.leases[id]; ok {
		return &l, nil
	}
	return nil, nil
}

type registrarFixture struct {
	store     *store.Memory
	invoices  *ledger.Memory
	registrar *cheque.Registrar
}

func newRegistrarFixture(t *testing.T) *registrarFixture {
	t.Helper()
	mem := store.NewMemory()
	invoices := ledger.NewMemory()
	dir := &mapDirectory{
		tenants: map[cheque.TenantID]cheque.TenantSummary{
			"tenant-1": {ID: "tenant-1", Name: "Al Noor Trading"},
			"tenant-2": {ID: "tenant-2", Name: "Horizon LLC"},
		},
		leases: map[cheque.LeaseID]cheque.LeaseSummary{
			"lease-1": {
				ID: "lease-1", TenantID: "tenant-1", Unit: "1204",
				StartsOn: d(2026, time.January, 1), EndsOn: d(2026, time.December, 31),
			},
		},
	}
	return &registrarFixture{
		store:     mem,
		invoices:  invoices,
		registrar: &cheque.Registrar{Store: mem, Directory: dir, Ledger: invoices},
	}
}

func entries(n int) []cheque.BatchEntry {
	out := make([]cheque.BatchEntry, n)
	for i := range out {
		out[i] = cheque.BatchEntry{
			ChequeNumber: fmt.Sprintf("CHQ-%06d", i+1),
			BankName:     "Emirates NBD",
			Amount:       amount("1250.00"),
			ChequeDate:   d(2026, time.September, 1).AddMonths(i),
		}
	}
	return out
}

// =============================================================================
// BATCH REGISTRATION
// =============================================================================

func TestRegistrar_SingleCheque(t *testing.T) {
	f := newRegistrarFixture(t)

	records, err := f.registrar.RegisterBatch(context.Background(), "tenant-1", "lease-1", entries(1), "ops@atrium")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, cheque.StatusReceived, rec.Status)
	assert.Equal(t, cheque.TenantID("tenant-1"), rec.TenantID)
	assert.Equal(t, cheque.LeaseID("lease-1"), rec.LeaseID)
	assert.Equal(t, 1, rec.Version)
	assert.Equal(t, "ops@atrium", rec.CreatedBy)
	assert.NotEmpty(t, rec.ID)
}

func TestRegistrar_FullYearOfPostDatedCheques(t *testing.T) {
	// GIVEN: the common move-in scenario, 12 monthly cheques
	// WHEN: registering them as one batch
	// THEN: all 12 exist, all received, in entry order with distinct ids

	f := newRegistrarFixture(t)
	ctx := context.Background()

	records, err := f.registrar.RegisterBatch(ctx, "tenant-1", "", entries(12), "")
	require.NoError(t, err)
	require.Len(t, records, 12)

	seen := map[cheque.ChequeID]bool{}
	for i, rec := range records {
		assert.Equal(t, cheque.StatusReceived, rec.Status)
		assert.Equal(t, fmt.Sprintf("CHQ-%06d", i+1), rec.ChequeNumber)
		assert.False(t, seen[rec.ID], "duplicate id")
		seen[rec.ID] = true
	}

	all, err := f.store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 12)
}

func TestRegistrar_MaxBatchSize(t *testing.T) {
	f := newRegistrarFixture(t)

	records, err := f.registrar.RegisterBatch(context.Background(), "tenant-1", "", entries(24), "")
	require.NoError(t, err)
	assert.Len(t, records, 24)
}

func TestRegistrar_BatchSizeBounds(t *testing.T) {
	f := newRegistrarFixture(t)
	ctx := context.Background()

	for _, n := range []int{0, 25} {
		_, err := f.registrar.RegisterBatch(ctx, "tenant-1", "", entries(n), "")

		var validation *cheque.ValidationError
		require.ErrorAs(t, err, &validation, "batch of %d", n)
		assert.Equal(t, -1, validation.Violations[0].EntryIndex)
	}
}

func TestRegistrar_UnknownTenant(t *testing.T) {
	f := newRegistrarFixture(t)

	_, err := f.registrar.RegisterBatch(context.Background(), "tenant-ghost", "", entries(1), "")
	assert.ErrorIs(t, err, cheque.ErrTenantNotFound)
}

func TestRegistrar_LeaseOwnershipEnforced(t *testing.T) {
	// lease-1 belongs to tenant-1; registering under tenant-2 must fail.

	f := newRegistrarFixture(t)

	_, err := f.registrar.RegisterBatch(context.Background(), "tenant-2", "lease-1", entries(1), "")

	var validation *cheque.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "leaseId", validation.Violations[0].Field)
}

func TestRegistrar_ViolationsAggregatedAcrossEntries(t *testing.T) {
	// GIVEN: a batch with two bad entries among good ones
	// WHEN: registering
	// THEN: one error reports every violation with its entry index, and
	//       nothing is persisted

	f := newRegistrarFixture(t)
	ctx := context.Background()

	batch := entries(4)
	batch[1].Amount = amount("0")
	batch[3].ChequeNumber = "AB"
	batch[3].BankName = "   "

	_, err := f.registrar.RegisterBatch(ctx, "tenant-1", "", batch, "")

	var validation *cheque.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Len(t, validation.Violations, 3)

	indexes := map[int]int{}
	for _, v := range validation.Violations {
		indexes[v.EntryIndex]++
	}
	assert.Equal(t, 1, indexes[1])
	assert.Equal(t, 2, indexes[3])

	all, listErr := f.store.ListAll(ctx)
	require.NoError(t, listErr)
	assert.Empty(t, all, "failed batch must persist nothing")
}

func TestRegistrar_UnknownInvoiceIsViolation(t *testing.T) {
	f := newRegistrarFixture(t)

	batch := entries(2)
	batch[1].InvoiceID = "inv-ghost"

	_, err := f.registrar.RegisterBatch(context.Background(), "tenant-1", "", batch, "")

	var validation *cheque.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Len(t, validation.Violations, 1)
	assert.Equal(t, 1, validation.Violations[0].EntryIndex)
	assert.Equal(t, "invoiceId", validation.Violations[0].Field)
}

func TestRegistrar_KnownInvoiceAccepted(t *testing.T) {
	f := newRegistrarFixture(t)
	f.invoices.AddInvoice(ledger.Invoice{ID: "inv-1", TenantID: "tenant-1", Total: amount("1250.00")})

	batch := entries(1)
	batch[0].InvoiceID = "inv-1"

	records, err := f.registrar.RegisterBatch(context.Background(), "tenant-1", "", batch, "")
	require.NoError(t, err)
	assert.Equal(t, cheque.InvoiceID("inv-1"), records[0].InvoiceID)
}

func TestRegistrar_ChequeNumberTrimmed(t *testing.T) {
	f := newRegistrarFixture(t)

	batch := entries(1)
	batch[0].ChequeNumber = "  CHQ-000042  "

	records, err := f.registrar.RegisterBatch(context.Background(), "tenant-1", "", batch, "")
	require.NoError(t, err)
	assert.Equal(t, "CHQ-000042", records[0].ChequeNumber)
}

func TestRegistrar_PastDatedChequeAllowed(t *testing.T) {
	// A cheque dated in the past is legal at registration; the next sweep
	// simply promotes it to due immediately.

	f := newRegistrarFixture(t)

	batch := entries(1)
	batch[0].ChequeDate = d(2020, time.January, 1)

	records, err := f.registrar.RegisterBatch(context.Background(), "tenant-1", "", batch, "")
	require.NoError(t, err)
	assert.Equal(t, cheque.StatusReceived, records[0].Status)
}
