package cheque_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium/pdc-engine/cheque"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type sweepFixture struct {
	*engineFixture
	sweeper *cheque.Sweeper
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	ef := newEngineFixture(t)
	sweeper := cheque.NewSweeper(ef.store, ef.engine, ef.notifier, cheque.DefaultSweepConfig(), nil)
	return &sweepFixture{engineFixture: ef, sweeper: sweeper}
}

func (f *sweepFixture) seedDated(t *testing.T, status cheque.Status, date cheque.Date) cheque.Record {
	t.Helper()
	return f.seedCheque(t, status, func(r *cheque.Record) {
		r.ChequeDate = date
	})
}

// =============================================================================
// PROMOTION
// =============================================================================

func TestSweep_PromotesInsideDueWindow(t *testing.T) {
	// GIVEN: cheques dated 7 days out (window edge), 8 days out (outside),
	//        and in the past (overdue)
	// WHEN: sweeping as of today
	// THEN: the edge and overdue cheques promote to due, the other stays

	f := newSweepFixture(t)
	asOf := d(2026, time.September, 1)

	edge := f.seedDated(t, cheque.StatusReceived, asOf.AddDays(7))
	outside := f.seedDated(t, cheque.StatusReceived, asOf.AddDays(8))
	overdue := f.seedDated(t, cheque.StatusReceived, asOf.AddDays(-30))

	report, err := f.sweeper.Run(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Promoted)
	assert.Equal(t, 0, report.Failures)

	assertStatus(t, f.store, edge.ID, cheque.StatusDue)
	assertStatus(t, f.store, outside.ID, cheque.StatusReceived)
	assertStatus(t, f.store, overdue.ID, cheque.StatusDue)
}

func TestSweep_LeavesNonReceivedAlone(t *testing.T) {
	f := newSweepFixture(t)
	asOf := d(2026, time.September, 1)

	deposited := f.seedDated(t, cheque.StatusDeposited, asOf)
	withdrawn := f.seedDated(t, cheque.StatusWithdrawn, asOf)

	report, err := f.sweeper.Run(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Promoted)

	assertStatus(t, f.store, deposited.ID, cheque.StatusDeposited)
	assertStatus(t, f.store, withdrawn.ID, cheque.StatusWithdrawn)
}

func TestSweep_Idempotent(t *testing.T) {
	// Running the sweep twice for the same date must not re-promote or
	// re-remind anything.

	f := newSweepFixture(t)
	asOf := d(2026, time.September, 1)
	f.seedDated(t, cheque.StatusReceived, asOf.AddDays(2))

	first, err := f.sweeper.Run(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Promoted)
	assert.Equal(t, 1, first.Reminded)

	second, err := f.sweeper.Run(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Promoted)
	assert.Equal(t, 0, second.Reminded)
	assert.Equal(t, 0, second.Failures)
}

// =============================================================================
// REMINDERS
// =============================================================================

func TestSweep_RemindersAtMostOncePerCheque(t *testing.T) {
	// GIVEN: a cheque inside the 3-day reminder window
	// WHEN: sweeping on consecutive days
	// THEN: exactly one due-soon notification ever fires for it

	f := newSweepFixture(t)
	asOf := d(2026, time.September, 1)
	rec := f.seedDated(t, cheque.StatusReceived, asOf.AddDays(3))

	_, err := f.sweeper.Run(context.Background(), asOf)
	require.NoError(t, err)
	_, err = f.sweeper.Run(context.Background(), asOf.AddDays(1))
	require.NoError(t, err)
	_, err = f.sweeper.Run(context.Background(), asOf.AddDays(2))
	require.NoError(t, err)

	require.Len(t, f.notifier.dueSoon, 1)
	assert.Equal(t, rec.ID, f.notifier.dueSoon[0].ChequeID)
}

func TestSweep_ReminderWindowNarrowerThanDueWindow(t *testing.T) {
	// A cheque 5 days out is promoted (due window is 7) but not yet
	// reminded (reminder window is 3).

	f := newSweepFixture(t)
	asOf := d(2026, time.September, 1)
	f.seedDated(t, cheque.StatusReceived, asOf.AddDays(5))

	report, err := f.sweeper.Run(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Promoted)
	assert.Equal(t, 0, report.Reminded)
	assert.Empty(t, f.notifier.dueSoon)
}

func TestSweep_RemindsAlreadyDueCheques(t *testing.T) {
	// A cheque promoted on an earlier day still gets its reminder when its
	// date enters the narrower window.

	f := newSweepFixture(t)
	asOf := d(2026, time.September, 1)
	f.seedDated(t, cheque.StatusDue, asOf.AddDays(2))

	report, err := f.sweeper.Run(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Reminded)
}

// =============================================================================
// FAILURE ISOLATION
// =============================================================================

func TestSweep_OperatorRaceIsNotAFailure(t *testing.T) {
	// GIVEN: a cheque the sweep sees as received gets deposited before the
	//        sweep reaches it
	// WHEN: the promotion applies
	// THEN: the illegal transition is skipped silently, not counted failed

	f := newSweepFixture(t)
	asOf := d(2026, time.September, 1)
	rec := f.seedDated(t, cheque.StatusReceived, asOf.AddDays(2))
	ctx := context.Background()

	// The race, made deterministic: deposit lands first.
	_, err := f.engine.Deposit(ctx, rec.ID, asOf, "")
	require.NoError(t, err)

	report, err := f.sweeper.Run(ctx, asOf)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Promoted)
	assert.Equal(t, 0, report.Failures)
	assertStatus(t, f.store, rec.ID, cheque.StatusDeposited)
}

func assertStatus(t *testing.T, s cheque.Store, id cheque.ChequeID, want cheque.Status) {
	t.Helper()
	rec, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, want, rec.Status)
}
