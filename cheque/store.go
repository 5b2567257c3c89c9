/*
store.go - Persistence interface for cheque records

PURPOSE:
  Defines the interface between the lifecycle engine and the database.
  Implementations: store/sqlite (production), cheque/store (in-memory).

MUTATION CONTRACT:
  Records are inserted once and then mutated only through Update, which takes
  the version the caller read. A version mismatch returns
  ErrConcurrentModification; the record is never silently overwritten.
  Records are never deleted: terminal statuses are logical removal.

REPLACEMENT LINKS:
  The original/replacement chain lives in a side table keyed uniquely on both
  ends, so "at most one predecessor, at most one successor" is enforced by the
  store, not by convention. Implementations populate OriginalChequeID and
  ReplacementChequeID on load.

SEE ALSO:
  - store/sqlite/sqlite.go: Production implementation
  - cheque/store/memory.go: In-memory implementation for tests
*/
package cheque

import "context"

// =============================================================================
// STORE - Cheque record persistence
// =============================================================================

// Store persists cheque records.
// Lookups return (nil, nil) when the record is absent; callers translate that
// into ErrChequeNotFound so the store stays free of policy.
type Store interface {
	// Insert persists a new record. The record's version must be 1.
	Insert(ctx context.Context, rec Record) error

	// Get returns a record with its replacement links populated.
	Get(ctx context.Context, id ChequeID) (*Record, error)

	// Update persists a mutated record if its stored version still equals
	// expectedVersion, then increments the version. Returns
	// ErrConcurrentModification on mismatch.
	Update(ctx context.Context, rec Record, expectedVersion int) error

	// LinkReplacement records the directed original→replacement edge.
	// Fails if either side is already part of a link in the same role.
	LinkReplacement(ctx context.Context, originalID, replacementID ChequeID) error

	// ListAll returns every record. Dashboard projections aggregate over it.
	ListAll(ctx context.Context) ([]Record, error)

	// ListByStatus returns records in any of the given statuses.
	ListByStatus(ctx context.Context, statuses ...Status) ([]Record, error)

	// ListDuePromotions returns received cheques whose cheque date is on or
	// before dueBy, i.e. the sweep's promotion candidates.
	ListDuePromotions(ctx context.Context, dueBy Date) ([]Record, error)

	// ListReminderCandidates returns active (received or due) cheques whose
	// cheque date is on or before remindBy and that have no reminder recorded.
	ListReminderCandidates(ctx context.Context, remindBy Date) ([]Record, error)

	// MarkReminded records that a due-soon reminder was sent for the cheque.
	// Returns false when one was already recorded, so racing sweeps emit at
	// most one notification per cheque.
	MarkReminded(ctx context.Context, id ChequeID) (bool, error)

	// ListByTenant returns one page of a tenant's cheques ordered by cheque
	// date descending, plus the total count.
	ListByTenant(ctx context.Context, tenantID TenantID, offset, limit int) ([]Record, int, error)

	// ListDeposited returns cheques with a deposit date, most recent first.
	ListDeposited(ctx context.Context, limit int) ([]Record, error)
}

// TxStore wraps Store with transaction support. Every transition and every
// batch registration runs its check-and-mutate sequence inside WithTx.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
