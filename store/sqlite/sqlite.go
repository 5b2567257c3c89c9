/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements cheque.TxStore and cheque.Directory using SQLite, plus the
  sweep-run history the scheduler records. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  cheques:           One row per post-dated cheque, versioned
  replacement_links: The original<->replacement chain, unique on both ends
  sweep_reminders:   Due-soon reminder bookkeeping, one row per cheque
  sweep_runs:        One row per sweep execution, for ops visibility
  tenants, leases:   The directory the registrar resolves against

CONCURRENCY:
  Optimistic: every cheque row carries a version, and updates are qualified
  with the version the caller read. A lost race surfaces as
  cheque.ErrConcurrentModification, never as a silent overwrite. A
  sync.RWMutex additionally serializes writers on the single SQLite file;
  with PostgreSQL, database-level concurrency control replaces it.

REPLACEMENT CHAIN:
  Both columns of replacement_links are UNIQUE, so "at most one predecessor,
  at most one successor" is a schema fact. OriginalChequeID and
  ReplacementChequeID on loaded records are projections of this table.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/pdc.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - cheque/store.go: Interface definitions
  - cheque/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/atrium/pdc-engine/cheque"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and matches
	// SQLite's single-writer model.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Post-dated cheques
	CREATE TABLE IF NOT EXISTS cheques (
		id TEXT PRIMARY KEY,
		cheque_number TEXT NOT NULL,
		bank_name TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		lease_id TEXT,
		invoice_id TEXT,
		amount TEXT NOT NULL,
		cheque_date TEXT NOT NULL,
		deposit_date TEXT,
		cleared_date TEXT,
		bounced_date TEXT,
		withdrawal_date TEXT,
		status TEXT NOT NULL,
		bounce_reason TEXT,
		withdrawal_reason TEXT,
		new_payment_method TEXT,
		transaction_ref TEXT,
		notes TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_cheques_tenant
		ON cheques(tenant_id, cheque_date DESC);
	CREATE INDEX IF NOT EXISTS idx_cheques_status_date
		ON cheques(status, cheque_date);
	CREATE INDEX IF NOT EXISTS idx_cheques_deposit_date
		ON cheques(deposit_date) WHERE deposit_date IS NOT NULL;

	-- Replacement chain: unique on BOTH ends, so a cheque has at most one
	-- predecessor and at most one successor.
	CREATE TABLE IF NOT EXISTS replacement_links (
		original_id TEXT NOT NULL UNIQUE REFERENCES cheques(id),
		replacement_id TEXT NOT NULL UNIQUE REFERENCES cheques(id),
		created_at TEXT NOT NULL
	);

	-- Due-soon reminder bookkeeping. The primary key is what bounds
	-- notifications to one per cheque across racing sweeps.
	CREATE TABLE IF NOT EXISTS sweep_reminders (
		cheque_id TEXT PRIMARY KEY REFERENCES cheques(id),
		sent_at TEXT NOT NULL
	);

	-- Sweep run history
	CREATE TABLE IF NOT EXISTS sweep_runs (
		id TEXT PRIMARY KEY,
		as_of TEXT NOT NULL,
		promoted INTEGER NOT NULL DEFAULT 0,
		reminded INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'running',
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sweep_runs_started
		ON sweep_runs(started_at DESC);

	-- Directory
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leases (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id),
		unit TEXT,
		starts_on TEXT NOT NULL,
		ends_on TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leases_tenant
		ON leases(tenant_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is the common surface of *sql.DB and *sql.Tx the internals run on.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// CHEQUE STORE (cheque.Store interface)
// =============================================================================

// Insert persists a new cheque record.
func (s *Store) Insert(ctx context.Context, rec cheque.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertOn(ctx, s.db, rec)
}

func (s *Store) insertOn(ctx context.Context, db dbtx, rec cheque.Record) error {
	query := `
		INSERT INTO cheques
		(id, cheque_number, bank_name, tenant_id, lease_id, invoice_id, amount,
		 cheque_date, deposit_date, cleared_date, bounced_date, withdrawal_date,
		 status, bounce_reason, withdrawal_reason, new_payment_method,
		 transaction_ref, notes, created_by, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		rec.ID,
		rec.ChequeNumber,
		rec.BankName,
		rec.TenantID,
		nullString(string(rec.LeaseID)),
		nullString(string(rec.InvoiceID)),
		rec.Amount.String(),
		rec.ChequeDate.String(),
		nullDate(rec.DepositDate),
		nullDate(rec.ClearedDate),
		nullDate(rec.BouncedDate),
		nullDate(rec.WithdrawalDate),
		rec.Status,
		nullString(rec.BounceReason),
		nullString(rec.WithdrawalReason),
		nullString(string(rec.NewPaymentMethod)),
		nullString(rec.TransactionRef),
		nullString(rec.Notes),
		nullString(rec.CreatedBy),
		rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.UpdatedAt.UTC().Format(time.RFC3339),
		rec.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cheque: %w", err)
	}
	return nil
}

const chequeColumns = `
	c.id, c.cheque_number, c.bank_name, c.tenant_id, c.lease_id, c.invoice_id,
	c.amount, c.cheque_date, c.deposit_date, c.cleared_date, c.bounced_date,
	c.withdrawal_date, c.status, c.bounce_reason, c.withdrawal_reason,
	c.new_payment_method, c.transaction_ref, c.notes, c.created_by,
	c.created_at, c.updated_at, c.version,
	rl.replacement_id, bl.original_id`

const chequeJoins = `
	FROM cheques c
	LEFT JOIN replacement_links rl ON rl.original_id = c.id
	LEFT JOIN replacement_links bl ON bl.replacement_id = c.id`

// Get returns a cheque with its replacement links populated, or (nil, nil)
// when no such cheque exists.
func (s *Store) Get(ctx context.Context, id cheque.ChequeID) (*cheque.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getOn(ctx, s.db, id)
}

func (s *Store) getOn(ctx context.Context, db dbtx, id cheque.ChequeID) (*cheque.Record, error) {
	query := "SELECT" + chequeColumns + chequeJoins + " WHERE c.id = ?"

	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query cheque: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, err := scanCheque(rows)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update persists a mutated record under an optimistic version check.
func (s *Store) Update(ctx context.Context, rec cheque.Record, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateOn(ctx, s.db, rec, expectedVersion)
}

func (s *Store) updateOn(ctx context.Context, db dbtx, rec cheque.Record, expectedVersion int) error {
	// tenant_id, created_by and created_at are immutable and deliberately
	// absent from the SET list.
	query := `
		UPDATE cheques SET
			cheque_number = ?, bank_name = ?, lease_id = ?, invoice_id = ?,
			amount = ?, cheque_date = ?, deposit_date = ?, cleared_date = ?,
			bounced_date = ?, withdrawal_date = ?, status = ?, bounce_reason = ?,
			withdrawal_reason = ?, new_payment_method = ?, transaction_ref = ?,
			notes = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`

	res, err := db.ExecContext(ctx, query,
		rec.ChequeNumber,
		rec.BankName,
		nullString(string(rec.LeaseID)),
		nullString(string(rec.InvoiceID)),
		rec.Amount.String(),
		rec.ChequeDate.String(),
		nullDate(rec.DepositDate),
		nullDate(rec.ClearedDate),
		nullDate(rec.BouncedDate),
		nullDate(rec.WithdrawalDate),
		rec.Status,
		nullString(rec.BounceReason),
		nullString(rec.WithdrawalReason),
		nullString(string(rec.NewPaymentMethod)),
		nullString(rec.TransactionRef),
		nullString(rec.Notes),
		rec.UpdatedAt.UTC().Format(time.RFC3339),
		rec.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update cheque: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		existing, err := s.getOn(ctx, db, rec.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("cheque %s: %w", rec.ID, cheque.ErrChequeNotFound)
		}
		return cheque.ErrConcurrentModification
	}
	return nil
}

// LinkReplacement records the original->replacement edge.
func (s *Store) LinkReplacement(ctx context.Context, originalID, replacementID cheque.ChequeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linkOn(ctx, s.db, originalID, replacementID)
}

func (s *Store) linkOn(ctx context.Context, db dbtx, originalID, replacementID cheque.ChequeID) error {
	if originalID == replacementID {
		return fmt.Errorf("cheque %s cannot replace itself", originalID)
	}

	_, err := db.ExecContext(ctx,
		"INSERT INTO replacement_links (original_id, replacement_id, created_at) VALUES (?, ?, ?)",
		originalID, replacementID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("cheque %s or %s is already part of a replacement link", originalID, replacementID)
		}
		return fmt.Errorf("failed to link replacement: %w", err)
	}
	return nil
}

// ListAll returns every cheque ordered by cheque date.
func (s *Store) ListAll(ctx context.Context) ([]cheque.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAllOn(ctx, s.db)
}

func (s *Store) listAllOn(ctx context.Context, db dbtx) ([]cheque.Record, error) {
	query := "SELECT" + chequeColumns + chequeJoins + " ORDER BY c.cheque_date ASC, c.id ASC"
	return s.queryCheques(ctx, db, query)
}

// ListByStatus returns cheques in any of the given statuses.
func (s *Store) ListByStatus(ctx context.Context, statuses ...cheque.Status) ([]cheque.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listByStatusOn(ctx, s.db, statuses...)
}

func (s *Store) listByStatusOn(ctx context.Context, db dbtx, statuses ...cheque.Status) ([]cheque.Record, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	query := "SELECT" + chequeColumns + chequeJoins +
		" WHERE c.status IN (" + placeholders + ") ORDER BY c.cheque_date ASC, c.id ASC"

	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = st
	}
	return s.queryCheques(ctx, db, query, args...)
}

// ListDuePromotions returns received cheques dated on or before dueBy.
func (s *Store) ListDuePromotions(ctx context.Context, dueBy cheque.Date) ([]cheque.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listDuePromotionsOn(ctx, s.db, dueBy)
}

func (s *Store) listDuePromotionsOn(ctx context.Context, db dbtx, dueBy cheque.Date) ([]cheque.Record, error) {
	query := "SELECT" + chequeColumns + chequeJoins +
		" WHERE c.status = ? AND c.cheque_date <= ? ORDER BY c.cheque_date ASC, c.id ASC"
	return s.queryCheques(ctx, db, query, cheque.StatusReceived, dueBy.String())
}

// ListReminderCandidates returns active cheques dated on or before remindBy
// with no reminder recorded yet.
func (s *Store) ListReminderCandidates(ctx context.Context, remindBy cheque.Date) ([]cheque.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listReminderCandidatesOn(ctx, s.db, remindBy)
}

func (s *Store) listReminderCandidatesOn(ctx context.Context, db dbtx, remindBy cheque.Date) ([]cheque.Record, error) {
	query := "SELECT" + chequeColumns + chequeJoins + `
		LEFT JOIN sweep_reminders sr ON sr.cheque_id = c.id
		WHERE c.status IN (?, ?) AND c.cheque_date <= ? AND sr.cheque_id IS NULL
		ORDER BY c.cheque_date ASC, c.id ASC`
	return s.queryCheques(ctx, db, query,
		cheque.StatusReceived, cheque.StatusDue, remindBy.String())
}

// MarkReminded records a sent reminder. Returns false when a reminder was
// already recorded for the cheque.
func (s *Store) MarkReminded(ctx context.Context, id cheque.ChequeID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markRemindedOn(ctx, s.db, id)
}

func (s *Store) markRemindedOn(ctx context.Context, db dbtx, id cheque.ChequeID) (bool, error) {
	res, err := db.ExecContext(ctx,
		"INSERT OR IGNORE INTO sweep_reminders (cheque_id, sent_at) VALUES (?, ?)",
		id, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListByTenant returns one page of a tenant's cheques, newest date first,
// plus the total count.
func (s *Store) ListByTenant(ctx context.Context, tenantID cheque.TenantID, offset, limit int) ([]cheque.Record, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listByTenantOn(ctx, s.db, tenantID, offset, limit)
}

func (s *Store) listByTenantOn(ctx context.Context, db dbtx, tenantID cheque.TenantID, offset, limit int) ([]cheque.Record, int, error) {
	var total int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cheques WHERE tenant_id = ?", tenantID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tenant cheques: %w", err)
	}

	query := "SELECT" + chequeColumns + chequeJoins +
		" WHERE c.tenant_id = ? ORDER BY c.cheque_date DESC, c.id ASC LIMIT ? OFFSET ?"
	records, err := s.queryCheques(ctx, db, query, tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListDeposited returns cheques with a deposit date, most recent first.
func (s *Store) ListDeposited(ctx context.Context, limit int) ([]cheque.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listDepositedOn(ctx, s.db, limit)
}

func (s *Store) listDepositedOn(ctx context.Context, db dbtx, limit int) ([]cheque.Record, error) {
	query := "SELECT" + chequeColumns + chequeJoins +
		" WHERE c.deposit_date IS NOT NULL ORDER BY c.deposit_date DESC, c.id ASC LIMIT ?"
	return s.queryCheques(ctx, db, query, limit)
}

func (s *Store) queryCheques(ctx context.Context, db dbtx, query string, args ...any) ([]cheque.Record, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cheques: %w", err)
	}
	defer rows.Close()

	var records []cheque.Record
	for rows.Next() {
		rec, err := scanCheque(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanCheque(rows *sql.Rows) (cheque.Record, error) {
	var (
		rec            cheque.Record
		leaseID        sql.NullString
		invoiceID      sql.NullString
		amount         string
		chequeDate     string
		depositDate    sql.NullString
		clearedDate    sql.NullString
		bouncedDate    sql.NullString
		withdrawalDate sql.NullString
		bounceReason   sql.NullString
		withdrawReason sql.NullString
		paymentMethod  sql.NullString
		transactionRef sql.NullString
		notes          sql.NullString
		createdBy      sql.NullString
		createdAt      string
		updatedAt      string
		replacementID  sql.NullString
		originalID     sql.NullString
	)

	err := rows.Scan(
		&rec.ID, &rec.ChequeNumber, &rec.BankName, &rec.TenantID, &leaseID,
		&invoiceID, &amount, &chequeDate, &depositDate, &clearedDate,
		&bouncedDate, &withdrawalDate, &rec.Status, &bounceReason,
		&withdrawReason, &paymentMethod, &transactionRef, &notes, &createdBy,
		&createdAt, &updatedAt, &rec.Version,
		&replacementID, &originalID,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan cheque: %w", err)
	}

	parsedAmount, err := decimal.NewFromString(amount)
	if err != nil {
		return rec, fmt.Errorf("cheque %s has invalid amount %q: %w", rec.ID, amount, err)
	}
	parsedDate, err := cheque.ParseDate(chequeDate)
	if err != nil {
		return rec, fmt.Errorf("cheque %s has invalid cheque date %q: %w", rec.ID, chequeDate, err)
	}

	rec.LeaseID = cheque.LeaseID(leaseID.String)
	rec.InvoiceID = cheque.InvoiceID(invoiceID.String)
	rec.Amount = parsedAmount
	rec.ChequeDate = parsedDate
	rec.DepositDate = parseDatePtr(depositDate)
	rec.ClearedDate = parseDatePtr(clearedDate)
	rec.BouncedDate = parseDatePtr(bouncedDate)
	rec.WithdrawalDate = parseDatePtr(withdrawalDate)
	rec.BounceReason = bounceReason.String
	rec.WithdrawalReason = withdrawReason.String
	rec.NewPaymentMethod = cheque.PaymentMethod(paymentMethod.String)
	rec.TransactionRef = transactionRef.String
	rec.Notes = notes.String
	rec.CreatedBy = createdBy.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	rec.ReplacementChequeID = cheque.ChequeID(replacementID.String)
	rec.OriginalChequeID = cheque.ChequeID(originalID.String)

	return rec, nil
}

// =============================================================================
// TRANSACTIONAL STORE (cheque.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. Any error from
// fn rolls the entire transaction back.
func (s *Store) WithTx(ctx context.Context, fn func(store cheque.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	view := &txStore{tx: sqlTx, parent: s}
	if err := fn(view); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes Store calls through the open transaction. The parent's
// mutex is held for the whole of WithTx, so nothing here re-locks.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) Insert(ctx context.Context, rec cheque.Record) error {
	return ts.parent.insertOn(ctx, ts.tx, rec)
}

func (ts *txStore) Get(ctx context.Context, id cheque.ChequeID) (*cheque.Record, error) {
	return ts.parent.getOn(ctx, ts.tx, id)
}

func (ts *txStore) Update(ctx context.Context, rec cheque.Record, expectedVersion int) error {
	return ts.parent.updateOn(ctx, ts.tx, rec, expectedVersion)
}

func (ts *txStore) LinkReplacement(ctx context.Context, originalID, replacementID cheque.ChequeID) error {
	return ts.parent.linkOn(ctx, ts.tx, originalID, replacementID)
}

func (ts *txStore) ListAll(ctx context.Context) ([]cheque.Record, error) {
	return ts.parent.listAllOn(ctx, ts.tx)
}

func (ts *txStore) ListByStatus(ctx context.Context, statuses ...cheque.Status) ([]cheque.Record, error) {
	return ts.parent.listByStatusOn(ctx, ts.tx, statuses...)
}

func (ts *txStore) ListDuePromotions(ctx context.Context, dueBy cheque.Date) ([]cheque.Record, error) {
	return ts.parent.listDuePromotionsOn(ctx, ts.tx, dueBy)
}

func (ts *txStore) ListReminderCandidates(ctx context.Context, remindBy cheque.Date) ([]cheque.Record, error) {
	return ts.parent.listReminderCandidatesOn(ctx, ts.tx, remindBy)
}

func (ts *txStore) MarkReminded(ctx context.Context, id cheque.ChequeID) (bool, error) {
	return ts.parent.markRemindedOn(ctx, ts.tx, id)
}

func (ts *txStore) ListByTenant(ctx context.Context, tenantID cheque.TenantID, offset, limit int) ([]cheque.Record, int, error) {
	return ts.parent.listByTenantOn(ctx, ts.tx, tenantID, offset, limit)
}

func (ts *txStore) ListDeposited(ctx context.Context, limit int) ([]cheque.Record, error) {
	return ts.parent.listDepositedOn(ctx, ts.tx, limit)
}

// =============================================================================
// DIRECTORY (cheque.Directory interface)
// =============================================================================

// SaveTenant inserts or updates a tenant.
func (s *Store) SaveTenant(ctx context.Context, t cheque.TenantSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, email, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		t.ID, t.Name, nullString(t.Email), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}
	return nil
}

// ResolveTenant returns the tenant, or (nil, nil) when unknown.
func (s *Store) ResolveTenant(ctx context.Context, id cheque.TenantID) (*cheque.TenantSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t cheque.TenantSummary
	var email sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email FROM tenants WHERE id = ?", id,
	).Scan(&t.ID, &t.Name, &email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tenant: %w", err)
	}
	t.Email = email.String
	return &t, nil
}

// ListTenants returns all tenants ordered by name.
func (s *Store) ListTenants(ctx context.Context) ([]cheque.TenantSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email FROM tenants ORDER BY name ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []cheque.TenantSummary
	for rows.Next() {
		var t cheque.TenantSummary
		var email sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &email); err != nil {
			return nil, err
		}
		t.Email = email.String
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// SaveLease inserts or updates a lease.
func (s *Store) SaveLease(ctx context.Context, l cheque.LeaseSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leases (id, tenant_id, unit, starts_on, ends_on, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tenant_id = excluded.tenant_id, unit = excluded.unit,
			starts_on = excluded.starts_on, ends_on = excluded.ends_on`,
		l.ID, l.TenantID, nullString(l.Unit),
		l.StartsOn.String(), l.EndsOn.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save lease: %w", err)
	}
	return nil
}

// ResolveLease returns the lease, or (nil, nil) when unknown.
func (s *Store) ResolveLease(ctx context.Context, id cheque.LeaseID) (*cheque.LeaseSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var l cheque.LeaseSummary
	var unit sql.NullString
	var startsOn, endsOn string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, unit, starts_on, ends_on FROM leases WHERE id = ?", id,
	).Scan(&l.ID, &l.TenantID, &unit, &startsOn, &endsOn)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query lease: %w", err)
	}
	l.Unit = unit.String
	if l.StartsOn, err = cheque.ParseDate(startsOn); err != nil {
		return nil, fmt.Errorf("lease %s has invalid start date %q: %w", id, startsOn, err)
	}
	if l.EndsOn, err = cheque.ParseDate(endsOn); err != nil {
		return nil, fmt.Errorf("lease %s has invalid end date %q: %w", id, endsOn, err)
	}
	return &l, nil
}

// =============================================================================
// SWEEP RUN HISTORY
// =============================================================================

// SweepRun is one recorded sweep execution.
type SweepRun struct {
	ID          string
	AsOf        cheque.Date
	Promoted    int
	Reminded    int
	Failures    int
	Status      string
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// SaveSweepRun inserts or updates a sweep run record.
func (s *Store) SaveSweepRun(ctx context.Context, run SweepRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completed sql.NullString
	if run.CompletedAt != nil {
		completed = sql.NullString{String: run.CompletedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sweep_runs
		(id, as_of, promoted, reminded, failures, status, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			promoted = excluded.promoted, reminded = excluded.reminded,
			failures = excluded.failures, status = excluded.status,
			error = excluded.error, completed_at = excluded.completed_at`,
		run.ID, run.AsOf.String(), run.Promoted, run.Reminded, run.Failures,
		run.Status, nullString(run.Error),
		run.StartedAt.UTC().Format(time.RFC3339), completed,
	)
	if err != nil {
		return fmt.Errorf("failed to save sweep run: %w", err)
	}
	return nil
}

// ListSweepRuns returns the most recent sweep runs, newest first.
func (s *Store) ListSweepRuns(ctx context.Context, limit int) ([]SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, as_of, promoted, reminded, failures, status, error, started_at, completed_at
		FROM sweep_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep runs: %w", err)
	}
	defer rows.Close()

	var runs []SweepRun
	for rows.Next() {
		var (
			run       SweepRun
			asOf      string
			errMsg    sql.NullString
			startedAt string
			completed sql.NullString
		)
		if err := rows.Scan(&run.ID, &asOf, &run.Promoted, &run.Reminded,
			&run.Failures, &run.Status, &errMsg, &startedAt, &completed); err != nil {
			return nil, err
		}
		if run.AsOf, err = cheque.ParseDate(asOf); err != nil {
			return nil, fmt.Errorf("sweep run %s has invalid as_of %q: %w", run.ID, asOf, err)
		}
		run.Error = errMsg.String
		run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if completed.Valid {
			t, _ := time.Parse(time.RFC3339, completed.String)
			run.CompletedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *cheque.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseDatePtr(s sql.NullString) *cheque.Date {
	if !s.Valid || s.String == "" {
		return nil
	}
	d, err := cheque.ParseDate(s.String)
	if err != nil {
		return nil
	}
	return &d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
