// Package store provides an in-memory cheque.TxStore for tests and dev.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/atrium/pdc-engine/cheque"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	records   map[cheque.ChequeID]cheque.Record
	links     map[cheque.ChequeID]cheque.ChequeID // original -> replacement
	backlinks map[cheque.ChequeID]cheque.ChequeID // replacement -> original
	reminded  map[cheque.ChequeID]bool
}

func NewMemory() *Memory {
	return &Memory{
		records:   make(map[cheque.ChequeID]cheque.Record),
		links:     make(map[cheque.ChequeID]cheque.ChequeID),
		backlinks: make(map[cheque.ChequeID]cheque.ChequeID),
		reminded:  make(map[cheque.ChequeID]bool),
	}
}

// -----------------------------------------------------------------------------
// cheque.Store
// -----------------------------------------------------------------------------

func (m *Memory) Insert(_ context.Context, rec cheque.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(rec)
}

func (m *Memory) insertLocked(rec cheque.Record) error {
	if _, exists := m.records[rec.ID]; exists {
		return fmt.Errorf("cheque %s already exists", rec.ID)
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *Memory) Get(_ context.Context, id cheque.ChequeID) (*cheque.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id), nil
}

func (m *Memory) getLocked(id cheque.ChequeID) *cheque.Record {
	rec, ok := m.records[id]
	if !ok {
		return nil
	}
	m.projectLinks(&rec)
	return &rec
}

func (m *Memory) projectLinks(rec *cheque.Record) {
	rec.ReplacementChequeID = m.links[rec.ID]
	rec.OriginalChequeID = m.backlinks[rec.ID]
}

func (m *Memory) Update(_ context.Context, rec cheque.Record, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(rec, expectedVersion)
}

func (m *Memory) updateLocked(rec cheque.Record, expectedVersion int) error {
	stored, ok := m.records[rec.ID]
	if !ok {
		return fmt.Errorf("cheque %s: %w", rec.ID, cheque.ErrChequeNotFound)
	}
	if stored.Version != expectedVersion {
		return cheque.ErrConcurrentModification
	}
	rec.Version = expectedVersion + 1
	m.records[rec.ID] = rec
	return nil
}

func (m *Memory) LinkReplacement(_ context.Context, originalID, replacementID cheque.ChequeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.linkLocked(originalID, replacementID)
}

func (m *Memory) linkLocked(originalID, replacementID cheque.ChequeID) error {
	if originalID == replacementID {
		return fmt.Errorf("cheque %s cannot replace itself", originalID)
	}
	if existing, ok := m.links[originalID]; ok {
		return fmt.Errorf("cheque %s already replaced by %s", originalID, existing)
	}
	if existing, ok := m.backlinks[replacementID]; ok {
		return fmt.Errorf("cheque %s already replaces %s", replacementID, existing)
	}
	m.links[originalID] = replacementID
	m.backlinks[replacementID] = originalID
	return nil
}

func (m *Memory) ListAll(_ context.Context) ([]cheque.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]cheque.Record, 0, len(m.records))
	for _, rec := range m.records {
		m.projectLinks(&rec)
		out = append(out, rec)
	}
	sortByChequeDate(out)
	return out, nil
}

func (m *Memory) ListByStatus(_ context.Context, statuses ...cheque.Status) ([]cheque.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := make(map[cheque.Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}

	var out []cheque.Record
	for _, rec := range m.records {
		if want[rec.Status] {
			m.projectLinks(&rec)
			out = append(out, rec)
		}
	}
	sortByChequeDate(out)
	return out, nil
}

func (m *Memory) ListDuePromotions(_ context.Context, dueBy cheque.Date) ([]cheque.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []cheque.Record
	for _, rec := range m.records {
		if rec.Status == cheque.StatusReceived && rec.ChequeDate.BeforeOrEqual(dueBy) {
			out = append(out, rec)
		}
	}
	sortByChequeDate(out)
	return out, nil
}

func (m *Memory) ListReminderCandidates(_ context.Context, remindBy cheque.Date) ([]cheque.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []cheque.Record
	for _, rec := range m.records {
		active := rec.Status == cheque.StatusReceived || rec.Status == cheque.StatusDue
		if active && rec.ChequeDate.BeforeOrEqual(remindBy) && !m.reminded[rec.ID] {
			out = append(out, rec)
		}
	}
	sortByChequeDate(out)
	return out, nil
}

func (m *Memory) MarkReminded(_ context.Context, id cheque.ChequeID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.reminded[id] {
		return false, nil
	}
	m.reminded[id] = true
	return true, nil
}

func (m *Memory) ListByTenant(_ context.Context, tenantID cheque.TenantID, offset, limit int) ([]cheque.Record, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []cheque.Record
	for _, rec := range m.records {
		if rec.TenantID == tenantID {
			m.projectLinks(&rec)
			all = append(all, rec)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].ChequeDate.Equal(all[j].ChequeDate) {
			return all[i].ChequeDate.After(all[j].ChequeDate)
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *Memory) ListDeposited(_ context.Context, limit int) ([]cheque.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []cheque.Record
	for _, rec := range m.records {
		if rec.DepositDate != nil {
			m.projectLinks(&rec)
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepositDate.Equal(*out[j].DepositDate) {
			return out[i].DepositDate.After(*out[j].DepositDate)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// cheque.TxStore
// -----------------------------------------------------------------------------

// WithTx executes fn within a transaction, simulated with a snapshot and a
// rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(cheque.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	view := &txView{parent: m}
	if err := fn(view); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	records   map[cheque.ChequeID]cheque.Record
	links     map[cheque.ChequeID]cheque.ChequeID
	backlinks map[cheque.ChequeID]cheque.ChequeID
	reminded  map[cheque.ChequeID]bool
}

func (m *Memory) snapshot() memorySnapshot {
	return memorySnapshot{
		records:   copyMap(m.records),
		links:     copyMap(m.links),
		backlinks: copyMap(m.backlinks),
		reminded:  copyMap(m.reminded),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.records = s.records
	m.links = s.links
	m.backlinks = s.backlinks
	m.reminded = s.reminded
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// txView routes Store calls to the parent's lock-free internals; the parent
// holds its mutex for the duration of WithTx.
type txView struct {
	parent *Memory
}

func (tv *txView) Insert(_ context.Context, rec cheque.Record) error {
	return tv.parent.insertLocked(rec)
}

func (tv *txView) Get(_ context.Context, id cheque.ChequeID) (*cheque.Record, error) {
	return tv.parent.getLocked(id), nil
}

func (tv *txView) Update(_ context.Context, rec cheque.Record, expectedVersion int) error {
	return tv.parent.updateLocked(rec, expectedVersion)
}

func (tv *txView) LinkReplacement(_ context.Context, originalID, replacementID cheque.ChequeID) error {
	return tv.parent.linkLocked(originalID, replacementID)
}

func (tv *txView) ListAll(ctx context.Context) ([]cheque.Record, error) {
	var out []cheque.Record
	for _, rec := range tv.parent.records {
		tv.parent.projectLinks(&rec)
		out = append(out, rec)
	}
	sortByChequeDate(out)
	return out, nil
}

func (tv *txView) ListByStatus(_ context.Context, statuses ...cheque.Status) ([]cheque.Record, error) {
	want := make(map[cheque.Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var out []cheque.Record
	for _, rec := range tv.parent.records {
		if want[rec.Status] {
			out = append(out, rec)
		}
	}
	sortByChequeDate(out)
	return out, nil
}

func (tv *txView) ListDuePromotions(_ context.Context, dueBy cheque.Date) ([]cheque.Record, error) {
	var out []cheque.Record
	for _, rec := range tv.parent.records {
		if rec.Status == cheque.StatusReceived && rec.ChequeDate.BeforeOrEqual(dueBy) {
			out = append(out, rec)
		}
	}
	sortByChequeDate(out)
	return out, nil
}

func (tv *txView) ListReminderCandidates(_ context.Context, remindBy cheque.Date) ([]cheque.Record, error) {
	var out []cheque.Record
	for _, rec := range tv.parent.records {
		active := rec.Status == cheque.StatusReceived || rec.Status == cheque.StatusDue
		if active && rec.ChequeDate.BeforeOrEqual(remindBy) && !tv.parent.reminded[rec.ID] {
			out = append(out, rec)
		}
	}
	sortByChequeDate(out)
	return out, nil
}

func (tv *txView) MarkReminded(_ context.Context, id cheque.ChequeID) (bool, error) {
	if tv.parent.reminded[id] {
		return false, nil
	}
	tv.parent.reminded[id] = true
	return true, nil
}

func (tv *txView) ListByTenant(_ context.Context, tenantID cheque.TenantID, offset, limit int) ([]cheque.Record, int, error) {
	var all []cheque.Record
	for _, rec := range tv.parent.records {
		if rec.TenantID == tenantID {
			all = append(all, rec)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].ChequeDate.Equal(all[j].ChequeDate) {
			return all[i].ChequeDate.After(all[j].ChequeDate)
		}
		return all[i].ID < all[j].ID
	})
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (tv *txView) ListDeposited(_ context.Context, limit int) ([]cheque.Record, error) {
	var out []cheque.Record
	for _, rec := range tv.parent.records {
		if rec.DepositDate != nil {
			out = append(out, rec)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortByChequeDate(recs []cheque.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].ChequeDate.Equal(recs[j].ChequeDate) {
			return recs[i].ChequeDate.Before(recs[j].ChequeDate)
		}
		return recs[i].ID < recs[j].ID
	})
}
