// Package store provides in-memory implementations of the payroll persistence
// interfaces.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements payroll.Store, payroll.Roster and payroll.AuditLog.
// Entries go in and come out as clones; callers never share pointers with
// the store.
type Memory struct {
	mu      sync.RWMutex
	entries map[payroll.EntryID]*payroll.Entry
	byKey   map[payroll.EntryKey]payroll.EntryID

	rosterMu  sync.RWMutex
	employees map[payroll.EmployeeID]payroll.EmployeeCompensation

	auditMu sync.RWMutex
	audit   []payroll.AuditEntry
}

func NewMemory() *Memory {
	return &Memory{
		entries:   make(map[payroll.EntryID]*payroll.Entry),
		byKey:     make(map[payroll.EntryKey]payroll.EntryID),
		employees: make(map[payroll.EmployeeID]payroll.EmployeeCompensation),
	}
}

func (m *Memory) Get(_ context.Context, id payroll.EntryID) (*payroll.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

func (m *Memory) GetByKey(_ context.Context, key payroll.EntryKey) (*payroll.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getByKeyLocked(key)
}

func (m *Memory) ListByMonth(_ context.Context, month payroll.Month) ([]*payroll.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(month), nil
}

// Save inserts or updates under optimistic locking.
func (m *Memory) Save(_ context.Context, entry *payroll.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(entry)
}

func (m *Memory) getLocked(id payroll.EntryID) (*payroll.Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, payroll.ErrEntryNotFound
	}
	return e.Clone(), nil
}

func (m *Memory) getByKeyLocked(key payroll.EntryKey) (*payroll.Entry, error) {
	id, ok := m.byKey[key]
	if !ok {
		return nil, payroll.ErrEntryNotFound
	}
	return m.getLocked(id)
}

func (m *Memory) listLocked(month payroll.Month) []*payroll.Entry {
	result := []*payroll.Entry{}
	for _, e := range m.entries {
		if e.Month == month {
			result = append(result, e.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EmployeeID < result[j].EmployeeID })
	return result
}

func (m *Memory) saveLocked(entry *payroll.Entry) error {
	key := entry.Key()
	stored, exists := m.entries[entry.ID]

	if entry.Version == 0 {
		if id, taken := m.byKey[key]; taken || exists {
			actual := 0
			if taken {
				actual = m.entries[id].Version
			}
			return &payroll.ConflictError{Key: key, Expected: 0, Actual: actual}
		}
	} else {
		if !exists {
			return payroll.ErrEntryNotFound
		}
		if stored.Version != entry.Version {
			return &payroll.ConflictError{Key: key, Expected: entry.Version, Actual: stored.Version}
		}
		if stored.Key() != key {
			return &payroll.ValidationError{Field: "entry", Reason: "employee and month are immutable"}
		}
	}

	entry.Version++
	m.entries[entry.ID] = entry.Clone()
	m.byKey[key] = entry.ID
	return nil
}

// =============================================================================
// ROSTER
// =============================================================================

func (m *Memory) GetEmployee(_ context.Context, id payroll.EmployeeID) (*payroll.EmployeeCompensation, error) {
	m.rosterMu.RLock()
	defer m.rosterMu.RUnlock()
	emp, ok := m.employees[id]
	if !ok {
		return nil, payroll.ErrEmployeeNotFound
	}
	c := emp.Clone()
	return &c, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]payroll.EmployeeCompensation, error) {
	m.rosterMu.RLock()
	defer m.rosterMu.RUnlock()
	result := make([]payroll.EmployeeCompensation, 0, len(m.employees))
	for _, emp := range m.employees {
		result = append(result, emp.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) SaveEmployee(_ context.Context, emp payroll.EmployeeCompensation) error {
	if err := emp.Validate(); err != nil {
		return err
	}
	m.rosterMu.Lock()
	defer m.rosterMu.Unlock()
	m.employees[emp.ID] = emp.Clone()
	return nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (m *Memory) Append(_ context.Context, entry payroll.AuditEntry) error {
	m.auditMu.Lock()
	defer m.auditMu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) Query(_ context.Context, filter payroll.AuditFilter) ([]payroll.AuditEntry, error) {
	m.auditMu.RLock()
	defer m.auditMu.RUnlock()
	var result []payroll.AuditEntry
	for _, e := range m.audit {
		if filter.Matches(e) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// Entry writes from other goroutines wait until fn returns.
func (tm *TxMemory) WithTx(_ context.Context, fn func(payroll.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	entries := make(map[payroll.EntryID]*payroll.Entry, len(tm.entries))
	for k, v := range tm.entries {
		entries[k] = v.Clone()
	}
	byKey := make(map[payroll.EntryKey]payroll.EntryID, len(tm.byKey))
	for k, v := range tm.byKey {
		byKey[k] = v
	}
	return memorySnapshot{entries: entries, byKey: byKey}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.entries = s.entries
	tm.byKey = s.byKey
}

type memorySnapshot struct {
	entries map[payroll.EntryID]*payroll.Entry
	byKey   map[payroll.EntryKey]payroll.EntryID
}

// txMemoryView runs inside WithTx, which already holds the write lock.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) Get(_ context.Context, id payroll.EntryID) (*payroll.Entry, error) {
	return tv.parent.getLocked(id)
}

func (tv *txMemoryView) GetByKey(_ context.Context, key payroll.EntryKey) (*payroll.Entry, error) {
	return tv.parent.getByKeyLocked(key)
}

func (tv *txMemoryView) ListByMonth(_ context.Context, month payroll.Month) ([]*payroll.Entry, error) {
	return tv.parent.listLocked(month), nil
}

func (tv *txMemoryView) Save(_ context.Context, entry *payroll.Entry) error {
	return tv.parent.saveLocked(entry)
}

var (
	_ payroll.TxStore  = (*TxMemory)(nil)
	_ payroll.Roster   = (*Memory)(nil)
	_ payroll.AuditLog = (*Memory)(nil)
)
