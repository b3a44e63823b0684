/*
store.go - Persistence interfaces for payroll entries, roster and audit

PURPOSE:
  Defines the contract between the engine and durable storage. The engine
  holds no records of its own; everything is loaded from and saved to these
  collaborators on every operation.

KEY INTERFACES:
  Store:    Entry persistence with optimistic locking
  TxStore:  Atomic multi-entry operations (approve-all)
  Roster:   Employee compensation terms (owned elsewhere, read here)
  AuditLog: Append-only record of who changed what

OPTIMISTIC LOCKING:
  Save compares entry.Version with the stored version:
  - Version 0 means "new": the key must not exist yet
  - Otherwise the stored version must match exactly
  On success the store bumps entry.Version. A mismatch returns ConflictError
  (errors.Is(err, ErrConcurrentModification)).

NO DELETES:
  Entries are never physically deleted, only superseded by recalculation of
  the same (employee, month), which keeps the entry ID.

IMPLEMENTATIONS:
  - payroll/store/memory.go: In-memory, for tests and dev
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - engine.go: The only caller
*/
package payroll

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Entry persistence
// =============================================================================

type Store interface {
	// Get returns the entry or ErrEntryNotFound.
	Get(ctx context.Context, id EntryID) (*Entry, error)

	// GetByKey returns the entry for (employee, month) or ErrEntryNotFound.
	GetByKey(ctx context.Context, key EntryKey) (*Entry, error)

	// ListByMonth returns the period's entries ordered by employee id.
	ListByMonth(ctx context.Context, month Month) ([]*Entry, error)

	// Save inserts or updates under optimistic locking and bumps entry.Version.
	Save(ctx context.Context, entry *Entry) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through the Store passed to fn
	// is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// ROSTER - External employee records
// =============================================================================

type Roster interface {
	// GetEmployee returns the employee or ErrEmployeeNotFound.
	GetEmployee(ctx context.Context, id EmployeeID) (*EmployeeCompensation, error)
	ListEmployees(ctx context.Context) ([]EmployeeCompensation, error)
	SaveEmployee(ctx context.Context, emp EmployeeCompensation) error
}

// =============================================================================
// AUDIT LOG - Separate from entries, tracks who did what when
// =============================================================================

type AuditAction string

const (
	AuditEntryCalculated       AuditAction = "entry_calculated"
	AuditEntrySuperseded       AuditAction = "entry_superseded"
	AuditEntryOverwritten      AuditAction = "entry_overwritten" // forced recalculation of a finalized entry
	AuditEntryApproved         AuditAction = "entry_approved"
	AuditEntryRejected         AuditAction = "entry_rejected"
	AuditReimbursementsUpdated AuditAction = "reimbursements_updated"
)

type AuditEntry struct {
	ID         string
	Timestamp  time.Time
	ActorID    string
	Action     AuditAction
	EntryID    EntryID
	EmployeeID EmployeeID
	Month      Month
	Payload    map[string]any
}

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// AuditFilter selects audit entries; nil fields match everything. Results are
// ordered by Timestamp.
type AuditFilter struct {
	EntryID *EntryID
	Month   *Month
	Actions []AuditAction
}

// Matches reports whether e passes the filter.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.EntryID != nil && e.EntryID != *f.EntryID {
		return false
	}
	if f.Month != nil && e.Month != *f.Month {
		return false
	}
	if len(f.Actions) > 0 {
		for _, a := range f.Actions {
			if a == e.Action {
				return true
			}
		}
		return false
	}
	return true
}
