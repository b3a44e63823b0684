/*
engine.go - Store-backed payroll operations

PURPOSE:
  Binds the pure calculators (Rules) and the state machine (Workflow) to
  persistence. Every public operation of the payroll engine lives here; the
  HTTP layer and the scheduler are thin callers.

CONCURRENCY:
  - Every single-entry mutation runs under a per-(employee, month) mutex and
    saves through the store's optimistic lock. A conflicting save from another
    process is retried against a fresh read a bounded number of times.
  - ApproveAll runs inside one store transaction: the Pending set is a single
    snapshot and the batch commits all-or-nothing.
  - Identical concurrent exports share one store read (singleflight).

RECALCULATION POLICY:
  Pending entries are superseded in place (same ID, version bumped).
  Approved or Rejected entries are refused with ErrEntryFinalized unless the
  caller forces it; a forced overwrite resets the entry to Pending and records
  the previous status and approver in the audit log.

AUDIT:
  Audit records are written after the entry is committed. A failed audit write
  is logged and does not undo the committed change.

SEE ALSO:
  - builder.go: Arithmetic
  - workflow.go: Transition rules
  - store.go: Persistence contract
*/
package payroll

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// maxSaveAttempts bounds retries of a single-entry mutation after a version
// conflict.
const maxSaveAttempts = 3

// SystemActor is recorded in the audit log for changes not attributed to a user.
const SystemActor = "system"

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Rules    *Rules
	Workflow Workflow

	store  TxStore
	roster Roster
	audit  AuditLog
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	locks   *keyedLocker
	exports singleflight.Group
}

type Option func(*Engine)

func WithRules(r *Rules) Option { return func(e *Engine) { e.Rules = r } }

func WithWorkflow(w Workflow) Option { return func(e *Engine) { e.Workflow = w } }

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithIDGenerator replaces the uuid generator, for tests.
func WithIDGenerator(gen func() string) Option { return func(e *Engine) { e.newID = gen } }

func NewEngine(store TxStore, roster Roster, audit AuditLog, opts ...Option) *Engine {
	e := &Engine{
		Rules:    DefaultRules(),
		Workflow: DefaultWorkflow(),
		store:    store,
		roster:   roster,
		audit:    audit,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
		locks:    newKeyedLocker(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// =============================================================================
// CALCULATION
// =============================================================================

// ComputeBreakup derives the monthly salary components for an annual CTC.
func (e *Engine) ComputeBreakup(annualCTC decimal.Decimal) (SalaryBreakup, error) {
	return e.Rules.Breakup(annualCTC)
}

// BuildEntry calculates and persists one entry. An existing Pending entry for
// the same (employee, month) is superseded; a finalized one is refused.
func (e *Engine) BuildEntry(ctx context.Context, in EntryInput) (*Entry, error) {
	entry, _, err := e.calculate(ctx, in, modeSupersede)
	return entry, err
}

type calcOutcome int

const (
	outcomeCreated calcOutcome = iota
	outcomeSuperseded
	outcomeOverwritten
	outcomeExists
)

// calcMode decides what calculate does with an existing entry for the key.
type calcMode int

const (
	modeSupersede  calcMode = iota // replace Pending, refuse finalized
	modeForce                      // replace whatever is there
	modeCreateOnly                 // leave any existing entry alone
)

func recalcMode(force bool) calcMode {
	if force {
		return modeForce
	}
	return modeSupersede
}

// EntryFailure is one input a recalculation could not apply.
type EntryFailure struct {
	EmployeeID EmployeeID
	Err        error
}

type RecalcResult struct {
	Month      Month
	Entries    []*Entry
	Created    int
	Superseded int // includes forced overwrites
	Failures   []EntryFailure
}

// RecalculatePeriod calculates every input for month. Inputs without a month
// take month; inputs for another month fail. Per-entry client errors are
// collected in Failures and do not stop the batch; storage errors do.
func (e *Engine) RecalculatePeriod(ctx context.Context, month Month, inputs []EntryInput, force bool) (*RecalcResult, error) {
	if month.IsZero() {
		return nil, &ValidationError{Field: "month", Reason: "is required"}
	}

	result := &RecalcResult{Month: month}
	seen := make(map[EmployeeID]bool, len(inputs))

	for _, in := range inputs {
		if in.Month.IsZero() {
			in.Month = month
		}
		id := in.Employee.ID
		switch {
		case in.Month != month:
			result.Failures = append(result.Failures, EntryFailure{EmployeeID: id,
				Err: &ValidationError{Field: "month", Reason: fmt.Sprintf("input is for %s, batch is %s", in.Month, month)}})
			continue
		case seen[id]:
			result.Failures = append(result.Failures, EntryFailure{EmployeeID: id,
				Err: &ValidationError{Field: "employee_id", Reason: "duplicate in batch"}})
			continue
		}
		seen[id] = true

		entry, outcome, err := e.calculate(ctx, in, recalcMode(force))
		if err != nil {
			if IsClientError(err) || IsNotFound(err) || IsRetryable(err) {
				result.Failures = append(result.Failures, EntryFailure{EmployeeID: id, Err: err})
				continue
			}
			return nil, fmt.Errorf("recalculate %s for %s: %w", month, id, err)
		}

		result.Entries = append(result.Entries, entry)
		if outcome == outcomeCreated {
			result.Created++
		} else {
			result.Superseded++
		}
	}

	e.logger.Info("payroll period recalculated",
		"month", month.String(),
		"created", result.Created,
		"superseded", result.Superseded,
		"failed", len(result.Failures),
		"force", force,
	)
	return result, nil
}

// EnsureDrafts creates a full-attendance Pending entry for every roster
// employee that has none for month. Existing entries are never touched.
// Returns the number of entries created.
func (e *Engine) EnsureDrafts(ctx context.Context, month Month) (int, error) {
	employees, err := e.roster.ListEmployees(ctx)
	if err != nil {
		return 0, fmt.Errorf("list employees: %w", err)
	}

	created := 0
	for _, emp := range employees {
		_, err := e.store.GetByKey(ctx, EntryKey{EmployeeID: emp.ID, Month: month})
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrEntryNotFound) {
			return created, err
		}

		_, outcome, err := e.calculate(ctx, FullAttendance(emp, month), modeCreateOnly)
		switch {
		case err == nil && outcome == outcomeCreated:
			created++
		case err == nil, IsRetryable(err):
			// created concurrently
		case IsClientError(err):
			e.logger.Warn("skipping draft for invalid employee", "employee_id", emp.ID, "error", err)
		default:
			return created, err
		}
	}
	return created, nil
}

func (e *Engine) calculate(ctx context.Context, in EntryInput, mode calcMode) (*Entry, calcOutcome, error) {
	if in.IncentiveAdjustment == nil {
		in.IncentiveAdjustment = ScheduledIncentive(in.Employee, in.Month)
	}

	// Build before taking the lock: the arithmetic is pure and a validation
	// failure must leave the store untouched.
	built, err := e.Rules.BuildEntry(in)
	if err != nil {
		return nil, 0, err
	}

	key := built.Key()
	unlock := e.locks.Lock(key)
	defer unlock()

	now := e.now()
	existing, err := e.store.GetByKey(ctx, key)
	switch {
	case errors.Is(err, ErrEntryNotFound):
		built.ID = EntryID(e.newID())
		built.CreatedAt = now
		built.UpdatedAt = now
		if err := e.store.Save(ctx, built); err != nil {
			return nil, 0, err
		}
		e.record(ctx, built, AuditEntryCalculated, SystemActor, map[string]any{
			"net_payable": built.NetPayable.StringFixed(MoneyPlaces),
		})
		return built, outcomeCreated, nil
	case err != nil:
		return nil, 0, err
	}

	if mode == modeCreateOnly {
		return existing, outcomeExists, nil
	}
	if existing.Status != StatusPending && mode != modeForce {
		return nil, 0, &TransitionError{EntryID: existing.ID, From: existing.Status, Action: "recalculate", Err: ErrEntryFinalized}
	}

	built.ID = existing.ID
	built.Version = existing.Version
	built.CreatedAt = existing.CreatedAt
	built.UpdatedAt = now
	if err := e.store.Save(ctx, built); err != nil {
		return nil, 0, err
	}

	payload := map[string]any{
		"previous_net_payable": existing.NetPayable.StringFixed(MoneyPlaces),
		"net_payable":          built.NetPayable.StringFixed(MoneyPlaces),
	}
	if existing.Status == StatusPending {
		e.record(ctx, built, AuditEntrySuperseded, SystemActor, payload)
		return built, outcomeSuperseded, nil
	}

	payload["previous_status"] = string(existing.Status)
	if existing.ApprovedBy != nil {
		payload["previous_approved_by"] = *existing.ApprovedBy
	}
	if existing.RejectedBy != nil {
		payload["previous_rejected_by"] = *existing.RejectedBy
	}
	e.logger.Warn("finalized payroll entry overwritten",
		"entry_id", built.ID,
		"employee_id", built.EmployeeID,
		"month", built.Month.String(),
		"previous_status", existing.Status,
	)
	e.record(ctx, built, AuditEntryOverwritten, SystemActor, payload)
	return built, outcomeOverwritten, nil
}

// =============================================================================
// SINGLE-ENTRY MUTATIONS
// =============================================================================

// UpdateReimbursements replaces the entry's reimbursements and recomputes its
// payable amount. Status and approval audit are unchanged.
func (e *Engine) UpdateReimbursements(ctx context.Context, id EntryID, amount decimal.Decimal) (*Entry, error) {
	if amount.IsNegative() {
		return nil, &ValidationError{Field: "reimbursements", Reason: "must not be negative"}
	}
	return e.mutate(ctx, id, AuditReimbursementsUpdated, SystemActor, func(entry *Entry, _ time.Time) (map[string]any, error) {
		previous := entry.Reimbursements
		if err := e.Rules.ApplyReimbursements(entry, amount); err != nil {
			return nil, err
		}
		return map[string]any{
			"previous_reimbursements": previous.StringFixed(MoneyPlaces),
			"reimbursements":          entry.Reimbursements.StringFixed(MoneyPlaces),
			"net_payable":             entry.NetPayable.StringFixed(MoneyPlaces),
		}, nil
	})
}

func (e *Engine) Approve(ctx context.Context, id EntryID, approverID string) (*Entry, error) {
	return e.mutate(ctx, id, AuditEntryApproved, approverID, func(entry *Entry, at time.Time) (map[string]any, error) {
		from := entry.Status
		if err := e.Workflow.Approve(entry, approverID, at); err != nil {
			return nil, err
		}
		return map[string]any{"from": string(from)}, nil
	})
}

func (e *Engine) Reject(ctx context.Context, id EntryID, rejecterID, reason string) (*Entry, error) {
	return e.mutate(ctx, id, AuditEntryRejected, rejecterID, func(entry *Entry, at time.Time) (map[string]any, error) {
		from := entry.Status
		if err := e.Workflow.Reject(entry, rejecterID, reason, at); err != nil {
			return nil, err
		}
		return map[string]any{"from": string(from), "reason": reason}, nil
	})
}

// mutate applies fn to a fresh copy of the entry under its key lock and saves
// it. fn runs again on a fresh read if the save loses an optimistic-lock race.
func (e *Engine) mutate(ctx context.Context, id EntryID, action AuditAction, actor string, fn func(*Entry, time.Time) (map[string]any, error)) (*Entry, error) {
	current, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(current.Key())
	defer unlock()

	for attempt := 1; ; attempt++ {
		entry, err := e.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		at := e.now()
		payload, err := fn(entry, at)
		if err != nil {
			return nil, err
		}
		entry.UpdatedAt = at

		if err := e.store.Save(ctx, entry); err != nil {
			if IsRetryable(err) && attempt < maxSaveAttempts {
				e.logger.Debug("retrying payroll entry save", "entry_id", id, "attempt", attempt, "error", err)
				continue
			}
			return nil, err
		}

		e.record(ctx, entry, action, actor, payload)
		return entry, nil
	}
}

// =============================================================================
// BATCH APPROVAL
// =============================================================================

// ApproveAll approves every entry of month that is Pending at the moment the
// transaction starts. Entries in other states are untouched. Returns the number
// approved.
func (e *Engine) ApproveAll(ctx context.Context, month Month, approverID string) (int, error) {
	if month.IsZero() {
		return 0, &ValidationError{Field: "month", Reason: "is required"}
	}

	at := e.now()
	var approved []*Entry
	err := e.store.WithTx(ctx, func(tx Store) error {
		entries, err := tx.ListByMonth(ctx, month)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return ErrPeriodNotFound
		}

		approved, err = e.Workflow.ApproveAll(entries, approverID, at)
		if err != nil {
			return err
		}
		for _, entry := range approved {
			entry.UpdatedAt = at
			if err := tx.Save(ctx, entry); err != nil {
				return fmt.Errorf("approve %s: %w", entry.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, entry := range approved {
		e.record(ctx, entry, AuditEntryApproved, approverID, map[string]any{
			"from":  string(StatusPending),
			"batch": true,
		})
	}
	e.logger.Info("payroll period approved", "month", month.String(), "approved_by", approverID, "count", len(approved))
	return len(approved), nil
}

// =============================================================================
// READS
// =============================================================================

func (e *Engine) Get(ctx context.Context, id EntryID) (*Entry, error) {
	return e.store.Get(ctx, id)
}

// Entries lists the entries of month. An empty period is not an error here.
func (e *Engine) Entries(ctx context.Context, month Month) ([]*Entry, error) {
	return e.store.ListByMonth(ctx, month)
}

func (e *Engine) Summary(ctx context.Context, month Month) (Summary, error) {
	entries, err := e.store.ListByMonth(ctx, month)
	if err != nil {
		return Summary{}, err
	}
	if len(entries) == 0 {
		return Summary{}, ErrPeriodNotFound
	}
	return Summarize(month, entries), nil
}

// ProjectBreakdown returns the presentation view of one entry. An employee
// missing from the roster is shown by id.
func (e *Engine) ProjectBreakdown(ctx context.Context, id EntryID) (*Breakdown, error) {
	entry, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var emp EmployeeCompensation
	found, err := e.roster.GetEmployee(ctx, entry.EmployeeID)
	switch {
	case err == nil:
		emp = *found
	case !errors.Is(err, ErrEmployeeNotFound):
		return nil, err
	}

	b := Project(entry, emp)
	return &b, nil
}

// Export renders month in format. The returned slice is owned by the caller.
func (e *Engine) Export(ctx context.Context, month Month, format ExportFormat, includeRejected bool) ([]byte, error) {
	if _, err := ParseExportFormat(string(format)); err != nil {
		return nil, err
	}

	key := month.String() + "|" + string(format) + "|" + strconv.FormatBool(includeRejected)
	// Coalesced callers share one read, so it must not die with the first caller.
	shared := context.WithoutCancel(ctx)
	v, err, _ := e.exports.Do(key, func() (any, error) {
		entries, err := e.store.ListByMonth(shared, month)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, ErrPeriodNotFound
		}
		employees, err := e.rosterIndex(shared)
		if err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		if err := Export(&buf, entries, employees, format, includeRejected); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		return nil, err
	}
	return bytes.Clone(v.([]byte)), nil
}

// AuditTrail returns the audit history of one entry, oldest first.
func (e *Engine) AuditTrail(ctx context.Context, id EntryID) ([]AuditEntry, error) {
	if _, err := e.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return e.audit.Query(ctx, AuditFilter{EntryID: &id})
}

func (e *Engine) rosterIndex(ctx context.Context) (map[EmployeeID]EmployeeCompensation, error) {
	employees, err := e.roster.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	index := make(map[EmployeeID]EmployeeCompensation, len(employees))
	for _, emp := range employees {
		index[emp.ID] = emp
	}
	return index, nil
}

func (e *Engine) record(ctx context.Context, entry *Entry, action AuditAction, actor string, payload map[string]any) {
	err := e.audit.Append(ctx, AuditEntry{
		ID:         e.newID(),
		Timestamp:  e.now(),
		ActorID:    actor,
		Action:     action,
		EntryID:    entry.ID,
		EmployeeID: entry.EmployeeID,
		Month:      entry.Month,
		Payload:    payload,
	})
	if err != nil {
		e.logger.Error("audit append failed", "entry_id", entry.ID, "action", action, "error", err)
	}
}
