/*
Package sqlite provides a SQLite-backed implementation of the payroll storage
interfaces.

PURPOSE:
  Implements every persistence interface the engine needs using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

INTERFACES IMPLEMENTED:
  payroll.TxStore:  Entry persistence with optimistic locking and transactions
  payroll.Roster:   Employee compensation terms
  payroll.AuditLog: Append-only audit trail

KEY TABLES:
  payroll_entries: One row per (employee_id, month), never deleted
  employees:       Roster records with incentive terms as JSON
  audit_log:       Immutable who-did-what records

OPTIMISTIC LOCKING:
  payroll_entries.version is compared on every UPDATE:
    UPDATE ... SET version = version + 1 WHERE id = ? AND version = ?
  Zero affected rows means another writer got there first (ConflictError).

MONEY:
  Decimal amounts are stored as TEXT with two fixed places. Never REAL.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, which also
  keeps ":memory:" databases coherent. In production with PostgreSQL,
  database-level concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := payroll.NewEngine(store, store, store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - payroll/store.go: Interface definitions
  - payroll/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database. The parent directory of a file
// path is created if missing.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
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

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Payroll entries, unique per employee and month
	CREATE TABLE IF NOT EXISTS payroll_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		month TEXT NOT NULL,
		monthly_salary TEXT NOT NULL,
		basic_salary TEXT NOT NULL,
		hra TEXT NOT NULL,
		allowances TEXT NOT NULL,
		reimbursements TEXT NOT NULL,
		incentive_adjustment TEXT,
		loss_of_pay TEXT NOT NULL,
		pf TEXT NOT NULL,
		esi TEXT NOT NULL,
		pt TEXT NOT NULL,
		tds TEXT NOT NULL,
		gross_payable TEXT NOT NULL,
		total_deductions TEXT NOT NULL,
		round_off_adjustment TEXT NOT NULL,
		net_payable TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Pending',
		attendance_days INTEGER NOT NULL,
		working_days INTEGER NOT NULL,
		approved_by TEXT,
		approved_on TEXT,
		rejected_by TEXT,
		rejected_on TEXT,
		rejection_reason TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(employee_id, month),
		CHECK (approved_by IS NULL OR rejected_by IS NULL)
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_entries_month
		ON payroll_entries(month, employee_id);
	CREATE INDEX IF NOT EXISTS idx_payroll_entries_status
		ON payroll_entries(month, status);

	-- Employees (roster)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		bank_account TEXT NOT NULL DEFAULT '',
		annual_ctc TEXT NOT NULL,
		terms_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Audit log (append-only)
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		entry_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		month TEXT NOT NULL,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_entry
		ON audit_log(entry_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_log_month
		ON audit_log(month, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENTRY STORE (payroll.Store interface)
// =============================================================================

const entryColumns = `id, employee_id, month, monthly_salary, basic_salary, hra, allowances,
	reimbursements, incentive_adjustment, loss_of_pay, pf, esi, pt, tds,
	gross_payable, total_deductions, round_off_adjustment, net_payable,
	status, attendance_days, working_days,
	approved_by, approved_on, rejected_by, rejected_on, rejection_reason,
	version, created_at, updated_at`

func (s *Store) Get(ctx context.Context, id payroll.EntryID) (*payroll.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEntry(ctx, s.db, id)
}

func (s *Store) GetByKey(ctx context.Context, key payroll.EntryKey) (*payroll.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEntryByKey(ctx, s.db, key)
}

func (s *Store) ListByMonth(ctx context.Context, month payroll.Month) ([]*payroll.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEntries(ctx, s.db, month)
}

// Save inserts or updates under optimistic locking.
func (s *Store) Save(ctx context.Context, entry *payroll.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveEntry(ctx, s.db, entry)
}

func getEntry(ctx context.Context, q querier, id payroll.EntryID) (*payroll.Entry, error) {
	row := q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM payroll_entries WHERE id = ?`, string(id))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payroll.ErrEntryNotFound
	}
	return e, err
}

func getEntryByKey(ctx context.Context, q querier, key payroll.EntryKey) (*payroll.Entry, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM payroll_entries WHERE employee_id = ? AND month = ?`,
		string(key.EmployeeID), key.Month.String())
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payroll.ErrEntryNotFound
	}
	return e, err
}

func listEntries(ctx context.Context, q querier, month payroll.Month) ([]*payroll.Entry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM payroll_entries WHERE month = ? ORDER BY employee_id`,
		month.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query payroll entries: %w", err)
	}
	defer rows.Close()

	entries := []*payroll.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func saveEntry(ctx context.Context, q querier, entry *payroll.Entry) error {
	if entry.Version == 0 {
		return insertEntry(ctx, q, entry)
	}
	return updateEntry(ctx, q, entry)
}

func insertEntry(ctx context.Context, q querier, e *payroll.Entry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO payroll_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		string(e.ID), string(e.EmployeeID), e.Month.String(),
		money(e.MonthlySalary), money(e.BasicSalary), money(e.HRA), money(e.Allowances),
		money(e.Reimbursements), nullMoney(e.IncentiveAdjustment), money(e.LossOfPay),
		money(e.Deductions.PF), money(e.Deductions.ESI), money(e.Deductions.PT), money(e.Deductions.TDS),
		money(e.GrossPayable), money(e.TotalDeductions), money(e.RoundOffAdjustment), money(e.NetPayable),
		string(e.Status), e.AttendanceDays, e.WorkingDays,
		nullPtr(e.ApprovedBy), nullTime(e.ApprovedOn), nullPtr(e.RejectedBy), nullTime(e.RejectedOn), nullPtr(e.RejectionReason),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			actual := 0
			if existing, getErr := getEntryByKey(ctx, q, e.Key()); getErr == nil {
				actual = existing.Version
			}
			return &payroll.ConflictError{Key: e.Key(), Expected: 0, Actual: actual}
		}
		return fmt.Errorf("failed to insert payroll entry: %w", err)
	}
	e.Version = 1
	return nil
}

func updateEntry(ctx context.Context, q querier, e *payroll.Entry) error {
	res, err := q.ExecContext(ctx, `
		UPDATE payroll_entries SET
			monthly_salary = ?, basic_salary = ?, hra = ?, allowances = ?,
			reimbursements = ?, incentive_adjustment = ?, loss_of_pay = ?,
			pf = ?, esi = ?, pt = ?, tds = ?,
			gross_payable = ?, total_deductions = ?, round_off_adjustment = ?, net_payable = ?,
			status = ?, attendance_days = ?, working_days = ?,
			approved_by = ?, approved_on = ?, rejected_by = ?, rejected_on = ?, rejection_reason = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND employee_id = ? AND month = ?`,
		money(e.MonthlySalary), money(e.BasicSalary), money(e.HRA), money(e.Allowances),
		money(e.Reimbursements), nullMoney(e.IncentiveAdjustment), money(e.LossOfPay),
		money(e.Deductions.PF), money(e.Deductions.ESI), money(e.Deductions.PT), money(e.Deductions.TDS),
		money(e.GrossPayable), money(e.TotalDeductions), money(e.RoundOffAdjustment), money(e.NetPayable),
		string(e.Status), e.AttendanceDays, e.WorkingDays,
		nullPtr(e.ApprovedBy), nullTime(e.ApprovedOn), nullPtr(e.RejectedBy), nullTime(e.RejectedOn), nullPtr(e.RejectionReason),
		formatTime(e.UpdatedAt),
		string(e.ID), e.Version, string(e.EmployeeID), e.Month.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update payroll entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update payroll entry: %w", err)
	}
	if n == 0 {
		stored, getErr := getEntry(ctx, q, e.ID)
		if getErr != nil {
			return getErr
		}
		if stored.Key() != e.Key() {
			return &payroll.ValidationError{Field: "entry", Reason: "employee and month are immutable"}
		}
		return &payroll.ConflictError{Key: e.Key(), Expected: e.Version, Actual: stored.Version}
	}

	e.Version++
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*payroll.Entry, error) {
	var (
		e                                                     payroll.Entry
		id, employeeID, month, status                         string
		monthly, basic, hra, allowances, reimbursements, lop  string
		pf, esi, pt, tds                                      string
		gross, totalDeductions, roundOff, net                 string
		incentive                                             sql.NullString
		approvedBy, approvedOn, rejectedBy, rejectedOn, rejRe sql.NullString
		createdAt, updatedAt                                  string
	)

	err := row.Scan(
		&id, &employeeID, &month, &monthly, &basic, &hra, &allowances,
		&reimbursements, &incentive, &lop, &pf, &esi, &pt, &tds,
		&gross, &totalDeductions, &roundOff, &net,
		&status, &e.AttendanceDays, &e.WorkingDays,
		&approvedBy, &approvedOn, &rejectedBy, &rejectedOn, &rejRe,
		&e.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan payroll entry: %w", err)
	}

	m, err := payroll.ParseMonth(month)
	if err != nil {
		return nil, fmt.Errorf("failed to scan payroll entry %s: %v", id, err)
	}

	var p columnParser
	e.ID = payroll.EntryID(id)
	e.EmployeeID = payroll.EmployeeID(employeeID)
	e.Month = m
	e.Status = payroll.Status(status)
	e.MonthlySalary = p.decimal("monthly_salary", monthly)
	e.BasicSalary = p.decimal("basic_salary", basic)
	e.HRA = p.decimal("hra", hra)
	e.Allowances = p.decimal("allowances", allowances)
	e.Reimbursements = p.decimal("reimbursements", reimbursements)
	e.LossOfPay = p.decimal("loss_of_pay", lop)
	e.Deductions = payroll.Deductions{
		PF:  p.decimal("pf", pf),
		ESI: p.decimal("esi", esi),
		PT:  p.decimal("pt", pt),
		TDS: p.decimal("tds", tds),
	}
	e.GrossPayable = p.decimal("gross_payable", gross)
	e.TotalDeductions = p.decimal("total_deductions", totalDeductions)
	e.RoundOffAdjustment = p.decimal("round_off_adjustment", roundOff)
	e.NetPayable = p.decimal("net_payable", net)
	if incentive.Valid {
		v := p.decimal("incentive_adjustment", incentive.String)
		e.IncentiveAdjustment = &v
	}
	e.ApprovedBy = ptrString(approvedBy)
	e.ApprovedOn = p.nullTime("approved_on", approvedOn)
	e.RejectedBy = ptrString(rejectedBy)
	e.RejectedOn = p.nullTime("rejected_on", rejectedOn)
	e.RejectionReason = ptrString(rejRe)
	e.CreatedAt = p.time("created_at", createdAt)
	e.UpdatedAt = p.time("updated_at", updatedAt)

	if p.err != nil {
		return nil, fmt.Errorf("failed to scan payroll entry %s: %w", id, p.err)
	}
	return &e, nil
}

// =============================================================================
// TRANSACTIONAL STORE (payroll.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store payroll.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore reads and writes through the open transaction. The parent's mutex
// is already held by WithTx.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Get(ctx context.Context, id payroll.EntryID) (*payroll.Entry, error) {
	return getEntry(ctx, ts.tx, id)
}

func (ts *txStore) GetByKey(ctx context.Context, key payroll.EntryKey) (*payroll.Entry, error) {
	return getEntryByKey(ctx, ts.tx, key)
}

func (ts *txStore) ListByMonth(ctx context.Context, month payroll.Month) ([]*payroll.Entry, error) {
	return listEntries(ctx, ts.tx, month)
}

func (ts *txStore) Save(ctx context.Context, entry *payroll.Entry) error {
	return saveEntry(ctx, ts.tx, entry)
}

// =============================================================================
// ROSTER (payroll.Roster interface)
// =============================================================================

// employeeTerms is the JSON shape of the optional incentive terms.
type employeeTerms struct {
	HalfYearlyIncentive *incentiveTermsJSON `json:"half_yearly_incentive,omitempty"`
	JoiningBonus        *joiningBonusJSON   `json:"joining_bonus,omitempty"`
}

type incentiveTermsJSON struct {
	Enabled    bool            `json:"enabled"`
	Percentage decimal.Decimal `json:"percentage"`
}

type joiningBonusJSON struct {
	Enabled bool            `json:"enabled"`
	Amount  decimal.Decimal `json:"amount"`
	Month   payroll.Month   `json:"month"`
}

// SaveEmployee inserts or replaces an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp payroll.EmployeeCompensation) error {
	if err := emp.Validate(); err != nil {
		return err
	}

	var terms employeeTerms
	if t := emp.HalfYearlyIncentive; t != nil {
		terms.HalfYearlyIncentive = &incentiveTermsJSON{Enabled: t.Enabled, Percentage: t.Percentage}
	}
	if b := emp.JoiningBonus; b != nil {
		terms.JoiningBonus = &joiningBonusJSON{Enabled: b.Enabled, Amount: b.Amount, Month: b.Month}
	}
	termsJSON, err := json.Marshal(terms)
	if err != nil {
		return fmt.Errorf("failed to encode employee terms: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := formatTime(time.Now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, bank_account, annual_ctc, terms_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			bank_account = excluded.bank_account,
			annual_ctc = excluded.annual_ctc,
			terms_json = excluded.terms_json,
			updated_at = excluded.updated_at`,
		string(emp.ID), emp.Name, emp.BankAccount, emp.AnnualCTC.String(), string(termsJSON), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id payroll.EmployeeID) (*payroll.EmployeeCompensation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, bank_account, annual_ctc, terms_json FROM employees WHERE id = ?`, string(id))
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payroll.ErrEmployeeNotFound
	}
	return emp, err
}

// ListEmployees returns all employees ordered by ID.
func (s *Store) ListEmployees(ctx context.Context) ([]payroll.EmployeeCompensation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, bank_account, annual_ctc, terms_json FROM employees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	employees := []payroll.EmployeeCompensation{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *emp)
	}
	return employees, rows.Err()
}

func scanEmployee(row rowScanner) (*payroll.EmployeeCompensation, error) {
	var (
		id, name, bankAccount, ctc string
		termsJSON                  sql.NullString
	)
	if err := row.Scan(&id, &name, &bankAccount, &ctc, &termsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan employee: %w", err)
	}

	annualCTC, err := decimal.NewFromString(ctc)
	if err != nil {
		return nil, fmt.Errorf("failed to scan employee %s: annual_ctc %q: %w", id, ctc, err)
	}
	emp := &payroll.EmployeeCompensation{
		ID:          payroll.EmployeeID(id),
		Name:        name,
		BankAccount: bankAccount,
		AnnualCTC:   annualCTC,
	}
	if termsJSON.Valid && termsJSON.String != "" {
		var terms employeeTerms
		if err := json.Unmarshal([]byte(termsJSON.String), &terms); err != nil {
			return nil, fmt.Errorf("failed to decode terms for employee %s: %w", id, err)
		}
		if t := terms.HalfYearlyIncentive; t != nil {
			emp.HalfYearlyIncentive = &payroll.IncentiveTerms{Enabled: t.Enabled, Percentage: t.Percentage}
		}
		if b := terms.JoiningBonus; b != nil {
			emp.JoiningBonus = &payroll.JoiningBonus{Enabled: b.Enabled, Amount: b.Amount, Month: b.Month}
		}
	}
	return emp, nil
}

// =============================================================================
// AUDIT LOG (payroll.AuditLog interface)
// =============================================================================

// Append records an audit entry. Audit rows are never updated or deleted.
func (s *Store) Append(ctx context.Context, entry payroll.AuditEntry) error {
	payloadJSON, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor_id, action, entry_id, employee_id, month, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, formatTime(entry.Timestamp), entry.ActorID, string(entry.Action),
		string(entry.EntryID), string(entry.EmployeeID), entry.Month.String(), string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Query returns audit entries matching the filter, oldest first.
func (s *Store) Query(ctx context.Context, filter payroll.AuditFilter) ([]payroll.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.EntryID != nil {
		where = append(where, "entry_id = ?")
		args = append(args, string(*filter.EntryID))
	}
	if filter.Month != nil {
		where = append(where, "month = ?")
		args = append(args, filter.Month.String())
	}
	if len(filter.Actions) > 0 {
		placeholders := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			placeholders[i] = "?"
			args = append(args, string(a))
		}
		where = append(where, "action IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `SELECT id, timestamp, actor_id, action, entry_id, employee_id, month, payload_json FROM audit_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp, rowid"

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var result []payroll.AuditEntry
	for rows.Next() {
		var (
			e                                     payroll.AuditEntry
			ts, action, entryID, employeeID, mStr string
			payloadJSON                           sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &e.ActorID, &action, &entryID, &employeeID, &mStr, &payloadJSON); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		var p columnParser
		e.Timestamp = p.time("timestamp", ts)
		e.Action = payroll.AuditAction(action)
		e.EntryID = payroll.EntryID(entryID)
		e.EmployeeID = payroll.EmployeeID(employeeID)
		if err := e.Month.UnmarshalText([]byte(mStr)); err != nil && p.err == nil {
			p.err = fmt.Errorf("month %q: %v", mStr, err)
		}
		if payloadJSON.Valid && payloadJSON.String != "" && payloadJSON.String != "null" {
			if err := json.Unmarshal([]byte(payloadJSON.String), &e.Payload); err != nil && p.err == nil {
				p.err = fmt.Errorf("payload_json: %w", err)
			}
		}
		if p.err != nil {
			return nil, fmt.Errorf("failed to scan audit entry %s: %w", e.ID, p.err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

var (
	_ payroll.TxStore  = (*Store)(nil)
	_ payroll.Roster   = (*Store)(nil)
	_ payroll.AuditLog = (*Store)(nil)
)

// =============================================================================
// HELPERS
// =============================================================================

func money(d decimal.Decimal) string {
	return d.StringFixed(payroll.MoneyPlaces)
}

func nullMoney(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: money(*d), Valid: true}
}

func nullPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func ptrString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// columnParser decodes stored text columns and keeps the first failure.
type columnParser struct {
	err error
}

func (p *columnParser) decimal(column, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s %q: %w", column, s, err)
	}
	return d
}

func (p *columnParser) time(column, s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s %q: %w", column, s, err)
	}
	return t
}

func (p *columnParser) nullTime(column string, ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := p.time(column, ns.String)
	return &t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
