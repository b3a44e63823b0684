/*
Package payroll provides the payroll calculation and approval engine.

PURPOSE:
  Turns an employee's compensation terms, attendance and adjustments into a
  payable amount for one pay period, and governs how that computed entry moves
  from draft to an approved, disbursable state. Everything monetary flows
  through decimal.Decimal; there is no float arithmetic anywhere in the engine.

KEY CONCEPTS IN THIS FILE (types.go):
  - EmployeeCompensation: Read-only compensation terms from the roster
  - SalaryBreakup: Monthly components derived from annual CTC
  - Deductions: Statutory line items (PF, ESI, PT, TDS)
  - Entry: One employee's payroll for one month, keyed by (employee, month)

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal with explicit rounding at documented points
  2. Determinism: Same inputs produce the same monetary fields, always
  3. Separation: Arithmetic (Rules) and status changes (Workflow) never overlap
  4. Auditability: Approval and rejection audit are mutually exclusive

USAGE:
  rules := payroll.DefaultRules()
  entry, err := rules.BuildEntry(payroll.EntryInput{
      Employee:    emp,
      Month:       payroll.NewMonth(2025, time.March),
      PresentDays: 20,
      WorkingDays: 22,
  })

SEE ALSO:
  - rules.go: Statutory parameters
  - builder.go: Entry construction and rounding policy
  - workflow.go: Approval state machine
  - engine.go: Store-backed operation surface
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Rounding helpers (decimal, never float)
// =============================================================================

// MoneyPlaces is the precision every stored monetary field carries.
const MoneyPlaces int32 = 2

var monthsPerYear = decimal.NewFromInt(12)

// MustParseDecimal parses s and panics if it is not a decimal. Intended for
// literals in tests and presets, not for user input.
func MustParseDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func roundMoney(d decimal.Decimal) decimal.Decimal { return d.Round(MoneyPlaces) }

// roundUnit rounds to the nearest whole currency unit, half away from zero.
func roundUnit(d decimal.Decimal) decimal.Decimal { return d.Round(0) }

// roundToNearest rounds d to the nearest multiple of unit.
func roundToNearest(d, unit decimal.Decimal) decimal.Decimal {
	if !unit.IsPositive() {
		return d
	}
	return d.Div(unit).Round(0).Mul(unit)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type EntryID string

// EntryKey is the natural key of a payroll entry. At most one entry exists per
// key in any store.
type EntryKey struct {
	EmployeeID EmployeeID
	Month      Month
}

func (k EntryKey) String() string { return string(k.EmployeeID) + "@" + k.Month.String() }

// =============================================================================
// EMPLOYEE COMPENSATION - Owned by the roster, read-only here
// =============================================================================

// IncentiveTerms configures the half-yearly incentive, a percentage of CTC
// paid in two halves.
type IncentiveTerms struct {
	Enabled    bool
	Percentage decimal.Decimal
}

// JoiningBonus is a one-time amount paid in the joining month.
type JoiningBonus struct {
	Enabled bool
	Amount  decimal.Decimal
	Month   Month
}

type EmployeeCompensation struct {
	ID                  EmployeeID
	Name                string
	BankAccount         string
	AnnualCTC           decimal.Decimal
	HalfYearlyIncentive *IncentiveTerms
	JoiningBonus        *JoiningBonus
}

// Validate checks the roster invariants the engine relies on.
func (c EmployeeCompensation) Validate() error {
	if c.ID == "" {
		return &ValidationError{Field: "employee_id", Reason: "is required"}
	}
	if !c.AnnualCTC.IsPositive() {
		return &ValidationError{Field: "annual_ctc", Reason: "must be positive"}
	}
	if t := c.HalfYearlyIncentive; t != nil && t.Enabled {
		if t.Percentage.IsNegative() || t.Percentage.GreaterThan(decimal.NewFromInt(100)) {
			return &ValidationError{Field: "incentive_percentage", Reason: "must be between 0 and 100"}
		}
	}
	if b := c.JoiningBonus; b != nil && b.Enabled && b.Amount.IsNegative() {
		return &ValidationError{Field: "joining_bonus", Reason: "must not be negative"}
	}
	return nil
}

// =============================================================================
// SALARY BREAKUP & DEDUCTIONS
// =============================================================================

// SalaryBreakup is derived from AnnualCTC and never edited by hand.
// Basic + HRA + Allowances == MonthlySalary exactly.
type SalaryBreakup struct {
	Basic         decimal.Decimal
	HRA           decimal.Decimal
	Allowances    decimal.Decimal
	PF            decimal.Decimal
	ESI           decimal.Decimal
	MonthlySalary decimal.Decimal
}

type Deductions struct {
	PF  decimal.Decimal
	ESI decimal.Decimal
	PT  decimal.Decimal
	TDS decimal.Decimal
}

func (d Deductions) Total() decimal.Decimal {
	return d.PF.Add(d.ESI).Add(d.PT).Add(d.TDS)
}

// =============================================================================
// ENTRY - One (employee, month) payroll row
// =============================================================================

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Entry is one employee's payroll for one month.
//
// INVARIANTS:
//   - Approval audit (ApprovedBy/ApprovedOn) and rejection audit
//     (RejectedBy/RejectedOn/RejectionReason) are never both populated.
//   - NetPayable is recomputable from the other monetary fields (Rules.Recompute).
//   - (EmployeeID, Month) is unique.
type Entry struct {
	ID         EntryID
	EmployeeID EmployeeID
	Month      Month

	// Entitled (unprorated) monthly salary the statutory deductions are based on.
	MonthlySalary decimal.Decimal

	// Earnings, prorated when attendance is short
	BasicSalary         decimal.Decimal
	HRA                 decimal.Decimal
	Allowances          decimal.Decimal
	Reimbursements      decimal.Decimal
	IncentiveAdjustment *decimal.Decimal // nil = not applicable, distinct from zero

	LossOfPay  decimal.Decimal
	Deductions Deductions

	GrossPayable       decimal.Decimal
	TotalDeductions    decimal.Decimal
	RoundOffAdjustment decimal.Decimal
	NetPayable         decimal.Decimal

	Status         Status
	AttendanceDays int
	WorkingDays    int

	ApprovedBy      *string
	ApprovedOn      *time.Time
	RejectedBy      *string
	RejectedOn      *time.Time
	RejectionReason *string

	// Version is the optimistic lock. Stores bump it on every save.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e *Entry) Key() EntryKey { return EntryKey{EmployeeID: e.EmployeeID, Month: e.Month} }

// Incentive returns the incentive adjustment, treating "not applicable" as zero.
func (e *Entry) Incentive() decimal.Decimal {
	if e.IncentiveAdjustment == nil {
		return decimal.Zero
	}
	return *e.IncentiveAdjustment
}

// Earnings is the prorated salary actually earned for the month.
func (e *Entry) Earnings() decimal.Decimal {
	return e.BasicSalary.Add(e.HRA).Add(e.Allowances)
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.IncentiveAdjustment = clonePtr(e.IncentiveAdjustment)
	c.ApprovedBy = clonePtr(e.ApprovedBy)
	c.ApprovedOn = clonePtr(e.ApprovedOn)
	c.RejectedBy = clonePtr(e.RejectedBy)
	c.RejectedOn = clonePtr(e.RejectedOn)
	c.RejectionReason = clonePtr(e.RejectionReason)
	return &c
}

// Clone returns a copy that shares no incentive or bonus terms with c.
func (c EmployeeCompensation) Clone() EmployeeCompensation {
	c.HalfYearlyIncentive = clonePtr(c.HalfYearlyIncentive)
	c.JoiningBonus = clonePtr(c.JoiningBonus)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
