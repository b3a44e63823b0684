/*
builder.go - Payroll entry construction and rounding policy

PURPOSE:
  Combines the salary breakup, statutory deductions, attendance and
  adjustments into one period's Entry. This file owns every rounding decision
  that affects the payable amount.

CALCULATION STEPS:
  1. Breakup from annual CTC
  2. Prorate basic/HRA/allowances by present/working days when short;
     LossOfPay = entitled salary - prorated earnings (always >= 0)
  3. Statutory deductions on the ENTITLED salary (DeductOnProrated flips this)
  4. GrossPayable = earnings + reimbursements + incentive
  5. TotalDeductions = PF + ESI + PT + TDS + LossOfPay
  6. RawNet = GrossPayable - TotalDeductions
  7. NetPayable = RawNet rounded to the nearest RoundingUnit;
     RoundOffAdjustment = NetPayable - RawNet

RECOMPUTATION:
  Editing reimbursements re-runs steps 4-7 only (Recompute). LossOfPay,
  deductions, status and audit fields are left alone.

SEE ALSO:
  - breakup.go, deductions.go: Steps 1 and 3
  - engine.go: Persists the built entry
*/
package payroll

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUT
// =============================================================================

// EntryInput is everything needed to calculate one (employee, month).
type EntryInput struct {
	Employee       EmployeeCompensation
	Month          Month
	PresentDays    int
	WorkingDays    int
	Reimbursements decimal.Decimal

	// IncentiveAdjustment is signed. nil means "not applicable" and counts as
	// zero in the arithmetic.
	IncentiveAdjustment *decimal.Decimal
}

// FullAttendance returns an input with every weekday of the month present and
// no adjustments.
func FullAttendance(emp EmployeeCompensation, month Month) EntryInput {
	days := month.WorkingDays()
	return EntryInput{
		Employee:    emp,
		Month:       month,
		PresentDays: days,
		WorkingDays: days,
	}
}

func (in EntryInput) Validate() error {
	if err := in.Employee.Validate(); err != nil {
		return err
	}
	if in.Month.IsZero() {
		return &ValidationError{Field: "month", Reason: "is required"}
	}
	if in.WorkingDays <= 0 {
		return &ValidationError{Field: "working_days", Reason: "must be positive"}
	}
	if in.PresentDays < 0 {
		return &ValidationError{Field: "present_days", Reason: "must not be negative"}
	}
	if in.PresentDays > in.WorkingDays {
		return &ValidationError{Field: "present_days", Reason: "exceeds working days"}
	}
	if in.Reimbursements.IsNegative() {
		return &ValidationError{Field: "reimbursements", Reason: "must not be negative"}
	}
	return nil
}

// =============================================================================
// BUILD
// =============================================================================

// BuildEntry produces a new Pending entry. It is a pure function: no ID,
// timestamps or version are assigned, that is the caller's job.
func (r *Rules) BuildEntry(in EntryInput) (*Entry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	breakup, err := r.Breakup(in.Employee.AnnualCTC)
	if err != nil {
		return nil, err
	}

	earned := r.prorate(breakup, in.PresentDays, in.WorkingDays)

	var deductions Deductions
	if r.Config.DeductOnProrated {
		deductions = r.Deductions(earned.total(), earned.basic)
	} else {
		deductions = r.Deductions(breakup.MonthlySalary, breakup.Basic)
	}

	entry := &Entry{
		EmployeeID:     in.Employee.ID,
		Month:          in.Month,
		MonthlySalary:  breakup.MonthlySalary,
		BasicSalary:    earned.basic,
		HRA:            earned.hra,
		Allowances:     earned.allowances,
		Reimbursements: roundMoney(in.Reimbursements),
		LossOfPay:      breakup.MonthlySalary.Sub(earned.total()),
		Deductions:     deductions,
		Status:         StatusPending,
		AttendanceDays: in.PresentDays,
		WorkingDays:    in.WorkingDays,
	}
	if in.IncentiveAdjustment != nil {
		v := roundMoney(*in.IncentiveAdjustment)
		entry.IncentiveAdjustment = &v
	}

	r.Recompute(entry)
	return entry, nil
}

type earnings struct {
	basic, hra, allowances decimal.Decimal
}

func (e earnings) total() decimal.Decimal { return e.basic.Add(e.hra).Add(e.allowances) }

// prorate scales the breakup by present/working days. The prorated total is
// rounded once and allowances absorb the component rounding, the same way the
// breakup itself is split.
func (r *Rules) prorate(b SalaryBreakup, present, working int) earnings {
	if present >= working {
		return earnings{basic: b.Basic, hra: b.HRA, allowances: b.Allowances}
	}
	p := decimal.NewFromInt(int64(present))
	w := decimal.NewFromInt(int64(working))
	scale := func(d decimal.Decimal) decimal.Decimal { return roundMoney(d.Mul(p).Div(w)) }

	total := scale(b.MonthlySalary)
	basic := scale(b.Basic)
	hra := scale(b.HRA)
	return earnings{basic: basic, hra: hra, allowances: total.Sub(basic).Sub(hra)}
}

// =============================================================================
// SETTLE (steps 4-7)
// =============================================================================

// Recompute re-derives GrossPayable, TotalDeductions, RoundOffAdjustment and
// NetPayable from the entry's stored components.
func (r *Rules) Recompute(e *Entry) {
	gross := e.Earnings().Add(e.Reimbursements).Add(e.Incentive())
	total := e.Deductions.Total().Add(e.LossOfPay)
	raw := gross.Sub(total)
	net := roundToNearest(raw, r.Config.RoundingUnit)

	e.GrossPayable = gross
	e.TotalDeductions = total
	e.RoundOffAdjustment = net.Sub(raw)
	e.NetPayable = net
}

// ApplyReimbursements replaces the entry's reimbursements and recomputes the
// payable amount. Status and audit fields are untouched.
func (r *Rules) ApplyReimbursements(e *Entry, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return &ValidationError{Field: "reimbursements", Reason: "must not be negative"}
	}
	e.Reimbursements = roundMoney(amount)
	r.Recompute(e)
	return nil
}

// =============================================================================
// SCHEDULED INCENTIVES
// =============================================================================

// ScheduledIncentive derives the incentive owed for month from the employee's
// terms: half the yearly incentive percentage of CTC in June and December, and
// the joining bonus in its month. Returns nil when nothing applies.
func ScheduledIncentive(emp EmployeeCompensation, month Month) *decimal.Decimal {
	total := decimal.Zero
	applies := false

	if t := emp.HalfYearlyIncentive; t != nil && t.Enabled && month.IsHalfYearEnd() {
		half := emp.AnnualCTC.Mul(t.Percentage).Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(2))
		total = total.Add(roundMoney(half))
		applies = true
	}
	if b := emp.JoiningBonus; b != nil && b.Enabled && b.Month == month {
		total = total.Add(roundMoney(b.Amount))
		applies = true
	}

	if !applies {
		return nil
	}
	return &total
}
