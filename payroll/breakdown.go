package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BREAKDOWN - Read-only projection of a settled entry
// =============================================================================

// Breakdown is the denormalized view of one entry joined with its employee and
// attendance context. It is never persisted and never recomputes anything.
type Breakdown struct {
	EntryID      EntryID
	EmployeeID   EmployeeID
	EmployeeName string
	Month        Month
	SalaryPeriod SalaryPeriod
	Status       Status

	Attendance AttendanceSummary
	Earnings   EarningsSummary
	Deductions DeductionSummary

	NetPayable         decimal.Decimal
	RoundOffAdjustment decimal.Decimal
	// FinalAmount equals NetPayable; kept separate so the display can show
	// the round-off step.
	FinalAmount decimal.Decimal
}

type SalaryPeriod struct {
	From time.Time
	To   time.Time
}

type AttendanceSummary struct {
	WorkingDays int
	PresentDays int
	AbsentDays  int
	LOPDays     int
}

type EarningsSummary struct {
	BasicSalary         decimal.Decimal
	HRA                 decimal.Decimal
	Allowances          decimal.Decimal
	Reimbursements      decimal.Decimal
	IncentiveAdjustment decimal.Decimal
	TotalEarnings       decimal.Decimal
}

type DeductionSummary struct {
	PF              decimal.Decimal
	ESI             decimal.Decimal
	PT              decimal.Decimal
	TDS             decimal.Decimal
	LossOfPay       decimal.Decimal
	TotalDeductions decimal.Decimal
}

// Project builds the breakdown for e. Every absent day is a loss-of-pay day;
// the engine has no paid-leave entitlement.
func Project(e *Entry, emp EmployeeCompensation) Breakdown {
	name := emp.Name
	if name == "" {
		name = string(e.EmployeeID)
	}
	absent := e.WorkingDays - e.AttendanceDays

	return Breakdown{
		EntryID:      e.ID,
		EmployeeID:   e.EmployeeID,
		EmployeeName: name,
		Month:        e.Month,
		SalaryPeriod: SalaryPeriod{From: e.Month.Start(), To: e.Month.End()},
		Status:       e.Status,
		Attendance: AttendanceSummary{
			WorkingDays: e.WorkingDays,
			PresentDays: e.AttendanceDays,
			AbsentDays:  absent,
			LOPDays:     absent,
		},
		Earnings: EarningsSummary{
			BasicSalary:         e.BasicSalary,
			HRA:                 e.HRA,
			Allowances:          e.Allowances,
			Reimbursements:      e.Reimbursements,
			IncentiveAdjustment: e.Incentive(),
			TotalEarnings:       e.GrossPayable,
		},
		Deductions: DeductionSummary{
			PF:              e.Deductions.PF,
			ESI:             e.Deductions.ESI,
			PT:              e.Deductions.PT,
			TDS:             e.Deductions.TDS,
			LossOfPay:       e.LossOfPay,
			TotalDeductions: e.TotalDeductions,
		},
		NetPayable:         e.NetPayable,
		RoundOffAdjustment: e.RoundOffAdjustment,
		FinalAmount:        e.NetPayable,
	}
}

// =============================================================================
// SUMMARY - Period totals
// =============================================================================

type Summary struct {
	Month           Month
	EmployeeCount   int
	Pending         int
	Approved        int
	Rejected        int
	TotalGross      decimal.Decimal
	TotalDeductions decimal.Decimal
	TotalNet        decimal.Decimal
}

// Summarize totals the entries of one period.
func Summarize(month Month, entries []*Entry) Summary {
	s := Summary{
		Month:           month,
		TotalGross:      decimal.Zero,
		TotalDeductions: decimal.Zero,
		TotalNet:        decimal.Zero,
	}
	for _, e := range entries {
		s.EmployeeCount++
		switch e.Status {
		case StatusPending:
			s.Pending++
		case StatusApproved:
			s.Approved++
		case StatusRejected:
			s.Rejected++
		}
		s.TotalGross = s.TotalGross.Add(e.GrossPayable)
		s.TotalDeductions = s.TotalDeductions.Add(e.TotalDeductions)
		s.TotalNet = s.TotalNet.Add(e.NetPayable)
	}
	return s
}
