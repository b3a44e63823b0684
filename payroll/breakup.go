package payroll

import "github.com/shopspring/decimal"

// Breakup derives the fixed monthly salary components from annual CTC.
//
// The monthly gross is rounded to MoneyPlaces first; basic and HRA are rounded
// shares of it and allowances absorb the remainder, so the three components sum
// to MonthlySalary exactly.
func (r *Rules) Breakup(annualCTC decimal.Decimal) (SalaryBreakup, error) {
	if !annualCTC.IsPositive() {
		return SalaryBreakup{}, &ValidationError{Field: "annual_ctc", Reason: "must be positive"}
	}

	gross := roundMoney(annualCTC.Div(monthsPerYear))
	basic := roundMoney(gross.Mul(r.Config.BasicShare))
	hra := roundMoney(gross.Mul(r.Config.HRAShare))

	return SalaryBreakup{
		Basic:         basic,
		HRA:           hra,
		Allowances:    gross.Sub(basic).Sub(hra),
		PF:            r.pf(basic),
		ESI:           r.esi(gross),
		MonthlySalary: gross,
	}, nil
}

// ComputeBreakup is Breakup under the default statutory config.
func ComputeBreakup(annualCTC decimal.Decimal) (SalaryBreakup, error) {
	return DefaultRules().Breakup(annualCTC)
}
