package payroll

import "github.com/shopspring/decimal"

// Deductions computes the statutory line items for one month. Each item is a
// threshold-gated step function rounded to whole units.
func (r *Rules) Deductions(monthlySalary, basic decimal.Decimal) Deductions {
	return Deductions{
		PF:  r.pf(basic),
		ESI: r.esi(monthlySalary),
		PT:  r.pt(monthlySalary),
		TDS: r.tds(monthlySalary),
	}
}

func (r *Rules) pf(basic decimal.Decimal) decimal.Decimal {
	return roundUnit(basic.Mul(r.Config.PFRate))
}

// esi applies strictly below the ceiling.
func (r *Rules) esi(salary decimal.Decimal) decimal.Decimal {
	if !salary.LessThan(r.Config.ESICeiling) {
		return decimal.Zero
	}
	return roundUnit(salary.Mul(r.Config.ESIRate))
}

// pt applies strictly above the threshold. A salary equal to both the ESI
// ceiling and the PT threshold pays neither.
func (r *Rules) pt(salary decimal.Decimal) decimal.Decimal {
	if !salary.GreaterThan(r.Config.PTThreshold) {
		return decimal.Zero
	}
	return r.Config.PTAmount
}

func (r *Rules) tds(salary decimal.Decimal) decimal.Decimal {
	if !salary.GreaterThan(r.Config.TDSThreshold) {
		return decimal.Zero
	}
	return roundUnit(salary.Mul(r.Config.TDSRate))
}
