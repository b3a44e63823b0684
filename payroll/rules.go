package payroll

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUTORY CONFIG - Thresholds and rates as parameters, not policy
// =============================================================================

// StatutoryConfig holds every rate and threshold the calculators use. The
// defaults mirror the common PF/ESI/PT/TDS shapes; none of them is claimed to
// be correct tax law for any jurisdiction.
type StatutoryConfig struct {
	// Breakup shares of the monthly gross. Allowances take the remainder.
	BasicShare decimal.Decimal
	HRAShare   decimal.Decimal

	PFRate decimal.Decimal // of basic

	ESIRate    decimal.Decimal // of monthly salary
	ESICeiling decimal.Decimal // ESI applies when salary < ceiling

	PTThreshold decimal.Decimal // PT applies when salary > threshold
	PTAmount    decimal.Decimal // flat slab

	TDSRate      decimal.Decimal
	TDSThreshold decimal.Decimal // TDS applies when salary > threshold

	// RoundingUnit is what net payable is rounded to.
	RoundingUnit decimal.Decimal

	// DeductOnProrated computes statutory deductions on the prorated earnings
	// instead of the entitled salary. Off by default.
	DeductOnProrated bool
}

func DefaultStatutoryConfig() StatutoryConfig {
	return StatutoryConfig{
		BasicShare:   MustParseDecimal("0.40"),
		HRAShare:     MustParseDecimal("0.20"),
		PFRate:       MustParseDecimal("0.12"),
		ESIRate:      MustParseDecimal("0.0075"),
		ESICeiling:   decimal.NewFromInt(21000),
		PTThreshold:  decimal.NewFromInt(21000),
		PTAmount:     decimal.NewFromInt(200),
		TDSRate:      MustParseDecimal("0.10"),
		TDSThreshold: decimal.NewFromInt(50000),
		RoundingUnit: decimal.NewFromInt(10),
	}
}

func (c StatutoryConfig) Validate() error {
	one := decimal.NewFromInt(1)
	rates := []struct {
		field string
		v     decimal.Decimal
	}{
		{"basic_share", c.BasicShare},
		{"hra_share", c.HRAShare},
		{"pf_rate", c.PFRate},
		{"esi_rate", c.ESIRate},
		{"tds_rate", c.TDSRate},
	}
	for _, r := range rates {
		if r.v.IsNegative() || r.v.GreaterThan(one) {
			return &ValidationError{Field: r.field, Reason: "must be between 0 and 1"}
		}
	}
	if c.BasicShare.Add(c.HRAShare).GreaterThan(one) {
		return &ValidationError{Field: "basic_share", Reason: "basic and hra shares exceed the monthly gross"}
	}
	amounts := []struct {
		field string
		v     decimal.Decimal
	}{
		{"esi_ceiling", c.ESICeiling},
		{"pt_threshold", c.PTThreshold},
		{"pt_amount", c.PTAmount},
		{"tds_threshold", c.TDSThreshold},
	}
	for _, a := range amounts {
		if a.v.IsNegative() {
			return &ValidationError{Field: a.field, Reason: "must not be negative"}
		}
	}
	if !c.RoundingUnit.IsPositive() {
		return &ValidationError{Field: "rounding_unit", Reason: "must be positive"}
	}
	return nil
}

// =============================================================================
// RULES - Pure calculators bound to one StatutoryConfig
// =============================================================================

// Rules is immutable after construction and safe for concurrent use.
type Rules struct {
	Config StatutoryConfig
}

func NewRules(cfg StatutoryConfig) (*Rules, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Rules{Config: cfg}, nil
}

func DefaultRules() *Rules {
	return &Rules{Config: DefaultStatutoryConfig()}
}
