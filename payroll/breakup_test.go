package payroll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// BREAKUP TESTS
// =============================================================================

func TestBreakup_ConcreteCTC(t *testing.T) {
	// GIVEN: CTC of 1,200,000 per year
	// WHEN: Computing the breakup
	// THEN: 100,000 monthly split 40/20/40, PF 4800, no ESI

	b, err := payroll.ComputeBreakup(dec("1200000"))
	require.NoError(t, err)

	assertMoney(t, "100000", b.MonthlySalary)
	assertMoney(t, "40000", b.Basic)
	assertMoney(t, "20000", b.HRA)
	assertMoney(t, "40000", b.Allowances)
	assertMoney(t, "4800", b.PF)
	assertMoney(t, "0", b.ESI)
}

func TestBreakup_ComponentsSumExactly(t *testing.T) {
	// GIVEN: CTC values that do not divide evenly
	// WHEN: Computing the breakup
	// THEN: basic + hra + allowances == monthlySalary with no rounding leak

	for _, ctc := range []string{"1", "1000000", "1234567.89", "251999", "333333.33", "99999999.99"} {
		t.Run(ctc, func(t *testing.T) {
			b, err := payroll.ComputeBreakup(dec(ctc))
			require.NoError(t, err)

			sum := b.Basic.Add(b.HRA).Add(b.Allowances)
			assert.True(t, sum.Equal(b.MonthlySalary), "sum %s != monthly %s", sum, b.MonthlySalary)
			assert.True(t, b.MonthlySalary.Equal(dec(ctc).Div(dec("12")).Round(2)), "monthly salary is CTC/12 at 2dp")
			assert.True(t, b.PF.Equal(b.Basic.Mul(dec("0.12")).Round(0)), "pf is 12%% of basic rounded")
		})
	}
}

func TestBreakup_ESIBelowCeiling(t *testing.T) {
	// GIVEN: CTC 240,000 (20,000 monthly, below the 21,000 ceiling)
	b, err := payroll.ComputeBreakup(dec("240000"))
	require.NoError(t, err)

	// THEN: ESI is 0.75% of the monthly salary
	assertMoney(t, "150", b.ESI)
}

func TestBreakup_RejectsNonPositiveCTC(t *testing.T) {
	for _, ctc := range []string{"0", "-1", "-1200000"} {
		_, err := payroll.ComputeBreakup(dec(ctc))
		require.Error(t, err, ctc)
		assert.ErrorIs(t, err, payroll.ErrValidation)

		var verr *payroll.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "annual_ctc", verr.Field)
	}
}

func TestBreakup_Idempotent(t *testing.T) {
	a, err := payroll.ComputeBreakup(dec("987654.32"))
	require.NoError(t, err)
	b, err := payroll.ComputeBreakup(dec("987654.32"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// =============================================================================
// STATUTORY DEDUCTION TESTS
// =============================================================================

func TestDeductions_ESIAndPTBoundary(t *testing.T) {
	rules := payroll.DefaultRules()

	tests := []struct {
		name   string
		salary string
		esi    string
		pt     string
	}{
		{"below ceiling pays ESI only", "20999", "157", "0"},
		{"at ceiling pays neither", "21000", "0", "0"},
		{"above threshold pays PT only", "21001", "0", "200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := rules.Deductions(dec(tt.salary), dec(tt.salary).Mul(dec("0.4")))
			assertMoney(t, tt.esi, d.ESI)
			assertMoney(t, tt.pt, d.PT)
		})
	}
}

func TestDeductions_TDSBoundary(t *testing.T) {
	rules := payroll.DefaultRules()

	d := rules.Deductions(dec("50000"), dec("20000"))
	assertMoney(t, "0", d.TDS, "TDS applies strictly above the threshold")

	d = rules.Deductions(dec("50001"), dec("20000.40"))
	assertMoney(t, "5000", d.TDS)
}

func TestDeductions_PFRoundsHalfUp(t *testing.T) {
	// GIVEN: basic whose 12% lands exactly on .5
	d := payroll.DefaultRules().Deductions(dec("100000"), dec("937.50"))

	// THEN: 112.5 rounds up to 113
	assertMoney(t, "113", d.PF)
}

func TestDeductions_Total(t *testing.T) {
	d := payroll.DefaultRules().Deductions(dec("100000"), dec("40000"))
	assertMoney(t, "4800", d.PF)
	assertMoney(t, "0", d.ESI)
	assertMoney(t, "200", d.PT)
	assertMoney(t, "10000", d.TDS)
	assertMoney(t, "15000", d.Total())
}

func TestDeductions_ConfigurableThresholds(t *testing.T) {
	// GIVEN: PT slab raised to 300 and TDS threshold lowered to 30,000
	cfg := payroll.DefaultStatutoryConfig()
	cfg.PTAmount = dec("300")
	cfg.TDSThreshold = dec("30000")
	rules, err := payroll.NewRules(cfg)
	require.NoError(t, err)

	d := rules.Deductions(dec("40000"), dec("16000"))
	assertMoney(t, "300", d.PT)
	assertMoney(t, "4000", d.TDS)
}

func TestNewRules_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*payroll.StatutoryConfig)
		field string
	}{
		{"rate above one", func(c *payroll.StatutoryConfig) { c.PFRate = dec("1.5") }, "pf_rate"},
		{"negative rate", func(c *payroll.StatutoryConfig) { c.ESIRate = dec("-0.01") }, "esi_rate"},
		{"shares exceed gross", func(c *payroll.StatutoryConfig) { c.BasicShare = dec("0.9") }, "basic_share"},
		{"negative slab", func(c *payroll.StatutoryConfig) { c.PTAmount = dec("-200") }, "pt_amount"},
		{"zero rounding unit", func(c *payroll.StatutoryConfig) { c.RoundingUnit = dec("0") }, "rounding_unit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := payroll.DefaultStatutoryConfig()
			tt.edit(&cfg)

			_, err := payroll.NewRules(cfg)
			var verr *payroll.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
