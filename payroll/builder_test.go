package payroll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// BUILD ENTRY TESTS
// =============================================================================

func TestBuildEntry_FullAttendance(t *testing.T) {
	// GIVEN: CTC 1,200,000, full attendance, no adjustments
	in := input(employee("E001", "1200000"), march2025, 22, 22)
	in.IncentiveAdjustment = decPtr("0")

	// WHEN: Building the entry
	e, err := payroll.DefaultRules().BuildEntry(in)
	require.NoError(t, err)

	// THEN: 100,000 gross, 15,000 deductions, 85,000 net with no round-off
	assertMoney(t, "40000", e.BasicSalary)
	assertMoney(t, "20000", e.HRA)
	assertMoney(t, "40000", e.Allowances)
	assertMoney(t, "4800", e.Deductions.PF)
	assertMoney(t, "0", e.Deductions.ESI)
	assertMoney(t, "200", e.Deductions.PT)
	assertMoney(t, "10000", e.Deductions.TDS)
	assertMoney(t, "0", e.LossOfPay)
	assertMoney(t, "100000", e.GrossPayable)
	assertMoney(t, "15000", e.TotalDeductions)
	assertMoney(t, "85000", e.NetPayable)
	assertMoney(t, "0", e.RoundOffAdjustment)

	assert.Equal(t, payroll.StatusPending, e.Status)
	assert.Nil(t, e.ApprovedBy)
	assert.Nil(t, e.ApprovedOn)
	assert.Nil(t, e.RejectedBy)
	assert.Nil(t, e.RejectionReason)
	assert.Equal(t, 0, e.Version)
	assert.Empty(t, e.ID)
}

func TestBuildEntry_ProratesShortAttendance(t *testing.T) {
	// GIVEN: 20 of 22 days present
	in := input(employee("E001", "1200000"), march2025, 20, 22)

	e, err := payroll.DefaultRules().BuildEntry(in)
	require.NoError(t, err)

	// THEN: earnings are prorated and the shortfall shows up as loss of pay
	assertMoney(t, "36363.64", e.BasicSalary)
	assertMoney(t, "18181.82", e.HRA)
	assertMoney(t, "36363.63", e.Allowances)
	assertMoney(t, "9090.91", e.LossOfPay)
	assertMoney(t, "90909.09", e.GrossPayable)

	// Deductions stay on the entitled salary
	assertMoney(t, "15000", e.Deductions.Total())
	assertMoney(t, "24090.91", e.TotalDeductions)
	assertMoney(t, "66820", e.NetPayable)
	assertMoney(t, "1.82", e.RoundOffAdjustment)

	assert.Equal(t, 20, e.AttendanceDays)
	assert.Equal(t, 22, e.WorkingDays)
}

func TestBuildEntry_DeductOnProrated(t *testing.T) {
	// GIVEN: Deductions configured on prorated earnings
	cfg := payroll.DefaultStatutoryConfig()
	cfg.DeductOnProrated = true
	rules, err := payroll.NewRules(cfg)
	require.NoError(t, err)

	e, err := rules.BuildEntry(input(employee("E001", "1200000"), march2025, 20, 22))
	require.NoError(t, err)

	// THEN: PF and TDS shrink with attendance
	assertMoney(t, "4364", e.Deductions.PF)
	assertMoney(t, "200", e.Deductions.PT)
	assertMoney(t, "9091", e.Deductions.TDS)
	assertMoney(t, "13655", e.Deductions.Total())
}

func TestBuildEntry_ReimbursementsAndIncentive(t *testing.T) {
	rules := payroll.DefaultRules()

	t.Run("reimbursements add to gross and round", func(t *testing.T) {
		in := input(employee("E001", "1200000"), march2025, 22, 22)
		in.Reimbursements = dec("1234.56")

		e, err := rules.BuildEntry(in)
		require.NoError(t, err)

		assertMoney(t, "101234.56", e.GrossPayable)
		assertMoney(t, "86230", e.NetPayable)
		assertMoney(t, "-4.56", e.RoundOffAdjustment)
	})

	t.Run("negative incentive is a clawback", func(t *testing.T) {
		in := input(employee("E001", "1200000"), march2025, 22, 22)
		in.IncentiveAdjustment = decPtr("-2000")

		e, err := rules.BuildEntry(in)
		require.NoError(t, err)

		assertMoney(t, "98000", e.GrossPayable)
		assertMoney(t, "83000", e.NetPayable)
	})

	t.Run("absent incentive stays nil", func(t *testing.T) {
		e, err := rules.BuildEntry(input(employee("E001", "1200000"), march2025, 22, 22))
		require.NoError(t, err)
		assert.Nil(t, e.IncentiveAdjustment)
		assertMoney(t, "0", e.Incentive())
	})
}

func TestBuildEntry_RoundingProperties(t *testing.T) {
	// GIVEN: A spread of CTCs and attendance
	// THEN: net is a multiple of 10, |round-off| < 10 and net == raw + round-off
	rules := payroll.DefaultRules()
	ten := dec("10")

	for _, ctc := range []string{"180000", "251999", "600000", "1234567.89", "2400000"} {
		for _, present := range []int{0, 7, 19, 21, 22} {
			in := input(employee("E", ctc), march2025, present, 22)
			in.Reimbursements = dec("333.33")

			e, err := rules.BuildEntry(in)
			require.NoError(t, err)

			raw := e.GrossPayable.Sub(e.TotalDeductions)
			assert.True(t, e.NetPayable.Mod(ten).IsZero(), "ctc=%s present=%d net=%s", ctc, present, e.NetPayable)
			assert.True(t, e.RoundOffAdjustment.Abs().LessThan(ten), "ctc=%s present=%d roundoff=%s", ctc, present, e.RoundOffAdjustment)
			assert.True(t, e.NetPayable.Equal(raw.Add(e.RoundOffAdjustment)))
			assert.True(t, e.Earnings().Add(e.LossOfPay).Equal(e.MonthlySalary), "earnings + lop == entitled salary")
			assert.False(t, e.LossOfPay.IsNegative())
		}
	}
}

func TestBuildEntry_Idempotent(t *testing.T) {
	rules := payroll.DefaultRules()
	in := input(employee("E001", "987654.32"), march2025, 17, 21)
	in.Reimbursements = dec("450.50")
	in.IncentiveAdjustment = decPtr("1000")

	a, err := rules.BuildEntry(in)
	require.NoError(t, err)
	b, err := rules.BuildEntry(in)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestBuildEntry_Validation(t *testing.T) {
	rules := payroll.DefaultRules()

	tests := []struct {
		name  string
		edit  func(*payroll.EntryInput)
		field string
	}{
		{"zero working days", func(in *payroll.EntryInput) { in.WorkingDays = 0 }, "working_days"},
		{"negative present days", func(in *payroll.EntryInput) { in.PresentDays = -1 }, "present_days"},
		{"present exceeds working", func(in *payroll.EntryInput) { in.PresentDays = 23 }, "present_days"},
		{"negative reimbursements", func(in *payroll.EntryInput) { in.Reimbursements = dec("-1") }, "reimbursements"},
		{"missing month", func(in *payroll.EntryInput) { in.Month = payroll.Month{} }, "month"},
		{"zero CTC", func(in *payroll.EntryInput) { in.Employee.AnnualCTC = dec("0") }, "annual_ctc"},
		{"missing employee id", func(in *payroll.EntryInput) { in.Employee.ID = "" }, "employee_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := input(employee("E001", "1200000"), march2025, 22, 22)
			tt.edit(&in)

			e, err := rules.BuildEntry(in)
			assert.Nil(t, e)
			require.ErrorIs(t, err, payroll.ErrValidation)

			var verr *payroll.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

// =============================================================================
// REIMBURSEMENT RECOMPUTATION TESTS
// =============================================================================

func TestApplyReimbursements_KeepsStatusAndAudit(t *testing.T) {
	// GIVEN: An approved entry
	rules := payroll.DefaultRules()
	e, err := rules.BuildEntry(input(employee("E001", "1200000"), march2025, 20, 22))
	require.NoError(t, err)
	require.NoError(t, payroll.DefaultWorkflow().Approve(e, "mgr", t0))
	lop, deductions := e.LossOfPay, e.Deductions

	// WHEN: Reimbursements are edited
	require.NoError(t, rules.ApplyReimbursements(e, dec("500")))

	// THEN: Money is recomputed, status and approval audit stay
	assertMoney(t, "500", e.Reimbursements)
	assertMoney(t, "91409.09", e.GrossPayable)
	assertMoney(t, "67320", e.NetPayable)
	assertMoney(t, "1.82", e.RoundOffAdjustment)
	assert.True(t, e.LossOfPay.Equal(lop))
	assert.Equal(t, deductions, e.Deductions)
	assert.Equal(t, payroll.StatusApproved, e.Status)
	require.NotNil(t, e.ApprovedBy)
	assert.Equal(t, "mgr", *e.ApprovedBy)
}

func TestApplyReimbursements_RejectsNegative(t *testing.T) {
	rules := payroll.DefaultRules()
	e, err := rules.BuildEntry(input(employee("E001", "1200000"), march2025, 22, 22))
	require.NoError(t, err)
	before := e.Clone()

	err = rules.ApplyReimbursements(e, dec("-10"))
	assert.ErrorIs(t, err, payroll.ErrValidation)
	assert.Equal(t, before, e, "entry untouched on validation failure")
}

// =============================================================================
// SCHEDULED INCENTIVE TESTS
// =============================================================================

func TestScheduledIncentive(t *testing.T) {
	emp := employee("E001", "1200000")
	emp.HalfYearlyIncentive = &payroll.IncentiveTerms{Enabled: true, Percentage: dec("10")}
	emp.JoiningBonus = &payroll.JoiningBonus{Enabled: true, Amount: dec("5000"), Month: june2025}

	t.Run("half-year month pays half the yearly incentive plus joining bonus", func(t *testing.T) {
		got := payroll.ScheduledIncentive(emp, june2025)
		require.NotNil(t, got)
		assertMoney(t, "65000", *got)
	})

	t.Run("december pays the incentive only", func(t *testing.T) {
		got := payroll.ScheduledIncentive(emp, payroll.NewMonth(2025, 12))
		require.NotNil(t, got)
		assertMoney(t, "60000", *got)
	})

	t.Run("other months are not applicable", func(t *testing.T) {
		assert.Nil(t, payroll.ScheduledIncentive(emp, march2025))
	})

	t.Run("disabled terms are ignored", func(t *testing.T) {
		disabled := employee("E002", "1200000")
		disabled.HalfYearlyIncentive = &payroll.IncentiveTerms{Enabled: false, Percentage: dec("10")}
		assert.Nil(t, payroll.ScheduledIncentive(disabled, june2025))
	})
}
