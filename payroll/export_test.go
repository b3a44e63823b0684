package payroll_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// BREAKDOWN & SUMMARY TESTS
// =============================================================================

func TestProject_ShortAttendance(t *testing.T) {
	e, err := payroll.DefaultRules().BuildEntry(input(employee("E001", "1200000"), march2025, 20, 22))
	require.NoError(t, err)
	e.ID = "entry-1"

	b := payroll.Project(e, employee("E001", "1200000"))

	assert.Equal(t, "Employee E001", b.EmployeeName)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), b.SalaryPeriod.From)
	assert.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), b.SalaryPeriod.To)
	assert.Equal(t, payroll.AttendanceSummary{WorkingDays: 22, PresentDays: 20, AbsentDays: 2, LOPDays: 2}, b.Attendance)
	assertMoney(t, "90909.09", b.Earnings.TotalEarnings)
	assertMoney(t, "9090.91", b.Deductions.LossOfPay)
	assertMoney(t, "24090.91", b.Deductions.TotalDeductions)
	assertMoney(t, "66820", b.FinalAmount)
	assert.True(t, b.FinalAmount.Equal(b.NetPayable))
}

func TestProject_MissingEmployeeFallsBackToID(t *testing.T) {
	e := pendingEntry(t, "E404")
	b := payroll.Project(e, payroll.EmployeeCompensation{})
	assert.Equal(t, "E404", b.EmployeeName)
}

func TestSummarize(t *testing.T) {
	wf := payroll.DefaultWorkflow()
	a, b, c := pendingEntry(t, "A"), pendingEntry(t, "B"), pendingEntry(t, "C")
	require.NoError(t, wf.Approve(b, "mgr", t0))
	require.NoError(t, wf.Reject(c, "mgr", "duplicate", t0))

	s := payroll.Summarize(march2025, []*payroll.Entry{a, b, c})

	assert.Equal(t, 3, s.EmployeeCount)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 1, s.Approved)
	assert.Equal(t, 1, s.Rejected)
	assertMoney(t, "300000", s.TotalGross)
	assertMoney(t, "45000", s.TotalDeductions)
	assertMoney(t, "255000", s.TotalNet)
}

// =============================================================================
// EXPORT TESTS
// =============================================================================

func exportFixture(t *testing.T) ([]*payroll.Entry, map[payroll.EmployeeID]payroll.EmployeeCompensation) {
	t.Helper()
	wf := payroll.DefaultWorkflow()
	c, a, b := pendingEntry(t, "E003"), pendingEntry(t, "E001"), pendingEntry(t, "E002")
	require.NoError(t, wf.Approve(a, "mgr", t0))
	require.NoError(t, wf.Reject(b, "mgr", "bank details, pending", t0))

	employees := map[payroll.EmployeeID]payroll.EmployeeCompensation{
		"E001": employee("E001", "1200000"),
		"E002": employee("E002", "1200000"),
	}
	return []*payroll.Entry{c, a, b}, employees
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExport_LedgerExcludesRejectedByDefault(t *testing.T) {
	entries, employees := exportFixture(t)

	var buf bytes.Buffer
	require.NoError(t, payroll.Export(&buf, entries, employees, payroll.FormatLedger, false))

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, "entry_id", rows[0][0])
	assert.Equal(t, "E001", rows[1][1], "sorted by employee id")
	assert.Equal(t, "Approved", rows[1][4])
	assert.Equal(t, "E003", rows[2][1])
	assert.Equal(t, "E003", rows[2][2], "unknown employee shown by id")
	assert.Equal(t, "85000.00", rows[2][20])
}

func TestExport_LedgerIncludeRejected(t *testing.T) {
	entries, employees := exportFixture(t)

	var buf bytes.Buffer
	require.NoError(t, payroll.Export(&buf, entries, employees, payroll.FormatLedger, true))

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 4)
	assert.Equal(t, "Rejected", rows[2][4])
	assert.Equal(t, "bank details, pending", rows[2][23], "commas survive CSV quoting")
}

func TestExport_BankFileApprovedOnly(t *testing.T) {
	entries, employees := exportFixture(t)

	var buf bytes.Buffer
	require.NoError(t, payroll.Export(&buf, entries, employees, payroll.FormatBankFile, true))

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"employee_id", "employee_name", "bank_account", "amount", "reference"}, rows[0])
	assert.Equal(t, []string{"E001", "Employee E001", "ACC-E001", "85000.00", "SALARY-2025-03"}, rows[1])
}

func TestParseExportFormat(t *testing.T) {
	f, err := payroll.ParseExportFormat("bank-file")
	require.NoError(t, err)
	assert.Equal(t, payroll.FormatBankFile, f)

	_, err = payroll.ParseExportFormat("pdf")
	assert.ErrorIs(t, err, payroll.ErrValidation)

	var buf bytes.Buffer
	err = payroll.Export(&buf, nil, nil, payroll.ExportFormat("xml"), false)
	assert.ErrorIs(t, err, payroll.ErrValidation)
}

// =============================================================================
// MONTH TESTS
// =============================================================================

func TestMonth(t *testing.T) {
	m, err := payroll.ParseMonth("2025-03")
	require.NoError(t, err)
	assert.Equal(t, march2025, m)
	assert.Equal(t, "2025-03", m.String())
	assert.Equal(t, 21, m.WorkingDays())
	assert.Equal(t, payroll.NewMonth(2025, time.April), m.Next())
	assert.False(t, m.IsHalfYearEnd())
	assert.True(t, june2025.IsHalfYearEnd())

	_, err = payroll.ParseMonth("2025-13")
	assert.ErrorIs(t, err, payroll.ErrValidation)

	var zero payroll.Month
	require.NoError(t, zero.UnmarshalText(nil))
	assert.True(t, zero.IsZero())
	require.NoError(t, zero.UnmarshalText([]byte("2024-12")))
	assert.Equal(t, payroll.NewMonth(2024, time.December), zero)
}
