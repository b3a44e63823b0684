package payroll_test

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	march2025 = payroll.NewMonth(2025, time.March)
	june2025  = payroll.NewMonth(2025, time.June)
	t0        = time.Date(2025, time.March, 31, 9, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func employee(id string, ctc string) payroll.EmployeeCompensation {
	return payroll.EmployeeCompensation{
		ID:          payroll.EmployeeID(id),
		Name:        "Employee " + id,
		BankAccount: "ACC-" + id,
		AnnualCTC:   dec(ctc),
	}
}

func input(emp payroll.EmployeeCompensation, month payroll.Month, present, working int) payroll.EntryInput {
	return payroll.EntryInput{
		Employee:    emp,
		Month:       month,
		PresentDays: present,
		WorkingDays: working,
	}
}

// assertMoney compares at two decimal places so "85000" and "85000.00" match.
func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, dec(want).StringFixed(2), got.StringFixed(2), msgAndArgs...)
}

// stepClock returns a strictly increasing time on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock { return &stepClock{now: t0} }

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}
