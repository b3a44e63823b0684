package payroll

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH - Pay period key (YYYY-MM)
// =============================================================================

const monthLayout = "2006-01"

// Month is a calendar month, the natural partition key for payroll entries.
type Month struct {
	Year  int
	Month time.Month
}

func NewMonth(year int, month time.Month) Month { return Month{Year: year, Month: month} }

// CurrentMonth returns the month containing now.
func CurrentMonth(now time.Time) Month { return NewMonth(now.Year(), now.Month()) }

// ParseMonth parses a YYYY-MM period key.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, &ValidationError{Field: "month", Reason: fmt.Sprintf("%q is not YYYY-MM", s)}
	}
	return NewMonth(t.Year(), t.Month()), nil
}

func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return m.Start().Format(monthLayout)
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

// Start is the first day of the month, UTC.
func (m Month) Start() time.Time { return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC) }

// End is the last day of the month, UTC.
func (m Month) End() time.Time { return m.Start().AddDate(0, 1, -1) }

func (m Month) Next() Month {
	n := m.Start().AddDate(0, 1, 0)
	return NewMonth(n.Year(), n.Month())
}

func (m Month) Before(other Month) bool { return m.Start().Before(other.Start()) }

// WorkingDays counts Monday-Friday days in the month. Used when a calculate
// request carries no attendance.
func (m Month) WorkingDays() int {
	n := 0
	for d := m.Start(); d.Month() == m.Month; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

// IsHalfYearEnd reports whether the half-yearly incentive is paid this month.
func (m Month) IsHalfYearEnd() bool { return m.Month == time.June || m.Month == time.December }

func (m Month) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText accepts "" as the zero month.
func (m *Month) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*m = Month{}
		return nil
	}
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
