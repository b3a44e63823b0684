package payroll

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// =============================================================================
// EXPORT - Line-oriented serializations of a settled period
// =============================================================================

type ExportFormat string

const (
	// FormatLedger is the full payroll register. Rejected entries are included
	// only on request.
	FormatLedger ExportFormat = "ledger"

	// FormatBankFile is the disbursement file. Approved entries only.
	FormatBankFile ExportFormat = "bank-file"
)

func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(s); f {
	case FormatLedger, FormatBankFile:
		return f, nil
	}
	return "", &ValidationError{Field: "format", Reason: fmt.Sprintf("unsupported export format %q", s)}
}

var (
	ledgerHeader = []string{
		"entry_id", "employee_id", "employee_name", "month", "status",
		"working_days", "present_days",
		"basic_salary", "hra", "allowances", "reimbursements", "incentive_adjustment",
		"loss_of_pay", "pf", "esi", "pt", "tds",
		"gross_payable", "total_deductions", "round_off_adjustment", "net_payable",
		"approved_by", "rejected_by", "rejection_reason",
	}
	bankHeader = []string{"employee_id", "employee_name", "bank_account", "amount", "reference"}
)

// Export writes entries as CSV. It only formats; nothing is recomputed.
// employees supplies names and bank accounts; a missing employee falls back to
// its id and an empty account.
func Export(w io.Writer, entries []*Entry, employees map[EmployeeID]EmployeeCompensation, format ExportFormat, includeRejected bool) error {
	rows := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if includeInExport(e.Status, format, includeRejected) {
			rows = append(rows, e)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].EmployeeID < rows[j].EmployeeID })

	cw := csv.NewWriter(w)
	switch format {
	case FormatLedger:
		if err := cw.Write(ledgerHeader); err != nil {
			return fmt.Errorf("write ledger header: %w", err)
		}
		for _, e := range rows {
			if err := cw.Write(ledgerRow(e, employees[e.EmployeeID])); err != nil {
				return fmt.Errorf("write ledger row %s: %w", e.ID, err)
			}
		}
	case FormatBankFile:
		if err := cw.Write(bankHeader); err != nil {
			return fmt.Errorf("write bank header: %w", err)
		}
		for _, e := range rows {
			emp := employees[e.EmployeeID]
			if err := cw.Write([]string{
				string(e.EmployeeID),
				displayName(e, emp),
				emp.BankAccount,
				e.NetPayable.StringFixed(MoneyPlaces),
				"SALARY-" + e.Month.String(),
			}); err != nil {
				return fmt.Errorf("write bank row %s: %w", e.ID, err)
			}
		}
	default:
		return &ValidationError{Field: "format", Reason: fmt.Sprintf("unsupported export format %q", format)}
	}
	cw.Flush()
	return cw.Error()
}

func includeInExport(s Status, format ExportFormat, includeRejected bool) bool {
	if format == FormatBankFile {
		return s == StatusApproved
	}
	return s != StatusRejected || includeRejected
}

func ledgerRow(e *Entry, emp EmployeeCompensation) []string {
	money := func(d interface{ StringFixed(int32) string }) string { return d.StringFixed(MoneyPlaces) }
	incentive := ""
	if e.IncentiveAdjustment != nil {
		incentive = money(*e.IncentiveAdjustment)
	}
	return []string{
		string(e.ID), string(e.EmployeeID), displayName(e, emp), e.Month.String(), string(e.Status),
		strconv.Itoa(e.WorkingDays), strconv.Itoa(e.AttendanceDays),
		money(e.BasicSalary), money(e.HRA), money(e.Allowances), money(e.Reimbursements), incentive,
		money(e.LossOfPay), money(e.Deductions.PF), money(e.Deductions.ESI), money(e.Deductions.PT), money(e.Deductions.TDS),
		money(e.GrossPayable), money(e.TotalDeductions), money(e.RoundOffAdjustment), money(e.NetPayable),
		deref(e.ApprovedBy), deref(e.RejectedBy), deref(e.RejectionReason),
	}
}

func displayName(e *Entry, emp EmployeeCompensation) string {
	if emp.Name != "" {
		return emp.Name
	}
	return string(e.EmployeeID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
