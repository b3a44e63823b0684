/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the payroll domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Every monetary amount crosses the wire as a string with two decimal places
  ("85000.00"). Requests accept plain decimal strings. No floats.

VALIDATION:
  Request types carry go-playground/validator tags and are checked in
  decodeAndValidate before the engine sees them. Domain rules (present days
  not above working days, non-negative reimbursements) stay in the engine.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	ID                  string             `json:"id" validate:"required"`
	Name                string             `json:"name" validate:"required"`
	BankAccount         string             `json:"bank_account"`
	AnnualCTC           string             `json:"annual_ctc" validate:"required,numeric"`
	HalfYearlyIncentive *IncentiveTermsDTO `json:"half_yearly_incentive,omitempty"`
	JoiningBonus        *JoiningBonusDTO   `json:"joining_bonus,omitempty"`
}

type IncentiveTermsDTO struct {
	Enabled    bool   `json:"enabled"`
	Percentage string `json:"percentage" validate:"omitempty,numeric"`
}

type JoiningBonusDTO struct {
	Enabled bool   `json:"enabled"`
	Amount  string `json:"amount" validate:"omitempty,numeric"`
	Month   string `json:"month" validate:"omitempty,datetime=2006-01"`
}

func toEmployeeDTO(e payroll.EmployeeCompensation) EmployeeDTO {
	dto := EmployeeDTO{
		ID:          string(e.ID),
		Name:        e.Name,
		BankAccount: e.BankAccount,
		AnnualCTC:   money(e.AnnualCTC),
	}
	if t := e.HalfYearlyIncentive; t != nil {
		dto.HalfYearlyIncentive = &IncentiveTermsDTO{Enabled: t.Enabled, Percentage: t.Percentage.String()}
	}
	if b := e.JoiningBonus; b != nil {
		dto.JoiningBonus = &JoiningBonusDTO{Enabled: b.Enabled, Amount: money(b.Amount), Month: b.Month.String()}
	}
	return dto
}

// toEmployee converts a validated DTO. Numeric fields were checked by the
// validator, so parse errors here are unexpected but still reported.
func (d EmployeeDTO) toEmployee() (payroll.EmployeeCompensation, error) {
	ctc, err := decimal.NewFromString(d.AnnualCTC)
	if err != nil {
		return payroll.EmployeeCompensation{}, &payroll.ValidationError{Field: "annual_ctc", Reason: "is not a decimal"}
	}
	emp := payroll.EmployeeCompensation{
		ID:          payroll.EmployeeID(d.ID),
		Name:        d.Name,
		BankAccount: d.BankAccount,
		AnnualCTC:   ctc,
	}
	if t := d.HalfYearlyIncentive; t != nil {
		pct, err := parseOptionalDecimal(t.Percentage)
		if err != nil {
			return payroll.EmployeeCompensation{}, &payroll.ValidationError{Field: "half_yearly_incentive.percentage", Reason: "is not a decimal"}
		}
		emp.HalfYearlyIncentive = &payroll.IncentiveTerms{Enabled: t.Enabled, Percentage: pct}
	}
	if b := d.JoiningBonus; b != nil {
		amount, err := parseOptionalDecimal(b.Amount)
		if err != nil {
			return payroll.EmployeeCompensation{}, &payroll.ValidationError{Field: "joining_bonus.amount", Reason: "is not a decimal"}
		}
		var month payroll.Month
		if b.Month != "" {
			if month, err = payroll.ParseMonth(b.Month); err != nil {
				return payroll.EmployeeCompensation{}, err
			}
		}
		emp.JoiningBonus = &payroll.JoiningBonus{Enabled: b.Enabled, Amount: amount, Month: month}
	}
	return emp, emp.Validate()
}

// =============================================================================
// BREAKUP
// =============================================================================

type BreakupDTO struct {
	AnnualCTC     string `json:"annual_ctc"`
	Basic         string `json:"basic"`
	HRA           string `json:"hra"`
	Allowances    string `json:"allowances"`
	PF            string `json:"pf"`
	ESI           string `json:"esi"`
	MonthlySalary string `json:"monthly_salary"`
}

func toBreakupDTO(ctc decimal.Decimal, b payroll.SalaryBreakup) BreakupDTO {
	return BreakupDTO{
		AnnualCTC:     money(ctc),
		Basic:         money(b.Basic),
		HRA:           money(b.HRA),
		Allowances:    money(b.Allowances),
		PF:            money(b.PF),
		ESI:           money(b.ESI),
		MonthlySalary: money(b.MonthlySalary),
	}
}

// =============================================================================
// ENTRIES
// =============================================================================

type EntryDTO struct {
	ID                  string     `json:"id"`
	EmployeeID          string     `json:"employee_id"`
	Month               string     `json:"month"`
	MonthlySalary       string     `json:"monthly_salary"`
	BasicSalary         string     `json:"basic_salary"`
	HRA                 string     `json:"hra"`
	Allowances          string     `json:"allowances"`
	Reimbursements      string     `json:"reimbursements"`
	IncentiveAdjustment *string    `json:"incentive_adjustment"`
	LossOfPay           string     `json:"loss_of_pay"`
	Deductions          DeductsDTO `json:"deductions"`
	GrossPayable        string     `json:"gross_payable"`
	TotalDeductions     string     `json:"total_deductions"`
	RoundOffAdjustment  string     `json:"round_off_adjustment"`
	NetPayable          string     `json:"net_payable"`
	Status              string     `json:"status"`
	AttendanceDays      int        `json:"attendance_days"`
	WorkingDays         int        `json:"working_days"`
	ApprovedBy          *string    `json:"approved_by,omitempty"`
	ApprovedOn          *time.Time `json:"approved_on,omitempty"`
	RejectedBy          *string    `json:"rejected_by,omitempty"`
	RejectedOn          *time.Time `json:"rejected_on,omitempty"`
	RejectionReason     *string    `json:"rejection_reason,omitempty"`
	Version             int        `json:"version"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type DeductsDTO struct {
	PF  string `json:"pf"`
	ESI string `json:"esi"`
	PT  string `json:"pt"`
	TDS string `json:"tds"`
}

func toEntryDTO(e *payroll.Entry) EntryDTO {
	dto := EntryDTO{
		ID:             string(e.ID),
		EmployeeID:     string(e.EmployeeID),
		Month:          e.Month.String(),
		MonthlySalary:  money(e.MonthlySalary),
		BasicSalary:    money(e.BasicSalary),
		HRA:            money(e.HRA),
		Allowances:     money(e.Allowances),
		Reimbursements: money(e.Reimbursements),
		LossOfPay:      money(e.LossOfPay),
		Deductions: DeductsDTO{
			PF:  money(e.Deductions.PF),
			ESI: money(e.Deductions.ESI),
			PT:  money(e.Deductions.PT),
			TDS: money(e.Deductions.TDS),
		},
		GrossPayable:       money(e.GrossPayable),
		TotalDeductions:    money(e.TotalDeductions),
		RoundOffAdjustment: money(e.RoundOffAdjustment),
		NetPayable:         money(e.NetPayable),
		Status:             string(e.Status),
		AttendanceDays:     e.AttendanceDays,
		WorkingDays:        e.WorkingDays,
		ApprovedBy:         e.ApprovedBy,
		ApprovedOn:         e.ApprovedOn,
		RejectedBy:         e.RejectedBy,
		RejectedOn:         e.RejectedOn,
		RejectionReason:    e.RejectionReason,
		Version:            e.Version,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
	if e.IncentiveAdjustment != nil {
		s := money(*e.IncentiveAdjustment)
		dto.IncentiveAdjustment = &s
	}
	return dto
}

func toEntryDTOs(entries []*payroll.Entry) []EntryDTO {
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	return dtos
}

// =============================================================================
// CALCULATE
// =============================================================================

// CalculateRequest recalculates one period. Employees are taken from
// attendance and employee_ids; when both are empty the whole roster is used.
// Employees without an attendance row get full attendance.
type CalculateRequest struct {
	Month       string              `json:"month" validate:"required,datetime=2006-01"`
	Force       bool                `json:"force"`
	EmployeeIDs []string            `json:"employee_ids" validate:"omitempty,dive,required"`
	Attendance  []AttendanceRequest `json:"attendance" validate:"omitempty,dive"`
}

type AttendanceRequest struct {
	EmployeeID          string  `json:"employee_id" validate:"required"`
	PresentDays         *int    `json:"present_days" validate:"omitempty,min=0"`
	WorkingDays         *int    `json:"working_days" validate:"omitempty,gt=0"`
	Reimbursements      string  `json:"reimbursements" validate:"omitempty,numeric"`
	IncentiveAdjustment *string `json:"incentive_adjustment" validate:"omitempty,numeric"`
}

type CalculateResponse struct {
	Month      string       `json:"month"`
	Created    int          `json:"created"`
	Superseded int          `json:"superseded"`
	Entries    []EntryDTO   `json:"entries"`
	Failures   []FailureDTO `json:"failures"`
}

type FailureDTO struct {
	EmployeeID string `json:"employee_id"`
	Error      string `json:"error"`
}

// =============================================================================
// WORKFLOW
// =============================================================================

type ApproveRequest struct {
	ApprovedBy string `json:"approved_by" validate:"required"`
}

type RejectRequest struct {
	RejectedBy string `json:"rejected_by" validate:"required"`
	Reason     string `json:"reason" validate:"required"`
}

type ReimbursementRequest struct {
	Reimbursements string `json:"reimbursements" validate:"required,numeric"`
}

type ApproveAllResponse struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// =============================================================================
// BREAKDOWN & SUMMARY
// =============================================================================

type BreakdownDTO struct {
	EntryID      string `json:"entry_id"`
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	Month        string `json:"month"`
	SalaryPeriod struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"salary_period"`
	Status     string `json:"status"`
	Attendance struct {
		WorkingDays int `json:"working_days"`
		PresentDays int `json:"present_days"`
		AbsentDays  int `json:"absent_days"`
		LOPDays     int `json:"lop_days"`
	} `json:"attendance"`
	Earnings struct {
		BasicSalary         string `json:"basic_salary"`
		HRA                 string `json:"hra"`
		Allowances          string `json:"allowances"`
		Reimbursements      string `json:"reimbursements"`
		IncentiveAdjustment string `json:"incentive_adjustment"`
		TotalEarnings       string `json:"total_earnings"`
	} `json:"earnings"`
	Deductions struct {
		PF              string `json:"pf"`
		ESI             string `json:"esi"`
		PT              string `json:"pt"`
		TDS             string `json:"tds"`
		LossOfPay       string `json:"loss_of_pay"`
		TotalDeductions string `json:"total_deductions"`
	} `json:"deductions"`
	NetPayable         string `json:"net_payable"`
	RoundOffAdjustment string `json:"round_off_adjustment"`
	FinalAmount        string `json:"final_amount"`
}

func toBreakdownDTO(b *payroll.Breakdown) BreakdownDTO {
	var dto BreakdownDTO
	dto.EntryID = string(b.EntryID)
	dto.EmployeeID = string(b.EmployeeID)
	dto.EmployeeName = b.EmployeeName
	dto.Month = b.Month.String()
	dto.SalaryPeriod.From = b.SalaryPeriod.From.Format(time.DateOnly)
	dto.SalaryPeriod.To = b.SalaryPeriod.To.Format(time.DateOnly)
	dto.Status = string(b.Status)

	dto.Attendance.WorkingDays = b.Attendance.WorkingDays
	dto.Attendance.PresentDays = b.Attendance.PresentDays
	dto.Attendance.AbsentDays = b.Attendance.AbsentDays
	dto.Attendance.LOPDays = b.Attendance.LOPDays

	dto.Earnings.BasicSalary = money(b.Earnings.BasicSalary)
	dto.Earnings.HRA = money(b.Earnings.HRA)
	dto.Earnings.Allowances = money(b.Earnings.Allowances)
	dto.Earnings.Reimbursements = money(b.Earnings.Reimbursements)
	dto.Earnings.IncentiveAdjustment = money(b.Earnings.IncentiveAdjustment)
	dto.Earnings.TotalEarnings = money(b.Earnings.TotalEarnings)

	dto.Deductions.PF = money(b.Deductions.PF)
	dto.Deductions.ESI = money(b.Deductions.ESI)
	dto.Deductions.PT = money(b.Deductions.PT)
	dto.Deductions.TDS = money(b.Deductions.TDS)
	dto.Deductions.LossOfPay = money(b.Deductions.LossOfPay)
	dto.Deductions.TotalDeductions = money(b.Deductions.TotalDeductions)

	dto.NetPayable = money(b.NetPayable)
	dto.RoundOffAdjustment = money(b.RoundOffAdjustment)
	dto.FinalAmount = money(b.FinalAmount)
	return dto
}

type SummaryDTO struct {
	Month           string `json:"month"`
	EmployeeCount   int    `json:"employee_count"`
	Pending         int    `json:"pending"`
	Approved        int    `json:"approved"`
	Rejected        int    `json:"rejected"`
	TotalGross      string `json:"total_gross"`
	TotalDeductions string `json:"total_deductions"`
	TotalNet        string `json:"total_net"`
}

func toSummaryDTO(s payroll.Summary) SummaryDTO {
	return SummaryDTO{
		Month:           s.Month.String(),
		EmployeeCount:   s.EmployeeCount,
		Pending:         s.Pending,
		Approved:        s.Approved,
		Rejected:        s.Rejected,
		TotalGross:      money(s.TotalGross),
		TotalDeductions: money(s.TotalDeductions),
		TotalNet:        money(s.TotalNet),
	}
}

// =============================================================================
// AUDIT
// =============================================================================

type AuditEntryDTO struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	EntryID   string         `json:"entry_id"`
	Payload   map[string]any `json:"payload,omitempty"`
}

func toAuditDTOs(entries []payroll.AuditEntry) []AuditEntryDTO {
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = AuditEntryDTO{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			ActorID:   e.ActorID,
			Action:    string(e.Action),
			EntryID:   string(e.EntryID),
			Payload:   e.Payload,
		}
	}
	return dtos
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Month       string `json:"month"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

type LoadScenarioResponse struct {
	Scenario ScenarioDTO `json:"scenario"`
	Entries  []EntryDTO  `json:"entries"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// HELPERS
// =============================================================================

func money(d decimal.Decimal) string {
	return d.StringFixed(payroll.MoneyPlaces)
}

func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
