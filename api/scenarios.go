/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the roster and a payroll period
	with realistic data for demos. Each scenario saves employees, calculates
	one month and optionally walks some entries through the approval workflow.

AVAILABLE SCENARIOS:

	standard-month:       Four employees, full attendance, all Pending
	loss-of-pay:          Short attendance, prorated earnings and LOP
	half-year-incentive:  June payout with incentive terms and a joining bonus
	approval-cycle:       Mixed Approved / Rejected / Pending period

HOW SCENARIOS WORK:
 1. Save the scenario's employees (upsert, other employees are kept)
 2. Recalculate the scenario month with force, so a scenario can be reloaded
 3. Apply the scenario's workflow actions

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "loss-of-pay"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios overwrite finalized entries for their month. Only use in
	development/demo environments.

SEE ALSO:
  - handlers.go: Calculate endpoint
  - payroll/engine.go: RecalculatePeriod
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "standard-month",
		Name:        "Standard Month",
		Description: "Four employees on full attendance across the ESI/PT/TDS bands",
		Month:       "2025-03",
	},
	{
		ID:          "loss-of-pay",
		Name:        "Loss of Pay",
		Description: "Short attendance with prorated earnings and loss-of-pay deductions",
		Month:       "2025-04",
	},
	{
		ID:          "half-year-incentive",
		Name:        "Half-Year Incentive",
		Description: "June payout with a 10% incentive and a joining bonus",
		Month:       "2025-06",
	},
	{
		ID:          "approval-cycle",
		Name:        "Approval Cycle",
		Description: "A period with approved, rejected and pending entries",
		Month:       "2025-05",
	},
}

func scenarioEmployees() []payroll.EmployeeCompensation {
	d := payroll.MustParseDecimal
	return []payroll.EmployeeCompensation{
		{ID: "EMP-001", Name: "Asha Rao", BankAccount: "HDFC0001001", AnnualCTC: d("1200000")},
		{ID: "EMP-002", Name: "Ben Mathew", BankAccount: "ICIC0002002", AnnualCTC: d("240000")},
		{ID: "EMP-003", Name: "Chitra Iyer", BankAccount: "SBIN0003003", AnnualCTC: d("360000")},
		{ID: "EMP-004", Name: "Dev Khanna", BankAccount: "UTIB0004004", AnnualCTC: d("720000")},
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	var scenario *ScenarioDTO
	for i := range scenarios {
		if scenarios[i].ID == req.ScenarioID {
			scenario = &scenarios[i]
			break
		}
	}
	if scenario == nil {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}
	month, err := payroll.ParseMonth(scenario.Month)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	ctx := r.Context()
	switch scenario.ID {
	case "standard-month":
		err = h.loadStandardMonthScenario(ctx, month)
	case "loss-of-pay":
		err = h.loadLossOfPayScenario(ctx, month)
	case "half-year-incentive":
		err = h.loadHalfYearIncentiveScenario(ctx, month)
	case "approval-cycle":
		err = h.loadApprovalCycleScenario(ctx, month)
	}
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	entries, err := h.Engine.Entries(ctx, month)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.Logger.Info("scenario loaded", "scenario", scenario.ID, "month", scenario.Month, "entries", len(entries))
	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		Scenario: *scenario,
		Entries:  toEntryDTOs(entries),
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) saveEmployees(ctx context.Context, employees []payroll.EmployeeCompensation) error {
	for _, emp := range employees {
		if err := h.Roster.SaveEmployee(ctx, emp); err != nil {
			return fmt.Errorf("save employee %s: %w", emp.ID, err)
		}
	}
	return nil
}

// recalculate runs the month with force and fails on the first per-entry failure.
func (h *Handler) recalculate(ctx context.Context, month payroll.Month, inputs []payroll.EntryInput) (*payroll.RecalcResult, error) {
	result, err := h.Engine.RecalculatePeriod(ctx, month, inputs, true)
	if err != nil {
		return nil, err
	}
	if len(result.Failures) > 0 {
		f := result.Failures[0]
		return nil, fmt.Errorf("calculate %s: %w", f.EmployeeID, f.Err)
	}
	return result, nil
}

func (h *Handler) loadStandardMonthScenario(ctx context.Context, month payroll.Month) error {
	employees := scenarioEmployees()
	if err := h.saveEmployees(ctx, employees); err != nil {
		return err
	}

	inputs := make([]payroll.EntryInput, len(employees))
	for i, emp := range employees {
		inputs[i] = payroll.FullAttendance(emp, month)
	}
	_, err := h.recalculate(ctx, month, inputs)
	return err
}

func (h *Handler) loadLossOfPayScenario(ctx context.Context, month payroll.Month) error {
	employees := scenarioEmployees()
	if err := h.saveEmployees(ctx, employees); err != nil {
		return err
	}

	working := month.WorkingDays()
	absences := []int{0, 2, 5, working}
	inputs := make([]payroll.EntryInput, len(employees))
	for i, emp := range employees {
		in := payroll.FullAttendance(emp, month)
		in.PresentDays = working - absences[i]
		inputs[i] = in
	}
	// Travel claim on top of the short month
	inputs[1].Reimbursements = decimal.NewFromInt(1850)

	_, err := h.recalculate(ctx, month, inputs)
	return err
}

func (h *Handler) loadHalfYearIncentiveScenario(ctx context.Context, month payroll.Month) error {
	employees := scenarioEmployees()
	employees[0].HalfYearlyIncentive = &payroll.IncentiveTerms{Enabled: true, Percentage: decimal.NewFromInt(10)}
	employees[3].HalfYearlyIncentive = &payroll.IncentiveTerms{Enabled: true, Percentage: decimal.NewFromInt(5)}
	employees[2].JoiningBonus = &payroll.JoiningBonus{Enabled: true, Amount: decimal.NewFromInt(15000), Month: month}
	if err := h.saveEmployees(ctx, employees); err != nil {
		return err
	}

	// Incentives come from the schedule: inputs carry no adjustment.
	inputs := make([]payroll.EntryInput, len(employees))
	for i, emp := range employees {
		inputs[i] = payroll.FullAttendance(emp, month)
	}
	_, err := h.recalculate(ctx, month, inputs)
	return err
}

func (h *Handler) loadApprovalCycleScenario(ctx context.Context, month payroll.Month) error {
	employees := scenarioEmployees()
	if err := h.saveEmployees(ctx, employees); err != nil {
		return err
	}

	inputs := make([]payroll.EntryInput, len(employees))
	for i, emp := range employees {
		inputs[i] = payroll.FullAttendance(emp, month)
	}
	result, err := h.recalculate(ctx, month, inputs)
	if err != nil {
		return err
	}

	// Entries come back in input order: approve two, reject one, leave one Pending.
	entries := result.Entries
	if _, err := h.Engine.Approve(ctx, entries[0].ID, "finance.lead"); err != nil {
		return err
	}
	if _, err := h.Engine.Approve(ctx, entries[1].ID, "finance.lead"); err != nil {
		return err
	}
	if _, err := h.Engine.Reject(ctx, entries[2].ID, "finance.lead", "bank account not verified"); err != nil {
		return err
	}
	if _, err := h.Engine.UpdateReimbursements(ctx, entries[0].ID, decimal.NewFromInt(2400)); err != nil {
		return err
	}

	h.Logger.Debug("approval cycle applied", "month", month.String())
	return nil
}
