/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Employees are saved to the roster
	- The scenario month is calculated
	- Workflow actions leave the expected statuses
	- Reloading a scenario is safe
*/
package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, ts *testServer, id string) LoadScenarioResponse {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[LoadScenarioResponse](t, rec)
}

func TestListScenarios(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]ScenarioDTO](t, rec)
	assert.Len(t, list, len(scenarios))
}

func TestScenario_StandardMonth(t *testing.T) {
	// GIVEN: Standard month scenario
	// WHEN: Loading the scenario
	// THEN: Four pending entries covering the ESI and PT bands
	ts := setupTestServer(t)

	resp := loadScenario(t, ts, "standard-month")
	require.Len(t, resp.Entries, 4)
	for _, e := range resp.Entries {
		assert.Equal(t, "Pending", e.Status)
	}

	// EMP-001: 100,000 monthly
	assert.Equal(t, "85000.00", resp.Entries[0].NetPayable)
	// EMP-002: 20,000 monthly pays ESI, no PT
	assert.Equal(t, "150.00", resp.Entries[1].Deductions.ESI)
	assert.Equal(t, "0.00", resp.Entries[1].Deductions.PT)
	// EMP-003: 30,000 monthly pays PT, no ESI
	assert.Equal(t, "0.00", resp.Entries[2].Deductions.ESI)
	assert.Equal(t, "200.00", resp.Entries[2].Deductions.PT)

	rec := ts.do(t, http.MethodGet, "/api/employees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]EmployeeDTO](t, rec), 4)
}

func TestScenario_LossOfPay(t *testing.T) {
	ts := setupTestServer(t)

	resp := loadScenario(t, ts, "loss-of-pay")
	require.Len(t, resp.Entries, 4)

	assert.Equal(t, "0.00", resp.Entries[0].LossOfPay)
	assert.NotEqual(t, "0.00", resp.Entries[1].LossOfPay)
	assert.Equal(t, "1850.00", resp.Entries[1].Reimbursements)
	assert.Equal(t, 0, resp.Entries[3].AttendanceDays)
	assert.Equal(t, resp.Entries[3].MonthlySalary, resp.Entries[3].LossOfPay, "a fully absent month loses the whole salary")
}

func TestScenario_HalfYearIncentive(t *testing.T) {
	ts := setupTestServer(t)

	resp := loadScenario(t, ts, "half-year-incentive")
	require.Len(t, resp.Entries, 4)

	require.NotNil(t, resp.Entries[0].IncentiveAdjustment)
	assert.Equal(t, "60000.00", *resp.Entries[0].IncentiveAdjustment)
	assert.Nil(t, resp.Entries[1].IncentiveAdjustment, "no terms, not applicable")
	require.NotNil(t, resp.Entries[2].IncentiveAdjustment)
	assert.Equal(t, "15000.00", *resp.Entries[2].IncentiveAdjustment)
	require.NotNil(t, resp.Entries[3].IncentiveAdjustment)
	assert.Equal(t, "18000.00", *resp.Entries[3].IncentiveAdjustment)
}

func TestScenario_ApprovalCycleReloads(t *testing.T) {
	ts := setupTestServer(t)

	for i := 0; i < 2; i++ {
		resp := loadScenario(t, ts, "approval-cycle")
		require.Len(t, resp.Entries, 4)

		statuses := map[string]int{}
		for _, e := range resp.Entries {
			statuses[e.Status]++
		}
		assert.Equal(t, map[string]int{"Approved": 2, "Rejected": 1, "Pending": 1}, statuses, "load %d", i+1)
		assert.Equal(t, "2400.00", resp.Entries[0].Reimbursements)
		assert.Equal(t, "Approved", resp.Entries[0].Status)
	}
}

func TestScenario_Unknown(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
