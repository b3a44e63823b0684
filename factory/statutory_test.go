package factory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
)

func TestParseStatutoryConfig_EmptyKeepsDefaults(t *testing.T) {
	cfg, err := ParseStatutoryConfig([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, payroll.DefaultStatutoryConfig(), cfg)
}

func TestParseStatutoryConfig_Overlay(t *testing.T) {
	// GIVEN: A config that changes the PT slab and rounding, mixing numbers and strings
	data := []byte(`{
		"pt_amount": 250,
		"tds_rate": "0.05",
		"rounding_unit": 1,
		"deduct_on_prorated": true
	}`)

	cfg, err := ParseStatutoryConfig(data)
	require.NoError(t, err)

	// THEN: Only the named fields change
	assert.True(t, cfg.PTAmount.Equal(decimal.NewFromInt(250)))
	assert.True(t, cfg.TDSRate.Equal(decimal.RequireFromString("0.05")))
	assert.True(t, cfg.RoundingUnit.Equal(decimal.NewFromInt(1)))
	assert.True(t, cfg.DeductOnProrated)
	assert.True(t, cfg.PFRate.Equal(payroll.DefaultStatutoryConfig().PFRate))

	rules, err := payroll.NewRules(cfg)
	require.NoError(t, err)
	d := rules.Deductions(decimal.NewFromInt(100000), decimal.NewFromInt(40000))
	assert.Equal(t, "250.00", d.PT.StringFixed(2))
	assert.Equal(t, "5000.00", d.TDS.StringFixed(2))
}

func TestParseStatutoryConfig_Errors(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		validation bool
	}{
		{"unknown field", `{"pf_rat": "0.12"}`, false},
		{"malformed", `{"pf_rate": }`, false},
		{"rate out of range", `{"esi_rate": "1.2"}`, true},
		{"zero rounding unit", `{"rounding_unit": 0}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStatutoryConfig([]byte(tt.json))
			require.Error(t, err)
			assert.Equal(t, tt.validation, payroll.IsClientError(err))
		})
	}
}

func TestLoadStatutoryConfig(t *testing.T) {
	cfg, err := LoadStatutoryConfig("")
	require.NoError(t, err)
	assert.Equal(t, payroll.DefaultStatutoryConfig(), cfg)

	path := filepath.Join(t.TempDir(), "statutory.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"esi_ceiling": 25000}`), 0o600))
	cfg, err = LoadStatutoryConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.ESICeiling.Equal(decimal.NewFromInt(25000)))

	_, err = LoadStatutoryConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestToJSON_RoundTrip(t *testing.T) {
	original := payroll.DefaultStatutoryConfig()
	original.DeductOnProrated = true

	cfg, err := FromJSON(ToJSON(original))
	require.NoError(t, err)
	assert.True(t, cfg.DeductOnProrated)
	assert.True(t, cfg.ESIRate.Equal(original.ESIRate))
	assert.True(t, cfg.TDSThreshold.Equal(original.TDSThreshold))
}
