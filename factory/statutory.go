/*
Package factory provides JSON to Go statutory configuration conversion.

PURPOSE:
  Converts a JSON document of payroll rates and thresholds into a validated
  payroll.StatutoryConfig. Finance can retune PF/ESI/PT/TDS parameters
  without code changes.

JSON SCHEMA:
  Every field is optional; omitted fields keep the engine defaults.
  Decimal values may be JSON numbers or strings.

  {
    "basic_share": "0.40",
    "hra_share": "0.20",
    "pf_rate": "0.12",
    "esi_rate": "0.0075",
    "esi_ceiling": 21000,
    "pt_threshold": 21000,
    "pt_amount": 200,
    "tds_rate": "0.10",
    "tds_threshold": 50000,
    "rounding_unit": 10,
    "deduct_on_prorated": false
  }

USAGE:
  cfg, err := factory.LoadStatutoryConfig("./statutory.json")
  rules, err := payroll.NewRules(cfg)

SEE ALSO:
  - payroll/rules.go: StatutoryConfig definition and defaults
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// StatutoryJSON is the JSON representation of a statutory config. Pointer
// fields distinguish "omitted" from zero.
type StatutoryJSON struct {
	BasicShare       *decimal.Decimal `json:"basic_share,omitempty"`
	HRAShare         *decimal.Decimal `json:"hra_share,omitempty"`
	PFRate           *decimal.Decimal `json:"pf_rate,omitempty"`
	ESIRate          *decimal.Decimal `json:"esi_rate,omitempty"`
	ESICeiling       *decimal.Decimal `json:"esi_ceiling,omitempty"`
	PTThreshold      *decimal.Decimal `json:"pt_threshold,omitempty"`
	PTAmount         *decimal.Decimal `json:"pt_amount,omitempty"`
	TDSRate          *decimal.Decimal `json:"tds_rate,omitempty"`
	TDSThreshold     *decimal.Decimal `json:"tds_threshold,omitempty"`
	RoundingUnit     *decimal.Decimal `json:"rounding_unit,omitempty"`
	DeductOnProrated *bool            `json:"deduct_on_prorated,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseStatutoryConfig parses data and overlays it on the defaults. Unknown
// fields are rejected so a typo cannot silently keep a default.
func ParseStatutoryConfig(data []byte) (payroll.StatutoryConfig, error) {
	var sj StatutoryJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sj); err != nil {
		return payroll.StatutoryConfig{}, fmt.Errorf("invalid statutory config JSON: %w", err)
	}
	return FromJSON(sj)
}

// LoadStatutoryConfig reads and parses the file at path. An empty path
// returns the defaults.
func LoadStatutoryConfig(path string) (payroll.StatutoryConfig, error) {
	if path == "" {
		return payroll.DefaultStatutoryConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return payroll.StatutoryConfig{}, fmt.Errorf("read statutory config: %w", err)
	}
	return ParseStatutoryConfig(data)
}

// FromJSON overlays sj on the defaults and validates the result.
func FromJSON(sj StatutoryJSON) (payroll.StatutoryConfig, error) {
	cfg := payroll.DefaultStatutoryConfig()

	overlay(&cfg.BasicShare, sj.BasicShare)
	overlay(&cfg.HRAShare, sj.HRAShare)
	overlay(&cfg.PFRate, sj.PFRate)
	overlay(&cfg.ESIRate, sj.ESIRate)
	overlay(&cfg.ESICeiling, sj.ESICeiling)
	overlay(&cfg.PTThreshold, sj.PTThreshold)
	overlay(&cfg.PTAmount, sj.PTAmount)
	overlay(&cfg.TDSRate, sj.TDSRate)
	overlay(&cfg.TDSThreshold, sj.TDSThreshold)
	overlay(&cfg.RoundingUnit, sj.RoundingUnit)
	if sj.DeductOnProrated != nil {
		cfg.DeductOnProrated = *sj.DeductOnProrated
	}

	if err := cfg.Validate(); err != nil {
		return payroll.StatutoryConfig{}, err
	}
	return cfg, nil
}

// ToJSON converts a config back to its JSON form with every field set.
func ToJSON(cfg payroll.StatutoryConfig) StatutoryJSON {
	deductOnProrated := cfg.DeductOnProrated
	return StatutoryJSON{
		BasicShare:       &cfg.BasicShare,
		HRAShare:         &cfg.HRAShare,
		PFRate:           &cfg.PFRate,
		ESIRate:          &cfg.ESIRate,
		ESICeiling:       &cfg.ESICeiling,
		PTThreshold:      &cfg.PTThreshold,
		PTAmount:         &cfg.PTAmount,
		TDSRate:          &cfg.TDSRate,
		TDSThreshold:     &cfg.TDSThreshold,
		RoundingUnit:     &cfg.RoundingUnit,
		DeductOnProrated: &deductOnProrated,
	}
}

func overlay(dst *decimal.Decimal, src *decimal.Decimal) {
	if src != nil {
		*dst = *src
	}
}
