package ingestion

import (
	"fmt"

	"motor-tariff/core/tariff"
)

// Contract defines what an imported table must satisfy before activation
type Contract struct {
	// RequireComplete demands a row for every baseline key
	RequireComplete bool
	MinInternalRows int
	MinBorderRows   int
	// RejectInconsistent fails rows whose total disagrees with their components.
	// When false they are reported as warnings and priced from the components.
	RejectInconsistent bool
}

// DefaultContract requires the full 136 + 12 baseline and tolerates inconsistent totals
func DefaultContract() Contract {
	return Contract{
		RequireComplete: true,
		MinInternalRows: tariff.MaxInternalCode,
		MinBorderRows:   len(tariff.BorderVehicleTypes) * len(tariff.BorderMonths),
	}
}

// ValidationResult contains the validation outcome
type ValidationResult struct {
	IsValid      bool         `json:"isValid"`
	InternalRows int          `json:"internalRows"`
	BorderRows   int          `json:"borderRows"`
	Missing      []tariff.Key `json:"missing,omitempty"`
	Inconsistent []tariff.Key `json:"inconsistent,omitempty"`
	Errors       []string     `json:"errors,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
}

// Validator checks tables against a contract
type Validator struct {
	contract Contract
}

// NewValidator creates a validator
func NewValidator(c Contract) *Validator {
	return &Validator{contract: c}
}

// Validate checks a built table
func (v *Validator) Validate(t *tariff.Table) *ValidationResult {
	result := &ValidationResult{IsValid: true}

	for _, e := range t.Entries() {
		switch e.Key.Kind {
		case tariff.KindInternal:
			result.InternalRows++
		case tariff.KindBorder:
			result.BorderRows++
		}
	}

	if result.InternalRows < v.contract.MinInternalRows {
		result.fail(fmt.Sprintf("internal: only %d rows, need %d", result.InternalRows, v.contract.MinInternalRows))
	}
	if result.BorderRows < v.contract.MinBorderRows {
		result.fail(fmt.Sprintf("border: only %d rows, need %d", result.BorderRows, v.contract.MinBorderRows))
	}

	cov := t.Coverage()
	result.Missing = cov.Missing
	result.Inconsistent = cov.Inconsistent
	if !cov.Complete() {
		msg := fmt.Sprintf("%d of %d baseline keys missing", len(cov.Missing), cov.Required)
		if v.contract.RequireComplete {
			result.fail(msg)
		} else {
			result.Warnings = append(result.Warnings, msg)
		}
	}

	for _, k := range cov.Inconsistent {
		row, _ := t.Lookup(k)
		msg := fmt.Sprintf("%s: stored total %d, components sum to %d", k, row.Total, row.Subtotal())
		if v.contract.RejectInconsistent {
			result.fail(msg)
		} else {
			result.Warnings = append(result.Warnings, msg)
		}
	}

	return result
}

func (r *ValidationResult) fail(msg string) {
	r.IsValid = false
	r.Errors = append(r.Errors, msg)
}
