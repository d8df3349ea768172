package catalog

import (
	"strings"
	"testing"
)

func TestDefaultCatalogIsComplete(t *testing.T) {
	if errs := Default.Validate(DefaultValidationRules()); len(errs) != 0 {
		t.Fatalf("default catalog invalid: %v", errs)
	}

	stats := Default.Stats()
	want := map[Group]int{
		GroupCategories:           4,
		GroupClassifications:      4,
		GroupPeriods:              3,
		GroupInternalVehicleTypes: 34,
		GroupBorderVehicleTypes:   4,
	}
	for g, n := range want {
		if stats[g] != n {
			t.Errorf("%s has %d options, want %d", g, stats[g], n)
		}
	}
}

func TestOptionsKeepRegistrationOrder(t *testing.T) {
	opts := Default.Options()
	if opts.InternalVehicleTypes[0].Value != "01" || opts.InternalVehicleTypes[33].Value != "34" {
		t.Errorf("vehicle types out of order: first %s last %s",
			opts.InternalVehicleTypes[0].Value, opts.InternalVehicleTypes[33].Value)
	}
	if len(opts.Periods) != 3 || opts.Periods[0].Value != 12 {
		t.Errorf("periods = %+v", opts.Periods)
	}
}

func TestVehicleLabel(t *testing.T) {
	label, ok := VehicleLabel(32)
	if !ok || !strings.Contains(label, "دراجة آلية عجلتان") {
		t.Errorf("VehicleLabel(32) = %q, %v", label, ok)
	}
	if _, ok := VehicleLabel(35); ok {
		t.Error("VehicleLabel(35) should not exist")
	}
	if got := Default.Label(GroupCategories, "99"); got != "99" {
		t.Errorf("unknown label should echo the value, got %q", got)
	}
}

func TestValidateCatchesGaps(t *testing.T) {
	c := NewCatalog()
	c.Register(GroupCategories, "01", "")
	c.Register(GroupInternalVehicleTypes, "40", "too high")

	errs := c.Validate(DefaultValidationRules())
	// empty label, base type 40, three missing categories, four border types, 34 base types
	if len(errs) != 1+1+3+4+34 {
		t.Errorf("got %d errors: %v", len(errs), errs)
	}
}
