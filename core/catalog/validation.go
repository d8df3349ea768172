// Package catalog - Catalog validation
// Ensures the catalog agrees with the tariff classification scheme.
package catalog

import (
	"fmt"
	"strconv"

	"motor-tariff/core/tariff"
)

// ValidationRule is a catalog validation rule
type ValidationRule func(*Option) error

// DefaultValidationRules returns the standard validation rules
func DefaultValidationRules() []ValidationRule {
	return []ValidationRule{
		validateLabel,
		validateTariffValue,
	}
}

// Validate checks a catalog against validation rules and against the
// enumerations every request form must offer
func (c *Catalog) Validate(rules []ValidationRule) []error {
	var errs []error

	for _, g := range Groups {
		for _, opt := range c.List(g) {
			for _, rule := range rules {
				if err := rule(&opt); err != nil {
					errs = append(errs, fmt.Errorf("%s:%s: %w", opt.Group, opt.Value, err))
				}
			}
		}
	}

	for _, cat := range tariff.Categories {
		if _, ok := c.Get(GroupCategories, string(cat)); !ok {
			errs = append(errs, fmt.Errorf("category %s has no option", cat))
		}
	}
	for _, vt := range tariff.BorderVehicleTypes {
		if _, ok := c.Get(GroupBorderVehicleTypes, string(vt)); !ok {
			errs = append(errs, fmt.Errorf("border vehicle type %s has no option", vt))
		}
	}
	for base := tariff.MinBaseType; base <= tariff.MaxBaseType; base++ {
		if _, ok := c.Get(GroupInternalVehicleTypes, fmt.Sprintf("%02d", base)); !ok {
			errs = append(errs, fmt.Errorf("base type %02d has no option", base))
		}
	}

	return errs
}

func validateLabel(o *Option) error {
	if o.Label == "" {
		return fmt.Errorf("empty label")
	}
	return nil
}

// validateTariffValue ensures every value is one the tariff can resolve
func validateTariffValue(o *Option) error {
	switch o.Group {
	case GroupCategories:
		if _, ok := tariff.ParseCategory(o.Value); !ok {
			return fmt.Errorf("unknown category")
		}
	case GroupInternalVehicleTypes:
		n, err := tariff.ParseBaseType(o.Value)
		if err != nil || n > tariff.MaxBaseType {
			return fmt.Errorf("base type outside 1..%d", tariff.MaxBaseType)
		}
	case GroupBorderVehicleTypes:
		if _, ok := tariff.ParseBorderVehicleType(o.Value); !ok {
			return fmt.Errorf("unknown border vehicle type")
		}
	case GroupPeriods:
		n, err := strconv.Atoi(o.Value)
		if err != nil || n <= 0 {
			return fmt.Errorf("period must be a positive month count")
		}
	}
	return nil
}

// MustValidate panics if validation fails
func (c *Catalog) MustValidate() {
	errs := c.Validate(DefaultValidationRules())
	if len(errs) > 0 {
		panic(fmt.Sprintf("catalog has %d validation errors, first: %v", len(errs), errs[0]))
	}
}

// Default is the default global catalog
var Default = NewCatalog()

// Init registers the mandatory options in the default catalog
func Init() {
	RegisterMandatory(Default)
	Default.MustValidate()
}

func init() {
	Init()
}
