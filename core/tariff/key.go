// Package tariff provides tariff keys, rows and immutable tariff table snapshots.
// A key is derived from a vehicle classification and resolves to exactly one
// pre-tabulated row of statutory amounts.
package tariff

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind distinguishes the two insurance products priced from the table
type Kind string

const (
	KindInternal Kind = "internal"
	KindBorder   Kind = "border"
)

// ParseKind parses a kind name
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindInternal:
		return KindInternal, true
	case KindBorder:
		return KindBorder, true
	default:
		return "", false
	}
}

// Category is the usage category of a domestically registered vehicle
type Category string

const (
	CategoryPrivate    Category = "01"
	CategoryCommercial Category = "02"
	CategoryGovernment Category = "03"
	CategoryRental     Category = "04"
)

// Categories lists every category in table order
var Categories = []Category{CategoryPrivate, CategoryCommercial, CategoryGovernment, CategoryRental}

// MinBaseType and MaxBaseType bound the base vehicle classification
const (
	MinBaseType = 1
	MaxBaseType = 34
)

// MaxInternalCode is the highest code of the baseline internal table
const MaxInternalCode = MaxBaseType * 4

var categoryOffsets = map[Category]int{
	CategoryPrivate:    0,
	CategoryCommercial: 34,
	CategoryGovernment: 68,
	CategoryRental:     102,
}

// CategoryOffset returns the code offset of a category
func CategoryOffset(c Category) (int, bool) {
	off, ok := categoryOffsets[c]
	return off, ok
}

// ParseCategory accepts "1" or "01" style category codes
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 1 {
		s = "0" + s
	}
	c := Category(s)
	_, ok := categoryOffsets[c]
	return c, ok
}

// BorderVehicleType classifies foreign vehicles
type BorderVehicleType string

const (
	BorderTourist    BorderVehicleType = "tourist"
	BorderMotorcycle BorderVehicleType = "motorcycle"
	BorderBus        BorderVehicleType = "bus"
	BorderOther      BorderVehicleType = "other"
)

// BorderVehicleTypes lists every border type in table order
var BorderVehicleTypes = []BorderVehicleType{BorderTourist, BorderBus, BorderOther, BorderMotorcycle}

var borderBaseCodes = map[BorderVehicleType]int{
	BorderTourist:    2,
	BorderBus:        6,
	BorderOther:      10,
	BorderMotorcycle: 14,
}

// BorderBaseCode returns the first table code of a border vehicle type
func BorderBaseCode(t BorderVehicleType) (int, bool) {
	code, ok := borderBaseCodes[t]
	return code, ok
}

// ParseBorderVehicleType parses a border vehicle type name
func ParseBorderVehicleType(s string) (BorderVehicleType, bool) {
	t := BorderVehicleType(strings.ToLower(strings.TrimSpace(s)))
	_, ok := borderBaseCodes[t]
	return t, ok
}

// BorderMonths are the durations the border table is tabulated for
var BorderMonths = []int{3, 6, 12}

// DurationIndex maps a border duration to its offset within a vehicle type's rows
func DurationIndex(months int) (int, bool) {
	switch months {
	case 3:
		return 0, true
	case 6:
		return 1, true
	case 12:
		return 2, true
	default:
		return 0, false
	}
}

// ParseBaseType parses the numeric component of a vehicle code ("01" -> 1).
// Range is checked by InternalCode.
func ParseBaseType(vehicleCode string) (int, error) {
	s := strings.TrimSpace(vehicleCode)
	if s == "" {
		return 0, fmt.Errorf("empty vehicle code")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("vehicle code %q is not numeric", vehicleCode)
	}
	if n <= 0 {
		return 0, fmt.Errorf("vehicle code %q must be positive", vehicleCode)
	}
	return n, nil
}

// ErrBaseTypeRange is returned for base types outside MinBaseType..MaxBaseType.
// Such a base type would otherwise land on a row of the next category.
var ErrBaseTypeRange = errors.New("vehicle base type out of range")

// InternalCode returns baseType + CategoryOffset(category)
func InternalCode(baseType int, category Category) (int, error) {
	off, ok := CategoryOffset(category)
	if !ok {
		return 0, fmt.Errorf("unknown category %q", category)
	}
	if baseType < MinBaseType || baseType > MaxBaseType {
		return 0, fmt.Errorf("%w: %d not in [%d,%d]", ErrBaseTypeRange, baseType, MinBaseType, MaxBaseType)
	}
	return baseType + off, nil
}

// BorderCode returns BorderBaseCode(type) + DurationIndex(months)
func BorderCode(t BorderVehicleType, months int) (int, error) {
	base, ok := BorderBaseCode(t)
	if !ok {
		return 0, fmt.Errorf("unknown border vehicle type %q", t)
	}
	idx, ok := DurationIndex(months)
	if !ok {
		return 0, fmt.Errorf("border duration %d months is not tabulated", months)
	}
	return base + idx, nil
}

// SplitInternalCode recovers (category, baseType) from a table code.
// ok is false when the code lies outside the baseline 1..136 range.
func SplitInternalCode(code int) (Category, int, bool) {
	if code < 1 || code > MaxInternalCode {
		return "", 0, false
	}
	c := Categories[(code-1)/MaxBaseType]
	return c, code - categoryOffsets[c], true
}

// Key identifies exactly one tariff row
type Key struct {
	Kind Kind `json:"kind"`
	Code int  `json:"code"`
	// Variant optionally splits a code into finer rows (e.g. fuel or engine variants).
	// The empty variant is the baseline row.
	Variant string `json:"variant,omitempty"`
}

// InternalKey builds the key of an internal row
func InternalKey(code int) Key {
	return Key{Kind: KindInternal, Code: code}
}

// BorderKey builds the key of a border row
func BorderKey(code int) Key {
	return Key{Kind: KindBorder, Code: code}
}

// WithVariant returns a copy of the key with a variant discriminator
func (k Key) WithVariant(v string) Key {
	k.Variant = strings.TrimSpace(v)
	return k
}

// String returns a deterministic string representation
func (k Key) String() string {
	if k.Variant != "" {
		return fmt.Sprintf("%s/%d/%s", k.Kind, k.Code, k.Variant)
	}
	return fmt.Sprintf("%s/%d", k.Kind, k.Code)
}

// Less orders keys by kind, code, then variant
func (k Key) Less(o Key) bool {
	if k.Kind != o.Kind {
		return k.Kind < o.Kind
	}
	if k.Code != o.Code {
		return k.Code < o.Code
	}
	return k.Variant < o.Variant
}

// InternalKeyString renders the human key used by tariff workbooks ("01-05")
func InternalKeyString(c Category, baseType int) string {
	return fmt.Sprintf("%s-%02d", c, baseType)
}

// BorderKeyString renders the human key used by tariff workbooks ("tourist-12")
func BorderKeyString(t BorderVehicleType, months int) string {
	return fmt.Sprintf("%s-%d", t, months)
}

// BaselineKeys enumerates every key the classification scheme requires a row for
func BaselineKeys() []Key {
	keys := make([]Key, 0, MaxInternalCode+len(BorderVehicleTypes)*len(BorderMonths))
	for code := 1; code <= MaxInternalCode; code++ {
		keys = append(keys, InternalKey(code))
	}
	for _, t := range BorderVehicleTypes {
		for _, m := range BorderMonths {
			code, _ := BorderCode(t, m)
			keys = append(keys, BorderKey(code))
		}
	}
	return keys
}
