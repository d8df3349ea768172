// Package input - Normalized pricing input
// EVERYTHING downstream consumes this only.
// Decouples HTTP, CLI and import semantics from tariff resolution.
package input

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"motor-tariff/core/determinism"
	"motor-tariff/core/tariff"
	"motor-tariff/internal/errors"
)

// Request is the raw pricing request as it arrives from a transport.
// Pointer fields distinguish "absent" from the zero value.
type Request struct {
	InsuranceType     string `json:"insuranceType"`
	VehicleCode       string `json:"vehicleCode,omitempty"`
	Category          string `json:"category,omitempty"`
	Classification    string `json:"classification,omitempty"`
	Months            *int   `json:"months,omitempty"`
	ElectronicCard    *bool  `json:"electronicCard,omitempty"`
	PremiumService    *bool  `json:"premiumService,omitempty"`
	RescueService     *bool  `json:"rescueService,omitempty"`
	BorderVehicleType string `json:"borderVehicleType,omitempty"`

	// Variant selects a finer-grained internal row ("01a-01" style keys)
	Variant string `json:"variant,omitempty"`
	// PolicyDuration is the legacy duration string ("12months", "1year")
	PolicyDuration string `json:"policyDuration,omitempty"`
}

// PricingInput is the canonical, validated request.
// Exactly one of Internal and Border is set, matching Kind.
type PricingInput struct {
	Kind     tariff.Kind    `json:"insuranceType"`
	Internal *InternalInput `json:"internal,omitempty"`
	Border   *BorderInput   `json:"border,omitempty"`
}

// InternalInput prices a domestically registered vehicle
type InternalInput struct {
	BaseType    int             `json:"baseType"`
	VehicleCode string          `json:"vehicleCode"`
	Category    tariff.Category `json:"category"`
	// Classification is the government-discount tier. Kept for audit; not part of the key.
	Classification string `json:"classification"`
	Months         int    `json:"months"`
	Variant        string `json:"variant,omitempty"`

	ElectronicCard bool `json:"electronicCard"`
	PremiumService bool `json:"premiumService"`
	RescueService  bool `json:"rescueService"`
}

// BorderInput prices a foreign vehicle for a bounded stay
type BorderInput struct {
	VehicleType tariff.BorderVehicleType `json:"borderVehicleType"`
	Months      int                      `json:"months"`
}

// Months returns the requested duration regardless of kind
func (p PricingInput) Months() int {
	switch {
	case p.Internal != nil:
		return p.Internal.Months
	case p.Border != nil:
		return p.Border.Months
	default:
		return 0
	}
}

// Hash returns a deterministic hash of the canonical input
func (p PricingInput) Hash() string {
	data, _ := json.Marshal(p)
	return determinism.ComputeHash(data).Hex()
}

// Classifications are the accepted government-discount tiers
var Classifications = []string{"0", "1", "2", "3"}

// DefaultInternalMonths are the durations accepted for internal insurance
var DefaultInternalMonths = []int{1, 2, 3, 6, 12}

// Normalizer validates raw requests against the configured duration sets
type Normalizer struct {
	internalMonths map[int]bool
	borderMonths   map[int]bool
}

// NewNormalizer creates a normalizer. Empty sets fall back to the defaults.
func NewNormalizer(internalMonths, borderMonths []int) *Normalizer {
	if len(internalMonths) == 0 {
		internalMonths = DefaultInternalMonths
	}
	if len(borderMonths) == 0 {
		borderMonths = tariff.BorderMonths
	}
	n := &Normalizer{
		internalMonths: make(map[int]bool, len(internalMonths)),
		borderMonths:   make(map[int]bool, len(borderMonths)),
	}
	for _, m := range internalMonths {
		n.internalMonths[m] = true
	}
	for _, m := range borderMonths {
		// the border table only holds 3/6/12 month rows
		if _, ok := tariff.DurationIndex(m); ok {
			n.borderMonths[m] = true
		}
	}
	return n
}

// DefaultNormalizer uses the default duration sets
func DefaultNormalizer() *Normalizer {
	return NewNormalizer(nil, nil)
}

// InternalMonths returns the accepted internal durations in ascending order
func (n *Normalizer) InternalMonths() []int {
	return sortedMonths(n.internalMonths)
}

// BorderMonths returns the accepted border durations in ascending order
func (n *Normalizer) BorderMonths() []int {
	return sortedMonths(n.borderMonths)
}

// Normalize validates a raw request and produces the canonical input
func (n *Normalizer) Normalize(req Request) (PricingInput, error) {
	raw := strings.TrimSpace(req.InsuranceType)
	if raw == "" {
		return PricingInput{}, errors.MissingField("insuranceType")
	}
	kind, ok := tariff.ParseKind(raw)
	if !ok {
		return PricingInput{}, errors.InvalidEnum("insuranceType", raw)
	}

	switch kind {
	case tariff.KindInternal:
		in, err := n.internal(req)
		if err != nil {
			return PricingInput{}, err
		}
		return PricingInput{Kind: kind, Internal: in}, nil
	default:
		in, err := n.border(req)
		if err != nil {
			return PricingInput{}, err
		}
		return PricingInput{Kind: kind, Border: in}, nil
	}
}

func (n *Normalizer) internal(req Request) (*InternalInput, error) {
	code := strings.TrimSpace(req.VehicleCode)
	if code == "" {
		return nil, errors.MissingField("vehicleCode")
	}
	rawCat := strings.TrimSpace(req.Category)
	if rawCat == "" {
		return nil, errors.MissingField("category")
	}
	class := strings.TrimSpace(req.Classification)
	if class == "" {
		return nil, errors.MissingField("classification")
	}

	baseType, err := tariff.ParseBaseType(code)
	if err != nil {
		return nil, errors.InvalidEnum("vehicleCode", code)
	}
	cat, ok := tariff.ParseCategory(rawCat)
	if !ok {
		return nil, errors.InvalidEnum("category", rawCat)
	}
	if !contains(Classifications, class) {
		return nil, errors.InvalidEnum("classification", class)
	}

	months, err := requestMonths(req)
	if err != nil {
		return nil, err
	}
	if months <= 0 || !n.internalMonths[months] {
		return nil, errors.InvalidDuration("months", months)
	}

	return &InternalInput{
		BaseType:       baseType,
		VehicleCode:    fmt.Sprintf("%02d", baseType),
		Category:       cat,
		Classification: class,
		Months:         months,
		Variant:        strings.TrimSpace(req.Variant),
		ElectronicCard: flag(req.ElectronicCard),
		PremiumService: flag(req.PremiumService),
		RescueService:  flag(req.RescueService),
	}, nil
}

func (n *Normalizer) border(req Request) (*BorderInput, error) {
	raw := strings.TrimSpace(req.BorderVehicleType)
	if raw == "" {
		return nil, errors.MissingField("borderVehicleType")
	}
	vt, ok := tariff.ParseBorderVehicleType(raw)
	if !ok {
		return nil, errors.InvalidEnum("borderVehicleType", raw)
	}

	months, err := requestMonths(req)
	if err != nil {
		return nil, err
	}
	if !n.borderMonths[months] {
		return nil, errors.InvalidDuration("months", months)
	}

	return &BorderInput{VehicleType: vt, Months: months}, nil
}

// requestMonths reads months, falling back to the legacy duration string
func requestMonths(req Request) (int, error) {
	if req.Months != nil {
		return *req.Months, nil
	}
	if strings.TrimSpace(req.PolicyDuration) == "" {
		return 0, errors.MissingField("months")
	}
	m, ok := DurationToMonths(req.PolicyDuration)
	if !ok {
		return 0, errors.Validation(errors.KindInvalidDuration, "policyDuration",
			fmt.Sprintf("unsupported duration: %q", req.PolicyDuration))
	}
	return m, nil
}

// DurationToMonths converts legacy duration strings such as "6months" or "1year"
func DurationToMonths(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasSuffix(s, "months"):
		n, err := strconv.Atoi(strings.TrimSuffix(s, "months"))
		return n, err == nil && n > 0
	case strings.HasSuffix(s, "month"):
		n, err := strconv.Atoi(strings.TrimSuffix(s, "month"))
		return n, err == nil && n > 0
	case strings.HasSuffix(s, "years"):
		n, err := strconv.Atoi(strings.TrimSuffix(s, "years"))
		return n * 12, err == nil && n > 0
	case strings.HasSuffix(s, "year"):
		n, err := strconv.Atoi(strings.TrimSuffix(s, "year"))
		return n * 12, err == nil && n > 0
	default:
		return 0, false
	}
}

func flag(b *bool) bool {
	return b != nil && *b
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func sortedMonths(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}
