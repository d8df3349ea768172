package input

import (
	"testing"

	"motor-tariff/core/tariff"
	"motor-tariff/internal/errors"
)

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func TestNormalizeInternal(t *testing.T) {
	n := DefaultNormalizer()

	in, err := n.Normalize(Request{
		InsuranceType:  "internal",
		VehicleCode:    "1",
		Category:       "01",
		Classification: "0",
		Months:         intPtr(12),
		PremiumService: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if in.Kind != tariff.KindInternal || in.Internal == nil || in.Border != nil {
		t.Fatalf("expected internal input, got %+v", in)
	}
	got := in.Internal
	if got.BaseType != 1 || got.VehicleCode != "01" || got.Category != tariff.CategoryPrivate {
		t.Errorf("unexpected canonical fields: %+v", got)
	}
	if got.ElectronicCard || !got.PremiumService || got.RescueService {
		t.Errorf("booleans not defaulted correctly: %+v", got)
	}
	if in.Months() != 12 {
		t.Errorf("Months() = %d", in.Months())
	}
}

func TestNormalizeBorder(t *testing.T) {
	in, err := DefaultNormalizer().Normalize(Request{
		InsuranceType:     "border",
		BorderVehicleType: "Tourist",
		Months:            intPtr(12),
	})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if in.Border == nil || in.Border.VehicleType != tariff.BorderTourist || in.Border.Months != 12 {
		t.Errorf("unexpected border input: %+v", in)
	}
}

func TestNormalizeErrors(t *testing.T) {
	internal := func(mod func(*Request)) Request {
		r := Request{InsuranceType: "internal", VehicleCode: "01", Category: "01", Classification: "0", Months: intPtr(12)}
		mod(&r)
		return r
	}

	tests := []struct {
		name  string
		req   Request
		kind  errors.Kind
		field string
	}{
		{"missing type", Request{}, errors.KindMissingField, "insuranceType"},
		{"unknown type", Request{InsuranceType: "marine"}, errors.KindInvalidEnum, "insuranceType"},
		{"missing vehicle code", internal(func(r *Request) { r.VehicleCode = " " }), errors.KindMissingField, "vehicleCode"},
		{"missing category", internal(func(r *Request) { r.Category = "" }), errors.KindMissingField, "category"},
		{"missing classification", internal(func(r *Request) { r.Classification = "" }), errors.KindMissingField, "classification"},
		{"bad category", internal(func(r *Request) { r.Category = "07" }), errors.KindInvalidEnum, "category"},
		{"bad classification", internal(func(r *Request) { r.Classification = "9" }), errors.KindInvalidEnum, "classification"},
		{"non numeric vehicle", internal(func(r *Request) { r.VehicleCode = "x1" }), errors.KindInvalidEnum, "vehicleCode"},
		{"missing months", internal(func(r *Request) { r.Months = nil }), errors.KindMissingField, "months"},
		{"four months", internal(func(r *Request) { r.Months = intPtr(4) }), errors.KindInvalidDuration, "months"},
		{"negative months", internal(func(r *Request) { r.Months = intPtr(-3) }), errors.KindInvalidDuration, "months"},
		{"missing border type", Request{InsuranceType: "border", Months: intPtr(3)}, errors.KindMissingField, "borderVehicleType"},
		{"bad border type", Request{InsuranceType: "border", BorderVehicleType: "truck", Months: intPtr(3)}, errors.KindInvalidEnum, "borderVehicleType"},
		{"border one month", Request{InsuranceType: "border", BorderVehicleType: "bus", Months: intPtr(1)}, errors.KindInvalidDuration, "months"},
	}

	n := DefaultNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.req)
			if err == nil {
				t.Fatal("expected error")
			}
			e, ok := errors.As(err)
			if !ok {
				t.Fatalf("expected *errors.Error, got %T", err)
			}
			if e.Type != errors.TypeValidation || e.Kind != tt.kind || e.Field != tt.field {
				t.Errorf("got %s/%s field %q, want %s field %q", e.Type, e.Kind, e.Field, tt.kind, tt.field)
			}
		})
	}
}

func TestNormalizeBaseTypeOutOfRangeIsNotAValidationError(t *testing.T) {
	in, err := DefaultNormalizer().Normalize(Request{
		InsuranceType: "internal", VehicleCode: "35", Category: "01", Classification: "0", Months: intPtr(12),
	})
	if err != nil {
		t.Fatalf("base type 35 should normalize and fail at key resolution, got %v", err)
	}
	if in.Internal.BaseType != 35 {
		t.Errorf("BaseType = %d", in.Internal.BaseType)
	}
}

func TestLegacyPolicyDuration(t *testing.T) {
	n := DefaultNormalizer()

	in, err := n.Normalize(Request{
		InsuranceType: "border", BorderVehicleType: "bus", PolicyDuration: "6months",
	})
	if err != nil || in.Months() != 6 {
		t.Fatalf("6months: %+v, %v", in, err)
	}

	in, err = n.Normalize(Request{
		InsuranceType: "internal", VehicleCode: "02", Category: "02", Classification: "1", PolicyDuration: "1year",
	})
	if err != nil || in.Months() != 12 {
		t.Fatalf("1year: %+v, %v", in, err)
	}

	// months wins over the legacy string
	in, err = n.Normalize(Request{
		InsuranceType: "border", BorderVehicleType: "bus", Months: intPtr(3), PolicyDuration: "12months",
	})
	if err != nil || in.Months() != 3 {
		t.Fatalf("explicit months: %+v, %v", in, err)
	}

	_, err = n.Normalize(Request{InsuranceType: "border", BorderVehicleType: "bus", PolicyDuration: "forever"})
	if !errors.IsKind(err, errors.KindInvalidDuration) {
		t.Errorf("expected InvalidDuration, got %v", err)
	}
}

func TestConfiguredMonths(t *testing.T) {
	n := NewNormalizer([]int{3, 6, 12}, []int{3, 6, 12, 24})
	_, err := n.Normalize(Request{
		InsuranceType: "internal", VehicleCode: "01", Category: "01", Classification: "0", Months: intPtr(1),
	})
	if !errors.IsKind(err, errors.KindInvalidDuration) {
		t.Errorf("1 month should be rejected when not configured, got %v", err)
	}
	if got := n.BorderMonths(); len(got) != 3 {
		t.Errorf("border months must stay within the table's durations, got %v", got)
	}
	if got := DefaultNormalizer().InternalMonths(); len(got) != 5 || got[0] != 1 || got[4] != 12 {
		t.Errorf("InternalMonths = %v", got)
	}
}

func TestHashIsDeterministic(t *testing.T) {
	req := Request{InsuranceType: "internal", VehicleCode: "01", Category: "01", Classification: "0", Months: intPtr(12)}
	a, _ := DefaultNormalizer().Normalize(req)
	b, _ := DefaultNormalizer().Normalize(req)
	if a.Hash() != b.Hash() {
		t.Error("same request produced different hashes")
	}
	req.Classification = "2"
	c, _ := DefaultNormalizer().Normalize(req)
	if c.Hash() == a.Hash() {
		t.Error("classification must be part of the audit hash")
	}
}

func TestDurationToMonths(t *testing.T) {
	tests := map[string]int{"12months": 12, "6months": 6, "3months": 3, "1year": 12, "2years": 24, "1month": 1}
	for in, want := range tests {
		got, ok := DurationToMonths(in)
		if !ok || got != want {
			t.Errorf("DurationToMonths(%q) = %d, %v; want %d", in, got, ok, want)
		}
	}
	if _, ok := DurationToMonths("0months"); ok {
		t.Error("0months should be rejected")
	}
}
