package quote

import (
	stderrors "errors"

	"motor-tariff/core/input"
	"motor-tariff/core/tariff"
	"motor-tariff/internal/errors"
)

// ResolveKey derives the tariff key of a normalized input.
// Internal: baseType + category offset. Border: base code + duration index.
// A base type outside 1..34 has no row in any category and yields TariffNotFound.
func ResolveKey(in input.PricingInput) (tariff.Key, error) {
	switch {
	case in.Kind == tariff.KindInternal && in.Internal != nil:
		code, err := tariff.InternalCode(in.Internal.BaseType, in.Internal.Category)
		if stderrors.Is(err, tariff.ErrBaseTypeRange) {
			return tariff.Key{}, errors.TariffNotFound(tariff.InternalKeyString(in.Internal.Category, in.Internal.BaseType))
		}
		if err != nil {
			return tariff.Key{}, errors.InvalidEnum("category", string(in.Internal.Category))
		}
		return tariff.InternalKey(code).WithVariant(in.Internal.Variant), nil

	case in.Kind == tariff.KindBorder && in.Border != nil:
		if _, ok := tariff.BorderBaseCode(in.Border.VehicleType); !ok {
			return tariff.Key{}, errors.InvalidEnum("borderVehicleType", string(in.Border.VehicleType))
		}
		code, err := tariff.BorderCode(in.Border.VehicleType, in.Border.Months)
		if err != nil {
			return tariff.Key{}, errors.InvalidDuration("months", in.Border.Months)
		}
		return tariff.BorderKey(code), nil

	default:
		return tariff.Key{}, errors.InvalidEnum("insuranceType", string(in.Kind))
	}
}

// describeKey renders a key with its human form for error messages
func describeKey(k tariff.Key, in input.PricingInput) string {
	switch {
	case in.Internal != nil:
		return k.String() + " (" + tariff.InternalKeyString(in.Internal.Category, in.Internal.BaseType) + ")"
	case in.Border != nil:
		return k.String() + " (" + tariff.BorderKeyString(in.Border.VehicleType, in.Border.Months) + ")"
	default:
		return k.String()
	}
}
