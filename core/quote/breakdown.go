// Package quote turns a normalized pricing input and a tariff table snapshot
// into an itemized premium breakdown.
package quote

import (
	"fmt"

	"motor-tariff/core/input"
	"motor-tariff/core/tariff"
)

// Breakdown is the itemized premium. Every field is always present; fees that
// do not apply are zero.
type Breakdown struct {
	NetPremium          int64 `json:"netPremium"`
	StampFee            int64 `json:"stampFee"`
	WarEffort           int64 `json:"warEffort"`
	LocalAdministration int64 `json:"localAdministration"`
	Reconstruction      int64 `json:"reconstruction"`
	MartyrFund          int64 `json:"martyrFund"`

	ElectronicCardFee int64 `json:"electronicCardFee"`
	PremiumServiceFee int64 `json:"premiumServiceFee"`
	RescueServiceFee  int64 `json:"rescueServiceFee"`

	Subtotal int64 `json:"subtotal"`
	Total    int64 `json:"total"`
}

// AddOns returns the sum of the add-on service fees
func (b Breakdown) AddOns() int64 {
	return b.ElectronicCardFee + b.PremiumServiceFee + b.RescueServiceFee
}

// AddOnFees are the fixed fees of the optional internal services
type AddOnFees struct {
	ElectronicCard int64 `json:"electronic_card"`
	PremiumService int64 `json:"premium_service"`
	RescueService  int64 `json:"rescue_service"`
}

// DefaultFees returns the published add-on fees
func DefaultFees() AddOnFees {
	return AddOnFees{
		ElectronicCard: 150,
		PremiumService: 50,
		RescueService:  30,
	}
}

// Validate rejects negative fees
func (f AddOnFees) Validate() error {
	if f.ElectronicCard < 0 || f.PremiumService < 0 || f.RescueService < 0 {
		return fmt.Errorf("add-on fees must not be negative: %+v", f)
	}
	return nil
}

// Compose copies the statutory amounts from the row and adds the selected
// add-on fees. Border inputs never carry add-ons.
// Subtotal and Total are left for Aggregate.
func Compose(row tariff.Row, in input.PricingInput, fees AddOnFees) Breakdown {
	b := Breakdown{
		NetPremium:          row.NetPremium,
		StampFee:            row.StampFee,
		WarEffort:           row.WarEffort,
		LocalAdministration: row.LocalAdministration,
		Reconstruction:      row.Reconstruction,
		MartyrFund:          row.MartyrFund,
	}

	if in.Kind != tariff.KindInternal || in.Internal == nil {
		return b
	}
	if in.Internal.ElectronicCard {
		b.ElectronicCardFee = fees.ElectronicCard
	}
	if in.Internal.PremiumService {
		b.PremiumServiceFee = fees.PremiumService
	}
	if in.Internal.RescueService {
		b.RescueServiceFee = fees.RescueService
	}
	return b
}

// Aggregate fills Subtotal and Total from the components
func Aggregate(b Breakdown) Breakdown {
	b.Subtotal = b.NetPremium + b.StampFee + b.WarEffort + b.LocalAdministration + b.Reconstruction + b.MartyrFund
	b.Total = b.Subtotal + b.AddOns()
	return b
}

// Warning is a non-fatal finding attached to a successful quote
type Warning struct {
	Code        string `json:"code"`
	Key         string `json:"key"`
	Message     string `json:"message"`
	StoredTotal int64  `json:"storedTotal"`
	Computed    int64  `json:"computedSubtotal"`
}
