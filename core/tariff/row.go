package tariff

import (
	"encoding/json"
	"fmt"
)

// Row is immutable reference data: the net premium and the statutory
// surcharges tabulated for one key. Amounts are whole units of local currency.
type Row struct {
	NetPremium          int64  `json:"netPremium"`
	StampFee            int64  `json:"stampFee"`
	WarEffort           int64  `json:"warEffort"`
	LocalAdministration int64  `json:"localAdministration"`
	Reconstruction      int64  `json:"reconstruction"`
	MartyrFund          int64  `json:"martyrFund"`
	Total               int64  `json:"total"`
	Label               string `json:"label,omitempty"`
}

// Subtotal sums the six statutory components. The stored Total is never used.
func (r Row) Subtotal() int64 {
	return r.NetPremium + r.StampFee + r.WarEffort + r.LocalAdministration + r.Reconstruction + r.MartyrFund
}

// Consistent reports whether the stored Total matches the recomputed subtotal
func (r Row) Consistent() bool {
	return r.Total == r.Subtotal()
}

// Validate rejects negative amounts
func (r Row) Validate() error {
	fields := []struct {
		name  string
		value int64
	}{
		{"netPremium", r.NetPremium},
		{"stampFee", r.StampFee},
		{"warEffort", r.WarEffort},
		{"localAdministration", r.LocalAdministration},
		{"reconstruction", r.Reconstruction},
		{"martyrFund", r.MartyrFund},
		{"total", r.Total},
	}
	for _, f := range fields {
		if f.value < 0 {
			return fmt.Errorf("%s must not be negative (got %d)", f.name, f.value)
		}
	}
	return nil
}

// bytes returns deterministic bytes for hashing
func (r Row) bytes(k Key) []byte {
	data, _ := json.Marshal(struct {
		Key string `json:"key"`
		Row
	}{Key: k.String(), Row: r})
	return data
}
