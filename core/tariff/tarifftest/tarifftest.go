// Package tarifftest builds tariff tables for tests.
package tarifftest

import (
	"testing"
	"time"

	"motor-tariff/core/tariff"
)

// Effective is the effective date used by every fixture table
var Effective = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Row returns a consistent row whose net premium is net and whose
// surcharges follow the fixed 500/200/100/300/100 pattern.
func Row(net int64) tariff.Row {
	r := tariff.Row{
		NetPremium:          net,
		StampFee:            500,
		WarEffort:           200,
		LocalAdministration: 100,
		Reconstruction:      300,
		MartyrFund:          100,
	}
	r.Total = r.Subtotal()
	return r
}

// Baseline returns a builder holding a row for every baseline key.
// Internal code c has net premium 10000 + (c-1)*100, border code c has 20000 + c*1000.
func Baseline(version int) *tariff.Builder {
	b := tariff.NewBuilder(version).WithEffectiveAt(Effective).WithCreatedAt(Effective)
	for _, k := range tariff.BaselineKeys() {
		if k.Kind == tariff.KindInternal {
			b.AddRow(k, Row(10000+int64(k.Code-1)*100))
		} else {
			b.AddRow(k, Row(20000+int64(k.Code)*1000))
		}
	}
	return b
}

// Table builds the baseline table or fails the test
func Table(t testing.TB, version int) *tariff.Table {
	t.Helper()
	tbl, err := Baseline(version).Build()
	if err != nil {
		t.Fatalf("build fixture table: %v", err)
	}
	return tbl
}
