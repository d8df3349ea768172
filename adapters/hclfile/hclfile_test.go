package hclfile

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"motor-tariff/core/tariff"
	"motor-tariff/core/tariff/tarifftest"
)

func TestReadFile(t *testing.T) {
	tbl, err := NewReader().ReadFile(filepath.Join("testdata", "tariff.hcl"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if tbl.Version != 3 || tbl.Len() != 4 || tbl.Source != tariff.SourceFile {
		t.Errorf("unexpected table: version %d rows %d source %s", tbl.Version, tbl.Len(), tbl.Source)
	}
	if !tbl.EffectiveAt.Equal(time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("EffectiveAt = %s", tbl.EffectiveAt)
	}

	row, ok := tbl.Lookup(tariff.InternalKey(1))
	if !ok || row.Subtotal() != 11200 || row.Total != 11200 {
		t.Errorf("internal/1 = %+v, %v", row, ok)
	}
	if v, ok := tbl.Lookup(tariff.InternalKey(1).WithVariant("a")); !ok || v.NetPremium != 9000 {
		t.Errorf("internal/1/a = %+v, %v", v, ok)
	}
	if b, ok := tbl.Lookup(tariff.BorderKey(4)); !ok || b.Total != 42150 {
		t.Errorf("border/4 = %+v, %v", b, ok)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	orig := tarifftest.Table(t, 5)

	parsed, err := NewReader().Parse(Format(orig), "roundtrip.hcl")
	if err != nil {
		t.Fatalf("Parse(Format): %v", err)
	}
	if parsed.ContentHash != orig.ContentHash {
		t.Errorf("round trip changed the hash: %s vs %s", parsed.ContentHash, orig.ContentHash)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing version", `row "internal" "1" {}`, "version"},
		{"fractional amount", `
version = 1
row "internal" "1" {
  net_premium = 10.5
  stamp_fee = 0
  war_effort = 0
  local_administration = 0
  reconstruction = 0
  martyr_fund = 0
  total = 10.5
}`, "whole number"},
		{"unknown kind", `
version = 1
row "marine" "1" {
  net_premium = 1
  stamp_fee = 0
  war_effort = 0
  local_administration = 0
  reconstruction = 0
  martyr_fund = 0
  total = 1
}`, "Unknown tariff kind"},
		{"bad code", `
version = 1
row "border" "x" {}`, "Invalid tariff code"},
		{"missing amount", `
version = 1
row "border" "2" {
  net_premium = 1
}`, "stamp_fee"},
		{"bad date", `
version = 1
effective_at = "yesterday"`, "effective_at"},
		{"syntax", `version = `, "roundtrip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader().Parse([]byte(tt.src), "roundtrip.hcl")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestDuplicateRowsRejected(t *testing.T) {
	src := `
version = 1
row "border" "2" {
  net_premium = 1
  stamp_fee = 0
  war_effort = 0
  local_administration = 0
  reconstruction = 0
  martyr_fund = 0
  total = 1
}
row "border" "2" {
  net_premium = 2
  stamp_fee = 0
  war_effort = 0
  local_administration = 0
  reconstruction = 0
  martyr_fund = 0
  total = 2
}`
	if _, err := NewReader().Parse([]byte(src), "dup.hcl"); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate error, got %v", err)
	}
}
