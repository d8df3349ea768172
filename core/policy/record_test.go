package policy

import (
	"regexp"
	"testing"
	"time"

	"motor-tariff/core/input"
	"motor-tariff/core/quote"
	"motor-tariff/core/tariff"
	"motor-tariff/internal/errors"
)

func sampleQuote() *quote.Quote {
	return &quote.Quote{
		Input: input.PricingInput{
			Kind:   tariff.KindBorder,
			Border: &input.BorderInput{VehicleType: tariff.BorderTourist, Months: 6},
		},
		Breakdown:    quote.Breakdown{NetPremium: 1000, Subtotal: 1000, Total: 1000},
		TableVersion: 2,
		TableHash:    "abc",
	}
}

func TestNewTerm(t *testing.T) {
	start := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	term := NewTerm(start, 12)
	if !term.EndAt.Equal(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("EndAt = %s", term.EndAt)
	}
	if !term.Covers(start) || term.Covers(term.EndAt) {
		t.Error("term should cover its start and exclude its end")
	}

	// month-end overflow follows calendar normalization
	jan31 := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	if got := NewTerm(jan31, 1).EndAt; !got.Equal(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Jan 31 + 1 month = %s", got)
	}
}

func TestNewPolicyNumber(t *testing.T) {
	now := time.UnixMilli(1736000000000)
	n := NewPolicyNumber(now)
	if !regexp.MustCompile(`^POL-1736000000000-\d{1,3}$`).MatchString(n) {
		t.Errorf("unexpected policy number %q", n)
	}
}

func TestIssue(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	r, err := Issue(sampleQuote(), IssueRequest{
		VehicleID:     "veh-1",
		PaymentMethod: PaymentCash,
		PaidBy:        " Sami ",
	}, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if r.Amount != 1000 || r.PaymentStatus != StatusCompleted || r.PaidBy != "Sami" {
		t.Errorf("unexpected record: %+v", r)
	}
	if !r.StartAt.Equal(now) || !r.EndAt.Equal(now.AddDate(0, 6, 0)) {
		t.Errorf("term = %+v", r.Term)
	}
	if r.TableVersion != 2 {
		t.Errorf("table version not frozen: %d", r.TableVersion)
	}
}

func TestIssueValidation(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		req   IssueRequest
		field string
	}{
		{"no vehicle", IssueRequest{PaymentMethod: PaymentCard, PaidBy: "x"}, "vehicleId"},
		{"no payer", IssueRequest{VehicleID: "v", PaymentMethod: PaymentCard}, "paidBy"},
		{"no method", IssueRequest{VehicleID: "v", PaidBy: "x"}, "paymentMethod"},
		{"bad method", IssueRequest{VehicleID: "v", PaidBy: "x", PaymentMethod: "cheque"}, "paymentMethod"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Issue(sampleQuote(), tt.req, now)
			e, ok := errors.As(err)
			if !ok || e.Field != tt.field {
				t.Errorf("expected error on %s, got %v", tt.field, err)
			}
		})
	}

	r, _ := Issue(sampleQuote(), IssueRequest{VehicleID: "v", PaidBy: "x", PaymentMethod: PaymentBankTransfer}, now)
	r.Amount++
	if err := r.Validate(); err == nil {
		t.Error("amount differing from breakdown total should fail")
	}
}

func TestFormatAmount(t *testing.T) {
	tests := map[int64]string{
		0:        "0 ل.س",
		950:      "950 ل.س",
		11430:    "11,430 ل.س",
		1234567:  "1,234,567 ل.س",
		-2500000: "-2,500,000 ل.س",
	}
	for in, want := range tests {
		if got := FormatAmount(in); got != want {
			t.Errorf("FormatAmount(%d) = %q, want %q", in, got, want)
		}
	}
}
