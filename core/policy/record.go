// Package policy models issued insurance policies and their payment records.
// A record freezes the pricing input and breakdown it was sold with; nothing
// in the pricing path ever reads it back.
package policy

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"motor-tariff/core/input"
	"motor-tariff/core/quote"
	"motor-tariff/core/tariff"
	"motor-tariff/internal/errors"
)

// PaymentMethod is how a policy was paid
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank-transfer"
	PaymentCard         PaymentMethod = "card"
)

// PaymentStatus is the settlement state of a payment
type PaymentStatus string

const (
	StatusCompleted PaymentStatus = "completed"
	StatusPending   PaymentStatus = "pending"
	StatusFailed    PaymentStatus = "failed"
)

// ParsePaymentMethod parses a payment method name
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch m := PaymentMethod(strings.TrimSpace(s)); m {
	case PaymentCash, PaymentBankTransfer, PaymentCard:
		return m, true
	default:
		return "", false
	}
}

// ParsePaymentStatus parses a payment status name
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch st := PaymentStatus(strings.TrimSpace(s)); st {
	case StatusCompleted, StatusPending, StatusFailed:
		return st, true
	default:
		return "", false
	}
}

// Term is the coverage window of a policy
type Term struct {
	StartAt time.Time `json:"policyStartAt"`
	EndAt   time.Time `json:"policyEndAt"`
}

// NewTerm adds months calendar months to start.
// Day overflow normalizes the same way time.AddDate does (Jan 31 + 1 month = Mar 2/3).
func NewTerm(start time.Time, months int) Term {
	return Term{StartAt: start, EndAt: start.AddDate(0, months, 0)}
}

// Covers reports whether t falls inside the term
func (t Term) Covers(at time.Time) bool {
	return !at.Before(t.StartAt) && at.Before(t.EndAt)
}

// NewPolicyNumber returns POL-<unix millis>-<0..999>
func NewPolicyNumber(now time.Time) string {
	return fmt.Sprintf("POL-%d-%d", now.UnixMilli(), rand.IntN(1000))
}

// Record is a payment attached to an issued policy
type Record struct {
	ID            string        `json:"id"`
	VehicleID     string        `json:"vehicleId"`
	PolicyNumber  string        `json:"policyNumber"`
	Amount        int64         `json:"amount"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaidBy        string        `json:"paidBy"`
	PayerPhone    string        `json:"payerPhone,omitempty"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`

	PricingInput input.PricingInput `json:"pricingInput"`
	Breakdown    quote.Breakdown    `json:"breakdown"`
	TableVersion int                `json:"tableVersion"`
	TableHash    string             `json:"tableHash"`

	Term
	IssuedAt time.Time `json:"issuedAt"`
}

// IssueRequest carries the payer-side fields of a new record
type IssueRequest struct {
	VehicleID     string
	PaymentMethod PaymentMethod
	PaidBy        string
	PayerPhone    string
	StartAt       time.Time
}

// Issue builds a completed record from a quote.
// The amount is always the quote total.
func Issue(q *quote.Quote, req IssueRequest, now time.Time) (*Record, error) {
	if q == nil {
		return nil, errors.New(errors.TypeInternal, "cannot issue a policy without a quote")
	}
	start := req.StartAt
	if start.IsZero() {
		start = now
	}
	r := &Record{
		VehicleID:     strings.TrimSpace(req.VehicleID),
		PolicyNumber:  NewPolicyNumber(now),
		Amount:        q.Breakdown.Total,
		PaymentMethod: req.PaymentMethod,
		PaidBy:        strings.TrimSpace(req.PaidBy),
		PayerPhone:    strings.TrimSpace(req.PayerPhone),
		PaymentStatus: StatusCompleted,
		PricingInput:  q.Input,
		Breakdown:     q.Breakdown,
		TableVersion:  q.TableVersion,
		TableHash:     q.TableHash,
		Term:          NewTerm(start.UTC(), q.Input.Months()),
		IssuedAt:      now.UTC(),
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks required fields and that the amount matches the frozen breakdown
func (r *Record) Validate() error {
	switch {
	case r.VehicleID == "":
		return errors.MissingField("vehicleId")
	case r.PolicyNumber == "":
		return errors.MissingField("policyNumber")
	case r.PaidBy == "":
		return errors.MissingField("paidBy")
	case r.PaymentMethod == "":
		return errors.MissingField("paymentMethod")
	}
	if _, ok := ParsePaymentMethod(string(r.PaymentMethod)); !ok {
		return errors.InvalidEnum("paymentMethod", string(r.PaymentMethod))
	}
	if _, ok := ParsePaymentStatus(string(r.PaymentStatus)); !ok {
		return errors.InvalidEnum("paymentStatus", string(r.PaymentStatus))
	}
	if r.PricingInput.Kind != tariff.KindInternal && r.PricingInput.Kind != tariff.KindBorder {
		return errors.MissingField("pricingInput")
	}
	if r.Amount != r.Breakdown.Total {
		return errors.Validation(errors.KindInvalidEnum, "amount",
			fmt.Sprintf("amount %d does not match breakdown total %d", r.Amount, r.Breakdown.Total))
	}
	if !r.EndAt.After(r.StartAt) {
		return errors.Validation(errors.KindInvalidDuration, "policyEndAt", "policy must end after it starts")
	}
	return nil
}

// FormatAmount renders a whole amount with thousands separators and the SYP suffix
func FormatAmount(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteString(" ل.س")
	return b.String()
}
