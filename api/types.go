package api

import (
	"time"

	"motor-tariff/core/input"
	"motor-tariff/core/quote"
	"motor-tariff/core/tariff"
)

// response is the envelope every endpoint answers with
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Field   string `json:"field,omitempty"`
	// Retryable is set on errors the client may retry unchanged
	Retryable bool `json:"retryable,omitempty"`
}

// ResponseMetadata makes a quote reproducible
type ResponseMetadata struct {
	RequestID     string `json:"requestId,omitempty"`
	InputHash     string `json:"inputHash"`
	EngineVersion string `json:"engineVersion"`
	TableID       string `json:"tableId"`
	TableVersion  int    `json:"tableVersion"`
	TableHash     string `json:"tableHash"`
	DurationMs    int64  `json:"durationMs"`
}

// QuoteResponse is the data of POST /api/insurance/calculate
type QuoteResponse struct {
	QuoteID   string             `json:"quoteId"`
	Input     input.PricingInput `json:"pricingInput"`
	Key       tariff.Key         `json:"key"`
	Breakdown quote.Breakdown    `json:"breakdown"`
	Subtotal  int64              `json:"subtotal"`
	Total     int64              `json:"total"`
	Display   string             `json:"display"`
	Warnings  []quote.Warning    `json:"warnings,omitempty"`
	Metadata  ResponseMetadata   `json:"metadata"`
}

// TableResponse describes the active tariff table
type TableResponse struct {
	ID          string    `json:"id"`
	Version     int       `json:"version"`
	ContentHash string    `json:"contentHash"`
	Source      string    `json:"source"`
	EffectiveAt time.Time `json:"effectiveAt"`
	CreatedAt   time.Time `json:"createdAt"`
	Rows        int       `json:"rows"`
	Complete    bool      `json:"complete"`
	Missing     int       `json:"missing"`
	// Inconsistent lists rows whose stored total disagrees with the components
	Inconsistent []tariff.Key `json:"inconsistent,omitempty"`
}

// RowResponse is one tariff row
type RowResponse struct {
	Key          tariff.Key `json:"key"`
	Row          tariff.Row `json:"row"`
	Subtotal     int64      `json:"subtotal"`
	Consistent   bool       `json:"consistent"`
	TableVersion int        `json:"tableVersion"`
}

// IssuePolicyRequest is the body of POST /api/policies.
// The amount is recomputed server-side; a client amount is only cross-checked.
type IssuePolicyRequest struct {
	VehicleID     string        `json:"vehicleId"`
	PaymentMethod string        `json:"paymentMethod"`
	PaidBy        string        `json:"paidBy"`
	PayerPhone    string        `json:"payerPhone,omitempty"`
	PolicyStartAt *time.Time    `json:"policyStartAt,omitempty"`
	Amount        *int64        `json:"amount,omitempty"`
	Pricing       input.Request `json:"pricing"`
}
