package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", MissingField("category"), http.StatusBadRequest},
		{"tariff not found", TariffNotFound("internal/35"), http.StatusUnprocessableEntity},
		{"record not found", NotFound("policy", "abc"), http.StatusNotFound},
		{"table unavailable", TableUnavailable(nil), http.StatusServiceUnavailable},
		{"internal", Internal("boom", nil), http.StatusInternalServerError},
		{"plain error", stderrors.New("plain"), http.StatusInternalServerError},
		{"wrapped validation", fmt.Errorf("outer: %w", InvalidDuration("months", 4)), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidationCarriesKindAndField(t *testing.T) {
	err := fmt.Errorf("normalize: %w", InvalidEnum("category", "09"))

	if !IsKind(err, KindInvalidEnum) {
		t.Fatalf("expected InvalidEnum kind, got %v", err)
	}
	e, ok := As(err)
	if !ok {
		t.Fatal("expected *Error in chain")
	}
	if e.Field != "category" {
		t.Errorf("Field = %q, want category", e.Field)
	}
	if IsKind(TariffNotFound("x"), KindInvalidEnum) {
		t.Error("non-validation error must not report a validation kind")
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(TableUnavailable(stderrors.New("not loaded"))) {
		t.Error("table unavailable must be retryable")
	}
	if Retryable(TariffNotFound("border/99")) {
		t.Error("tariff not found must not be retryable")
	}
	if Retryable(MissingField("months")) {
		t.Error("validation errors must not be retryable")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := TableUnavailable(cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
}
