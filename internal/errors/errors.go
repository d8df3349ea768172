// Package errors provides error handling utilities.
// Every failure that crosses the engine boundary is an *Error with a Type,
// so that transports can map it to a status without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Type identifies the category of error
type Type string

const (
	// TypeValidation indicates a malformed or incomplete pricing request
	TypeValidation Type = "VALIDATION_ERROR"

	// TypeTariffNotFound indicates a resolved key with no tariff row
	TypeTariffNotFound Type = "TARIFF_NOT_FOUND"

	// TypeTableUnavailable indicates no tariff table snapshot could be obtained
	TypeTableUnavailable Type = "TABLE_UNAVAILABLE"

	// TypeInconsistency marks a tariff row whose stored total disagrees with its components.
	// It is carried as a warning; the engine never fails a request with it.
	TypeInconsistency Type = "TARIFF_INCONSISTENCY"

	// TypeConfig indicates a configuration error
	TypeConfig Type = "CONFIG_ERROR"

	// TypeNotFound indicates a record not found error
	TypeNotFound Type = "NOT_FOUND"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"
)

// Kind refines a validation error
type Kind string

const (
	KindMissingField    Kind = "MissingField"
	KindInvalidEnum     Kind = "InvalidEnum"
	KindInvalidDuration Kind = "InvalidDuration"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Kind    Kind                   `json:"kind,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *Error) Is(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// As extracts an *Error from an error chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsType checks if an error chain carries a specific type
func IsType(err error, t Type) bool {
	if e, ok := As(err); ok {
		return e.Type == t
	}
	return false
}

// IsKind checks if an error chain carries a validation error of the given kind
func IsKind(err error, k Kind) bool {
	if e, ok := As(err); ok {
		return e.Type == TypeValidation && e.Kind == k
	}
	return false
}

// Validation creates a validation error naming the offending field
func Validation(kind Kind, field, message string) *Error {
	return &Error{
		Type:    TypeValidation,
		Kind:    kind,
		Field:   field,
		Message: message,
	}
}

// MissingField creates a MissingField validation error
func MissingField(field string) *Error {
	return Validation(KindMissingField, field, field+" is required")
}

// InvalidEnum creates an InvalidEnum validation error
func InvalidEnum(field, value string) *Error {
	return Validation(KindInvalidEnum, field, fmt.Sprintf("invalid %s: %q", field, value))
}

// InvalidDuration creates an InvalidDuration validation error
func InvalidDuration(field string, months int) *Error {
	return Validation(KindInvalidDuration, field, fmt.Sprintf("unsupported duration: %d months", months))
}

// TariffNotFound creates a tariff-not-found error for a rendered key
func TariffNotFound(key string) *Error {
	return Newf(TypeTariffNotFound, "no tariff row for %s: cannot price this combination", key).
		WithContext("key", key)
}

// TableUnavailable creates a table-unavailable error
func TableUnavailable(cause error) *Error {
	return Wrap(TypeTableUnavailable, "tariff table unavailable, service temporarily unavailable", cause)
}

// Config creates a configuration error
func Config(message string, cause error) *Error {
	return Wrap(TypeConfig, message, cause)
}

// NotFound creates a not found error
func NotFound(resourceType, identifier string) *Error {
	return Newf(TypeNotFound, "%s not found: %s", resourceType, identifier)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}

// HTTPStatus maps an error to the status a transport should answer with
func HTTPStatus(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeTariffNotFound:
		return http.StatusUnprocessableEntity
	case TypeNotFound:
		return http.StatusNotFound
	case TypeTableUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may retry the same request later
func Retryable(err error) bool {
	return IsType(err, TypeTableUnavailable)
}
