// Package apperrors provides the typed error values used across the
// service and their translation to the stable HTTP error envelope.
// Components raise typed errors; only the coordinator and the HTTP
// boundary turn them into user-visible responses.
package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code is a stable, user-visible error code
type Code string

const (
	// Input errors
	CodeValidation    Code = "VAL_001"
	CodeOutOfRange    Code = "VAL_002"
	CodeRequiredField Code = "VAL_003"

	// Quota and rate errors
	CodeQuotaExceeded Code = "QUOTA_EXCEEDED"
	CodeRateLimited   Code = "RATE_LIMITED"

	// Provider errors
	CodeModelUnavailable Code = "AI_001"
	CodeOutputInvalid    Code = "AI_002"

	// Network errors
	CodeNetworkTimeout Code = "NET_001"
	CodeNetworkFailure Code = "NET_002"

	// Resource and auth errors
	CodeNotFound     Code = "NOT_FOUND"
	CodeUnauthorized Code = "UNAUTHORIZED"

	// Internal errors
	CodeInternal Code = "SYS_001"
)

// ServiceError is the unified error carried between components
type ServiceError struct {
	Code          Code                   `json:"code"`
	Message       string                 `json:"message"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	RetryAfter    time.Duration          `json:"-"`
	Context       map[string]interface{} `json:"context,omitempty"`
	cause         error
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause
func (e *ServiceError) Unwrap() error { return e.cause }

// New creates a ServiceError with the given code and message
func New(code Code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

// Wrap creates a ServiceError wrapping an underlying cause
func Wrap(code Code, message string, cause error) *ServiceError {
	return &ServiceError{Code: code, Message: message, cause: cause}
}

// WithCorrelationID attaches the request correlation id
func (e *ServiceError) WithCorrelationID(id string) *ServiceError {
	e.CorrelationID = id
	return e
}

// WithContext attaches a single context value
func (e *ServiceError) WithContext(key string, value interface{}) *ServiceError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRetryAfter records the backoff hint surfaced via Retry-After
func (e *ServiceError) WithRetryAfter(d time.Duration) *ServiceError {
	e.RetryAfter = d
	return e
}

// Validation creates an input validation error for a field
func Validation(field, reason string) *ServiceError {
	return New(CodeValidation, fmt.Sprintf("validation failed for %q: %s", field, reason)).
		WithContext("field", field)
}

// CodeOf extracts the stable code from any error, defaulting to SYS_001
func CodeOf(err error) Code {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternal
}

// AsServiceError converts any error into a ServiceError, wrapping
// unknown errors as internal
func AsServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return Wrap(CodeInternal, "internal error", err)
}

// IsInputError reports whether the error is a caller mistake; input errors
// are never retried and never trigger fallback
func IsInputError(err error) bool {
	switch CodeOf(err) {
	case CodeValidation, CodeOutOfRange, CodeRequiredField:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a code to the HTTP status returned at the boundary
func (e *ServiceError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeOutOfRange, CodeRequiredField:
		return http.StatusBadRequest
	case CodeQuotaExceeded:
		return http.StatusPaymentRequired
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeModelUnavailable:
		return http.StatusServiceUnavailable
	case CodeOutputInvalid:
		return http.StatusBadGateway
	case CodeNetworkTimeout:
		return http.StatusGatewayTimeout
	case CodeNetworkFailure:
		return http.StatusBadGateway
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// envelope is the stable non-2xx response body
type envelope struct {
	Success bool           `json:"success"`
	Error   envelopeDetail `json:"error"`
}

type envelopeDetail struct {
	Code          Code                   `json:"code"`
	Message       string                 `json:"message"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Timestamp     string                 `json:"timestamp"`
	Context       map[string]interface{} `json:"context,omitempty"`
}

// WriteHTTP writes the error envelope with appropriate status and headers
func (e *ServiceError) WriteHTTP(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if e.CorrelationID != "" {
		w.Header().Set("X-Correlation-ID", e.CorrelationID)
	}
	if e.RetryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%.0f", e.RetryAfter.Seconds()))
	}
	w.WriteHeader(e.HTTPStatus())

	body := envelope{
		Success: false,
		Error: envelopeDetail{
			Code:          e.Code,
			Message:       e.Message,
			CorrelationID: e.CorrelationID,
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			Context:       e.Context,
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return
	}
	_, _ = w.Write(data)
}
