package apperrors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeOutOfRange, http.StatusBadRequest},
		{CodeRequiredField, http.StatusBadRequest},
		{CodeQuotaExceeded, http.StatusPaymentRequired},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeModelUnavailable, http.StatusServiceUnavailable},
		{CodeOutputInvalid, http.StatusBadGateway},
		{CodeNetworkTimeout, http.StatusGatewayTimeout},
		{CodeNotFound, http.StatusNotFound},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatus())
		})
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeNetworkFailure, "provider call failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "NET_002")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(New(CodeNotFound, "gone")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))

	wrapped := Wrap(CodeInternal, "outer", New(CodeRateLimited, "inner"))
	assert.Equal(t, CodeInternal, CodeOf(wrapped), "outermost code wins")
}

func TestIsInputError(t *testing.T) {
	assert.True(t, IsInputError(Validation("prompt", "required")))
	assert.True(t, IsInputError(New(CodeOutOfRange, "too big")))
	assert.False(t, IsInputError(New(CodeModelUnavailable, "down")))
	assert.False(t, IsInputError(errors.New("plain")))
}

func TestWriteHTTPEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	New(CodeQuotaExceeded, "monthly ai_requests quota exhausted").
		WithCorrelationID("PF_20260101000000_deadbeef").
		WithRetryAfter(30 * time.Second).
		WithContext("category", "ai_requests").
		WriteHTTP(rec)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "PF_20260101000000_deadbeef", rec.Header().Get("X-Correlation-ID"))
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code          string                 `json:"code"`
			Message       string                 `json:"message"`
			CorrelationID string                 `json:"correlation_id"`
			Timestamp     string                 `json:"timestamp"`
			Context       map[string]interface{} `json:"context"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "QUOTA_EXCEEDED", body.Error.Code)
	assert.Equal(t, "PF_20260101000000_deadbeef", body.Error.CorrelationID)
	assert.Equal(t, "ai_requests", body.Error.Context["category"])

	_, err := time.Parse(time.RFC3339, body.Error.Timestamp)
	assert.NoError(t, err)
}

func TestAsServiceError(t *testing.T) {
	se := New(CodeNotFound, "missing")
	assert.Same(t, se, AsServiceError(se))

	converted := AsServiceError(errors.New("boom"))
	assert.Equal(t, CodeInternal, converted.Code)
}
