package api

import (
	"encoding/json"
	"net/http"

	"planforge/internal/apperrors"
	"planforge/internal/correlation"
)

// successEnvelope wraps every 2xx payload
type successEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := apperrors.AsServiceError(err)
	if serviceErr.CorrelationID == "" {
		serviceErr = serviceErr.WithCorrelationID(correlation.FromContext(r.Context()))
	}
	serviceErr.WriteHTTP(w)
}

func decodeBody(r *http.Request, into interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return apperrors.Wrap(apperrors.CodeValidation, "invalid request body", err)
	}
	return nil
}
