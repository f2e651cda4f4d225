package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/0xsequence/sidekick-sub000/internal/errors"
)

// ErrorResponse is the admin API error shape.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response with an explicit status code.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondServiceError maps a service error onto its HTTP status. User
// errors keep their message; everything else is masked.
func respondServiceError(w http.ResponseWriter, err error) {
	ce := apperrors.Categorize(err)
	if apperrors.IsUserError(err) {
		respondError(w, ce.StatusCode, ce.Message)
		return
	}
	respondError(w, ce.StatusCode, "An internal error occurred")
}

// parseJSONBody parses a JSON request body, rejecting unknown fields.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
