// Package httpx provides the JSON API for the harvester service.
package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/target/harvester/internal/errors"
)

// maxBodyBytes bounds request bodies; source configs are small.
const maxBodyBytes = 1 << 20

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid JSON body"))
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Client went away.
		return
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// WriteError renders err as {"error", "code"} with a status derived from its kind.
// Internal failures are reported without their cause.
func WriteError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	body := ErrorBody{Code: code, Field: apperrors.GetField(err)}
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		body.Error = http.StatusText(status)
	} else {
		body.Error = err.Error()
	}
	WriteJSON(w, status, body)
}
