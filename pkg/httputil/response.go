package httputil

import (
	"encoding/json"
	"net/http"
)

// Stable reason strings used in error bodies. Clients may match on these;
// they never carry internal detail.
const (
	ReasonUnauthorized = "unauthorized"
	ReasonForbidden    = "forbidden"
	ReasonNotFound     = "not found"
	ReasonInternal     = "internal error"
)

// BearerChallenge is the WWW-Authenticate value sent with every 401 so
// well-behaved clients know to re-authenticate (RFC 7235).
const BearerChallenge = "Bearer"

// ErrorResponse is the single error body shape used by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorReason writes the uniform error body with the given status
func WriteErrorReason(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: reason})
}

// WriteUnauthorized writes the generic 401 response with the bearer
// challenge header. Every authentication failure goes through here so
// the response is byte-identical regardless of the internal reason.
func WriteUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", BearerChallenge)
	WriteErrorReason(w, http.StatusUnauthorized, ReasonUnauthorized)
}

// WriteForbidden writes the generic 403 response. Reserved for cases
// where the resource's existence is already known to the caller.
func WriteForbidden(w http.ResponseWriter) {
	WriteErrorReason(w, http.StatusForbidden, ReasonForbidden)
}

// WriteNotFound writes the generic 404 response. Also used for ownership
// mismatches on direct resource access, by policy.
func WriteNotFound(w http.ResponseWriter) {
	WriteErrorReason(w, http.StatusNotFound, ReasonNotFound)
}

// WriteInternalError writes a 500 with the generic body. The underlying
// error is for the caller to log; it never reaches the response.
func WriteInternalError(w http.ResponseWriter, err error) {
	_ = err
	WriteErrorReason(w, http.StatusInternalServerError, ReasonInternal)
}

// WriteValidationError writes a validation error response (400 Bad Request).
// Validation messages describe the caller's own input and may be specific.
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteErrorReason(w, http.StatusBadRequest, message)
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorReason(w, http.StatusBadRequest, message)
}

// WriteCreated writes a successful creation response (201 Created) with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteNoContent writes a successful response with no content (204 No Content)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteServiceUnavailable writes a service unavailable error (503)
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteErrorReason(w, http.StatusServiceUnavailable, message)
}
