// Package httpapi exposes the HTTP surface of the order feed service.
package httpapi

import (
	"encoding/json"
	"net/http"
)

// errorBody is the uniform error payload every handler renders. The
// error field is a stable machine-readable code; details are free text.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSONError writes the error payload with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, code, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code, Details: details})
}
