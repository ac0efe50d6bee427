package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/often-run/gateway/internal/apierr"
)

// decodeJSON decodes r's body into out, surfacing a malformed payload as a
// VALIDATION error rather than a bare decode error.
func decodeJSON(r *http.Request, out interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return apierr.Validationf("malformed JSON body")
	}
	return nil
}

// writeJSON writes out as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, out interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(out)
}
