// Package httputil centralizes JSON response and domain-error translation so
// every handler emits the same envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "railledger/pkg/domain-errors"
)

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope.
// Internal and integrity errors omit the description so storage detail never
// leaks to clients; everything else returns its message as error_description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]any{"error": string(code)}

	if code != dErrors.CodeInternal && code != dErrors.CodeIntegrity {
		var de *dErrors.Error
		if errors.As(err, &de) && de.Message != "" {
			body["error_description"] = de.Message
		}
		// Gate errors carry structured detail the caller needs to render a
		// specific message (missing vs blocked certification types).
		var detailed interface{ Detail() map[string]any }
		if errors.As(err, &detailed) {
			for k, v := range detailed.Detail() {
				body[k] = v
			}
		}
	}

	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
