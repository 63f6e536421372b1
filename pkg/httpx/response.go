package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cobaltgrid/foundation/pkg/slogx"
)

// WriteJSON serialises v to the response with the given status code. Encoding
// failures are logged but not surfaced to the client since headers are
// already committed.
func WriteJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slogx.FromContext(ctx).Error("failed to encode response body",
			"err", err,
		)
	}
}

// NoCache marks a response as non-cacheable. Token and credential responses
// must never land in shared caches.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// DecodeJSON reads a JSON request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
