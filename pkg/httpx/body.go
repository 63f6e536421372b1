package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// peekJSONField reads a single top-level string field from a JSON request
// body without consuming it. The body is rewound so handlers can decode it
// again. Bodies larger than 64 KiB are not inspected.
func peekJSONField(r *http.Request, field string) string {
	if r.Body == nil {
		return ""
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}

	var val string
	if err := json.Unmarshal(m[field], &val); err != nil {
		return ""
	}
	return val
}
