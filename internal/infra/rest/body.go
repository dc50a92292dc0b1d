package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"unicode/utf8"
)

const (
	// maxErrorBody bounds response text embedded in error messages.
	maxErrorBody = 2048

	truncatedMarker = "...[truncated]"
)

// truncateBody cuts s to maxErrorBody bytes on a rune boundary.
func truncateBody(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncatedMarker
}

// decodeBody turns a successful response body into a JSON value.
// Empty bodies become {} and non-JSON bodies become {"raw": text}.
func decodeBody(data []byte) any {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return map[string]any{"raw": string(data)}
	}
	// Trailing data after the first value means this isn't a JSON document.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return map[string]any{"raw": string(data)}
	}
	return v
}
