// Package jsonutil decodes JSON response envelopes with error messages that
// carry a truncated preview of the offending body.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// previewLength caps how much of a body is quoted in errors.
const previewLength = 200

// ParseJSON trims surrounding whitespace and a UTF-8 byte order mark from raw
// and unmarshals it into T.
func ParseJSON[T any](raw []byte) (T, error) {
	var result T

	text := bytes.TrimSpace(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf")))
	if len(text) == 0 {
		return result, fmt.Errorf("empty JSON body")
	}

	if err := json.Unmarshal(text, &result); err != nil {
		var zero T
		return zero, fmt.Errorf("invalid JSON: %w (body: %s)", err, Truncate(string(text), previewLength))
	}
	return result, nil
}

// Truncate returns the first n bytes of s, appending "..." if truncated.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
