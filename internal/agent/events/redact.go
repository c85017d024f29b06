package events

import (
	"regexp"
	"strings"
)

// sensitiveKey matches map keys (case-insensitively, ignoring separators)
// whose values must never reach the audit log or a subscriber unredacted.
var sensitiveKey = regexp.MustCompile(`(?i)^(api[_-]?key|token|authorization|password|secret|cookie|set-cookie)$`)

// sensitiveValue catches secret-shaped substrings even when they show up
// embedded inside an otherwise innocuous string value (a URL query string,
// a rendered header line, an error message echoing a request).
var sensitiveValue = regexp.MustCompile(`(?i)(api[_-]?key|token|authorization|password|secret)\s*[:=]\s*\S+`)

const redactedPlaceholder = "[REDACTED]"

// Redact returns a deep copy of data with sensitive keys masked and any
// remaining secret-shaped substrings in string values scrubbed. The input is
// never mutated, so the same Data map can be reused by the caller after
// Publish returns.
func Redact(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if sensitiveKey.MatchString(strings.TrimSpace(k)) {
			out[k] = redactedPlaceholder
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Redact(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = redactValue(item)
		}
		return out
	case string:
		return sensitiveValue.ReplaceAllString(t, redactedPlaceholder)
	default:
		return v
	}
}
