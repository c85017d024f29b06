// Package cache implements the session-scoped, TTL-bounded LRU tool-result
// cache with path-indexed invalidation .
package cache

import (
	"encoding/json"
	"fmt"
	"sort"
)

// CanonicalKey derives the cache key for a (tool, args) pair: the tool name
// plus args canonicalized with recursively sorted object keys, so argument
// order never affects the key.
func CanonicalKey(toolName string, args map[string]any) string {
	return fmt.Sprintf("%s:%s", toolName, canonicalize(args))
}

func canonicalize(v any) string {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "{"
		for i, k := range keys {
			if i > 0 {
				out += ","
			}
			kb, _ := json.Marshal(k)
			out += string(kb) + ":" + canonicalize(val[k])
		}
		return out + "}"
	case []any:
		out := "["
		for i, item := range val {
			if i > 0 {
				out += ","
			}
			out += canonicalize(item)
		}
		return out + "]"
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}
