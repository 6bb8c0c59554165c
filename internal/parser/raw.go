package parser

import (
	"fmt"
	"strings"
)

// RawRecord is one loosely typed item extracted from a source document.
// No shape is guaranteed across source kinds; every lookup goes through the
// accessors below so a missing field is a defined default, never a failure.
type RawRecord map[string]any

// String returns the first non-empty trimmed string value among keys.
func (r RawRecord) String(keys ...string) string {
	for _, key := range keys {
		if s, ok := r[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// Value returns the raw value for key, or nil when absent.
func (r RawRecord) Value(key string) any {
	return r[key]
}

// StringList returns the value for key coerced to a list of strings.
// Non-list values and absent keys yield an empty list.
func (r RawRecord) StringList(key string) []string {
	return toStringList(r[key])
}

func toStringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return []string{}
}
