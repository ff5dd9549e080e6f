package transform

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeURLs extracts an ordered list of URL strings from a heterogeneous
// metadata value. The value may arrive as a JSON array, a JSON-encoded string
// of an array, or a plain comma-separated string; anything else normalizes to
// an empty list. Malformed input never produces an error, only a best-effort
// or empty result.
func NormalizeURLs(raw interface{}) []string {
	switch v := raw.(type) {
	case []string:
		out := make([]string, len(v))
		for i, u := range v {
			out[i] = strings.TrimSpace(u)
		}
		return out
	case []interface{}:
		out := make([]string, len(v))
		for i, u := range v {
			out[i] = strings.TrimSpace(stringify(u))
		}
		return out
	case string:
		var parsed interface{}
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			if list, ok := parsed.([]interface{}); ok {
				out := make([]string, len(list))
				for i, u := range list {
					out[i] = strings.TrimSpace(stringify(u))
				}
				return out
			}
			// Valid JSON but not an array
			return []string{}
		}
		// Not JSON: fall back to comma splitting, dropping empty pieces
		var out []string
		for _, piece := range strings.Split(v, ",") {
			piece = strings.TrimSpace(piece)
			if piece != "" {
				out = append(out, piece)
			}
		}
		return out
	default:
		return []string{}
	}
}

// stringify renders a decoded JSON value the way it would appear as a URL
// entry. JSON numbers decode as float64; whole values must not pick up a ".0".
func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%g", s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
