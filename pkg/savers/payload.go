package savers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodePayload maps an agent payload onto a typed value. Agents deliver
// either structured data or a JSON string (possibly fenced in a Markdown
// code block); both decode to the same place.
func decodePayload(output any, out any) error {
	var data []byte
	switch v := output.(type) {
	case nil:
		return fmt.Errorf("agent payload is empty")
	case string:
		data = []byte(stripFences(v))
	case []byte:
		data = []byte(stripFences(string(v)))
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return fmt.Errorf("unencodable agent payload: %w", err)
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("malformed agent payload: %w", err)
	}
	return nil
}

// textPayload extracts the plain-text form of an agent payload.
func textPayload(output any) (string, error) {
	switch v := output.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case map[string]any:
		// Some agents wrap free text in {"text": ...} or {"content": ...}.
		for _, key := range []string{"text", "content", "result"} {
			if text, ok := v[key].(string); ok {
				return text, nil
			}
		}
	}
	return "", fmt.Errorf("agent payload is not text")
}

// stripFences removes a surrounding Markdown code fence, if any.
func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// hintInt reads an integer hint, tolerating JSON's float64 round trip.
func hintInt(hints map[string]any, key string) (int, bool) {
	switch v := hints[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
	}
	return 0, false
}

// hintBool reads a boolean hint.
func hintBool(hints map[string]any, key string) bool {
	v, _ := hints[key].(bool)
	return v
}

// hintString reads a string hint.
func hintString(hints map[string]any, key string) string {
	v, _ := hints[key].(string)
	return v
}

// hintIntSlice reads an int list hint, tolerating []any of float64.
func hintIntSlice(hints map[string]any, key string) []int {
	switch v := hints[key].(type) {
	case []int:
		return v
	case []any:
		out := make([]int, 0, len(v))
		for _, item := range v {
			switch n := item.(type) {
			case int:
				out = append(out, n)
			case float64:
				out = append(out, int(n))
			}
		}
		return out
	}
	return nil
}
