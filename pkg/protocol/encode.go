package protocol

import "encoding/json"

// ToMap converts a wire struct to the map form tool results carry.
// Panics are impossible: every protocol type marshals cleanly.
func ToMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{"error": err.Error()}
	}
	return out
}

// FromMap decodes a map payload into a wire struct.
func FromMap(m map[string]any, out any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
