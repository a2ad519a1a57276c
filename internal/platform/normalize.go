package platform

import (
	"bytes"
	"encoding/json"
)

// Collection flattens the collection shapes the platform mixes across
// endpoints (a bare array, {"items": [...]}, {"rows": [...]}, or null) into
// an ordered slice of raw records. Unknown or empty input yields an empty
// result, never an error, so a malformed secondary payload degrades instead
// of failing the load.
func Collection(raw []byte) []json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr
	}

	var wrapped struct {
		Items []json.RawMessage `json:"items"`
		Rows  []json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil
	}
	if wrapped.Items != nil {
		return wrapped.Items
	}
	return wrapped.Rows
}

// decodeCollection decodes every record of a collection payload into T,
// skipping records that do not match the expected shape.
func decodeCollection[T any](raw []byte) []T {
	items := Collection(raw)
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
