package promptcompose

import "encoding/json"

// unmarshalJSONOrEmpty decodes raw as JSON into v, treating an empty file as
// a no-op (leaving v at its zero value) rather than an error.
func unmarshalJSONOrEmpty(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
