package dto

import (
	"bytes"
	"encoding/json"
)

// OptionalString distinguishes an absent JSON field from an explicit null.
//
//	{}               → Set=false
//	{"note": null}   → Set=true, Value=nil
//	{"note": "text"} → Set=true, Value="text"
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only called when the key is present.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
