package utils

import (
	"bytes"
	"encoding/json"
)

// SafeJSONParse parses JSON and rejects trailing data after the first value.
func SafeJSONParse(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return &json.SyntaxError{Offset: dec.InputOffset()}
	}
	return nil
}

// EncodeJSON serializes a payload once so it can be fanned out to many
// connections.
func EncodeJSON(payload interface{}) ([]byte, error) {
	return json.Marshal(payload)
}
