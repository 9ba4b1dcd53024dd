// Package serializer converts snapshot payloads to and from bytes. It ships JSON
// (goccy/go-json), msgpack (shamaton/msgpack) and CBOR (ugorji/go/codec) implementations
// behind a small registry keyed by format name.
package serializer

import (
	"github.com/goccy/go-json"
	"github.com/hyp3rd/ewrap"
)

// JSONSerializer leverages goccy/go-json to serialize values.
type JSONSerializer struct{}

// Marshal serializes the given value into a byte slice.
func (*JSONSerializer) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, ewrap.Wrap(err, "failed to marshal json")
	}

	return data, nil
}

// Unmarshal deserializes the given byte slice into the given value.
func (*JSONSerializer) Unmarshal(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err != nil {
		return ewrap.Wrap(err, "failed to unmarshal json")
	}

	return nil
}
