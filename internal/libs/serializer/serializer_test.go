package serializer

import (
	"errors"
	"testing"

	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/bucketmap/internal/constants"
	"github.com/hyp3rd/bucketmap/internal/sentinel"
)

type record struct {
	Key   string `codec:"key"   json:"key"   msgpack:"key"`
	Value int    `codec:"value" json:"value" msgpack:"value"`
}

func TestSerializers_RoundTrip(t *testing.T) {
	in := []record{{Key: "a", Value: 1}, {Key: "b", Value: -2}}

	for _, name := range []string{constants.SerializerJSON, constants.SerializerMsgpack, constants.SerializerCBOR} {
		t.Run(name, func(t *testing.T) {
			s, err := New(name)
			assert.Nil(t, err)

			data, err := s.Marshal(in)
			assert.Nil(t, err)

			var out []record

			err = s.Unmarshal(data, &out)
			assert.Nil(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestRegistry_Errors(t *testing.T) {
	_, err := New("")
	if !errors.Is(err, sentinel.ErrParamCannotBeEmpty) {
		t.Errorf("Expected ErrParamCannotBeEmpty, got %v", err)
	}

	_, err = New("xml")
	if !errors.Is(err, sentinel.ErrSerializerNotFound) {
		t.Errorf("Expected ErrSerializerNotFound, got %v", err)
	}

	registry := NewEmptySerializerRegistry()
	assert.False(t, registry.Has(constants.SerializerJSON))

	registry.Register(constants.SerializerJSON, func() ISerializer { return &JSONSerializer{} })
	assert.True(t, registry.Has(constants.SerializerJSON))
}

func TestJSONSerializer_InvalidInput(t *testing.T) {
	var out []record

	err := (&JSONSerializer{}).Unmarshal([]byte("{broken"), &out)
	assert.True(t, err != nil)
}
