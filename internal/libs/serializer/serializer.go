package serializer

import (
	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/bucketmap/internal/constants"
	"github.com/hyp3rd/bucketmap/internal/sentinel"
)

// ISerializer is the interface that wraps the basic serializer methods.
type ISerializer interface {
	// Marshal serializes the given value into a byte slice.
	Marshal(v any) ([]byte, error)
	// Unmarshal deserializes the given byte slice into the value pointed to by v.
	Unmarshal(data []byte, v any) error
}

// Registry manages serializer constructors.
type Registry struct {
	serializers map[string]func() ISerializer
}

// getDefaultSerializers returns the default set of serializers.
func getDefaultSerializers() map[string]func() ISerializer {
	return map[string]func() ISerializer{
		"default": func() ISerializer {
			return &JSONSerializer{}
		},
		constants.SerializerJSON: func() ISerializer {
			return &JSONSerializer{}
		},
		constants.SerializerMsgpack: func() ISerializer {
			return &MsgpackSerializer{}
		},
		constants.SerializerCBOR: func() ISerializer {
			return NewCBORSerializer()
		},
	}
}

// NewSerializerRegistry creates a new serializer registry with default serializers pre-registered.
func NewSerializerRegistry() *Registry {
	registry := NewEmptySerializerRegistry()
	for name, createFunc := range getDefaultSerializers() {
		registry.Register(name, createFunc)
	}

	return registry
}

// NewEmptySerializerRegistry creates a new serializer registry without default serializers.
func NewEmptySerializerRegistry() *Registry {
	return &Registry{
		serializers: make(map[string]func() ISerializer),
	}
}

// Register registers a new serializer with the given name.
func (r *Registry) Register(serializerType string, createFunc func() ISerializer) {
	r.serializers[serializerType] = createFunc
}

// Has reports whether a serializer is registered under serializerType.
func (r *Registry) Has(serializerType string) bool {
	_, ok := r.serializers[serializerType]

	return ok
}

// New returns a new serializer based on the serializerType.
func (r *Registry) New(serializerType string) (ISerializer, error) {
	if serializerType == "" {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "serializerType")
	}

	createFunc, ok := r.serializers[serializerType]
	if !ok {
		return nil, ewrap.Wrap(sentinel.ErrSerializerNotFound, serializerType)
	}

	return createFunc(), nil
}

// New returns a new serializer using a new registry instance with default serializers.
func New(serializerType string) (ISerializer, error) {
	return NewSerializerRegistry().New(serializerType)
}
