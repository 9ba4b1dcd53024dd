package bucketmap

import "github.com/hyp3rd/bucketmap/pkg/hashing"

// Option is a function type that can be used to configure a ConcurrentHashMap.
type Option[K comparable, V any] func(*ConcurrentHashMap[K, V])

// ApplyOptions applies the given options to the given map.
func ApplyOptions[K comparable, V any](m *ConcurrentHashMap[K, V], options ...Option[K, V]) {
	for _, option := range options {
		option(m)
	}
}

// WithHashAlgorithm selects a named hash algorithm from the default hashing registry
// ("xxhash", "fnv" or "murmur3"). An unknown name makes New fail. It is ignored when
// WithHasher is also given.
func WithHashAlgorithm[K comparable, V any](name string) Option[K, V] {
	return func(m *ConcurrentHashMap[K, V]) {
		m.hashAlgorithm = name
	}
}

// WithHasher sets a custom key hasher. It takes precedence over WithHashAlgorithm
// regardless of option order, and HashAlgorithm reports "custom".
// The hasher must be a pure function of the key.
func WithHasher[K comparable, V any](hasher hashing.KeyHasher[K]) Option[K, V] {
	return func(m *ConcurrentHashMap[K, V]) {
		m.hasher = hasher
	}
}
