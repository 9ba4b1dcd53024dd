// Package hashing implements the hash router of the bucket map: it turns a key into a
// 64-bit hash with a named byte hash algorithm, and reduces the hash to a bucket index.
//
// Routing is a pure function of the key and the bucket count. No state is mutated after
// package initialization, so concurrent callers never disagree about a key's bucket.
package hashing

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/hyp3rd/ewrap"
	"github.com/spaolacci/murmur3"

	"github.com/hyp3rd/bucketmap/internal/constants"
	"github.com/hyp3rd/bucketmap/internal/sentinel"
)

// Func hashes a byte slice to 64 bits. Implementations must be deterministic and must not
// retain data.
type Func func(data []byte) uint64

// Registry manages named hash algorithms.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// getDefaultFuncs returns the default set of hash algorithms.
func getDefaultFuncs() map[string]Func {
	return map[string]Func{
		constants.HashXXHash:  xxhash.Sum64,
		constants.HashFNV:     fnv64a,
		constants.HashMurmur3: murmur3.Sum64,
	}
}

// NewRegistry creates a new registry with the default algorithms pre-registered.
func NewRegistry() *Registry {
	registry := NewEmptyRegistry()
	for name, fn := range getDefaultFuncs() {
		registry.Register(name, fn)
	}

	return registry
}

// NewEmptyRegistry creates a registry without any algorithm.
func NewEmptyRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register registers fn under name, replacing any previous registration.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.funcs[name] = fn
}

// Get returns the algorithm registered under name.
func (r *Registry) Get(name string) (Func, error) {
	if name == "" {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "hash algorithm")
	}

	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()

	if !ok {
		return nil, ewrap.Wrap(sentinel.ErrHashAlgorithmNotFound, name)
	}

	return fn, nil
}

// Names returns the registered algorithm names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}

	return names
}

//nolint:gochecknoglobals
var defaultRegistry = NewRegistry()

// Lookup returns the algorithm registered under name in the default registry.
func Lookup(name string) (Func, error) {
	return defaultRegistry.Get(name)
}

// Index reduces hash to a bucket index in [0, buckets). buckets must be positive.
func Index(hash uint64, buckets int) int {
	return int(hash % uint64(buckets))
}

// fnv64a is an inline FNV-1a 64-bit hash that does not allocate.
func fnv64a(data []byte) uint64 {
	const (
		fnvOffset64 = 14695981039346656037
		fnvPrime64  = 1099511628211
	)

	var sum uint64 = fnvOffset64
	for _, c := range data {
		sum ^= uint64(c)

		sum *= fnvPrime64
	}

	return sum
}
