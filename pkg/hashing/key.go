package hashing

import (
	"encoding/binary"
	"hash/maphash"
	"unsafe"
)

// KeyHasher hashes a map key to 64 bits.
type KeyHasher[K comparable] func(key K) uint64

// comparableSeed is fixed for the life of the process so every hasher built from it
// routes a given key to the same bucket.
//
//nolint:gochecknoglobals
var comparableSeed = maphash.MakeSeed()

// NewKeyHasher builds a KeyHasher on top of fn.
//
// Strings hash their bytes without copying and integers hash their little-endian 8-byte
// encoding. Any other comparable key (structs, arrays, named string types, pointers) is
// hashed with maphash.Comparable using a process-wide seed, so fn is not consulted for
// those keys. The hash only depends on what == compares: a pointer key routes by address,
// never by the state it points to.
func NewKeyHasher[K comparable](fn Func) KeyHasher[K] {
	return func(key K) uint64 {
		switch k := any(key).(type) {
		case string:
			return fn(stringBytes(k))
		case int:
			return hashUint64(fn, uint64(k))
		case int8:
			return hashUint64(fn, uint64(k))
		case int16:
			return hashUint64(fn, uint64(k))
		case int32:
			return hashUint64(fn, uint64(k))
		case int64:
			return hashUint64(fn, uint64(k))
		case uint:
			return hashUint64(fn, uint64(k))
		case uint8:
			return hashUint64(fn, uint64(k))
		case uint16:
			return hashUint64(fn, uint64(k))
		case uint32:
			return hashUint64(fn, uint64(k))
		case uint64:
			return hashUint64(fn, k)
		case uintptr:
			return hashUint64(fn, uint64(k))
		default:
			return maphash.Comparable(comparableSeed, key)
		}
	}
}

func hashUint64(fn Func, v uint64) uint64 {
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], v)

	return fn(buf[:])
}

// stringBytes exposes the bytes of s without copying. The result must not be modified.
func stringBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
