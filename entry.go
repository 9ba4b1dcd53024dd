package bucketmap

import (
	"github.com/goccy/go-json"
	"github.com/hyp3rd/ewrap"
)

// Entry is a key/value pair copied out of a map.
type Entry[K comparable, V any] struct {
	Key   K `codec:"key"   json:"key"   msgpack:"key"`
	Value V `codec:"value" json:"value" msgpack:"value"`
}

// Collect copies every entry of m from one consistent snapshot.
func Collect[K comparable, V any](m Map[K, V]) []Entry[K, V] {
	var entries []Entry[K, V]

	m.DoAllReadonly(func(key K, value V) {
		entries = append(entries, Entry[K, V]{Key: key, Value: value})
	}, nil)

	return entries
}

// MarshalJSON encodes a consistent snapshot of the map as a list of entries.
func (m *ConcurrentHashMap[K, V]) MarshalJSON() ([]byte, error) {
	entries := Collect[K, V](m)
	if entries == nil {
		entries = []Entry[K, V]{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, ewrap.Wrap(err, "failed to marshal json")
	}

	return data, nil
}

// UnmarshalJSON upserts every entry of a list produced by MarshalJSON. The map must have
// been created with New.
func (m *ConcurrentHashMap[K, V]) UnmarshalJSON(b []byte) error {
	var entries []Entry[K, V]

	err := json.Unmarshal(b, &entries)
	if err != nil {
		return ewrap.Wrap(err, "failed to unmarshal json")
	}

	for _, entry := range entries {
		m.Upsert(entry.Key, entry.Value, nil, nil)
	}

	return nil
}
