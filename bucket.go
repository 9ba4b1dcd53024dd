package bucketmap

import "sync"

// bucket is one partition of the key space. Its entries are not safe for concurrent use:
// every method below requires the caller to hold mu. Keeping the lock outside the methods
// lets a single acquisition span several operations issued by a callback.
type bucket[K comparable, V any] struct {
	mu sync.Mutex

	items map[K]V
}

func newBucket[K comparable, V any]() *bucket[K, V] {
	return &bucket[K, V]{items: make(map[K]V)}
}

func (b *bucket[K, V]) lookup(key K) (V, bool) {
	value, ok := b.items[key]

	return value, ok
}

// insertIfAbsent stores value and reports true only if key was not present.
func (b *bucket[K, V]) insertIfAbsent(key K, value V) bool {
	if _, ok := b.items[key]; ok {
		return false
	}

	b.items[key] = value

	return true
}

// upsert stores value and reports whether key was new.
func (b *bucket[K, V]) upsert(key K, value V) bool {
	_, existed := b.items[key]
	b.items[key] = value

	return !existed
}

// update applies mutate to a copy of the stored value and writes it back.
func (b *bucket[K, V]) update(key K, mutate func(value *V)) bool {
	value, ok := b.items[key]
	if !ok {
		return false
	}

	if mutate != nil {
		mutate(&value)
	}

	b.items[key] = value

	return true
}

func (b *bucket[K, V]) remove(key K) bool {
	if _, ok := b.items[key]; !ok {
		return false
	}

	delete(b.items, key)

	return true
}

func (b *bucket[K, V]) each(visit func(key K, value V)) {
	for key, value := range b.items {
		visit(key, value)
	}
}

func (b *bucket[K, V]) reset() {
	clear(b.items)
}

func (b *bucket[K, V]) len() int {
	return len(b.items)
}
