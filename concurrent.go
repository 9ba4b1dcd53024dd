package bucketmap

import (
	"fmt"
	"sync/atomic"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/bucketmap/internal/constants"
	"github.com/hyp3rd/bucketmap/internal/sentinel"
	"github.com/hyp3rd/bucketmap/pkg/hashing"
)

const customHashAlgorithm = "custom"

//nolint:gochecknoglobals
var nextID atomic.Uint64

var _ Map[string, any] = (*ConcurrentHashMap[string, any])(nil)

// ConcurrentHashMap is a Map split into a fixed number of buckets, each guarded by its own
// mutex. Keys in different buckets never contend; keys colliding into one bucket serialize.
// The bucket count never changes and entries are never rebalanced, so throughput depends on
// the quality of the hash and on the bucket count relative to the number of goroutines.
//
// Readers take the same exclusive lock as writers: DoWithReadonly and DoAllReadonly are not
// lock-free, which keeps one uniform consistency model.
type ConcurrentHashMap[K comparable, V any] struct {
	id            uint64
	buckets       []*bucket[K, V]
	hasher        hashing.KeyHasher[K]
	hashAlgorithm string
}

// New creates a map with the given number of buckets. A bucket count of zero or less is a
// programming error and returns sentinel.ErrInvalidBucketCount.
func New[K comparable, V any](buckets int, options ...Option[K, V]) (*ConcurrentHashMap[K, V], error) {
	if buckets <= 0 {
		return nil, sentinel.ErrInvalidBucketCount
	}

	m := &ConcurrentHashMap[K, V]{
		id:            nextID.Add(1),
		buckets:       make([]*bucket[K, V], buckets),
		hashAlgorithm: constants.DefaultHashAlgorithm,
	}

	ApplyOptions(m, options...)

	if m.hasher != nil {
		m.hashAlgorithm = customHashAlgorithm
	} else {
		fn, err := hashing.Lookup(m.hashAlgorithm)
		if err != nil {
			return nil, ewrap.Wrap(err, "bucketmap")
		}

		m.hasher = hashing.NewKeyHasher[K](fn)
	}

	for i := range m.buckets {
		m.buckets[i] = newBucket[K, V]()
	}

	return m, nil
}

// MustNew is like New but panics on error.
func MustNew[K comparable, V any](buckets int, options ...Option[K, V]) *ConcurrentHashMap[K, V] {
	m, err := New(buckets, options...)
	if err != nil {
		panic(fmt.Sprintf("bucketmap: %v", err))
	}

	return m
}

// ID returns the map's identity. IDs are unique per process and increase with creation
// order; nested multi-map transactions must acquire maps in ascending ID.
func (m *ConcurrentHashMap[K, V]) ID() uint64 {
	return m.id
}

// Buckets returns the fixed bucket count.
func (m *ConcurrentHashMap[K, V]) Buckets() int {
	return len(m.buckets)
}

// HashAlgorithm returns the name of the hash algorithm routing keys to buckets.
func (m *ConcurrentHashMap[K, V]) HashAlgorithm() string {
	return m.hashAlgorithm
}

// bucketFor routes key to its bucket.
func (m *ConcurrentHashMap[K, V]) bucketFor(key K) *bucket[K, V] {
	return m.buckets[hashing.Index(m.hasher(key), len(m.buckets))]
}

// Clear removes all entries while holding every bucket lock.
func (m *ConcurrentHashMap[K, V]) Clear() {
	m.lockAll()
	defer m.unlockAll()

	for _, b := range m.buckets {
		b.reset()
	}
}

// Insert implements Map.
func (m *ConcurrentHashMap[K, V]) Insert(key K, value V, onSuccess func()) bool {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.insertIfAbsent(key, value) {
		return false
	}

	run(onSuccess)

	return true
}

// Upsert implements Map.
func (m *ConcurrentHashMap[K, V]) Upsert(key K, value V, onInsert, onUpdate func()) bool {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.upsert(key, value) {
		run(onInsert)

		return true
	}

	run(onUpdate)

	return false
}

// DoWith implements Map. The mutated value is stored before onSuccess runs.
func (m *ConcurrentHashMap[K, V]) DoWith(key K, mutate func(value *V), onSuccess func()) bool {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.update(key, mutate) {
		return false
	}

	run(onSuccess)

	return true
}

// DoWithReadonly implements Map.
func (m *ConcurrentHashMap[K, V]) DoWithReadonly(key K, read func(value V), onSuccess func()) bool {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	value, ok := b.lookup(key)
	if !ok {
		return false
	}

	if read != nil {
		read(value)
	}

	run(onSuccess)

	return true
}

// Remove implements Map.
func (m *ConcurrentHashMap[K, V]) Remove(key K, onSuccess func()) bool {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.remove(key) {
		return false
	}

	run(onSuccess)

	return true
}

// DoAllReadonly implements Map. All bucket locks are taken before the first visit, so the
// traversal sees a single point-in-time state of the whole map.
func (m *ConcurrentHashMap[K, V]) DoAllReadonly(visit func(key K, value V), onDone func()) {
	m.lockAll()
	defer m.unlockAll()

	if visit != nil {
		for _, b := range m.buckets {
			b.each(visit)
		}
	}

	run(onDone)
}

// Len returns the number of entries, counted under every bucket lock.
func (m *ConcurrentHashMap[K, V]) Len() int {
	m.lockAll()
	defer m.unlockAll()

	count := 0
	for _, b := range m.buckets {
		count += b.len()
	}

	return count
}

// BucketLoads returns the number of entries held by each bucket, in bucket order, taken
// from one consistent snapshot. A skewed distribution points at a weak hash.
func (m *ConcurrentHashMap[K, V]) BucketLoads() []int {
	m.lockAll()
	defer m.unlockAll()

	loads := make([]int, len(m.buckets))
	for i, b := range m.buckets {
		loads[i] = b.len()
	}

	return loads
}

// lockAll acquires every bucket lock in ascending index order.
func (m *ConcurrentHashMap[K, V]) lockAll() {
	for _, b := range m.buckets {
		b.mu.Lock()
	}
}

// unlockAll releases every bucket lock in descending index order.
func (m *ConcurrentHashMap[K, V]) unlockAll() {
	for i := len(m.buckets) - 1; i >= 0; i-- {
		m.buckets[i].mu.Unlock()
	}
}
