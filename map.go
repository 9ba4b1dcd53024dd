// Package bucketmap provides a concurrent key/value map with a fixed number of buckets,
// one mutex per bucket, and a two-phase-locking (2PL) callback discipline.
//
// Every operation that can succeed accepts caller code that runs while the bucket lock is
// still held. A callback may issue a second operation on another map, so the two critical
// sections overlap and compose into one atomic step across maps:
//
//	accounts.DoWith(from, debit, func() {
//	    ledger.Insert(txID, entry, nil) // still holding the accounts bucket lock
//	})
//
// Callbacks run synchronously under the lock. They must not call back into a bucket the
// caller already holds (sync.Mutex is not reentrant) and should not run unbounded work,
// which would stall every other key routed to the same bucket.
//
// Deadlock freedom is a caller discipline: whole-map operations lock buckets in ascending
// index and release them in reverse, and composed transactions must nest maps in ascending
// ID() order.
package bucketmap

// Map is the capability interface of a key/value store with locked callbacks.
// Nil callbacks are allowed and skipped.
type Map[K comparable, V any] interface {
	// Clear removes every entry. No concurrent operation observes a partially cleared map.
	Clear()
	// Insert stores value under key only if key is absent, and runs onSuccess before
	// releasing the lock. It returns false, without mutating anything, if key exists.
	Insert(key K, value V, onSuccess func()) bool
	// Upsert stores value under key. It returns true and runs onInsert when the key was new,
	// or returns false and runs onUpdate when an existing value was replaced.
	Upsert(key K, value V, onInsert, onUpdate func()) bool
	// DoWith applies mutate to the value stored under key, then runs onSuccess, both under
	// the lock. It returns false if key is absent.
	DoWith(key K, mutate func(value *V), onSuccess func()) bool
	// DoWithReadonly applies read to the value stored under key, then runs onSuccess, both
	// under the lock. read must not modify the value. It returns false if key is absent.
	DoWithReadonly(key K, read func(value V), onSuccess func()) bool
	// Remove deletes key and runs onSuccess under the lock. It returns false if key is absent.
	Remove(key K, onSuccess func()) bool
	// DoAllReadonly visits every entry of one consistent snapshot of the map, then runs
	// onDone, before any lock is released. visit must not modify values.
	DoAllReadonly(visit func(key K, value V), onDone func())
}

// run invokes fn when it is set.
func run(fn func()) {
	if fn != nil {
		fn()
	}
}
