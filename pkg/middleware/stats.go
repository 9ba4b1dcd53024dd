package middleware

import (
	"time"

	"github.com/hyp3rd/bucketmap"
	"github.com/hyp3rd/bucketmap/pkg/stats"
)

// StatsCollectorMiddleware records a duration and a call count for every method, plus hit
// and miss counters for the keyed operations.
type StatsCollectorMiddleware[K comparable, V any] struct {
	next           bucketmap.Map[K, V]
	statsCollector stats.ICollector
}

// NewStatsCollectorMiddleware returns a new StatsCollectorMiddleware.
func NewStatsCollectorMiddleware[K comparable, V any](
	next bucketmap.Map[K, V],
	statsCollector stats.ICollector,
) bucketmap.Map[K, V] {
	return &StatsCollectorMiddleware[K, V]{next: next, statsCollector: statsCollector}
}

// StatName returns the name under which the middleware records suffix for method, e.g.
// StatName("insert", "count") is "bucketmap_insert_count".
func StatName(method, suffix string) stats.Name {
	return stats.Name("bucketmap_" + method + "_" + suffix)
}

func (mw *StatsCollectorMiddleware[K, V]) observe(method string, start time.Time) {
	mw.statsCollector.Timing(StatName(method, "duration"), time.Since(start).Nanoseconds())
	mw.statsCollector.Incr(StatName(method, "count"), 1)
}

func (mw *StatsCollectorMiddleware[K, V]) outcome(method string, ok bool) {
	if ok {
		mw.statsCollector.Incr(StatName(method, "hit"), 1)

		return
	}

	mw.statsCollector.Incr(StatName(method, "miss"), 1)
}

// Clear collects stats for the Clear method.
func (mw *StatsCollectorMiddleware[K, V]) Clear() {
	defer mw.observe("clear", time.Now())

	mw.next.Clear()
}

// Insert collects stats for the Insert method.
func (mw *StatsCollectorMiddleware[K, V]) Insert(key K, value V, onSuccess func()) bool {
	defer mw.observe("insert", time.Now())

	ok := mw.next.Insert(key, value, onSuccess)
	mw.outcome("insert", ok)

	return ok
}

// Upsert collects stats for the Upsert method. A hit is an insert, a miss an update.
func (mw *StatsCollectorMiddleware[K, V]) Upsert(key K, value V, onInsert, onUpdate func()) bool {
	defer mw.observe("upsert", time.Now())

	inserted := mw.next.Upsert(key, value, onInsert, onUpdate)
	mw.outcome("upsert", inserted)

	return inserted
}

// DoWith collects stats for the DoWith method.
func (mw *StatsCollectorMiddleware[K, V]) DoWith(key K, mutate func(value *V), onSuccess func()) bool {
	defer mw.observe("do_with", time.Now())

	ok := mw.next.DoWith(key, mutate, onSuccess)
	mw.outcome("do_with", ok)

	return ok
}

// DoWithReadonly collects stats for the DoWithReadonly method.
func (mw *StatsCollectorMiddleware[K, V]) DoWithReadonly(key K, read func(value V), onSuccess func()) bool {
	defer mw.observe("do_with_readonly", time.Now())

	ok := mw.next.DoWithReadonly(key, read, onSuccess)
	mw.outcome("do_with_readonly", ok)

	return ok
}

// Remove collects stats for the Remove method.
func (mw *StatsCollectorMiddleware[K, V]) Remove(key K, onSuccess func()) bool {
	defer mw.observe("remove", time.Now())

	ok := mw.next.Remove(key, onSuccess)
	mw.outcome("remove", ok)

	return ok
}

// DoAllReadonly collects stats for the DoAllReadonly method and gauges the number of
// visited entries.
func (mw *StatsCollectorMiddleware[K, V]) DoAllReadonly(visit func(key K, value V), onDone func()) {
	defer mw.observe("do_all_readonly", time.Now())

	var visited int64

	mw.next.DoAllReadonly(func(key K, value V) {
		visited++

		if visit != nil {
			visit(key, value)
		}
	}, onDone)

	mw.statsCollector.Gauge(StatName("do_all_readonly", "entries"), visited)
}
