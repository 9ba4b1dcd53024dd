package middleware

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/longbridgeapp/assert"
	"go.opentelemetry.io/otel/attribute"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/hyp3rd/bucketmap"
	"github.com/hyp3rd/bucketmap/pkg/stats"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Printf(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}

	return false
}

// exercise runs every Map operation once and checks the outcomes pass through unchanged.
func exercise(t *testing.T, m bucketmap.Map[string, int]) {
	t.Helper()

	callbacks := 0
	cb := func() { callbacks++ }

	assert.True(t, m.Insert("a", 1, cb))
	assert.False(t, m.Insert("a", 2, cb))
	assert.True(t, m.Upsert("b", 1, cb, nil))
	assert.False(t, m.Upsert("b", 2, nil, cb))
	assert.True(t, m.DoWith("a", func(v *int) { *v += 10 }, cb))
	assert.False(t, m.DoWith("missing", func(v *int) { *v += 10 }, cb))

	var got int

	assert.True(t, m.DoWithReadonly("a", func(v int) { got = v }, cb))
	assert.Equal(t, 11, got)

	visited := 0

	m.DoAllReadonly(func(string, int) { visited++ }, cb)
	assert.Equal(t, 2, visited)

	assert.True(t, m.Remove("a", cb))
	assert.False(t, m.Remove("a", cb))

	m.Clear()

	m.DoAllReadonly(func(string, int) { t.Error("map should be empty after Clear") }, nil)

	assert.Equal(t, 6, callbacks)
}

func TestLoggingMiddleware(t *testing.T) {
	logger := &recordingLogger{}
	m := NewLoggingMiddleware[string, int](bucketmap.MustNew[string, int](4), logger)

	exercise(t, m)

	assert.True(t, logger.contains("method Insert key: a inserted: true"))
	assert.True(t, logger.contains("method Insert key: a inserted: false"))
	assert.True(t, logger.contains("method DoWith key: missing found: false"))
	assert.True(t, logger.contains("method Remove key: a removed: true"))
	assert.True(t, logger.contains("method Clear took"))
	assert.True(t, logger.contains("method DoAllReadonly took"))
}

func TestStatsCollectorMiddleware(t *testing.T) {
	collector := stats.NewHistogramStatsCollector(0)
	m := NewStatsCollectorMiddleware[string, int](bucketmap.MustNew[string, int](4), collector)

	exercise(t, m)

	s := collector.GetStats()
	assert.Equal(t, 2, s[StatName("insert", "count").String()].Count)
	assert.Equal(t, 1, s[StatName("insert", "hit").String()].Count)
	assert.Equal(t, 1, s[StatName("insert", "miss").String()].Count)
	assert.Equal(t, 2, s[StatName("remove", "duration").String()].Count)
	assert.Equal(t, 1, s[StatName("clear", "count").String()].Count)
	assert.Equal(t, 2, s[StatName("do_all_readonly", "count").String()].Count)

	entries := s[StatName("do_all_readonly", "entries").String()]
	assert.Equal(t, int64(2), entries.Max)
	assert.Equal(t, int64(0), entries.Min)
}

func TestOTelMetricsMiddleware(t *testing.T) {
	meter := metricnoop.NewMeterProvider().Meter("bucketmap-test")

	m, err := NewOTelMetricsMiddleware[string, int](context.Background(), bucketmap.MustNew[string, int](4), meter)
	assert.Nil(t, err)

	exercise(t, m)
}

func TestOTelTracingMiddleware(t *testing.T) {
	tracer := tracenoop.NewTracerProvider().Tracer("bucketmap-test")
	m := NewOTelTracingMiddleware[string, int](
		context.Background(),
		bucketmap.MustNew[string, int](4),
		tracer,
		WithCommonAttributes(attribute.String("component", "test")),
		WithKeyRecording(),
	)

	exercise(t, m)
}

func TestMiddlewareStack_PreservesTwoPhaseLocking(t *testing.T) {
	collector := stats.NewHistogramStatsCollector(0)
	inner := bucketmap.MustNew[int, int](4)

	var m bucketmap.Map[int, int] = inner
	m = NewStatsCollectorMiddleware[int, int](m, collector)
	m = NewLoggingMiddleware[int, int](m, &recordingLogger{})

	ledger := bucketmap.MustNew[int, int](4)

	for i := range 8 {
		m.Insert(i, 100, nil)
		ledger.Insert(i, 0, nil)
	}

	var wg sync.WaitGroup

	for w := range 4 {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			for i := range 200 {
				account := (id + i) % 8
				m.DoWith(account, func(v *int) { *v-- }, func() {
					ledger.DoWith(account, func(v *int) { *v++ }, nil)
				})
			}
		}(w)
	}

	wg.Wait()

	total := 0

	m.DoAllReadonly(func(_ int, v int) { total += v }, func() {
		ledger.DoAllReadonly(func(_ int, v int) { total += v }, nil)
	})

	assert.Equal(t, 800, total)
	assert.Equal(t, 800, collector.GetStats()[StatName("do_with", "hit").String()].Count)
}
