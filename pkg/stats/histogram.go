package stats

import (
	"math"
	"slices"
	"sync"
)

// DefaultSampleWindow is the number of most recent values retained per stat.
const DefaultSampleWindow = 4096

// HistogramStatsCollector keeps a bounded window of recent values per stat and running
// totals, and summarises them on demand.
type HistogramStatsCollector struct {
	mu     sync.Mutex
	window int
	series map[string]*series
}

type series struct {
	samples []int64
	next    int
	count   int
	sum     int64
}

func (s *series) add(value int64, window int) {
	s.count++
	s.sum += value

	if len(s.samples) < window {
		s.samples = append(s.samples, value)

		return
	}

	s.samples[s.next] = value
	s.next = (s.next + 1) % window
}

// NewHistogramStatsCollector creates a histogram stats collector retaining window samples per
// stat. A non-positive window falls back to DefaultSampleWindow.
func NewHistogramStatsCollector(window int) *HistogramStatsCollector {
	if window <= 0 {
		window = DefaultSampleWindow
	}

	return &HistogramStatsCollector{
		window: window,
		series: make(map[string]*series),
	}
}

func (c *HistogramStatsCollector) record(stat Name, value int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.series[stat.String()]
	if !ok {
		s = &series{}
		c.series[stat.String()] = s
	}

	s.add(value, c.window)
}

// Incr increments the count of a statistic by the given value.
func (c *HistogramStatsCollector) Incr(stat Name, value int64) { c.record(stat, value) }

// Decr decrements the count of a statistic by the given value.
func (c *HistogramStatsCollector) Decr(stat Name, value int64) { c.record(stat, -value) }

// Timing records the time it took for an event to occur.
func (c *HistogramStatsCollector) Timing(stat Name, value int64) { c.record(stat, value) }

// Gauge records the current value of a statistic.
func (c *HistogramStatsCollector) Gauge(stat Name, value int64) { c.record(stat, value) }

// Histogram records the statistical distribution of a set of values.
func (c *HistogramStatsCollector) Histogram(stat Name, value int64) { c.record(stat, value) }

// GetStats returns a summary of every stat. Samples are copied before sorting so recording
// can continue while the summary is built.
func (c *HistogramStatsCollector) GetStats() Stats {
	c.mu.Lock()

	copies := make(map[string]series, len(c.series))
	for name, s := range c.series {
		copies[name] = series{samples: slices.Clone(s.samples), count: s.count, sum: s.sum}
	}

	c.mu.Unlock()

	stats := make(Stats, len(copies))
	for name, s := range copies {
		stats[name] = summarize(s)
	}

	return stats
}

func summarize(s series) *Stat {
	values := s.samples
	if len(values) == 0 {
		return &Stat{Count: s.count, Sum: s.sum}
	}

	slices.Sort(values)

	avg := mean(values)

	return &Stat{
		Mean:     avg,
		Median:   median(values),
		Min:      values[0],
		Max:      values[len(values)-1],
		Count:    s.count,
		Sum:      s.sum,
		Variance: variance(values, avg),
	}
}

// mean returns the mean of a set of values.
func mean(values []int64) float64 {
	var sum int64
	for _, value := range values {
		sum += value
	}

	return float64(sum) / float64(len(values))
}

// median returns the median of a sorted, non-empty set of values.
func median(sorted []int64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return float64(sorted[mid-1]+sorted[mid]) / 2
	}

	return float64(sorted[mid])
}

// variance returns the variance of a set of values.
func variance(values []int64, mean float64) float64 {
	var variance float64
	for _, value := range values {
		variance += math.Pow(float64(value)-mean, 2)
	}

	return variance / float64(len(values))
}
