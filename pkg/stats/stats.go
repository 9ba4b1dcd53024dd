// Package stats collects operation statistics for bucket maps: call counts, hit/miss
// counters and call durations, summarised per stat name.
package stats

// Name identifies a collected statistic.
type Name string

// String returns the string representation of a Name.
func (n Name) String() string {
	return string(n)
}

// Stat is the summary of the values recorded for one statistic. Mean, Median, Min, Max and
// Variance are computed over the retained sample window; Count and Sum cover every value
// ever recorded.
type Stat struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Min      int64   `json:"min"`
	Max      int64   `json:"max"`
	Count    int     `json:"count"`
	Sum      int64   `json:"sum"`
	Variance float64 `json:"variance"`
}

// Stats maps a stat name to its summary.
type Stats map[string]*Stat
