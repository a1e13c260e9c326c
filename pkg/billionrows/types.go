package billionrows

import (
	"context"
	"fmt"
	"math"
)

// Record is one parsed line of input.
type Record struct {
	Key   string
	Value float64
}

// Stat is the running aggregate for a single key. The mean is derived from
// Sum and Count on demand and is never stored.
type Stat struct {
	Min   float64 `json:"min" msgpack:"min"`
	Max   float64 `json:"max" msgpack:"max"`
	Sum   float64 `json:"sum" msgpack:"sum"`
	Count int64   `json:"count" msgpack:"count"`
}

// NewStat returns the Stat of a single observation.
func NewStat(v float64) Stat {
	return Stat{Min: v, Max: v, Sum: v, Count: 1}
}

// Add folds one more observation into s.
func (s Stat) Add(v float64) Stat {
	if s.Count == 0 {
		return NewStat(v)
	}
	if v < s.Min {
		s.Min = v
	}
	if v > s.Max {
		s.Max = v
	}
	s.Sum += v
	s.Count++
	return s
}

// Merge combines two Stats. The zero Stat is the identity.
func (s Stat) Merge(o Stat) Stat {
	if s.Count == 0 {
		return o
	}
	if o.Count == 0 {
		return s
	}
	return Stat{
		Min:   min(s.Min, o.Min),
		Max:   max(s.Max, o.Max),
		Sum:   s.Sum + o.Sum,
		Count: s.Count + o.Count,
	}
}

// Mean returns Sum/Count clamped to [Min, Max], or 0 for the zero Stat.
// Rounding in Sum can push the quotient just outside the observed range,
// and an overflowed Sum yields Inf or NaN.
func (s Stat) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	mean := s.Sum / float64(s.Count)
	if math.IsNaN(mean) {
		mean = s.Min/2 + s.Max/2
	}
	return min(max(mean, s.Min), s.Max)
}

func (s Stat) String() string {
	return fmt.Sprintf("min=%g max=%g mean=%g n=%d", s.Min, s.Max, s.Mean(), s.Count)
}

// StatsMap maps each key to its Stat. It never holds an entry with Count 0.
type StatsMap map[string]Stat

// Count returns the number of records folded into m across all keys.
func (m StatsMap) Count() int64 {
	var n int64
	for _, s := range m {
		n += s.Count
	}
	return n
}

// Clone returns a copy of m that shares nothing with it.
func (m StatsMap) Clone() StatsMap {
	out := make(StatsMap, len(m))
	for k, s := range m {
		out[k] = s
	}
	return out
}

// Batch is a bounded group of parsed records handed to one worker.
type Batch struct {
	Index   int
	Records []Record
	Lines   int   // lines consumed, including rejected ones
	Bytes   int64 // bytes consumed, including newlines
}

// Sink accepts the final result of a run for external persistence.
type Sink interface {
	StoreResult(ctx context.Context, res *Result) error
}
