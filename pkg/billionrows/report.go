package billionrows

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Summary is the externally reported shape of one key.
type Summary struct {
	Min  float64 `json:"min" msgpack:"min"`
	Max  float64 `json:"max" msgpack:"max"`
	Mean float64 `json:"mean" msgpack:"mean"`
}

// Report maps each key to its rounded summary. Key order is unspecified.
type Report map[string]Summary

// Round2 rounds v to two decimal places, halves away from zero. Values of
// magnitude 2^52 and above are already integers and are returned as is.
func Round2(v float64) float64 {
	if math.Abs(v) >= 1<<52 {
		return v
	}
	return math.Round(v*100) / 100
}

// NewReport rounds every Stat in m into a Summary.
func NewReport(m StatsMap) Report {
	r := make(Report, len(m))
	for k, s := range m {
		r[k] = Summary{
			Min:  Round2(s.Min),
			Max:  Round2(s.Max),
			Mean: Round2(s.Mean()),
		}
	}
	return r
}

// Keys returns the report's keys in ascending order.
func (r Report) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Digest fingerprints the report. Two reports with the same keys and
// rounded values have the same digest regardless of map order.
func (r Report) Digest() uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, k := range r.Keys() {
		s := r[k]
		h.WriteString(k)
		h.Write([]byte{0})
		for _, v := range [...]float64{s.Min, s.Max, s.Mean} {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}

// WriteText writes one "key=min/mean/max" line per key, sorted by key.
func (r Report) WriteText(w io.Writer) error {
	for _, k := range r.Keys() {
		s := r[k]
		if _, err := fmt.Fprintf(w, "%s=%.2f/%.2f/%.2f\n", k, s.Min, s.Mean, s.Max); err != nil {
			return err
		}
	}
	return nil
}
