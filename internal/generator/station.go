package generator

import (
	"fmt"
	"io"
	"math"
	"math/rand/v2"
)

// Cities are the default station names.
var Cities = []string{
	"New York",
	"London",
	"Tokyo",
	"Paris",
	"Berlin",
	"Moscow",
	"Sydney",
	"Los Angeles",
	"Chicago",
	"Toronto",
	"Seoul",
	"Mumbai",
	"Mexico City",
	"Sao Paulo",
	"Cairo",
	"Istanbul",
	"Beijing",
	"Shanghai",
	"Jakarta",
	"Delhi",
}

const (
	DefaultMinTemp = -14.5
	DefaultMaxTemp = 120.0
)

// StationGenerator writes "City : 12.34 " lines with uniform temperatures
// rounded to two decimals. Whitespace around both fields is intentional.
type StationGenerator struct {
	Stations []string // defaults to Cities
	MinTemp  float64
	MaxTemp  float64
	rand     *rand.Rand
}

func (g *StationGenerator) Init(r *rand.Rand) {
	g.rand = r
	if len(g.Stations) == 0 {
		g.Stations = Cities
	}
	if g.MinTemp == 0 && g.MaxTemp == 0 {
		g.MinTemp, g.MaxTemp = DefaultMinTemp, DefaultMaxTemp
	}
}

// Next returns the next sample without writing it.
func (g *StationGenerator) Next() Sample {
	station := g.Stations[g.rand.IntN(len(g.Stations))]
	v := g.MinTemp + g.rand.Float64()*(g.MaxTemp-g.MinTemp)
	return Sample{Key: station, Value: math.Round(v*100) / 100}
}

func (g *StationGenerator) WriteLine(w io.Writer) error {
	s := g.Next()
	_, err := fmt.Fprintf(w, "%s : %.2f \n", s.Key, s.Value)
	return err
}

func (g *StationGenerator) Description() string {
	return "Station temperatures: {city} : {value}"
}

func (g *StationGenerator) DefaultCount() int64 {
	return 1e6 // 1,000,000 lines
}

// Samples draws n samples from a StationGenerator seeded with seed.
func Samples(n int, seed uint64) []Sample {
	g := &StationGenerator{}
	g.Init(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))

	out := make([]Sample, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}
