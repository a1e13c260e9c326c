package generator

import (
	"io"
	"math/rand/v2"
)

var junkLines = [][]byte{
	[]byte("\n"),
	[]byte("   \n"),
	[]byte("garbage\n"),
	[]byte("Paris : warm\n"),
	[]byte("London : 12.5 : 13.0\n"),
	[]byte(" : 10.0\n"),
	[]byte("Tokyo : NaN\n"),
}

// NoisyGenerator wraps another generator and replaces a fraction of its
// lines with lines the parser rejects.
type NoisyGenerator struct {
	Inner Generator
	Rate  float64 // fraction of junk lines, 0..1
	rand  *rand.Rand
}

func (g *NoisyGenerator) Init(r *rand.Rand) {
	g.rand = r
	if g.Inner == nil {
		g.Inner = &StationGenerator{}
	}
	g.Inner.Init(r)
}

func (g *NoisyGenerator) WriteLine(w io.Writer) error {
	if g.rand.Float64() < g.Rate {
		_, err := w.Write(junkLines[g.rand.IntN(len(junkLines))])
		return err
	}
	return g.Inner.WriteLine(w)
}

func (g *NoisyGenerator) Description() string {
	return "Station temperatures with malformed lines mixed in"
}

func (g *NoisyGenerator) DefaultCount() int64 {
	return g.Inner.DefaultCount()
}
