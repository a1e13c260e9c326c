package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"pkg.jsn.cam/billionrows/internal/generator"
)

/*generates station measurement files in the form of {city} : {value}*/

const flushEvery = 1_000_000

var (
	GeneratorName = flag.String("generator", "stations", "Generator to use ("+strings.Join(generator.List(), ", ")+")")
	TotalCount    = flag.Int64("total_count", 0, "Total number of lines to generate (0 = generator default)")
	OutputPath    = flag.String("output", "var/measurements.txt", "Output file path")
	Seed          = flag.Uint64("seed", 0, "Random seed (0 = random)")
	NoiseRate     = flag.Float64("noise", 0.01, "Fraction of malformed lines for the noisy generator")
	Quiet         = flag.Bool("quiet", false, "Hide the progress bar")
)

func main() {
	flag.Parse()

	generator.SetNoiseRate(*NoiseRate)
	gen, err := generator.Get(*GeneratorName)
	if err != nil {
		log.Fatal(err)
	}

	count := *TotalCount
	if count <= 0 {
		count = gen.DefaultCount()
	}
	seed := *Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	gen.Init(rand.New(rand.NewPCG(seed, seed>>1)))

	if err := os.MkdirAll(filepath.Dir(*OutputPath), 0755); err != nil {
		log.Fatal(err)
	}
	file, err := os.Create(*OutputPath)
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	bar := progressbar.NewOptions64(count,
		progressbar.OptionSetDescription(gen.Description()),
		progressbar.OptionSetVisibility(!*Quiet),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(200*time.Millisecond),
	)

	w := bufio.NewWriterSize(file, 1<<20)
	for i := int64(1); i <= count; i++ {
		if err := gen.WriteLine(w); err != nil {
			log.Fatal(err)
		}
		// write out in batches of lines
		if i%flushEvery == 0 {
			if err := w.Flush(); err != nil {
				log.Fatal(err)
			}
			_ = bar.Set64(i)
		}
	}
	if err := w.Flush(); err != nil {
		log.Fatal(err)
	}
	_ = bar.Finish()

	info, err := file.Stat()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("\nWrote %s lines (%s) to %s (seed %d)\n",
		humanize.Comma(count), humanize.Bytes(uint64(info.Size())), *OutputPath, seed)
}
