// trexgen writes synthetic TRex latency traces, for demos and for exercising
// trexanalyze without access to the test rig.
//
// Packets are sent at a fixed rate with a base latency plus uniform noise.
// Every spike-every seconds a burst of spike-len packets is delayed by
// spike-us, which trexanalyze validate should report as one anomaly.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/KHTangent/thesis-subprojects/src/logging"
	"github.com/KHTangent/thesis-subprojects/src/trace"
)

type genConfig struct {
	Duration   int // seconds
	PPS        int
	Start      float64 // transmit time of the first packet
	BaseUs     float64
	NoiseUs    float64
	SpikeEvery float64 // seconds between spikes, 0 disables
	SpikeLen   int
	SpikeUs    float64
	Seed       int64
}

// generate writes cfg.Duration*cfg.PPS records to w and returns the number of
// spikes injected.
func generate(w *trace.Writer, cfg genConfig) (int, error) {
	if cfg.PPS <= 0 || cfg.Duration <= 0 {
		return 0, fmt.Errorf("duration and pps must be positive")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	n := cfg.Duration * cfg.PPS
	interval := 1 / float64(cfg.PPS)
	spikeStride := 0
	if cfg.SpikeEvery > 0 && cfg.SpikeLen > 0 {
		spikeStride = int(cfg.SpikeEvery * float64(cfg.PPS))
		if spikeStride <= cfg.SpikeLen {
			return 0, fmt.Errorf("spike-every must be longer than spike-len packets")
		}
	}
	spikes := 0
	for i := 0; i < n; i++ {
		lat := cfg.BaseUs + cfg.NoiseUs*rng.Float64()
		if spikeStride > 0 && i > 0 {
			if k := i % spikeStride; k < cfg.SpikeLen {
				if k == 0 && i+cfg.SpikeLen <= n {
					spikes++
				}
				lat += cfg.SpikeUs
			}
		}
		tx := cfg.Start + float64(i)*interval
		if err := w.Write(trace.Record{Transmit: tx, Arrival: tx + lat/1e6}); err != nil {
			return spikes, err
		}
	}
	return spikes, w.Flush()
}

func main() {
	cfg := genConfig{}
	out := flag.String("out", "", "Output .data file (default: batch name in -dir)")
	dir := flag.String("dir", ".", "Directory for the default batch file name")
	test := flag.String("test", "synthetic", "Test name used in the default file name")
	run := flag.Int("run", 1, "Run number used in the default file name")
	flag.IntVar(&cfg.Duration, "duration", 10, "Test duration in seconds")
	flag.IntVar(&cfg.PPS, "pps", 1000, "Latency packets per second")
	flag.Float64Var(&cfg.Start, "start", 1000, "Transmit time of the first packet (s)")
	flag.Float64Var(&cfg.BaseUs, "base-us", 80, "Base one-way latency (µs)")
	flag.Float64Var(&cfg.NoiseUs, "noise-us", 20, "Uniform latency noise (µs)")
	flag.Float64Var(&cfg.SpikeEvery, "spike-every", 2, "Seconds between latency spikes (0 disables)")
	flag.IntVar(&cfg.SpikeLen, "spike-len", 5, "Packets per spike")
	flag.Float64Var(&cfg.SpikeUs, "spike-us", 1000, "Extra latency during a spike (µs)")
	flag.Int64Var(&cfg.Seed, "seed", 1, "Random seed")
	logLevel := flag.String("log-level", "info", "Log level (debug|info|warn|error)")
	flag.Parse()
	logging.SetLogLevel(*logLevel)

	path := *out
	if path == "" {
		path = filepath.Join(*dir, trace.RunInfo{Test: *test, DurationS: cfg.Duration, PPS: cfg.PPS, Run: *run}.FileName())
	}
	start := time.Now()
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	w := trace.NewWriter(f)
	spikes, err := generate(w, cfg)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logging.TimeTrack(start, "generate")
	fmt.Printf("Wrote %d records with %d spikes to %s\n", w.Count(), spikes, path)
}
