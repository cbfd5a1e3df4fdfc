// trexreader prints a quick overview of a TRex latency trace: record count,
// duration, the first and last records and optionally the first N records.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/KHTangent/thesis-subprojects/src/stats"
	"github.com/KHTangent/thesis-subprojects/src/trace"
)

func main() {
	var file string
	var head int
	var scan bool
	flag.StringVar(&file, "file", "", "Path to a TRex timestamp .data file")
	flag.IntVar(&head, "n", 0, "Also print the first N records")
	flag.BoolVar(&scan, "scan", false, "Read the whole file and print latency min/avg/max")
	flag.Parse()
	if file == "" && flag.NArg() > 0 {
		file = flag.Arg(0)
	}
	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: trexreader [-n N] [-scan] -file <trace.data>")
		os.Exit(2)
	}
	if err := describe(os.Stdout, file, head, scan); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func describe(w io.Writer, path string, head int, scan bool) error {
	s, err := trace.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	fmt.Fprintf(w, "File: %s\n", path)
	if ri, ok := trace.ParseRunName(path); ok {
		fmt.Fprintf(w, "Test: %s, %d s at %d pps, run %d\n", ri.Test, ri.DurationS, ri.PPS, ri.Run)
	}
	fmt.Fprintf(w, "Records: %d\n", s.TotalRecords())
	first, ok := s.Next()
	if !ok {
		if err := s.Err(); err != nil {
			return err
		}
		fmt.Fprintln(w, "No complete records")
		return nil
	}
	last, ok := s.PeekLast()
	if !ok {
		return &trace.IOError{Op: "peek", Path: path, Err: trace.ErrNoLastRecord}
	}
	fmt.Fprintf(w, "Duration: %.6f s\n", last.Transmit-first.Transmit)
	fmt.Fprintf(w, "First: tx=%.9f rx=%.9f latency=%.3f µs\n", first.Transmit, first.Arrival, first.LatencyUs())
	fmt.Fprintf(w, "Last:  tx=%.9f rx=%.9f latency=%.3f µs\n", last.Transmit, last.Arrival, last.LatencyUs())
	if err := s.Reset(); err != nil {
		return err
	}

	if head > 0 {
		fmt.Fprintln(w, "#  rel_tx_s  latency_us")
		for i := 0; i < head; i++ {
			r, ok := s.Next()
			if !ok {
				break
			}
			fmt.Fprintf(w, "%d  %.6f  %.3f\n", i, r.Transmit-first.Transmit, r.LatencyUs())
		}
		if err := s.Err(); err != nil {
			return err
		}
	}
	if !scan {
		return nil
	}
	if err := s.Reset(); err != nil {
		return err
	}
	t := stats.NewTally()
	for {
		r, ok := s.Next()
		if !ok {
			break
		}
		t.Add(r.LatencyUs())
	}
	if err := s.Err(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Latency (min/avg/max): %.3f/%.3f/%.3f µs, stddev %.3f µs\n", t.Min, t.Mean(), t.Max, t.StdDev())
	return nil
}
