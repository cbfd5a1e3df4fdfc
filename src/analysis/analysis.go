// Package analysis turns a latency trace into statistics and anomaly reports.
//
// Validate makes up to three sequential passes over a trace without holding
// it in memory:
//  1. bounds: first record, last record (peeked) and the trimmed window;
//  2. optional threshold pass: mean latency over the window, on a second,
//     independently opened stream, when an adaptive threshold is requested;
//  3. detection pass: global tally plus anomaly runs over the window.
//
// LoadSeries is the plotting counterpart: it materializes the (trimmed)
// sample array so a renderer can draw every packet.
package analysis

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/KHTangent/thesis-subprojects/src/logging"
	"github.com/KHTangent/thesis-subprojects/src/stats"
	"github.com/KHTangent/thesis-subprojects/src/trace"
)

// progressEvery is how many records pass between progress checks.
const progressEvery = 1 << 16

// ProgressInterval throttles the progress log lines of long passes.
var ProgressInterval = 5 * time.Second

// bounds is what the first pass learns about a trace.
type bounds struct {
	origin   float64 // transmit time of the first record
	duration float64
	total    int
}

// measure reads the first record and peeks the last, then rewinds s. ok is
// false for a trace without any complete record.
func measure(s *trace.Stream) (b bounds, ok bool, err error) {
	b.total = s.TotalRecords()
	first, ok := s.Next()
	if !ok {
		return b, false, s.Err()
	}
	last, ok := s.PeekLast()
	if !ok {
		return b, false, &trace.IOError{Op: "peek", Path: s.Path(), Err: trace.ErrNoLastRecord}
	}
	if err := s.Reset(); err != nil {
		return b, false, err
	}
	b.origin = first.Transmit
	b.duration = last.Transmit - first.Transmit
	return b, true, nil
}

// scanWindow skips to w.Start and hands every record of the window to fn.
func scanWindow(s *trace.Stream, w Window, label string, fn func(trace.Record)) error {
	if w.Empty() {
		return nil
	}
	if skipped := s.Skip(w.Start); skipped != w.Start {
		if err := s.Err(); err != nil {
			return err
		}
		logging.Warnf("[%s] %s: only %d of %d leading records could be skipped", label, s.Path(), skipped, w.Start)
	}
	progress := rate.Sometimes{Interval: ProgressInterval}
	n := w.Len()
	for i := 0; i < n; i++ {
		r, ok := s.Next()
		if !ok {
			if err := s.Err(); err != nil {
				return err
			}
			logging.Warnf("[%s] %s: stream ended after %d of %d window records", label, s.Path(), i, n)
			return nil
		}
		fn(r)
		if i%progressEvery == 0 && i > 0 {
			progress.Do(func() {
				logging.Infof("[%s] %d/%d records (%.1f%%)", label, i, n, 100*float64(i)/float64(n))
			})
		}
	}
	return nil
}

// windowMean is the adaptive-threshold pre-pass. It opens its own stream so
// the caller's stream position is untouched.
func windowMean(path string, w Window) (float64, error) {
	defer logging.TimeTrack(time.Now(), "threshold pass")
	s, err := trace.Open(path)
	if err != nil {
		return 0, err
	}
	defer s.Close()
	t := stats.NewTally()
	if err := scanWindow(s, w, "threshold", func(r trace.Record) { t.Add(r.LatencyUs()) }); err != nil {
		return 0, err
	}
	return t.Mean(), nil
}

// Validate runs the anomaly analysis of the trace at path.
//
// Configuration problems are reported as *ConfigError before the file is
// opened; file problems as *trace.IOError. A trace (or window) without
// records yields a report with a zero count and NaN means, not an error; see
// Report.Err.
func Validate(path string, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	defer logging.TimeTrack(time.Now(), "validate "+path)
	s, err := trace.Open(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	in := ReportInput{
		Path:         path,
		TotalRecords: s.TotalRecords(),
		ThresholdUs:  opts.ThresholdUs,
		MinPackets:   opts.MinPackets,
		Total:        stats.NewTally(),
		Summary:      newSummary(),
	}
	if opts.Cut != nil {
		in.Cut = *opts.Cut
	}
	if opts.DeviationPct != nil {
		in.Adaptive = true
		in.DeviationPct = *opts.DeviationPct
	}

	b, ok, err := measure(s)
	if err != nil {
		return nil, err
	}
	if !ok {
		logging.Warnf("[validate] %s holds no complete record", path)
		return Assemble(in), nil
	}
	in.TraceDuration = b.duration
	logging.Debugf("[validate] %s: %d records over %.3f s", path, b.total, b.duration)

	win, err := TrimWindow(b.duration, b.total, opts.Cut)
	if err != nil {
		return nil, err
	}
	in.Window = win
	if win.Empty() {
		logging.Warnf("[validate] cut of %v s leaves no records of %s", in.Cut, path)
		if in.Adaptive {
			in.ThresholdUs = AdaptiveThreshold(in.Total.Mean(), in.DeviationPct)
		}
		return Assemble(in), nil
	}

	if in.Adaptive {
		mean, err := windowMean(path, win)
		if err != nil {
			return nil, fmt.Errorf("adaptive threshold: %w", err)
		}
		in.ThresholdUs = AdaptiveThreshold(mean, in.DeviationPct)
		logging.Debugf("[validate] mean %.3f us, threshold %.3f us (+%v%%)", mean, in.ThresholdUs, in.DeviationPct)
	}

	det := NewDetector(in.ThresholdUs, opts.MinPackets)
	det.CloseOpenRun = opts.CloseOpenRun
	start := time.Now()
	err = scanWindow(s, win, "detect", func(r trace.Record) {
		det.Observe(r.Transmit-b.origin, r.LatencyUs())
	})
	if err != nil {
		return nil, err
	}
	det.Finish()
	logging.TimeTrack(start, "detection pass")

	in.Total = det.Total()
	in.Anomalies = det.Anomalies()
	in.Summary = det.Summary()
	return Assemble(in), nil
}
