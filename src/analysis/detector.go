package analysis

import (
	"github.com/KHTangent/thesis-subprojects/src/stats"
)

// Anomaly is a closed run of consecutive samples at or above the threshold.
type Anomaly struct {
	// Timestamp is the transmit time of the first sample of the run, in
	// seconds since the first record of the trace.
	Timestamp float64
	Tally     stats.Tally
}

// Packets is the run length.
func (a Anomaly) Packets() int { return a.Tally.Count }

// Min is the lowest latency of the run in µs.
func (a Anomaly) Min() float64 { return a.Tally.Min }

// Avg is the mean latency of the run in µs.
func (a Anomaly) Avg() float64 { return a.Tally.Mean() }

// Max is the peak latency of the run in µs.
func (a Anomaly) Max() float64 { return a.Tally.Max }

// Summary aggregates the emitted anomalies: one value per anomaly, not per
// sample.
type Summary struct {
	Packets    stats.Tally
	AvgLatency stats.Tally
	MaxLatency stats.Tally
}

func newSummary() Summary {
	return Summary{Packets: stats.NewTally(), AvgLatency: stats.NewTally(), MaxLatency: stats.NewTally()}
}

type sample struct {
	ts      float64
	latency float64
}

// Detector finds anomalies in a latency sample sequence. It is idle until a
// sample reaches the threshold, then buffers the run until a sample drops
// below it. Runs shorter than MinPackets are discarded.
type Detector struct {
	Threshold  float64
	MinPackets int
	// CloseOpenRun makes Finish treat end of input as the end of a run. By
	// default a run still open at the end is dropped.
	CloseOpenRun bool

	run       []sample
	total     stats.Tally
	anomalies []Anomaly
	summary   Summary
}

// NewDetector returns a detector for latencies >= threshold (µs) lasting at
// least minPackets samples.
func NewDetector(threshold float64, minPackets int) *Detector {
	if minPackets < 1 {
		minPackets = 1
	}
	return &Detector{
		Threshold:  threshold,
		MinPackets: minPackets,
		total:      stats.NewTally(),
		summary:    newSummary(),
	}
}

// InRun reports whether a candidate run is being buffered.
func (d *Detector) InRun() bool { return len(d.run) > 0 }

// Observe feeds one sample: ts is its relative transmit time in seconds and
// latency its latency in microseconds.
func (d *Detector) Observe(ts, latency float64) {
	d.total.Add(latency)
	if latency >= d.Threshold {
		d.run = append(d.run, sample{ts: ts, latency: latency})
		return
	}
	if len(d.run) == 0 {
		return
	}
	d.closeRun()
}

// Finish ends the input. An open run is dropped unless CloseOpenRun is set.
func (d *Detector) Finish() {
	if len(d.run) == 0 {
		return
	}
	if d.CloseOpenRun {
		d.closeRun()
		return
	}
	d.run = d.run[:0]
}

func (d *Detector) closeRun() {
	defer func() { d.run = d.run[:0] }()
	if len(d.run) < d.MinPackets {
		return
	}
	t := stats.NewTally()
	for _, s := range d.run {
		t.Add(s.latency)
	}
	d.summary.Packets.Add(float64(t.Count))
	d.summary.AvgLatency.Add(t.Mean())
	d.summary.MaxLatency.Add(t.Max)
	d.anomalies = append(d.anomalies, Anomaly{Timestamp: d.run[0].ts, Tally: t})
}

// Total is the tally over every observed sample.
func (d *Detector) Total() stats.Tally { return d.total }

// Anomalies returns the anomalies emitted so far, in input order.
func (d *Detector) Anomalies() []Anomaly { return d.anomalies }

// Summary returns the per-anomaly summary tallies.
func (d *Detector) Summary() Summary { return d.summary }

// AdaptiveThreshold is mean raised by deviationPct percent.
func AdaptiveThreshold(mean, deviationPct float64) float64 {
	return mean * (1 + deviationPct/100)
}
