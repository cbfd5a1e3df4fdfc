package analysis

import (
	"github.com/KHTangent/thesis-subprojects/src/stats"
	"github.com/KHTangent/thesis-subprojects/src/trace"
)

// Report is the result of a validate run. It is assembled once and not
// modified afterwards; renderers read it without recomputing anything.
type Report struct {
	Path    string
	RunInfo *trace.RunInfo
	// TotalRecords counts the complete records in the file.
	TotalRecords int
	// TraceDuration is last minus first transmit time, in seconds.
	TraceDuration float64
	// Cut is the seconds trimmed from each end (0 when not trimmed).
	Cut float64
	// WindowDuration is TraceDuration minus both cuts, never negative.
	WindowDuration float64
	Window         Window
	Total          stats.Tally
	ThresholdUs    float64
	Adaptive       bool
	DeviationPct   float64
	MinPackets     int
	Anomalies      []Anomaly
	// Summary is nil when no anomaly was found.
	Summary *Summary
	// PacketLoss is 1 - received/expected when the file name carries the
	// packet rate; nil otherwise.
	PacketLoss *float64
}

// ReportInput carries the pieces a Report is assembled from.
type ReportInput struct {
	Path          string
	TotalRecords  int
	TraceDuration float64
	Cut           float64
	Window        Window
	ThresholdUs   float64
	Adaptive      bool
	DeviationPct  float64
	MinPackets    int
	Total         stats.Tally
	Anomalies     []Anomaly
	Summary       Summary
}

// Assemble builds the immutable report snapshot.
func Assemble(in ReportInput) *Report {
	rep := &Report{
		Path:           in.Path,
		TotalRecords:   in.TotalRecords,
		TraceDuration:  in.TraceDuration,
		Cut:            in.Cut,
		WindowDuration: in.TraceDuration - 2*in.Cut,
		Window:         in.Window,
		Total:          in.Total,
		ThresholdUs:    in.ThresholdUs,
		Adaptive:       in.Adaptive,
		DeviationPct:   in.DeviationPct,
		MinPackets:     in.MinPackets,
		Anomalies:      append([]Anomaly(nil), in.Anomalies...),
	}
	if rep.WindowDuration < 0 {
		rep.WindowDuration = 0
	}
	if len(rep.Anomalies) > 0 {
		s := in.Summary
		rep.Summary = &s
	}
	if ri, ok := trace.ParseRunName(in.Path); ok {
		rep.RunInfo = &ri
		if expected := ri.ExpectedPackets(rep.WindowDuration); expected > 0 {
			loss := 1 - float64(rep.Total.Count)/expected
			rep.PacketLoss = &loss
		}
	}
	return rep
}

// Err returns ErrEmptyWindow when the report covers no samples.
func (r *Report) Err() error {
	if r.Total.Count == 0 {
		return ErrEmptyWindow
	}
	return nil
}

// AverageLatency is the mean latency over the window (NaN when empty).
func (r *Report) AverageLatency() float64 { return r.Total.Mean() }

// WindowStart and WindowEnd are the plotted time range in seconds relative to
// the first record.
func (r *Report) WindowStart() float64 { return r.Cut }
func (r *Report) WindowEnd() float64   { return r.TraceDuration - r.Cut }
