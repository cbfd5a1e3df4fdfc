package analysis

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/KHTangent/thesis-subprojects/src/trace"
)

// writeLatencies writes a trace with one record per latency (µs), interval
// seconds apart, starting at transmit time start. name defaults to trace.data.
func writeLatencies(t *testing.T, name string, start, interval float64, latencies []float64) string {
	t.Helper()
	if name == "" {
		name = "trace.data"
	}
	recs := make([]trace.Record, len(latencies))
	for i, l := range latencies {
		tx := start + float64(i)*interval
		recs[i] = trace.Record{Transmit: tx, Arrival: tx + l/1_000_000.0}
	}
	path := filepath.Join(t.TempDir(), name)
	if err := trace.WriteFile(path, recs); err != nil {
		t.Fatalf("write trace: %v", err)
	}
	return path
}

func fixedOpts(threshold float64, n int) Options {
	o := DefaultOptions()
	o.ThresholdUs = threshold
	o.ThresholdSet = true
	o.MinPackets = n
	return o
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestValidateConcreteCase(t *testing.T) {
	path := writeLatencies(t, "", 0, 0.001, []float64{10, 10, 600, 650, 620, 10, 700, 10})
	rep, err := Validate(path, fixedOpts(500, 2))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if rep.Total.Count != 8 || rep.TotalRecords != 8 {
		t.Fatalf("expected 8 samples, got count=%d records=%d", rep.Total.Count, rep.TotalRecords)
	}
	if len(rep.Anomalies) != 1 {
		t.Fatalf("expected 1 anomaly got %d", len(rep.Anomalies))
	}
	a := rep.Anomalies[0]
	if a.Packets() != 3 || !near(a.Timestamp, 0.002, 1e-12) {
		t.Fatalf("unexpected anomaly %+v", a)
	}
	if !near(a.Min(), 600, 1e-6) || !near(a.Avg(), 623.333, 1e-3) || !near(a.Max(), 650, 1e-6) {
		t.Fatalf("unexpected anomaly stats %v/%v/%v", a.Min(), a.Avg(), a.Max())
	}
	if rep.Summary == nil || rep.Summary.Packets.Count != 1 {
		t.Fatalf("expected anomaly summary with one entry: %+v", rep.Summary)
	}
	if rep.ThresholdUs != 500 || rep.Adaptive {
		t.Fatalf("expected fixed threshold 500, got %v adaptive=%v", rep.ThresholdUs, rep.Adaptive)
	}
	if !near(rep.TraceDuration, 0.007, 1e-12) || rep.Err() != nil {
		t.Fatalf("unexpected duration %v err %v", rep.TraceDuration, rep.Err())
	}
}

func TestValidateAdaptiveThreshold(t *testing.T) {
	lat := make([]float64, 400)
	for i := range lat {
		lat[i] = 80 + float64(i%5)*10 // uniform over 80..120, mean 100
	}
	path := writeLatencies(t, "", 0, 0.0005, lat)
	withDev := func(d float64) *Report {
		o := DefaultOptions()
		o.DeviationPct = Float(d)
		rep, err := Validate(path, o)
		if err != nil {
			t.Fatalf("validate d=%v: %v", d, err)
		}
		return rep
	}
	r50 := withDev(50)
	if !r50.Adaptive || r50.DeviationPct != 50 {
		t.Fatalf("expected adaptive report")
	}
	if !near(r50.ThresholdUs, 1.5*r50.Total.Mean(), 1e-6) || !near(r50.ThresholdUs, 150, 1e-6) {
		t.Fatalf("expected threshold 1.5*mean=150, got %v", r50.ThresholdUs)
	}
	r15 := withDev(15)
	if near(r15.ThresholdUs, r50.ThresholdUs, 1e-9) {
		t.Fatalf("threshold must follow the deviation")
	}
	if r15.Total != r50.Total || r15.TotalRecords != r50.TotalRecords || r15.Window != r50.Window {
		t.Fatalf("deviation must not change the global statistics")
	}
	// 15% above 100 = 115: every 120 sample is a one-packet run.
	if len(r15.Anomalies) != 0 {
		t.Fatalf("expected single-packet runs to be discarded with n=2, got %d", len(r15.Anomalies))
	}
}

func TestValidateAdaptiveUsesWindowMean(t *testing.T) {
	// 1001 records over 10 s; the first and last second run at 1000 µs.
	lat := make([]float64, 1001)
	for i := range lat {
		lat[i] = 100
		if i < 100 || i > 900 {
			lat[i] = 1000
		}
	}
	path := writeLatencies(t, "", 50, 0.01, lat)
	o := DefaultOptions()
	o.DeviationPct = Float(100)
	o.Cut = Float(1.0)
	rep, err := Validate(path, o)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !near(rep.ThresholdUs, 200, 1e-6) {
		t.Fatalf("expected threshold from the trimmed window (200), got %v", rep.ThresholdUs)
	}
	if rep.Total.Max > 100.0001 {
		t.Fatalf("expected warmup/cooldown samples to be cut, max=%v", rep.Total.Max)
	}
	if rep.Window.Start != 100 || rep.Window.End != 901 {
		t.Fatalf("unexpected window %+v", rep.Window)
	}
	if !near(rep.WindowDuration, 8, 1e-9) {
		t.Fatalf("expected window duration 8 s got %v", rep.WindowDuration)
	}
}

func TestValidateTimestampsRelativeToTraceStart(t *testing.T) {
	lat := make([]float64, 200)
	for i := range lat {
		lat[i] = 10
	}
	lat[100], lat[101] = 900, 900
	path := writeLatencies(t, "", 1234.5, 0.01, lat)
	o := fixedOpts(500, 2)
	o.Cut = Float(0.5)
	rep, err := Validate(path, o)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(rep.Anomalies) != 1 || !near(rep.Anomalies[0].Timestamp, 1.0, 1e-9) {
		t.Fatalf("expected anomaly at 1.0 s from trace start: %+v", rep.Anomalies)
	}
}

func TestValidateOpenRunAtEnd(t *testing.T) {
	path := writeLatencies(t, "", 0, 0.001, []float64{10, 10, 800, 800, 800})
	rep, err := Validate(path, fixedOpts(500, 2))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(rep.Anomalies) != 0 || rep.Summary != nil {
		t.Fatalf("expected open run to be dropped")
	}
	o := fixedOpts(500, 2)
	o.CloseOpenRun = true
	rep, err = Validate(path, o)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(rep.Anomalies) != 1 || rep.Anomalies[0].Packets() != 3 {
		t.Fatalf("expected open run reported with CloseOpenRun: %+v", rep.Anomalies)
	}
}

func TestValidateEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.data")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rep, err := Validate(path, DefaultOptions())
	if err != nil {
		t.Fatalf("expected empty report, got error %v", err)
	}
	if rep.Total.Count != 0 || len(rep.Anomalies) != 0 || !math.IsNaN(rep.AverageLatency()) {
		t.Fatalf("unexpected empty report %+v", rep)
	}
	if !errors.Is(rep.Err(), ErrEmptyWindow) {
		t.Fatalf("expected ErrEmptyWindow from report, got %v", rep.Err())
	}
}

func TestValidateCollapsedWindow(t *testing.T) {
	path := writeLatencies(t, "", 0, 0.01, []float64{10, 900, 900, 10, 10})
	o := fixedOpts(500, 2)
	o.Cut = Float(100)
	rep, err := Validate(path, o)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if rep.Total.Count != 0 || !rep.Window.Empty() || rep.WindowDuration != 0 {
		t.Fatalf("expected empty window report: %+v", rep)
	}
}

func TestValidateConfigErrorsBeforeIO(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist.data")
	cases := map[string]Options{}
	o := DefaultOptions()
	o.Cut = Float(-0.5)
	cases["negative cut"] = o
	o = DefaultOptions()
	o.ThresholdSet = true
	o.DeviationPct = Float(20)
	cases["threshold and deviation"] = o
	o = DefaultOptions()
	o.MinPackets = 0
	cases["n packets"] = o
	o = DefaultOptions()
	o.ThresholdUs = math.Inf(1)
	cases["infinite threshold"] = o
	o = DefaultOptions()
	o.ThresholdUs = math.Inf(-1)
	cases["negative infinite threshold"] = o
	for name, opts := range cases {
		_, err := Validate(missing, opts)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("%s: expected ConfigError, got %v", name, err)
		}
	}
}

func TestValidateMissingFile(t *testing.T) {
	_, err := Validate(filepath.Join(t.TempDir(), "nope.data"), DefaultOptions())
	var ioErr *trace.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
}

func TestValidatePacketLossFromRunName(t *testing.T) {
	// 100 pps for ~10 s, but only 900 packets arrived.
	lat := make([]float64, 900)
	for i := range lat {
		lat[i] = 50
	}
	path := writeLatencies(t, "stock-router-d10-l100-3.data", 0, 10.0/899, lat)
	rep, err := Validate(path, DefaultOptions())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if rep.RunInfo == nil || rep.RunInfo.PPS != 100 || rep.RunInfo.Run != 3 {
		t.Fatalf("expected run info from file name: %+v", rep.RunInfo)
	}
	if rep.PacketLoss == nil || !near(*rep.PacketLoss, 0.1, 1e-9) {
		t.Fatalf("expected 10%% packet loss, got %v", rep.PacketLoss)
	}
}

func TestLoadSeriesLatencyAndJitter(t *testing.T) {
	lat := []float64{100, 110, 90, 130, 100}
	path := writeLatencies(t, "", 10, 0.5, lat)
	s, err := LoadSeries(path, SeriesOptions{Mode: SeriesLatency})
	if err != nil {
		t.Fatalf("load series: %v", err)
	}
	if s.Len() != 5 || !near(s.X[4], 2.0, 1e-12) || !near(s.Y[3], 130, 1e-6) {
		t.Fatalf("unexpected latency series X=%v Y=%v", s.X, s.Y)
	}
	if s.Values.Count != 5 || !near(s.Values.Mean(), 106, 1e-6) {
		t.Fatalf("unexpected latency tally %+v", s.Values)
	}
	if len(s.Percentiles) == 0 {
		t.Fatalf("expected percentiles")
	}

	j, err := LoadSeries(path, SeriesOptions{Mode: SeriesJitter})
	if err != nil {
		t.Fatalf("load jitter: %v", err)
	}
	want := []float64{0, 10, -20, 40, -30}
	for i := range want {
		if !near(j.Y[i], want[i], 1e-6) {
			t.Fatalf("jitter[%d]=%v want %v", i, j.Y[i], want[i])
		}
	}
	if j.Values.Count != 4 || !near(j.Values.Min, -30, 1e-6) || !near(j.Values.Max, 40, 1e-6) {
		t.Fatalf("unexpected jitter tally %+v", j.Values)
	}
	if j.Latency != s.Latency {
		t.Fatalf("latency tally must not depend on the plot mode")
	}
}

func TestLoadSeriesCut(t *testing.T) {
	lat := make([]float64, 1000)
	for i := range lat {
		lat[i] = float64(i)
	}
	path := writeLatencies(t, "", 0, 0.01, lat)
	s, err := LoadSeries(path, SeriesOptions{Cut: Float(1)})
	if err != nil {
		t.Fatalf("load series: %v", err)
	}
	if s.Window.Start != 100 || s.Len() != 800 {
		t.Fatalf("expected 800 samples from 100, got start=%d len=%d", s.Window.Start, s.Len())
	}
	if !near(s.X[0], 1.0, 1e-9) {
		t.Fatalf("expected first x at 1 s, got %v", s.X[0])
	}
	if _, err := LoadSeries(path, SeriesOptions{Cut: Float(-1)}); err == nil {
		t.Fatalf("expected negative cut to be rejected")
	}
}

func TestParseSeriesMode(t *testing.T) {
	if m, err := ParseSeriesMode("Jitter"); err != nil || m != SeriesJitter {
		t.Fatalf("expected jitter mode")
	}
	if _, err := ParseSeriesMode("histogram"); err == nil {
		t.Fatalf("expected unknown mode error")
	}
}
