package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/KHTangent/thesis-subprojects/src/logging"
	"github.com/KHTangent/thesis-subprojects/src/stats"
	"github.com/KHTangent/thesis-subprojects/src/trace"
)

// SeriesMode selects what a plotted series shows per packet.
type SeriesMode int

const (
	// SeriesLatency plots the latency of each packet.
	SeriesLatency SeriesMode = iota
	// SeriesJitter plots the latency change from the previous packet.
	SeriesJitter
)

func (m SeriesMode) String() string {
	if m == SeriesJitter {
		return "jitter"
	}
	return "latency"
}

// Title is the chart caption for the mode.
func (m SeriesMode) Title() string {
	if m == SeriesJitter {
		return "Inter-packet times"
	}
	return "Latencies"
}

// Unit is the y axis label for the mode.
func (m SeriesMode) Unit() string {
	if m == SeriesJitter {
		return "Inter-packet time (µs)"
	}
	return "Latency (µs)"
}

// ParseSeriesMode accepts "latency" or "jitter".
func ParseSeriesMode(s string) (SeriesMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "latency", "":
		return SeriesLatency, nil
	case "jitter":
		return SeriesJitter, nil
	}
	return 0, &ConfigError{Field: "plot-mode", Msg: fmt.Sprintf("unknown mode %q (latency|jitter)", s)}
}

// SeriesOptions controls LoadSeries.
type SeriesOptions struct {
	Mode SeriesMode
	Cut  *float64
}

// Series is a per-packet sample array ready for plotting.
type Series struct {
	Path          string
	Mode          SeriesMode
	TraceDuration float64
	Cut           float64
	Window        Window
	// X is the transmit time relative to the first record, Y the plotted value.
	X []float64
	Y []float64
	// Latency is the tally over the latencies of the window.
	Latency stats.Tally
	// Values is the tally over Y. In jitter mode the first sample (always 0)
	// is left out.
	Values      stats.Tally
	Percentiles []stats.Percentile
}

// Len is the number of plotted samples.
func (s *Series) Len() int { return len(s.Y) }

// LoadSeries reads the window of the trace at path into memory.
func LoadSeries(path string, opts SeriesOptions) (*Series, error) {
	if err := validateCut(opts.Cut); err != nil {
		return nil, err
	}
	defer logging.TimeTrack(time.Now(), "load series "+path)
	s, err := trace.Open(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	out := &Series{Path: path, Mode: opts.Mode, Latency: stats.NewTally(), Values: stats.NewTally()}
	if opts.Cut != nil {
		out.Cut = *opts.Cut
	}
	b, ok, err := measure(s)
	if err != nil {
		return nil, err
	}
	if !ok {
		logging.Warnf("[plot] %s holds no complete record", path)
		return out, nil
	}
	out.TraceDuration = b.duration
	win, err := TrimWindow(b.duration, b.total, opts.Cut)
	if err != nil {
		return nil, err
	}
	out.Window = win
	out.X = make([]float64, 0, win.Len())
	out.Y = make([]float64, 0, win.Len())
	err = scanWindow(s, win, "plot", func(r trace.Record) {
		l := r.LatencyUs()
		out.Latency.Add(l)
		out.X = append(out.X, r.Transmit-b.origin)
		out.Y = append(out.Y, l)
	})
	if err != nil {
		return nil, err
	}

	if opts.Mode == SeriesJitter {
		toJitter(out.Y)
		for _, v := range out.Y[min(1, len(out.Y)):] {
			out.Values.Add(v)
		}
	} else {
		out.Values = out.Latency
	}
	if out.Percentiles, err = stats.Percentiles(out.Y); err != nil {
		return nil, err
	}
	return out, nil
}

// toJitter replaces each latency with its difference from the previous one;
// the first element becomes 0.
func toJitter(y []float64) {
	if len(y) == 0 {
		return
	}
	prev := y[0]
	for i := 1; i < len(y); i++ {
		cur := y[i]
		y[i] = cur - prev
		prev = cur
	}
	y[0] = 0
}
