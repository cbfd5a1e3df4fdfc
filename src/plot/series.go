package plot

import (
	"errors"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/KHTangent/thesis-subprojects/src/analysis"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("plot: no samples to draw")

// pointsPerPixel bounds how many samples are drawn per horizontal pixel.
const pointsPerPixel = 2

// RenderSeries draws every packet of s as a point: transmit time on x,
// latency or jitter on y. Long traces are decimated to the per-column minimum
// and maximum so spikes survive.
func RenderSeries(s *analysis.Series, sz Size) (image.Image, error) {
	if s == nil || s.Len() == 0 {
		return nil, ErrNoData
	}
	sz = sz.orDefault()
	xs, ys := decimate(s.X, s.Y, sz.Width*pointsPerPixel/2)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range ys {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	xr, xt := axis(math.Round(s.X[0])-1, math.Round(s.X[len(s.X)-1])+1, 10)
	lo, hi = padRange(lo, hi)
	yr, yt := axis(lo, hi, 8)

	ch := baseChart(sz, s.Mode.Title(), "Transmit time (s)", s.Mode.Unit(), xr, yr, xt, yt)
	ch.Series = []chart.Series{chart.ContinuousSeries{
		Name:    s.Mode.String(),
		XValues: xs,
		YValues: ys,
		Style:   pointStyle(colorSample, math.Max(1, sz.scale(2))),
	}}
	img, err := render(ch)
	if err != nil {
		return nil, err
	}
	return Caption(img, SeriesCaption(s)), nil
}

// SeriesCaption summarizes the plotted values in a few short lines.
func SeriesCaption(s *analysis.Series) string {
	if s == nil || s.Len() == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d packets over %.3f s", filepath.Base(s.Path), s.Len(), s.X[len(s.X)-1]-s.X[0])
	if s.Cut > 0 {
		fmt.Fprintf(&b, " (cut %.3g s)", s.Cut)
	}
	b.WriteByte('\n')
	v := s.Values
	if !v.Empty() {
		fmt.Fprintf(&b, "%s min/avg/max %.3f/%.3f/%.3f, stddev %.3f µs\n", s.Mode, v.Min, v.Mean(), v.Max, v.StdDev())
	}
	for i, p := range s.Percentiles {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "p%g %.3f", p.P, p.Value)
	}
	return b.String()
}

// decimate reduces x/y to at most 2*buckets points, keeping the smallest and
// largest y of each x bucket in their original order.
func decimate(x, y []float64, buckets int) ([]float64, []float64) {
	n := len(x)
	if buckets < 1 || n <= 2*buckets {
		return x, y
	}
	x0, x1 := x[0], x[n-1]
	span := x1 - x0
	if span <= 0 {
		span = 1
	}
	minIdx := make([]int, buckets)
	maxIdx := make([]int, buckets)
	for i := range minIdx {
		minIdx[i], maxIdx[i] = -1, -1
	}
	for i := 0; i < n; i++ {
		b := int(float64(buckets) * (x[i] - x0) / span)
		if b < 0 {
			b = 0
		} else if b >= buckets {
			b = buckets - 1
		}
		if minIdx[b] < 0 || y[i] < y[minIdx[b]] {
			minIdx[b] = i
		}
		if maxIdx[b] < 0 || y[i] > y[maxIdx[b]] {
			maxIdx[b] = i
		}
	}
	ox := make([]float64, 0, 2*buckets)
	oy := make([]float64, 0, 2*buckets)
	for b := 0; b < buckets; b++ {
		lo, hi := minIdx[b], maxIdx[b]
		if lo < 0 {
			continue
		}
		if hi < lo {
			lo, hi = hi, lo
		}
		ox, oy = append(ox, x[lo]), append(oy, y[lo])
		if hi != lo {
			ox, oy = append(ox, x[hi]), append(oy, y[hi])
		}
	}
	return ox, oy
}
