package plot

import (
	"fmt"
	"image"
	"math"
	"math/rand"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KHTangent/thesis-subprojects/src/analysis"
)

// AnomalyColor returns the marker color of the anomaly starting at ts. The
// color is derived from the bits of ts, so a given anomaly keeps its color
// across renders.
func AnomalyColor(ts float64) drawing.Color {
	rng := rand.New(rand.NewSource(int64(math.Float64bits(ts))))
	return drawing.Color{
		R: uint8(rng.Intn(255)),
		G: uint8(rng.Intn(255)),
		B: uint8(rng.Intn(255)),
		A: 255,
	}
}

// markerPath is the glyph drawn for one anomaly: a vertical line from min to
// max with short horizontal ticks at min, avg and max. w is half a tick.
func markerPath(a analysis.Anomaly, w float64) ([]float64, []float64) {
	ts, mn, avg, mx := a.Timestamp, a.Min(), a.Avg(), a.Max()
	xs := []float64{ts - w, ts + w, ts, ts, ts - w, ts + w, ts, ts, ts - w, ts + w}
	ys := []float64{mn, mn, mn, avg, avg, avg, avg, mx, mx, mx}
	return xs, ys
}

// RenderAnomalies draws the average latency and threshold of rep as
// horizontal lines across the analyzed window, plus one min/avg/max marker
// per anomaly.
func RenderAnomalies(rep *analysis.Report, sz Size) (image.Image, error) {
	if rep == nil || rep.Total.Empty() {
		return nil, ErrNoData
	}
	sz = sz.orDefault()
	start, end := rep.WindowStart(), rep.WindowEnd()
	x0, x1 := math.Floor(start), math.Ceil(end)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	xr, xt := axis(x0, x1, 10)
	avg := rep.AverageLatency()
	lo, hi := fitReferences(rep.Total.Min, rep.Total.Max, avg, rep.ThresholdUs)
	lo, hi = padRange(lo, hi)
	yr, yt := axis(lo, hi, 8)

	ch := baseChart(sz, "Anomaly plot", "Transmit time (s)", "Latency (µs)", xr, yr, xt, yt)
	label := chart.Style{
		FontColor:   colorForeground,
		FontSize:    sz.scale(16),
		FillColor:   colorBackground,
		StrokeColor: colorReference,
	}
	ref := lineStyle(colorReference, math.Max(1, sz.scale(3)))
	var labels []chart.Value2
	// Reference lines outside the y range are left out; the caption still
	// carries their values.
	for _, l := range []struct {
		name, text string
		y          float64
	}{
		{"average", "Average latency", avg},
		{"threshold", "Anomaly threshold", rep.ThresholdUs},
	} {
		if !inRange(yr, l.y) {
			continue
		}
		ch.Series = append(ch.Series, chart.ContinuousSeries{Name: l.name, XValues: []float64{start, end}, YValues: []float64{l.y, l.y}, Style: ref})
		labels = append(labels, chart.Value2{XValue: start, YValue: l.y, Label: l.text, Style: label})
	}

	w := (x1 - x0) * 0.002
	for _, a := range rep.Anomalies {
		xs, ys := markerPath(a, w)
		ch.Series = append(ch.Series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("anomaly %.3f", a.Timestamp),
			XValues: xs,
			YValues: ys,
			Style:   lineStyle(AnomalyColor(a.Timestamp), math.Max(1, sz.scale(2))),
		})
	}

	if len(labels) > 0 {
		ch.Series = append(ch.Series, chart.AnnotationSeries{Name: "labels", Annotations: labels})
	}

	img, err := render(ch)
	if err != nil {
		return nil, err
	}
	return Caption(img, AnomalyCaption(rep)), nil
}

// AnomalyCaption is the one-line summary printed under the anomaly plot.
func AnomalyCaption(rep *analysis.Report) string {
	mode := "fixed"
	if rep.Adaptive {
		mode = fmt.Sprintf("mean +%g%%", rep.DeviationPct)
	}
	return fmt.Sprintf("%d anomalies (n >= %d) over %.3f s, threshold %.3f µs (%s), average %.3f µs",
		len(rep.Anomalies), rep.MinPackets, rep.WindowDuration, rep.ThresholdUs, mode, rep.AverageLatency())
}
