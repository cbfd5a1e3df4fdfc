package plot

import (
	"math"
	"strconv"

	chart "github.com/wcharczuk/go-chart/v2"
)

// tickMultiples are the mantissas a tick step may have.
var tickMultiples = []float64{1, 2, 2.5, 5, 10}

// tickStep is the smallest 1/2/2.5/5 x 10^k step that splits span into at
// most n-1 intervals, together with the decimals needed to print it.
func tickStep(span float64, n int) (step float64, decimals int) {
	raw := span / float64(n-1)
	exp := math.Floor(math.Log10(raw))
	pow := math.Pow(10, exp)
	step = 10 * pow
	for _, m := range tickMultiples {
		if m*pow >= raw*(1-1e-9) {
			step = m * pow
			break
		}
	}
	decimals = int(-math.Floor(math.Log10(step)))
	if math.Abs(step/math.Pow(10, math.Floor(math.Log10(step)))-2.5) < 1e-9 {
		decimals++
	}
	if decimals < 0 {
		decimals = 0
	}
	return step, decimals
}

// niceTicks covers [min, max] with about n evenly stepped ticks whose first
// and last values lie on or outside the bounds.
func niceTicks(min, max float64, n int) []chart.Tick {
	if n < 2 || math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return nil
	}
	if max <= min {
		max = min + 1
	}
	step, decimals := tickStep(max-min, n)
	first := math.Floor(min / step)
	last := math.Ceil(max / step)
	ticks := make([]chart.Tick, 0, int(last-first)+1)
	for k := first; k <= last; k++ {
		v := k * step
		ticks = append(ticks, chart.Tick{Value: v, Label: formatTick(v, decimals)})
	}
	return ticks
}

func formatTick(v float64, decimals int) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// axis returns a range snapped to the outermost ticks so no tick is clipped.
func axis(min, max float64, n int) (*chart.ContinuousRange, []chart.Tick) {
	ticks := niceTicks(min, max, n)
	if len(ticks) < 2 {
		return &chart.ContinuousRange{Min: min, Max: max}, nil
	}
	return &chart.ContinuousRange{Min: ticks[0].Value, Max: ticks[len(ticks)-1].Value}, ticks
}

// padRange widens [min, max] by 10% of each bound's magnitude, the margin the
// latency figures have always used.
func padRange(min, max float64) (float64, float64) {
	lo := min - 0.1*math.Abs(min)
	hi := max + 0.1*math.Abs(max)
	if hi <= lo {
		lo, hi = lo-1, hi+1
	}
	return lo, hi
}

// maxRefStretch is how many data spans a reference line may widen the
// y range by. Lines further out are left off the chart.
const maxRefStretch = 4.0

// fitReferences widens the data range [lo, hi] to take in the reference
// values that lie close enough to it. Non-finite values are ignored.
func fitReferences(lo, hi float64, refs ...float64) (float64, float64) {
	span := hi - lo
	if span <= 0 {
		span = math.Max(math.Abs(hi), 1)
	}
	for _, v := range refs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < lo && lo-v <= maxRefStretch*span {
			lo = v
		}
		if v > hi && v-hi <= maxRefStretch*span {
			hi = v
		}
	}
	return lo, hi
}

// inRange reports whether v can be drawn inside r.
func inRange(r *chart.ContinuousRange, v float64) bool {
	return !math.IsNaN(v) && v >= r.Min && v <= r.Max
}
