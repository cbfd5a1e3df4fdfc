package stats

import (
	"fmt"

	mstats "github.com/montanaflynn/stats"
)

// Percentile is one named point of a sample distribution.
type Percentile struct {
	P     float64 `json:"p"`
	Value float64 `json:"value"`
}

// DefaultPercentiles are reported for plotted sample sets.
var DefaultPercentiles = []float64{50, 90, 99, 99.9}

// Percentiles computes the requested percentiles (0 < p <= 100) of samples.
// Only for already materialized sample sets; the streaming passes use Tally.
func Percentiles(samples []float64, ps ...float64) ([]Percentile, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	if len(ps) == 0 {
		ps = DefaultPercentiles
	}
	out := make([]Percentile, 0, len(ps))
	for _, p := range ps {
		v, err := mstats.Percentile(samples, p)
		if err != nil {
			return nil, fmt.Errorf("percentile %.1f: %w", p, err)
		}
		out = append(out, Percentile{P: p, Value: v})
	}
	return out, nil
}
