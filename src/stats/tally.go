// Package stats holds the single-pass accumulators used by the analysis passes.
package stats

import "math"

// Tally accumulates count, sum, sum of squares and extremes of a stream of
// values in constant memory. The zero value is not ready for use; start from
// NewTally so Min and Max compare correctly.
type Tally struct {
	Count      int
	Sum        float64
	SumSquares float64
	Min        float64
	Max        float64
}

// NewTally returns an empty tally.
func NewTally() Tally {
	return Tally{Min: math.Inf(1), Max: math.Inf(-1)}
}

// Add records one value.
func (t *Tally) Add(v float64) {
	t.Count++
	t.Sum += v
	t.SumSquares += v * v
	if v < t.Min {
		t.Min = v
	}
	if v > t.Max {
		t.Max = v
	}
}

// Empty reports whether no value has been added.
func (t Tally) Empty() bool { return t.Count == 0 }

// Mean is Sum/Count. An empty tally yields NaN.
func (t Tally) Mean() float64 {
	return t.Sum / float64(t.Count)
}

// StdDev is the population standard deviation sqrt(E[x^2] - E[x]^2) from the
// raw moments. Rounding can push the variance slightly below zero for
// near-constant input; that residue is clamped. An empty tally yields NaN.
func (t Tally) StdDev() float64 {
	if t.Count == 0 {
		return math.NaN()
	}
	m := t.Mean()
	v := t.SumSquares/float64(t.Count) - m*m
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}
