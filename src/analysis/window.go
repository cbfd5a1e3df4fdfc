package analysis

import "math"

// Window is the half-open record index range [Start, End) left after trimming.
// End may be below Start when the cut exceeds half the trace; such a window is
// empty.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len is the number of records in the window, never negative.
func (w Window) Len() int {
	if w.End <= w.Start {
		return 0
	}
	return w.End - w.Start
}

// Empty reports whether the window holds no records.
func (w Window) Empty() bool { return w.Len() == 0 }

// TrimWindow converts a cut of cutSeconds from each end of the trace into
// record index bounds. A nil cut keeps [0, totalRecords).
//
// The conversion is linear: it assumes packets are spread evenly over the
// test, so start = floor(totalRecords * cut / duration). It is not a time
// lookup. A trace with no measurable duration loses every record to any
// positive cut.
func TrimWindow(totalDuration float64, totalRecords int, cut *float64) (Window, error) {
	if err := validateCut(cut); err != nil {
		return Window{}, err
	}
	if totalRecords < 0 {
		totalRecords = 0
	}
	if cut == nil || *cut == 0 {
		return Window{Start: 0, End: totalRecords}, nil
	}
	start := totalRecords
	if totalDuration > 0 {
		f := math.Floor(float64(totalRecords) * *cut / totalDuration)
		if f < float64(totalRecords) {
			start = int(f)
		}
	}
	return Window{Start: start, End: totalRecords - start}, nil
}
