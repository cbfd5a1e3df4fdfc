package analysis

import (
	"errors"
	"fmt"
	"math"
)

// DefaultThresholdUs is the fixed anomaly threshold used when neither a
// threshold nor a deviation is given.
const DefaultThresholdUs = 500.0

// DefaultMinPackets is the shortest run that counts as an anomaly.
const DefaultMinPackets = 2

// DefaultDecimals is the display precision of the text summary.
const DefaultDecimals = 3

// ErrEmptyWindow marks a run whose trimmed window contained no records. It is
// not returned by Validate itself (an empty report is a valid result); callers
// that want to fail on empty input compare against it via Report.Err.
var ErrEmptyWindow = errors.New("analysis: no records in window")

// ConfigError is a rejected option combination, detected before any I/O.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// Options controls a validate run.
type Options struct {
	// Cut is the number of seconds dropped from each end of the trace; nil keeps
	// the whole trace.
	Cut *float64
	// ThresholdUs is the fixed anomaly threshold in microseconds.
	ThresholdUs float64
	// ThresholdSet records that the caller chose ThresholdUs explicitly, which
	// conflicts with DeviationPct.
	ThresholdSet bool
	// DeviationPct switches to an adaptive threshold of mean*(1+d/100) over the
	// window. It costs a second full pass over the file.
	DeviationPct *float64
	// MinPackets is the minimum run length reported as an anomaly.
	MinPackets int
	// CloseOpenRun reports a run that is still above threshold at the end of
	// the window instead of dropping it.
	CloseOpenRun bool
	// Decimals is display precision for the text summary only.
	Decimals int
}

// DefaultOptions mirrors the defaults of the validate command.
func DefaultOptions() Options {
	return Options{
		ThresholdUs: DefaultThresholdUs,
		MinPackets:  DefaultMinPackets,
		Decimals:    DefaultDecimals,
	}
}

// Validate checks option values and combinations.
func (o Options) Validate() error {
	if err := validateCut(o.Cut); err != nil {
		return err
	}
	if o.DeviationPct != nil && o.ThresholdSet {
		return &ConfigError{Field: "threshold", Msg: "threshold and deviation are mutually exclusive"}
	}
	if o.DeviationPct != nil {
		d := *o.DeviationPct
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return &ConfigError{Field: "deviation", Msg: "must be a finite percentage"}
		}
	} else if math.IsNaN(o.ThresholdUs) || math.IsInf(o.ThresholdUs, 0) {
		return &ConfigError{Field: "threshold", Msg: fmt.Sprintf("must be a finite number of µs, got %v", o.ThresholdUs)}
	}
	if o.MinPackets < 1 {
		return &ConfigError{Field: "n-packets", Msg: fmt.Sprintf("must be at least 1, got %d", o.MinPackets)}
	}
	if o.Decimals < 0 || o.Decimals > 17 {
		return &ConfigError{Field: "decimals", Msg: fmt.Sprintf("must be within 0..17, got %d", o.Decimals)}
	}
	return nil
}

func validateCut(cut *float64) error {
	if cut == nil {
		return nil
	}
	if math.IsNaN(*cut) || *cut < 0 {
		return &ConfigError{Field: "cut", Msg: fmt.Sprintf("must be >= 0, got %v", *cut)}
	}
	return nil
}

// Float returns a pointer to v, for the optional fields of Options.
func Float(v float64) *float64 { return &v }
