package trace

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
)

// RunInfo describes a test run as encoded in the batch file name
// <test>-d<seconds>-l<pps>-<run>.data.
type RunInfo struct {
	Test      string `json:"test"`
	DurationS int    `json:"duration_s"`
	PPS       int    `json:"pps"`
	Run       int    `json:"run"`
}

var runNameRe = regexp.MustCompile(`^(.+)-d(\d+)-l(\d+)-(\d+)\.data$`)

// ParseRunName extracts the run parameters from a batch file name. It reports
// false for names that do not follow the batch naming scheme.
func ParseRunName(path string) (RunInfo, bool) {
	m := runNameRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return RunInfo{}, false
	}
	d, err1 := strconv.Atoi(m[2])
	pps, err2 := strconv.Atoi(m[3])
	run, err3 := strconv.Atoi(m[4])
	if err1 != nil || err2 != nil || err3 != nil {
		return RunInfo{}, false
	}
	return RunInfo{Test: m[1], DurationS: d, PPS: pps, Run: run}, true
}

// ExpectedPackets is the number of latency packets the generator should have
// sent over duration seconds.
func (ri RunInfo) ExpectedPackets(duration float64) float64 {
	return float64(ri.PPS) * duration
}

// FileName is the batch file name for the run, the inverse of ParseRunName.
func (ri RunInfo) FileName() string {
	return fmt.Sprintf("%s-d%d-l%d-%d.data", ri.Test, ri.DurationS, ri.PPS, ri.Run)
}
