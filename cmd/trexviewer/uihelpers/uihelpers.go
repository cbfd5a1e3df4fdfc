package uihelpers

import (
	"path/filepath"
	"strconv"
	"strings"
)

// ComputeChartDimensions applies width/height clamp rules used for charts.
// Input: desired raw width (e.g., canvas width). Returns clamped width and a
// height at the 3:2 aspect of the exported figures.
func ComputeChartDimensions(rawW int) (int, int) {
	w := rawW
	if w < 800 {
		w = 800
	}
	if w > 2400 {
		w = 2400
	}
	h := w * 2 / 3
	if h < 360 {
		h = 360
	}
	return w, h
}

// TruncatePath shortens p to about n characters, always keeping the file name.
func TruncatePath(p string, n int) string {
	if len(p) <= n {
		return p
	}
	base := filepath.Base(p)
	if len(base)+4 >= n {
		return "..." + base
	}
	dir := filepath.Dir(p)
	left := n - len(base) - 4
	if len(dir) > left {
		dir = dir[:left]
	}
	return dir + "/..." + base
}

// ParseOptionalFloat reads a numeric entry field. An empty field is nil.
func ParseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
