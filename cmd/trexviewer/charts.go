package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/KHTangent/thesis-subprojects/src/analysis"
	"github.com/KHTangent/thesis-subprojects/src/logging"
	"github.com/KHTangent/thesis-subprojects/src/plot"
)

// traceView is what the viewer knows about the loaded trace. It is shared by
// the window and the headless screenshot mode.
type traceView struct {
	filePath string
	mode     analysis.SeriesMode
	opts     analysis.Options

	series *analysis.Series
	report *analysis.Report
}

// load reads the packet series and runs the anomaly analysis for v.filePath.
func (v *traceView) load() error {
	if v.filePath == "" {
		return errors.New("no trace file selected")
	}
	if err := v.loadSeries(); err != nil {
		return err
	}
	rep, err := analysis.Validate(v.filePath, v.opts)
	if err != nil {
		return err
	}
	v.report = rep
	logging.Infof("[viewer] loaded %s: %d packets, %d anomalies", v.filePath, v.series.Len(), len(rep.Anomalies))
	return nil
}

// loadSeries reloads only the packet series, after a plot mode change.
func (v *traceView) loadSeries() error {
	s, err := analysis.LoadSeries(v.filePath, analysis.SeriesOptions{Mode: v.mode, Cut: v.opts.Cut})
	if err != nil {
		return err
	}
	v.series = s
	return nil
}

// followUp is the work still needed after a background load finished.
type followUp int

const (
	upToDate followUp = iota
	needSeries
	needLoad
)

// adopt takes the results of done, a copy of v that was loaded in the
// background, while the user may have changed v in the meantime. Results for
// another file or other options are discarded.
func (v *traceView) adopt(done traceView) followUp {
	if done.filePath != v.filePath || !sameOptions(done.opts, v.opts) {
		return needLoad
	}
	if done.report != nil {
		v.report = done.report
	}
	if done.series != nil && done.mode == v.mode {
		v.series = done.series
	}
	if v.series == nil || v.series.Mode != v.mode {
		return needSeries
	}
	return upToDate
}

func sameOptions(a, b analysis.Options) bool {
	eq := func(x, y *float64) bool {
		if x == nil || y == nil {
			return x == y
		}
		return *x == *y
	}
	a2, b2 := a, b
	a2.Cut, a2.DeviationPct, b2.Cut, b2.DeviationPct = nil, nil, nil, nil
	return a2 == b2 && eq(a.Cut, b.Cut) && eq(a.DeviationPct, b.DeviationPct)
}

// blankWithMessage is the placeholder for a chart that cannot be drawn.
func blankWithMessage(w, h int, msg string) image.Image {
	return plot.Caption(plot.Blank(w, h), msg)
}

func renderPacketsChart(v *traceView, w, h int) image.Image {
	if v.series == nil {
		return blankWithMessage(w, h, "Open a trace file to plot its packets.")
	}
	img, err := plot.RenderSeries(v.series, plot.Size{Width: w, Height: h})
	if err != nil {
		logging.Warnf("[viewer] packets chart: %v", err)
		return blankWithMessage(w, h, fmt.Sprintf("Cannot plot packets: %v", err))
	}
	return img
}

func renderAnomalyChart(v *traceView, w, h int) image.Image {
	if v.report == nil {
		return blankWithMessage(w, h, "Open a trace file to search it for anomalies.")
	}
	img, err := plot.RenderAnomalies(v.report, plot.Size{Width: w, Height: h})
	if err != nil {
		logging.Warnf("[viewer] anomaly chart: %v", err)
		return blankWithMessage(w, h, fmt.Sprintf("Cannot plot anomalies: %v", err))
	}
	return img
}

// summaryText is the validate summary as the CLI prints it.
func summaryText(v *traceView) string {
	if v.report == nil {
		return "No trace loaded."
	}
	var buf bytes.Buffer
	if err := analysis.WriteSummary(&buf, v.report, v.opts.Decimals, false); err != nil {
		return err.Error()
	}
	return buf.String()
}
