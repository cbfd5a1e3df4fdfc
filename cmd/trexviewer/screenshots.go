package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/KHTangent/thesis-subprojects/cmd/trexviewer/uihelpers"
	"github.com/KHTangent/thesis-subprojects/src/analysis"
	"github.com/KHTangent/thesis-subprojects/src/plot"
)

// RunScreenshotsMode renders the viewer charts for filePath and writes them as
// PNGs under outDir, together with the text summary. It runs headlessly
// without creating a UI window. Options are checked before anything is
// read or written.
func RunScreenshotsMode(filePath, outDir string, opts analysis.Options, width int) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}
	w, h := uihelpers.ComputeChartDimensions(width)

	v := &traceView{filePath: filePath, mode: analysis.SeriesLatency, opts: opts}
	if err := v.load(); err != nil {
		return err
	}
	latency := renderPacketsChart(v, w, h)
	anomalies := renderAnomalyChart(v, w, h)
	summary := summaryText(v)

	v.mode = analysis.SeriesJitter
	if err := v.loadSeries(); err != nil {
		return err
	}
	toRender := []struct {
		name string
		img  image.Image
	}{
		{"latency.png", latency},
		{"jitter.png", renderPacketsChart(v, w, h)},
		{"anomalies.png", anomalies},
	}
	for _, item := range toRender {
		if err := plot.WritePNG(filepath.Join(outDir, item.name), item.img); err != nil {
			return err
		}
	}
	outPath := filepath.Join(outDir, "summary.txt")
	if err := os.WriteFile(outPath, []byte(summary), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	return nil
}
