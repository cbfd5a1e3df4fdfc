package main

import (
	"errors"
	"image"
	_ "image/png" // register PNG decoder
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fyne.io/fyne/v2/test"

	"github.com/KHTangent/thesis-subprojects/src/analysis"
	"github.com/KHTangent/thesis-subprojects/src/trace"
)

// writeTrace writes 600 packets at 100 pps with one 4 packet spike at 3 s.
func writeTrace(t *testing.T) string {
	t.Helper()
	recs := make([]trace.Record, 600)
	for i := range recs {
		tx := 7 + float64(i)*0.01
		lat := 50e-6 + float64(i%3)*1e-6
		if i >= 300 && i < 304 {
			lat = 2e-3
		}
		recs[i] = trace.Record{Transmit: tx, Arrival: tx + lat}
	}
	path := filepath.Join(t.TempDir(), "rt-stock-d6-l100-1.data")
	if err := trace.WriteFile(path, recs); err != nil {
		t.Fatalf("write trace: %v", err)
	}
	return path
}

func decodeSize(t *testing.T, path string) image.Point {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return image.Pt(cfg.Width, cfg.Height)
}

func TestScreenshotsWriteAllCharts(t *testing.T) {
	out := t.TempDir()
	if err := RunScreenshotsMode(writeTrace(t), out, analysis.DefaultOptions(), 1200); err != nil {
		t.Fatalf("screenshots: %v", err)
	}
	for _, name := range []string{"latency.png", "jitter.png", "anomalies.png"} {
		if sz := decodeSize(t, filepath.Join(out, name)); sz != image.Pt(1200, 800) {
			t.Fatalf("%s: expected 1200x800, got %v", name, sz)
		}
	}
	b, err := os.ReadFile(filepath.Join(out, "summary.txt"))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if !strings.Contains(string(b), "Total anomalies: 1") || !strings.Contains(string(b), "3.000:      4 packets") {
		t.Fatalf("unexpected summary:\n%s", b)
	}
}

func TestScreenshotsClampNarrowWidth(t *testing.T) {
	out := t.TempDir()
	if err := RunScreenshotsMode(writeTrace(t), out, analysis.DefaultOptions(), 300); err != nil {
		t.Fatalf("screenshots: %v", err)
	}
	if sz := decodeSize(t, filepath.Join(out, "latency.png")); sz.X != 800 {
		t.Fatalf("expected width clamped to 800, got %v", sz)
	}
}

func TestScreenshotsMissingFile(t *testing.T) {
	err := RunScreenshotsMode(filepath.Join(t.TempDir(), "none.data"), t.TempDir(), analysis.DefaultOptions(), 800)
	if err == nil {
		t.Fatalf("expected error for missing trace")
	}
}

func TestScreenshotsRejectNegativeCut(t *testing.T) {
	def := analysis.DefaultOptions()
	opts := viewerOptions(def, map[string]bool{"cut": true}, -5, def.ThresholdUs, 0, def.MinPackets)
	if opts.Cut == nil || *opts.Cut != -5 {
		t.Fatalf("negative cut must be passed through, got %v", opts.Cut)
	}
	out := filepath.Join(t.TempDir(), "shots")
	err := RunScreenshotsMode(writeTrace(t), out, opts, 800)
	var cfgErr *analysis.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "cut" {
		t.Fatalf("expected cut ConfigError, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("output dir must not be created on a config error: %v", err)
	}
}

func TestViewerOptionsOnlyAppliesSetFlags(t *testing.T) {
	def := analysis.DefaultOptions()
	opts := viewerOptions(def, map[string]bool{}, -5, 1, -10, 0)
	if opts.Cut != nil || opts.DeviationPct != nil || opts.ThresholdUs != def.ThresholdUs || opts.ThresholdSet || opts.MinPackets != def.MinPackets {
		t.Fatalf("unset flags must keep defaults: %+v", opts)
	}
	opts = viewerOptions(def, map[string]bool{"deviation": true, "threshold": true}, 0, 300, -10, 2)
	if err := opts.Validate(); err == nil {
		t.Fatalf("threshold together with deviation must be rejected")
	}
}

func TestAdoptKeepsModeChangedDuringLoad(t *testing.T) {
	rep := &analysis.Report{}
	current := traceView{filePath: "a.data", mode: analysis.SeriesJitter}
	done := traceView{filePath: "a.data", mode: analysis.SeriesLatency, report: rep,
		series: &analysis.Series{Mode: analysis.SeriesLatency}}
	if got := current.adopt(done); got != needSeries {
		t.Fatalf("expected a series reload, got %v", got)
	}
	if current.mode != analysis.SeriesJitter || current.report != rep || current.series != nil {
		t.Fatalf("unexpected view after adopt: mode=%v report=%v series=%v", current.mode, current.report, current.series)
	}
	done = traceView{filePath: "a.data", mode: analysis.SeriesJitter, series: &analysis.Series{Mode: analysis.SeriesJitter}}
	if got := current.adopt(done); got != upToDate || current.series != done.series {
		t.Fatalf("expected jitter series to be taken, got %v", got)
	}
}

func TestAdoptDiscardsStaleResults(t *testing.T) {
	current := traceView{filePath: "b.data", opts: analysis.DefaultOptions()}
	done := traceView{filePath: "a.data", opts: analysis.DefaultOptions(), report: &analysis.Report{}}
	if got := current.adopt(done); got != needLoad || current.report != nil {
		t.Fatalf("results for another file must be discarded, got %v", got)
	}
	current = traceView{filePath: "a.data", opts: analysis.DefaultOptions()}
	current.opts.Cut = analysis.Float(1)
	done.opts.Cut = analysis.Float(2)
	if got := current.adopt(done); got != needLoad {
		t.Fatalf("results for other options must be discarded, got %v", got)
	}
	done.opts.Cut = analysis.Float(1)
	if !sameOptions(current.opts, done.opts) {
		t.Fatalf("equal cut values behind different pointers should compare equal")
	}
}

func TestChartsWithoutTrace(t *testing.T) {
	v := &traceView{}
	if err := v.load(); err == nil {
		t.Fatalf("expected error without a file")
	}
	for _, img := range []image.Image{renderPacketsChart(v, 400, 300), renderAnomalyChart(v, 400, 300)} {
		if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 300 {
			t.Fatalf("placeholder has wrong size %v", img.Bounds())
		}
	}
	if summaryText(v) != "No trace loaded." {
		t.Fatalf("unexpected summary %q", summaryText(v))
	}
}

func TestRecentFiles(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()
	state := &uiState{app: a}
	dir := t.TempDir()
	var paths []string
	for i := 0; i < maxRecentFiles+2; i++ {
		p := filepath.Join(dir, "t"+string(rune('a'+i))+".data")
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
		addRecentFile(state, p)
	}
	got := recentFiles(state)
	if len(got) != maxRecentFiles || got[0] != paths[len(paths)-1] {
		t.Fatalf("unexpected recent list %v", got)
	}
	// Re-adding moves a file to the front without duplicating it.
	addRecentFile(state, got[3])
	again := recentFiles(state)
	if again[0] != got[3] || len(again) != maxRecentFiles {
		t.Fatalf("unexpected reordered list %v", again)
	}
	// Files that disappeared are skipped.
	os.Remove(again[1])
	if l := recentFiles(state); len(l) != maxRecentFiles-1 {
		t.Fatalf("expected removed file to be skipped, got %d", len(l))
	}
	clearRecentFiles(state)
	if recentFiles(state) != nil {
		t.Fatalf("expected cleared list")
	}
}
