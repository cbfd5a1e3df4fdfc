// trexviewer is a desktop viewer for TRex latency traces: the packet plot,
// the anomaly plot and the validate summary of one trace file side by side.
//
// With -screenshots it renders the same charts headlessly into a directory.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strconv"
	"strings"

	fyne "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/KHTangent/thesis-subprojects/cmd/trexviewer/uihelpers"
	"github.com/KHTangent/thesis-subprojects/src/analysis"
	"github.com/KHTangent/thesis-subprojects/src/logging"
)

type uiState struct {
	app    fyne.App
	window fyne.Window
	view   traceView

	// widgets
	fileLabel      *widget.Label
	statusLabel    *widget.Label
	summaryLabel   *widget.Label
	modeSelect     *widget.Select
	cutEntry       *widget.Entry
	thresholdEntry *widget.Entry
	deviationEntry *widget.Entry
	nPacketsEntry  *widget.Entry
	packetsImg     *canvas.Image
	anomalyImg     *canvas.Image

	loading bool
}

// dark theme wrapper
type darkTheme struct{}

func (d *darkTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}
func (d *darkTheme) Font(style fyne.TextStyle) fyne.Resource { return theme.DefaultTheme().Font(style) }
func (d *darkTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}
func (d *darkTheme) Size(name fyne.ThemeSizeName) float32 { return theme.DefaultTheme().Size(name) }

func main() {
	var fileFlag, shotsDir, modeFlag string
	var width int
	def := analysis.DefaultOptions()
	flag.StringVar(&fileFlag, "file", "", "Path to a TRex timestamp .data file")
	flag.StringVar(&shotsDir, "screenshots", "", "Render charts headlessly into this directory and exit")
	flag.StringVar(&modeFlag, "plot-mode", "latency", "Packet plot (latency|jitter)")
	flag.IntVar(&width, "width", 1600, "Chart width for -screenshots")
	cut := flag.Float64("cut", 0, "Seconds to cut off at each end of the trace")
	threshold := flag.Float64("threshold", def.ThresholdUs, "Anomaly threshold (µs)")
	deviation := flag.Float64("deviation", 0, "Adaptive threshold, percent above the average (unset uses -threshold)")
	nPackets := flag.Int("n-packets", def.MinPackets, "Consecutive packets required for an anomaly")
	logLevel := flag.String("log-level", "info", "Log level (debug|info|warn|error)")
	flag.Parse()
	logging.SetLogLevel(*logLevel)
	if fileFlag == "" && flag.NArg() > 0 {
		fileFlag = flag.Arg(0)
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	opts := viewerOptions(def, set, *cut, *threshold, *deviation, *nPackets)
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	mode, err := analysis.ParseSeriesMode(modeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if shotsDir != "" {
		if err := RunScreenshotsMode(fileFlag, shotsDir, opts, width); err != nil {
			fmt.Fprintf(os.Stderr, "screenshots: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[viewer] screenshots written to %s\n", shotsDir)
		return
	}

	a := app.NewWithID("com.trex.viewer")
	a.Settings().SetTheme(&darkTheme{})
	w := a.NewWindow("TRex Latency Viewer")
	w.Resize(fyne.NewSize(1280, 900))

	state := &uiState{
		app:    a,
		window: w,
		view:   traceView{filePath: fileFlag, mode: mode, opts: opts},
	}
	if state.view.filePath == "" {
		state.view.filePath = a.Preferences().StringWithFallback("lastFile", "")
	}

	state.fileLabel = widget.NewLabel(uihelpers.TruncatePath(state.view.filePath, 60))
	state.statusLabel = widget.NewLabel("")
	state.modeSelect = widget.NewSelect([]string{"Latency", "Jitter"}, nil)
	if mode == analysis.SeriesJitter {
		state.modeSelect.Selected = "Jitter"
	} else {
		state.modeSelect.Selected = "Latency"
	}
	state.cutEntry = numberEntry("cut s", opts.Cut)
	state.thresholdEntry = numberEntry("threshold µs", &opts.ThresholdUs)
	state.deviationEntry = numberEntry("deviation %", opts.DeviationPct)
	n := float64(opts.MinPackets)
	state.nPacketsEntry = numberEntry("n", &n)

	openBtn := widget.NewButton("Open…", func() { openFileDialog(state) })
	analyzeBtn := widget.NewButton("Analyze", func() {
		if err := applyOptions(state); err != nil {
			dialog.ShowError(err, state.window)
			return
		}
		loadAll(state)
	})
	top := container.NewHBox(
		openBtn, state.fileLabel,
		widget.NewLabel("Plot:"), state.modeSelect,
		widget.NewLabel("Cut:"), state.cutEntry,
		widget.NewLabel("Threshold:"), state.thresholdEntry,
		widget.NewLabel("Deviation:"), state.deviationEntry,
		widget.NewLabel("N:"), state.nPacketsEntry,
		analyzeBtn, state.statusLabel,
	)

	state.packetsImg = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 100, 60)))
	state.packetsImg.FillMode = canvas.ImageFillContain
	state.anomalyImg = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 100, 60)))
	state.anomalyImg.FillMode = canvas.ImageFillContain
	state.summaryLabel = widget.NewLabelWithStyle(summaryText(&state.view), fyne.TextAlignLeading, fyne.TextStyle{Monospace: true})

	tabs := container.NewAppTabs(
		container.NewTabItem("Packets", container.NewScroll(state.packetsImg)),
		container.NewTabItem("Anomalies", container.NewScroll(state.anomalyImg)),
		container.NewTabItem("Summary", container.NewVScroll(state.summaryLabel)),
	)
	tabs.OnSelected = func(ti *container.TabItem) {
		a.Preferences().SetInt("selectedTabIndex", tabs.SelectedIndex())
	}
	if idx := a.Preferences().IntWithFallback("selectedTabIndex", 0); idx >= 0 && idx < len(tabs.Items) {
		tabs.SelectIndex(idx)
	}
	w.SetContent(container.NewBorder(top, nil, nil, nil, tabs))

	state.modeSelect.OnChanged = func(v string) {
		if strings.EqualFold(v, "jitter") {
			state.view.mode = analysis.SeriesJitter
		} else {
			state.view.mode = analysis.SeriesLatency
		}
		reloadSeries(state)
	}

	buildMenus(state)
	redrawCharts(state)
	if state.view.filePath != "" {
		loadAll(state)
	}
	w.ShowAndRun()
}

// viewerOptions builds analysis options from the command line. Only flags
// named in set are applied on top of def, unchanged, so Validate sees
// exactly what was asked for.
func viewerOptions(def analysis.Options, set map[string]bool, cut, threshold, deviation float64, nPackets int) analysis.Options {
	opts := def
	if set["threshold"] {
		opts.ThresholdUs = threshold
		opts.ThresholdSet = true
	}
	if set["n-packets"] {
		opts.MinPackets = nPackets
	}
	if set["cut"] {
		opts.Cut = analysis.Float(cut)
	}
	if set["deviation"] {
		opts.DeviationPct = analysis.Float(deviation)
	}
	return opts
}

func numberEntry(placeholder string, v *float64) *widget.Entry {
	e := widget.NewEntry()
	e.SetPlaceHolder(placeholder)
	if v != nil {
		e.SetText(strconv.FormatFloat(*v, 'g', -1, 64))
	}
	return e
}

// applyOptions copies the entry fields into the analysis options.
func applyOptions(state *uiState) error {
	opts := state.view.opts
	cut, err := uihelpers.ParseOptionalFloat(state.cutEntry.Text)
	if err != nil {
		return fmt.Errorf("cut: %w", err)
	}
	opts.Cut = cut
	dev, err := uihelpers.ParseOptionalFloat(state.deviationEntry.Text)
	if err != nil {
		return fmt.Errorf("deviation: %w", err)
	}
	opts.DeviationPct = dev
	thr, err := uihelpers.ParseOptionalFloat(state.thresholdEntry.Text)
	if err != nil {
		return fmt.Errorf("threshold: %w", err)
	}
	// The threshold entry always holds a value; a deviation replaces it.
	opts.ThresholdSet = false
	if thr != nil && dev == nil {
		opts.ThresholdUs = *thr
	}
	n, err := uihelpers.ParseOptionalFloat(state.nPacketsEntry.Text)
	if err != nil {
		return fmt.Errorf("n: %w", err)
	}
	if n != nil {
		opts.MinPackets = int(*n)
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	state.view.opts = opts
	return nil
}

func buildMenus(state *uiState) {
	var items []*fyne.MenuItem
	for _, f := range recentFiles(state) {
		f := f
		items = append(items, fyne.NewMenuItem(uihelpers.TruncatePath(f, 60), func() { openPath(state, f) }))
	}
	clearRecent := fyne.NewMenuItem("Clear Recent", func() { clearRecentFiles(state); buildMenus(state) })
	recentMenu := fyne.NewMenu("Open Recent", append(items, clearRecent)...)
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open…", func() { openFileDialog(state) }),
		fyne.NewMenuItem("Reload", func() { loadAll(state) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export Packet Chart…", func() { exportChartPNG(state, state.packetsImg, "packets.png") }),
		fyne.NewMenuItem("Export Anomaly Chart…", func() { exportChartPNG(state, state.anomalyImg, "anomalies.png") }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { state.window.Close() }),
	)
	state.window.SetMainMenu(fyne.NewMainMenu(fileMenu, recentMenu))

	canv := state.window.Canvas()
	if canv != nil {
		for _, mod := range []fyne.KeyModifier{fyne.KeyModifierSuper, fyne.KeyModifierControl} {
			canv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: mod}, func(fyne.Shortcut) { openFileDialog(state) })
			canv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyR, Modifier: mod}, func(fyne.Shortcut) { loadAll(state) })
			canv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyW, Modifier: mod}, func(fyne.Shortcut) { state.window.Close() })
		}
	}
}

func openFileDialog(state *uiState) {
	d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		defer rc.Close()
		openPath(state, rc.URI().Path())
	}, state.window)
	d.Show()
}

func openPath(state *uiState, path string) {
	state.view.filePath = path
	state.fileLabel.SetText(uihelpers.TruncatePath(path, 60))
	addRecentFile(state, path)
	state.app.Preferences().SetString("lastFile", path)
	buildMenus(state)
	loadAll(state)
}

// loadAll analyzes the trace off the UI goroutine and redraws when done.
// A request made while a load is running is picked up when it finishes.
func loadAll(state *uiState) {
	if state.loading || state.view.filePath == "" {
		return
	}
	state.loading = true
	state.statusLabel.SetText("Loading…")
	req := state.view
	go func() {
		err := req.load()
		fyne.Do(func() {
			state.loading = false
			if err != nil {
				state.statusLabel.SetText("")
				dialog.ShowError(err, state.window)
				return
			}
			finishLoad(state, req)
		})
	}()
}

// reloadSeries redraws the packet plot after a mode change; the anomaly
// report does not depend on the mode.
func reloadSeries(state *uiState) {
	if state.loading || state.view.report == nil {
		return
	}
	state.loading = true
	req := state.view
	go func() {
		err := req.loadSeries()
		fyne.Do(func() {
			state.loading = false
			if err != nil {
				dialog.ShowError(err, state.window)
				return
			}
			finishLoad(state, req)
		})
	}()
}

func finishLoad(state *uiState, done traceView) {
	switch state.view.adopt(done) {
	case needLoad:
		loadAll(state)
		return
	case needSeries:
		reloadSeries(state)
	}
	if rep := state.view.report; rep != nil {
		state.statusLabel.SetText(fmt.Sprintf("%d packets, %d anomalies", rep.Total.Count, len(rep.Anomalies)))
	}
	redrawCharts(state)
}

// chartSize follows the window width so the x axis gets the space.
func chartSize(state *uiState) (int, int) {
	if state == nil || state.window == nil || state.window.Canvas() == nil {
		return uihelpers.ComputeChartDimensions(0)
	}
	sz := state.window.Canvas().Size()
	return uihelpers.ComputeChartDimensions(int(sz.Width*0.95) - 12)
}

func redrawCharts(state *uiState) {
	cw, ch := chartSize(state)
	for _, c := range []struct {
		img    *canvas.Image
		render func(*traceView, int, int) image.Image
	}{
		{state.packetsImg, renderPacketsChart},
		{state.anomalyImg, renderAnomalyChart},
	} {
		c.img.Image = c.render(&state.view, cw, ch)
		c.img.SetMinSize(fyne.NewSize(float32(cw), float32(ch)))
		c.img.Refresh()
	}
	state.summaryLabel.SetText(summaryText(&state.view))
}

func exportChartPNG(state *uiState, img *canvas.Image, defaultName string) {
	if img == nil || img.Image == nil || state.view.report == nil {
		dialog.ShowInformation("Export", "No chart to export.", state.window)
		return
	}
	fs := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil || wc == nil {
			return
		}
		defer wc.Close()
		if err := png.Encode(wc, img.Image); err != nil {
			dialog.ShowError(err, state.window)
		}
	}, state.window)
	fs.SetFileName(defaultName)
	fs.Show()
}
