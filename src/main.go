// trexanalyze post-processes the latency timestamp files recorded by TRex.
//
// Usage:
//
//	trexanalyze [--log-level L] <input-file> plot --output-file out.png [--plot-mode latency|jitter] [--cut S]
//	trexanalyze [--log-level L] <input-file> validate [--threshold US | --deviation PCT] [--n-packets N] [--cut S] ...
//
// plot draws every packet of the trace. validate searches the trace for runs
// of packets at or above a latency threshold, prints them with a summary and
// optionally renders an anomaly plot and machine readable reports.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/KHTangent/thesis-subprojects/src/analysis"
	"github.com/KHTangent/thesis-subprojects/src/logging"
	"github.com/KHTangent/thesis-subprojects/src/plot"
)

// optFloat is a float flag that remembers whether it was given.
type optFloat struct{ v *float64 }

func (o *optFloat) String() string {
	if o == nil || o.v == nil {
		return ""
	}
	return strconv.FormatFloat(*o.v, 'g', -1, 64)
}

func (o *optFloat) Set(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	o.v = &f
	return nil
}

func usage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintln(w, "usage: trexanalyze [flags] <input-file> <plot|validate> [mode flags]")
	fmt.Fprintln(w, "run 'trexanalyze <input-file> <mode> -h' for mode flags")
	global.SetOutput(w)
	global.PrintDefaults()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is main without the process exit, returning the exit status.
func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("trexanalyze", flag.ContinueOnError)
	global.SetOutput(stderr)
	logLevel := global.String("log-level", "info", "Log level (debug|info|warn|error)")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if !logging.SetLogLevel(*logLevel) {
		fmt.Fprintf(stderr, "unknown log level %q\n", *logLevel)
		return 2
	}
	rest := global.Args()
	if len(rest) < 2 {
		usage(stderr, global)
		return 2
	}
	input, mode := rest[0], strings.ToLower(rest[1])
	var err error
	switch mode {
	case "plot":
		err = runPlot(input, rest[2:], stdout, stderr)
	case "validate":
		err = runValidate(input, rest[2:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown mode %q\n", rest[1])
		usage(stderr, global)
		return 2
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	}
	var cfgErr *analysis.ConfigError
	if errors.As(err, &cfgErr) {
		fmt.Fprintf(stderr, "trexanalyze: %v\n", err)
		return 2
	}
	fmt.Fprintf(stderr, "trexanalyze: %v\n", err)
	return 1
}

// errUsage is returned after a mode flag set already reported a parse error.
var errUsage = errors.New("usage")

func parseMode(fs *flag.FlagSet, args []string, stderr io.Writer) error {
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return errUsage
	}
	return nil
}

func runPlot(input string, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	modeName := fs.String("plot-mode", "latency", "What to plot (latency|jitter)")
	outFile := fs.String("output-file", "", "PNG file to write (required)")
	var cut optFloat
	fs.Var(&cut, "cut", "Seconds to cut off at each end of the trace")
	width := fs.Int("width", plot.DefaultSize.Width, "Image width in pixels")
	height := fs.Int("height", plot.DefaultSize.Height, "Image height in pixels")
	if err := parseMode(fs, args, stderr); err != nil {
		return err
	}
	if *outFile == "" {
		return &analysis.ConfigError{Field: "output-file", Msg: "required in plot mode"}
	}
	mode, err := analysis.ParseSeriesMode(*modeName)
	if err != nil {
		return err
	}

	s, err := analysis.LoadSeries(input, analysis.SeriesOptions{Mode: mode, Cut: cut.v})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Reading %d packet data points, test lasted %.1f seconds\n", s.Len(), s.TraceDuration)
	if s.Latency.Empty() {
		return fmt.Errorf("%s: %w", input, analysis.ErrEmptyWindow)
	}
	fmt.Fprintf(stdout, "Packets range from %v to %v µs, with an average of %v µs\n", s.Latency.Min, s.Latency.Max, s.Latency.Mean())
	fmt.Fprintf(stdout, "Standard deviation is %v µs\n", s.Latency.StdDev())

	img, err := plot.RenderSeries(s, plot.Size{Width: *width, Height: *height})
	if err != nil {
		return err
	}
	if err := plot.WritePNG(*outFile, img); err != nil {
		return err
	}
	logging.Infof("[plot] wrote %s", *outFile)
	return nil
}

func runValidate(input string, args []string, stdout, stderr io.Writer) error {
	def := analysis.DefaultOptions()
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	threshold := fs.Float64("threshold", def.ThresholdUs, "Latency (µs) at or above which a packet is anomalous; conflicts with --deviation")
	nPackets := fs.Int("n-packets", def.MinPackets, "Consecutive packets required for an anomaly")
	var deviation, cut optFloat
	fs.Var(&deviation, "deviation", "Adaptive threshold: percent above the average latency of the window (reads the file twice)")
	fs.Var(&cut, "cut", "Seconds to cut off at each end of the trace, to skip warmup and cooldown")
	decimals := fs.Int("decimals", def.Decimals, "Decimals to print for float values")
	outFile := fs.String("output-file", "", "Write an anomaly plot to this PNG file")
	summaryOnly := fs.Bool("summary-only", false, "Only print the summary, not every anomaly")
	closeOpen := fs.Bool("close-open-run", false, "Report a run still above threshold at the end of the window")
	jsonOut := fs.String("json", "", "Write the report as JSON to this file ('-' for stdout)")
	csvOut := fs.String("csv", "", "Write the anomaly list as CSV to this file ('-' for stdout)")
	metricsOut := fs.String("metrics-textfile", "", "Write the report as Prometheus metrics to this .prom file")
	failEmpty := fs.Bool("fail-empty", false, "Exit with an error when the analyzed window holds no packets")
	if err := parseMode(fs, args, stderr); err != nil {
		return err
	}

	opts := def
	opts.ThresholdUs = *threshold
	opts.MinPackets = *nPackets
	opts.DeviationPct = deviation.v
	opts.Cut = cut.v
	opts.Decimals = *decimals
	opts.CloseOpenRun = *closeOpen
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "threshold" {
			opts.ThresholdSet = true
		}
	})

	rep, err := analysis.Validate(input, opts)
	if err != nil {
		return err
	}
	if !*summaryOnly {
		fmt.Fprintf(stdout, "Reading %d packet data points\n", rep.TotalRecords)
	}
	if err := analysis.WriteSummary(stdout, rep, opts.Decimals, *summaryOnly); err != nil {
		return err
	}

	if *outFile != "" {
		img, err := plot.RenderAnomalies(rep, plot.DefaultSize)
		switch {
		case errors.Is(err, plot.ErrNoData):
			logging.Warnf("[validate] no packets in window, skipping plot %s", *outFile)
		case err != nil:
			return err
		default:
			if err := plot.WritePNG(*outFile, img); err != nil {
				return err
			}
			logging.Infof("[validate] wrote %s", *outFile)
		}
	} else if !*summaryOnly {
		fmt.Fprintln(stdout, "No output file specified, will not generate plot")
	}

	if *jsonOut != "" {
		if err := writeTo(*jsonOut, stdout, func(w io.Writer) error { return analysis.WriteJSON(w, rep) }); err != nil {
			return err
		}
	}
	if *csvOut != "" {
		if err := writeTo(*csvOut, stdout, func(w io.Writer) error { return analysis.WriteAnomaliesCSV(w, rep, opts.Decimals) }); err != nil {
			return err
		}
	}
	if *metricsOut != "" {
		if err := analysis.WriteMetricsTextfile(*metricsOut, rep); err != nil {
			return err
		}
	}
	if *failEmpty {
		if err := rep.Err(); err != nil {
			return fmt.Errorf("%s: %w", input, err)
		}
	}
	return nil
}

// writeTo runs fn against path, or against stdout when path is "-".
func writeTo(path string, stdout io.Writer, fn func(io.Writer) error) error {
	if path == "-" {
		return fn(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
