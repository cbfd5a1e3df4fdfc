package analysis

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/KHTangent/thesis-subprojects/src/stats"
	"github.com/KHTangent/thesis-subprojects/src/trace"
)

// WriteSummary prints the report as text: the anomaly list (unless
// summaryOnly) followed by the summary block. decimals only affects
// formatting. The summary block layout is parsed by the export scripts, so
// keep the line order stable.
func WriteSummary(w io.Writer, rep *Report, decimals int, summaryOnly bool) error {
	bw := bufio.NewWriter(w)
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', decimals, 64) }
	triple := func(a, b, c float64) string { return f(a) + "/" + f(b) + "/" + f(c) }

	if !summaryOnly {
		if len(rep.Anomalies) == 0 {
			fmt.Fprintln(bw, "No anomalies found!")
		}
		for _, a := range rep.Anomalies {
			fmt.Fprintf(bw, "%s: %6d packets, %s µs min/avg/max\n", f(a.Timestamp), a.Packets(), triple(a.Min(), a.Avg(), a.Max()))
		}
	}
	fmt.Fprintln(bw, "===== Summary =====")
	fmt.Fprintf(bw, "Total duration: %s s\n", f(rep.WindowDuration))
	fmt.Fprintf(bw, "Total packets: %d\n", rep.Total.Count)
	fmt.Fprintf(bw, "Latency (min/avg/max): %s µs\n", triple(rep.Total.Min, rep.Total.Mean(), rep.Total.Max))
	fmt.Fprintf(bw, "Standard deviation: %s µs\n", f(rep.Total.StdDev()))
	fmt.Fprintf(bw, "Anomaly threshold: %s µs, n >= %d\n", f(rep.ThresholdUs), rep.MinPackets)
	fmt.Fprintf(bw, "Total anomalies: %d\n", len(rep.Anomalies))
	if s := rep.Summary; s != nil {
		fmt.Fprintf(bw, "Average anomaly duration: %s packets\n", f(s.Packets.Mean()))
		fmt.Fprintf(bw, "Anomaly average latency (min/avg/max): %s µs\n", triple(s.AvgLatency.Min, s.AvgLatency.Mean(), s.AvgLatency.Max))
		fmt.Fprintf(bw, "Anomaly maximum latency (min/avg/max): %s µs\n", triple(s.MaxLatency.Min, s.MaxLatency.Mean(), s.MaxLatency.Max))
	}
	if rep.PacketLoss != nil {
		fmt.Fprintf(bw, "Packet loss: %s %%\n", f(*rep.PacketLoss*100))
	}
	return bw.Flush()
}

// TallyJSON is the serialized form of a Tally. Statistics that are not
// defined (empty tally) are null.
type TallyJSON struct {
	Count  int      `json:"count"`
	Min    *float64 `json:"min"`
	Avg    *float64 `json:"avg"`
	Max    *float64 `json:"max"`
	StdDev *float64 `json:"stddev"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func tallyJSON(t stats.Tally) TallyJSON {
	return TallyJSON{Count: t.Count, Min: finite(t.Min), Avg: finite(t.Mean()), Max: finite(t.Max), StdDev: finite(t.StdDev())}
}

// AnomalyJSON is one anomaly in the JSON report.
type AnomalyJSON struct {
	TimestampS float64  `json:"timestamp_s"`
	Packets    int      `json:"packets"`
	MinUs      float64  `json:"min_us"`
	AvgUs      float64  `json:"avg_us"`
	MaxUs      float64  `json:"max_us"`
	StdDevUs   *float64 `json:"stddev_us,omitempty"`
}

// ReportJSON is the document written by WriteJSON.
type ReportJSON struct {
	GeneratedAt       string         `json:"generated_at"`
	File              string         `json:"file"`
	Run               *trace.RunInfo `json:"run,omitempty"`
	TotalRecords      int            `json:"total_records"`
	TraceDurationS    float64        `json:"trace_duration_s"`
	CutS              float64        `json:"cut_s"`
	WindowDurationS   float64        `json:"window_duration_s"`
	Window            Window         `json:"window"`
	Latency           TallyJSON      `json:"latency_us"`
	ThresholdUs       *float64       `json:"threshold_us"`
	Adaptive          bool           `json:"adaptive"`
	DeviationPct      float64        `json:"deviation_pct,omitempty"`
	MinPackets        int            `json:"min_packets"`
	AnomalyCount      int            `json:"anomaly_count"`
	Anomalies         []AnomalyJSON  `json:"anomalies"`
	AnomalyPackets    *TallyJSON     `json:"anomaly_packets,omitempty"`
	AnomalyAvgLatency *TallyJSON     `json:"anomaly_avg_latency_us,omitempty"`
	AnomalyMaxLatency *TallyJSON     `json:"anomaly_max_latency_us,omitempty"`
	PacketLoss        *float64       `json:"packet_loss,omitempty"`
}

// NewReportJSON converts rep into its JSON document form.
func NewReportJSON(rep *Report, now time.Time) ReportJSON {
	doc := ReportJSON{
		GeneratedAt:     now.UTC().Format(time.RFC3339),
		File:            rep.Path,
		Run:             rep.RunInfo,
		TotalRecords:    rep.TotalRecords,
		TraceDurationS:  rep.TraceDuration,
		CutS:            rep.Cut,
		WindowDurationS: rep.WindowDuration,
		Window:          rep.Window,
		Latency:         tallyJSON(rep.Total),
		ThresholdUs:     finite(rep.ThresholdUs),
		Adaptive:        rep.Adaptive,
		DeviationPct:    rep.DeviationPct,
		MinPackets:      rep.MinPackets,
		AnomalyCount:    len(rep.Anomalies),
		Anomalies:       make([]AnomalyJSON, 0, len(rep.Anomalies)),
		PacketLoss:      rep.PacketLoss,
	}
	for _, a := range rep.Anomalies {
		doc.Anomalies = append(doc.Anomalies, AnomalyJSON{
			TimestampS: a.Timestamp,
			Packets:    a.Packets(),
			MinUs:      a.Min(),
			AvgUs:      a.Avg(),
			MaxUs:      a.Max(),
			StdDevUs:   finite(a.Tally.StdDev()),
		})
	}
	if s := rep.Summary; s != nil {
		p, avg, mx := tallyJSON(s.Packets), tallyJSON(s.AvgLatency), tallyJSON(s.MaxLatency)
		doc.AnomalyPackets, doc.AnomalyAvgLatency, doc.AnomalyMaxLatency = &p, &avg, &mx
	}
	return doc
}

// WriteJSON writes rep as an indented JSON document.
func WriteJSON(w io.Writer, rep *Report) error {
	b, err := json.MarshalIndent(NewReportJSON(rep, time.Now()), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// WriteAnomaliesCSV writes one row per anomaly.
func WriteAnomaliesCSV(w io.Writer, rep *Report, decimals int) error {
	cw := csv.NewWriter(w)
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', decimals, 64) }
	if err := cw.Write([]string{"timestamp_s", "packets", "min_us", "avg_us", "max_us"}); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, a := range rep.Anomalies {
		row := []string{f(a.Timestamp), strconv.Itoa(a.Packets()), f(a.Min()), f(a.Avg()), f(a.Max())}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
