package analysis

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry builds a Prometheus registry holding the report as gauges,
// labelled by trace file (and test/pps/run when the file name carries them).
func Registry(rep *Report) (*prometheus.Registry, error) {
	labels := prometheus.Labels{"file": filepath.Base(rep.Path)}
	if ri := rep.RunInfo; ri != nil {
		labels["test"] = ri.Test
		labels["pps"] = strconv.Itoa(ri.PPS)
		labels["run"] = strconv.Itoa(ri.Run)
	}
	reg := prometheus.NewRegistry()
	gauge := func(name, help string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "trex",
			Subsystem:   "latency",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
		g.Set(v)
		if err := reg.Register(g); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
		return nil
	}
	type metric struct {
		name, help string
		v          float64
	}
	ms := []metric{
		{"window_duration_seconds", "Analyzed trace duration after trimming", rep.WindowDuration},
		{"packets", "Packets in the analyzed window", float64(rep.Total.Count)},
		{"min_microseconds", "Minimum latency", rep.Total.Min},
		{"avg_microseconds", "Average latency", rep.Total.Mean()},
		{"max_microseconds", "Maximum latency", rep.Total.Max},
		{"stddev_microseconds", "Latency standard deviation", rep.Total.StdDev()},
		{"anomaly_threshold_microseconds", "Latency at or above which a packet is anomalous", rep.ThresholdUs},
		{"anomalies", "Anomalies found in the window", float64(len(rep.Anomalies))},
	}
	if s := rep.Summary; s != nil {
		ms = append(ms,
			metric{"anomaly_avg_packets", "Average anomaly length in packets", s.Packets.Mean()},
			metric{"anomaly_avg_latency_microseconds", "Mean of the anomaly average latencies", s.AvgLatency.Mean()},
			metric{"anomaly_max_latency_microseconds", "Largest anomaly maximum latency", s.MaxLatency.Max},
		)
	}
	if rep.PacketLoss != nil {
		ms = append(ms, metric{"packet_loss_ratio", "1 - received/expected packets", *rep.PacketLoss})
	}
	for _, m := range ms {
		if err := gauge(m.name, m.help, m.v); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// WriteMetricsTextfile writes the report in the Prometheus text format, for
// the node_exporter textfile collector. path should end in .prom.
func WriteMetricsTextfile(path string, rep *Report) error {
	if !strings.HasSuffix(path, ".prom") {
		return &ConfigError{Field: "metrics-textfile", Msg: "file name must end in .prom"}
	}
	reg, err := Registry(rep)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
