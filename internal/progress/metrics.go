package progress

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects per-run operation metrics in a private registry, written
// out as a node_exporter textfile after the run.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   prometheus.Histogram
	planned    prometheus.Gauge
	lastRun    prometheus.Gauge
}

// NewMetrics creates metrics labeled with the procedure name.
func NewMetrics(procedure string) *Metrics {
	labels := prometheus.Labels{"procedure": procedure}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "spire",
				Subsystem:   "setup",
				Name:        "operations_total",
				Help:        "Number of executed operations by result",
				ConstLabels: labels,
			},
			[]string{"result"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   "spire",
				Subsystem:   "setup",
				Name:        "operation_duration_seconds",
				Help:        "Duration of executed operations in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
			},
		),
		planned: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   "spire",
				Subsystem:   "setup",
				Name:        "operations_planned",
				Help:        "Number of operations queued by the procedure",
				ConstLabels: labels,
			},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   "spire",
				Subsystem:   "setup",
				Name:        "last_run_timestamp_seconds",
				Help:        "Unix time the procedure last finished",
				ConstLabels: labels,
			},
		),
	}
	m.registry.MustRegister(m.operations, m.duration, m.planned, m.lastRun)
	return m
}

// Planned records the number of queued operations.
func (m *Metrics) Planned(n int) {
	m.planned.Set(float64(n))
}

// Observe records one finished operation.
func (m *Metrics) Observe(elapsed time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.operations.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// WriteTextfile stamps the finish time and writes all metrics to path.
func (m *Metrics) WriteTextfile(path string) error {
	m.lastRun.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
