// Package metrics collects conversion counters in a Prometheus registry and
// exports them in the node exporter textfile format.
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metrics of a ddicdi process
type Registry struct {
	ConversionsTotal   *prometheus.CounterVec
	ConversionDuration *prometheus.HistogramVec
	RowsProcessed      *prometheus.CounterVec
	NodesEmitted       *prometheus.CounterVec
	OutputBytes        *prometheus.CounterVec
	LastSuccess        prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with every metric initialized
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	f := promauto.With(r.registry)

	r.ConversionsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddicdi_conversions_total",
			Help: "Total number of file conversions",
		},
		[]string{"input_format", "output_format", "status"},
	)
	r.ConversionDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ddicdi_conversion_duration_seconds",
			Help:    "Conversion duration in seconds, from read to serialized output",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		},
		[]string{"input_format"},
	)
	r.RowsProcessed = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddicdi_rows_processed_total",
			Help: "Data rows turned into per-row nodes",
		},
		[]string{"input_format"},
	)
	r.NodesEmitted = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddicdi_nodes_emitted_total",
			Help: "DDI-CDI nodes emitted, by node type",
		},
		[]string{"type"},
	)
	r.OutputBytes = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddicdi_output_bytes_total",
			Help: "Serialized output size in bytes",
		},
		[]string{"output_format"},
	)
	r.LastSuccess = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "ddicdi_last_success_timestamp_seconds",
			Help: "Unix time of the last successful conversion",
		},
	)
	return r
}

// Conversion summarises one finished conversion.
type Conversion struct {
	InputFormat  string
	OutputFormat string
	Duration     time.Duration
	Rows         int
	NodeTypes    map[string]int
	Bytes        int
	Err          error
	Finished     time.Time
}

// RecordConversion records the outcome of a conversion
func (r *Registry) RecordConversion(c Conversion) {
	status := "ok"
	if c.Err != nil {
		status = "error"
	}
	r.ConversionsTotal.WithLabelValues(c.InputFormat, c.OutputFormat, status).Inc()
	r.ConversionDuration.WithLabelValues(c.InputFormat).Observe(c.Duration.Seconds())
	if c.Err != nil {
		return
	}
	r.RowsProcessed.WithLabelValues(c.InputFormat).Add(float64(c.Rows))
	for typ, n := range c.NodeTypes {
		r.NodesEmitted.WithLabelValues(typ).Add(float64(n))
	}
	r.OutputBytes.WithLabelValues(c.OutputFormat).Add(float64(c.Bytes))
	if !c.Finished.IsZero() {
		r.LastSuccess.Set(float64(c.Finished.Unix()))
	}
}

// WriteTextfile writes every metric to path for the node exporter textfile
// collector
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
