// Package metrics provides Prometheus metrics for scans and watch sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "contentmark"

// Result label values of ScansTotal.
const (
	ResultSuccess = "success"
	ResultWarning = "warning"
	ResultError   = "error"
)

// Collector holds every contentmark metric. A nil *Collector is valid and
// records nothing.
type Collector struct {
	ScansTotal      *prometheus.CounterVec
	ScanDuration    prometheus.Histogram
	SchemaFields    prometheus.Gauge
	SchemaPages     prometheus.Gauge
	ScanErrors      *prometheus.CounterVec
	RescansCoalesced prometheus.Counter
	WatchEvents     *prometheus.CounterVec
}

// New registers all metrics on reg.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		ScansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Total number of scans by result",
			},
			[]string{"result"},
		),
		ScanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Scan duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		SchemaFields: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "schema_fields",
				Help:      "Number of fields in the current schema",
			},
		),
		SchemaPages: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "schema_pages",
				Help:      "Number of pages in the current schema",
			},
		),
		ScanErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scan_errors_total",
				Help:      "Total number of scan errors and warnings by kind",
			},
			[]string{"kind"},
		),
		RescansCoalesced: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rescans_coalesced_total",
				Help:      "Rescan requests folded into an already pending rescan",
			},
		),
		WatchEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_events_total",
				Help:      "Debounced file change events by operation",
			},
			[]string{"op"},
		),
	}
}

// ObserveScan records one finished scan.
func (c *Collector) ObserveScan(result string, d time.Duration, pages, fields int) {
	if c == nil {
		return
	}
	c.ScansTotal.WithLabelValues(result).Inc()
	c.ScanDuration.Observe(d.Seconds())
	if result != ResultError {
		c.SchemaPages.Set(float64(pages))
		c.SchemaFields.Set(float64(fields))
	}
}

// AddScanErrors counts n problems of the given kind.
func (c *Collector) AddScanErrors(kind string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.ScanErrors.WithLabelValues(kind).Add(float64(n))
}

// RescanCoalesced counts a rescan request that joined a pending one.
func (c *Collector) RescanCoalesced() {
	if c == nil {
		return
	}
	c.RescansCoalesced.Inc()
}

// WatchEvent counts one debounced change.
func (c *Collector) WatchEvent(op string) {
	if c == nil {
		return
	}
	c.WatchEvents.WithLabelValues(op).Inc()
}
