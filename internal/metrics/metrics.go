// Package metrics exposes Prometheus counters for conversions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides observability for conversion batches.
type Metrics struct {
	// Batches by mode and result (ok, error)
	Batches *prometheus.CounterVec

	// Records by outcome: succeeded, skipped, write_failed
	Records *prometheus.CounterVec

	// Photo fetches by outcome: ok, error, timeout
	PhotoFetches *prometheus.CounterVec

	// Photo fetch latency
	PhotoLatency prometheus.Histogram
}

// New creates Metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contactcard_batches_total",
			Help: "Conversion batches by export mode and result",
		}, []string{"mode", "result"}),

		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contactcard_records_total",
			Help: "Records processed by outcome",
		}, []string{"outcome"}),

		PhotoFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contactcard_photo_fetches_total",
			Help: "Photo fetches by outcome",
		}, []string{"outcome"}),

		PhotoLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "contactcard_photo_fetch_duration_seconds",
			Help:    "Duration of photo fetches",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Batches, m.Records, m.PhotoFetches, m.PhotoLatency)
	}
	return m
}

// IncrementBatch records a finished batch.
func (m *Metrics) IncrementBatch(mode, result string) {
	if m != nil {
		m.Batches.WithLabelValues(mode, result).Inc()
	}
}

// IncrementRecord records one record outcome.
func (m *Metrics) IncrementRecord(outcome string) {
	if m != nil {
		m.Records.WithLabelValues(outcome).Inc()
	}
}

// ObservePhoto records a photo fetch.
func (m *Metrics) ObservePhoto(outcome string, d time.Duration) {
	if m != nil {
		m.PhotoFetches.WithLabelValues(outcome).Inc()
		m.PhotoLatency.Observe(d.Seconds())
	}
}
