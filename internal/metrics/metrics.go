// Package metrics exposes prometheus instrumentation for quoting and tariff publication.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors registered for one registry
type Metrics struct {
	quotesTotal        *prometheus.CounterVec
	quoteDuration      *prometheus.HistogramVec
	inconsistencyTotal *prometheus.CounterVec
	activeVersion      prometheus.Gauge
	reloadsTotal       *prometheus.CounterVec
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		quotesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotes_total",
				Help: "Total number of quote calculations",
			},
			[]string{"insurance_type", "status"},
		),
		quoteDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quote_duration_seconds",
				Help:    "Duration of quote calculations",
				Buckets: []float64{.00005, .0001, .0005, .001, .005, .01, .05},
			},
			[]string{"insurance_type"},
		),
		inconsistencyTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tariff_inconsistency_total",
				Help: "Tariff rows whose stored total disagreed with the component sum",
			},
			[]string{"insurance_type"},
		),
		activeVersion: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tariff_active_version",
				Help: "Version of the currently published tariff table",
			},
		),
		reloadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tariff_reloads_total",
				Help: "Tariff table reload attempts",
			},
			[]string{"result"},
		),
	}
}

// QuoteComputed records one finished calculation
func (m *Metrics) QuoteComputed(insuranceType, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.quotesTotal.WithLabelValues(insuranceType, status).Inc()
	m.quoteDuration.WithLabelValues(insuranceType).Observe(d.Seconds())
}

// Inconsistency records a tariff row cross-check failure
func (m *Metrics) Inconsistency(insuranceType string) {
	if m == nil {
		return
	}
	m.inconsistencyTotal.WithLabelValues(insuranceType).Inc()
}

// TablePublished records the version that became active
func (m *Metrics) TablePublished(version int) {
	if m == nil {
		return
	}
	m.activeVersion.Set(float64(version))
}

// Reload records a reload attempt; result is "swapped", "unchanged" or "failed"
func (m *Metrics) Reload(result string) {
	if m == nil {
		return
	}
	m.reloadsTotal.WithLabelValues(result).Inc()
}
