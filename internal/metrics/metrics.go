// Package metrics exposes pipeline and provider counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "etfflow"

// Registry holds all Prometheus collectors of the service. A nil *Registry
// is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	FetchTotal       *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	PipelineTotal    *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	Coefficient      prometheus.Gauge
	CacheLookups     *prometheus.CounterVec
	AlertsTotal      *prometheus.CounterVec
	DatasetRecords   *prometheus.GaugeVec
}

// New creates a registry with every collector registered.
func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		FetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_fetch_total",
				Help:      "Upstream and fallback fetch attempts by source and result",
			},
			[]string{"source", "result"},
		),

		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "source_fetch_duration_seconds",
				Help:      "Duration of fetch attempts by source",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"source"},
		),

		PipelineTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "correlation_runs_total",
				Help:      "Correlation pipeline runs by method",
			},
			[]string{"method"},
		),

		PipelineDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "correlation_duration_seconds",
				Help:      "End-to-end correlation pipeline duration",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
		),

		Coefficient: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "correlation_coefficient",
				Help:      "Most recent ETF inflow / BTC price correlation coefficient",
			},
		),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Flow cache lookups by result",
			},
			[]string{"result"},
		),

		AlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_total",
				Help:      "Alerts raised by type",
			},
			[]string{"type"},
		),

		DatasetRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dataset_records",
				Help:      "Rows in the most recently loaded flow dataset by source",
			},
			[]string{"source"},
		),
	}

	r.registry.MustRegister(
		r.FetchTotal,
		r.FetchDuration,
		r.PipelineTotal,
		r.PipelineDuration,
		r.Coefficient,
		r.CacheLookups,
		r.AlertsTotal,
		r.DatasetRecords,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one fetch attempt.
func (r *Registry) ObserveFetch(source string, started time.Time, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.FetchTotal.WithLabelValues(source, result).Inc()
	r.FetchDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
}

// ObservePipeline records one correlation run.
func (r *Registry) ObservePipeline(method string, coefficient float64, started time.Time) {
	if r == nil {
		return
	}
	r.PipelineTotal.WithLabelValues(method).Inc()
	r.PipelineDuration.Observe(time.Since(started).Seconds())
	r.Coefficient.Set(coefficient)
}

// ObserveCache records a cache lookup.
func (r *Registry) ObserveCache(hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	r.CacheLookups.WithLabelValues("miss").Inc()
}

// ObserveAlert records a raised alert.
func (r *Registry) ObserveAlert(alertType string) {
	if r == nil {
		return
	}
	r.AlertsTotal.WithLabelValues(alertType).Inc()
}

// ObserveDataset records the size of a freshly loaded dataset.
func (r *Registry) ObserveDataset(source string, records int) {
	if r == nil {
		return
	}
	r.DatasetRecords.Reset()
	r.DatasetRecords.WithLabelValues(source).Set(float64(records))
}
