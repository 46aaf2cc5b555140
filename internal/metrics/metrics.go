// Package metrics exposes Prometheus instrumentation for the result pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "venter"

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	CacheLookups       *prometheus.CounterVec
	ClassifierDuration *prometheus.HistogramVec
	DerivedFailures    *prometheus.CounterVec
	WordcloudLookups   *prometheus.CounterVec
}

// New registers the pipeline collectors, plus the Go and process
// collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_lookups_total",
			Help:      "Classification cache lookups by result shape and outcome (hit, miss).",
		}, []string{"shape", "outcome"}),
		ClassifierDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_duration_seconds",
			Help:      "Time spent in the external classifier per artifact.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"classifier", "outcome"}),
		DerivedFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "derived_artifact_failures_total",
			Help:      "Failures writing derived artifacts that did not fail the request.",
		}, []string{"kind"}),
		WordcloudLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wordcloud_cache_lookups_total",
			Help:      "Word-frequency cache lookups by outcome (hit, miss).",
		}, []string{"outcome"}),
	}
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheLookup(shape string, hit bool) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(shape, outcome(hit)).Inc()
}

func (m *Metrics) ObserveClassifier(classifier string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ClassifierDuration.WithLabelValues(classifier, result).Observe(d.Seconds())
}

// DerivedFailure counts a non-fatal failure of kind, e.g. "workbook",
// "table", "scratch" or "wordcloud".
func (m *Metrics) DerivedFailure(kind string) {
	if m == nil {
		return
	}
	m.DerivedFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) WordcloudLookup(hit bool) {
	if m == nil {
		return
	}
	m.WordcloudLookups.WithLabelValues(outcome(hit)).Inc()
}

func outcome(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
