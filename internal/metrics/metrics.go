// Package metrics exposes Prometheus collectors for the analysis pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lexdoc"

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	llmRequests  *prometheus.CounterVec
	llmLatency   *prometheus.HistogramVec
	fallbacks    *prometheus.CounterVec
	indexOps     *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
	documents    prometheus.Gauge
}

// New creates and registers all collectors, including Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Calls to the generation and embedding services by operation and outcome.",
		}, []string{"operation", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Latency of calls to the generation and embedding services.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyzer_fallbacks_total",
			Help:      "Analyzer results produced by salvage parsing or defaults.",
		}, []string{"operation", "tier"}),
		indexOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_operations_total",
			Help:      "Index operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_open",
			Help:      "1 while the named circuit breaker is open.",
		}, []string{"name"}),
		documents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "documents",
			Help:      "Documents currently held in the library.",
		}),
	}
	m.registry.MustRegister(
		m.llmRequests, m.llmLatency, m.fallbacks, m.indexOps, m.breakerState, m.documents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCall records one outbound service call.
func (m *Metrics) ObserveCall(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(operation, outcome(err)).Inc()
	m.llmLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// Fallback records an analyzer result that did not come from a clean parse.
// tier is "salvage" or "default".
func (m *Metrics) Fallback(operation, tier string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(operation, tier).Inc()
}

// IndexOp records one index operation.
func (m *Metrics) IndexOp(operation string, err error) {
	if m == nil {
		return
	}
	m.indexOps.WithLabelValues(operation, outcome(err)).Inc()
}

// BreakerOpen flags a circuit breaker as open or closed.
func (m *Metrics) BreakerOpen(name string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.breakerState.WithLabelValues(name).Set(v)
}

// SetDocuments sets the library size.
func (m *Metrics) SetDocuments(n int) {
	if m == nil {
		return
	}
	m.documents.Set(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
