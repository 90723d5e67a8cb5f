package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics captures request and session-lifecycle metrics for the API.
type Metrics interface {
	ObserveRequest(method, path, status string, durationSeconds float64)
	IncUpload(class string)
	IncCompletion(outcome string)
	IncConsistencyCheck(consistent bool)
	IncArchive(outcome string)
}

// NoopMetrics implements Metrics without emitting anything.
type NoopMetrics struct{}

func (NoopMetrics) ObserveRequest(string, string, string, float64) {}
func (NoopMetrics) IncUpload(string)                               {}
func (NoopMetrics) IncCompletion(string)                           {}
func (NoopMetrics) IncConsistencyCheck(bool)                       {}
func (NoopMetrics) IncArchive(string)                              {}

// PromMetrics implements Metrics backed by Prometheus collectors.
type PromMetrics struct {
	requestDuration *prometheus.HistogramVec
	uploads         *prometheus.CounterVec
	completions     *prometheus.CounterVec
	checks          *prometheus.CounterVec
	archives        *prometheus.CounterVec
	registry        *prometheus.Registry
}

// NewPromMetrics creates Prometheus-backed metrics under the given
// namespace with a private registry.
func NewPromMetrics(namespace string) *PromMetrics {
	p := &PromMetrics{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, path and status",
		}, []string{"method", "path", "status"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Artifact uploads by class",
		}, []string{"class"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_completions_total",
			Help:      "Session completions by outcome",
		}, []string{"outcome"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consistency_checks_total",
			Help:      "Consistency checks by result",
		}, []string{"result"}),
		archives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_builds_total",
			Help:      "Archive packaging runs by outcome",
		}, []string{"outcome"}),
		registry: prometheus.NewRegistry(),
	}
	p.registry.MustRegister(p.requestDuration, p.uploads, p.completions, p.checks, p.archives)
	return p
}

func (p *PromMetrics) ObserveRequest(method, path, status string, durationSeconds float64) {
	p.requestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
}

func (p *PromMetrics) IncUpload(class string) {
	p.uploads.WithLabelValues(class).Inc()
}

func (p *PromMetrics) IncCompletion(outcome string) {
	p.completions.WithLabelValues(outcome).Inc()
}

func (p *PromMetrics) IncConsistencyCheck(consistent bool) {
	result := "inconsistent"
	if consistent {
		result = "consistent"
	}
	p.checks.WithLabelValues(result).Inc()
}

func (p *PromMetrics) IncArchive(outcome string) {
	p.archives.WithLabelValues(outcome).Inc()
}

// Handler returns the scrape endpoint for this metrics registry.
func (p *PromMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
