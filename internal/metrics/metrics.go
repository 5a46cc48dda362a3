// Package metrics exposes Prometheus collectors for the editor workflow.
// All methods are nil-safe so components can run without instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	pollChecks    *prometheus.CounterVec
	jobs          *prometheus.CounterVec
	jobDuration   prometheus.Histogram
	uploads       *prometheus.CounterVec
	quotaDenied   prometheus.Counter
	activeEditors prometheus.Gauge
}

// New registers all collectors, plus Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pollChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lumina",
			Name:      "poll_checks_total",
			Help:      "Existence checks against transformation URLs, by result.",
		}, []string{"result"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lumina",
			Name:      "transform_jobs_total",
			Help:      "Finished transformation jobs, by outcome.",
		}, []string{"outcome"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lumina",
			Name:      "transform_job_duration_seconds",
			Help:      "Time from job start to a terminal state.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lumina",
			Name:      "uploads_total",
			Help:      "Upload attempts, by outcome.",
		}, []string{"outcome"}),
		quotaDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lumina",
			Name:      "quota_denied_total",
			Help:      "Uploads rejected because the usage limit was reached.",
		}),
		activeEditors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lumina",
			Name:      "editor_sessions",
			Help:      "Open editor sessions.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.pollChecks,
		m.jobs,
		m.jobDuration,
		m.uploads,
		m.quotaDenied,
		m.activeEditors,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) PollCheck(result string) {
	if m == nil {
		return
	}
	m.pollChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) JobFinished(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(outcome).Inc()
	m.jobDuration.Observe(seconds)
}

func (m *Metrics) Upload(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) QuotaDenied() {
	if m == nil {
		return
	}
	m.quotaDenied.Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeEditors.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeEditors.Dec()
}
