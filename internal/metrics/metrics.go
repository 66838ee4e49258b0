// Package metrics holds the Prometheus collectors exported by the
// coordinator and the worker nodes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "primesplit"

// Metrics groups every collector. A nil *Metrics is valid and records
// nothing, which keeps tests and the CLI free of registry plumbing.
type Metrics struct {
	jobs         *prometheus.CounterVec
	jobDuration  prometheus.Histogram
	tasks        *prometheus.CounterVec
	taskDuration prometheus.Histogram
	healthyNodes prometheus.Gauge
	registry     *prometheus.Registry
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Prime counting jobs by final status.",
		}, []string{"status"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time from dispatch to aggregated total.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_tasks_total",
			Help:      "Counting tasks by outcome.",
		}, []string{"outcome"}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_task_duration_seconds",
			Help:      "Time spent counting one share.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		healthyNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "healthy_nodes",
			Help:      "Registered worker nodes currently passing health checks.",
		}),
	}
	m.registry.MustRegister(m.jobs, m.jobDuration, m.tasks, m.taskDuration, m.healthyNodes)
	return m
}

// JobFinished records a job's final status and duration.
func (m *Metrics) JobFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(status).Inc()
	m.jobDuration.Observe(d.Seconds())
}

// TaskFinished records one counting task.
func (m *Metrics) TaskFinished(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.tasks.WithLabelValues(outcome).Inc()
	m.taskDuration.Observe(d.Seconds())
}

// SetHealthyNodes sets the healthy node gauge.
func (m *Metrics) SetHealthyNodes(n int) {
	if m == nil {
		return
	}
	m.healthyNodes.Set(float64(n))
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
