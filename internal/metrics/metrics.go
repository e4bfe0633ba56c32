// Package metrics exposes Prometheus instrumentation for the audit engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the engine's Prometheus metrics. Each Collector owns its
// own registry so repeated construction in tests never collides.
type Collector struct {
	registry *prometheus.Registry

	jobsRegistered   prometheus.Counter
	dispatchFailures *prometheus.CounterVec
	pollCycles       prometheus.Counter
	pollFetches      prometheus.Counter
	jobsNonFinal     prometheus.Gauge
}

// NewCollector creates and registers the engine metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_jobs_registered_total",
			Help: "Total number of audit job upserts applied to the registry",
		}),
		dispatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_dispatch_failures_total",
			Help: "Total number of failed dispatcher operations by failure kind",
		}, []string{"kind"}),
		pollCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_poll_cycles_total",
			Help: "Total number of poll ticks that fetched at least one job",
		}),
		pollFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_poll_fetches_total",
			Help: "Total number of per-job status fetches issued by the poller",
		}),
		jobsNonFinal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audit_jobs_nonfinal",
			Help: "Current number of non-final jobs being polled",
		}),
	}

	c.registry.MustRegister(
		c.jobsRegistered,
		c.dispatchFailures,
		c.pollCycles,
		c.pollFetches,
		c.jobsNonFinal,
	)

	return c
}

// RecordUpsert records one registry upsert
func (c *Collector) RecordUpsert() {
	c.jobsRegistered.Inc()
}

// RecordDispatchFailure records a failed dispatcher operation
func (c *Collector) RecordDispatchFailure(kind string) {
	c.dispatchFailures.WithLabelValues(kind).Inc()
}

// RecordPollCycle records one poll tick over count jobs
func (c *Collector) RecordPollCycle(count int) {
	c.pollCycles.Inc()
	c.pollFetches.Add(float64(count))
}

// SetNonFinalJobs updates the non-final job gauge
func (c *Collector) SetNonFinalJobs(count int) {
	c.jobsNonFinal.Set(float64(count))
}

// Handler returns the HTTP handler serving this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
