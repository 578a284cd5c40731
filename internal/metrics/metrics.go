// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the service's metrics on a dedicated registry, so tests can
// create collectors freely without global registration conflicts.
type Collector struct {
	registry *prometheus.Registry

	jobsRunning prometheus.Gauge
	jobsQueued  prometheus.Gauge

	gateDecisions     *prometheus.CounterVec
	planHashConflicts prometheus.Counter
	acpOutages        prometheus.Counter
	jobsCompleted     *prometheus.CounterVec
}

// NewCollector creates and registers the service metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rrs_jobs_running",
			Help: "Current number of running restore jobs",
		}),
		jobsQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rrs_jobs_queued",
			Help: "Current number of queued restore jobs",
		}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rrs_gate_decisions_total",
			Help: "Dry-run gate decisions by outcome",
		}, []string{"decision"}),
		planHashConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rrs_plan_hash_conflicts_total",
			Help: "Requests rejected for plan hash mismatch",
		}),
		acpOutages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rrs_acp_outages_total",
			Help: "Requests failed on auth control plane outage",
		}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rrs_jobs_completed_total",
			Help: "Jobs reaching a terminal status",
		}, []string{"status"}),
	}

	c.registry.MustRegister(
		c.jobsRunning,
		c.jobsQueued,
		c.gateDecisions,
		c.planHashConflicts,
		c.acpOutages,
		c.jobsCompleted,
	)

	return c
}

// Handler returns the /metrics HTTP handler for this registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// SetLockStats updates the running/queued gauges.
func (c *Collector) SetLockStats(running, queued int) {
	c.jobsRunning.Set(float64(running))
	c.jobsQueued.Set(float64(queued))
}

// RecordGateDecision counts one dry-run gate outcome.
func (c *Collector) RecordGateDecision(decision string) {
	c.gateDecisions.WithLabelValues(decision).Inc()
}

// RecordPlanHashConflict counts one plan-hash mismatch rejection.
func (c *Collector) RecordPlanHashConflict() {
	c.planHashConflicts.Inc()
}

// RecordACPOutage counts one request failed on ACP outage.
func (c *Collector) RecordACPOutage() {
	c.acpOutages.Inc()
}

// RecordJobCompleted counts one terminal transition.
func (c *Collector) RecordJobCompleted(status string) {
	c.jobsCompleted.WithLabelValues(status).Inc()
}
