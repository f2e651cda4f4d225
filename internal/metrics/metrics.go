// Package metrics exposes the pipeline's operational counters on the
// /metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registered collectors. One instance is shared by the
// broker callbacks, the reward processor and the HTTP middleware.
type Metrics struct {
	registry *prometheus.Registry

	JobsProcessed *prometheus.CounterVec
	JobsStalled   prometheus.Counter
	TxSubmitted   *prometheus.CounterVec
	TxFinalized   *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
}

// New registers the pipeline collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: registry,
		JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewards_jobs_processed_total",
			Help: "Reward job executions by outcome.",
		}, []string{"outcome"}),
		JobsStalled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rewards_jobs_stalled_total",
			Help: "Jobs whose liveness lock expired while active.",
		}),
		TxSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewards_tx_submitted_total",
			Help: "Transactions submitted per chain.",
		}, []string{"chain_id"}),
		TxFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewards_tx_finalized_total",
			Help: "Terminal transaction outcomes per chain.",
		}, []string{"chain_id", "status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rewards_http_requests_total",
			Help: "Admin API requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rewards_http_request_duration_seconds",
			Help:    "Admin API request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	registry.MustRegister(
		m.JobsProcessed,
		m.JobsStalled,
		m.TxSubmitted,
		m.TxFinalized,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
