// Package metrics collects Prometheus metrics for API fetches and background
// refreshes.
//
// Every Collector owns a private registry so that several instances (one per
// test, for example) never collide on registration. All methods are safe on a
// nil *Collector, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dronewatch"

// Fetch outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeStatusError = "status_error"
	OutcomeExhausted   = "exhausted"
	OutcomeInterrupted = "interrupted"
	OutcomeMalformed   = "malformed"
	OutcomeError       = "error"
)

// Collector holds the metric vectors.
type Collector struct {
	registry *prometheus.Registry

	fetchAttempts  *prometheus.CounterVec
	fetchRetries   *prometheus.CounterVec
	fetchResults   *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	recordsSkipped *prometheus.CounterVec
	refreshRuns    *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "HTTP attempts made against the drone API.",
		}, []string{"endpoint"}),
		fetchRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Retries scheduled after transport failures.",
		}, []string{"endpoint"}),
		fetchResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_results_total",
			Help:      "Completed fetch operations by outcome.",
		}, []string{"endpoint", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of fetch operations including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		recordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Records dropped because they failed validation or decoding.",
		}, []string{"endpoint"}),
		refreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_runs_total",
			Help:      "Background refresh executions by outcome.",
		}, []string{"outcome"}),
	}

	c.registry.MustRegister(
		c.fetchAttempts,
		c.fetchRetries,
		c.fetchResults,
		c.fetchDuration,
		c.recordsSkipped,
		c.refreshRuns,
		collectors.NewGoCollector(),
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler returns an HTTP handler serving the collector's metrics.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordAttempt counts one HTTP attempt.
func (c *Collector) RecordAttempt(endpoint string) {
	if c == nil {
		return
	}
	c.fetchAttempts.WithLabelValues(endpoint).Inc()
}

// RecordRetry counts one scheduled retry.
func (c *Collector) RecordRetry(endpoint string) {
	if c == nil {
		return
	}
	c.fetchRetries.WithLabelValues(endpoint).Inc()
}

// RecordFetch records the final outcome and total duration of a fetch.
func (c *Collector) RecordFetch(endpoint, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.fetchResults.WithLabelValues(endpoint, outcome).Inc()
	c.fetchDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordSkipped counts records dropped while decoding a page.
func (c *Collector) RecordSkipped(endpoint string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.recordsSkipped.WithLabelValues(endpoint).Add(float64(n))
}

// RecordRefresh counts one background refresh run.
func (c *Collector) RecordRefresh(err error) {
	if c == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	c.refreshRuns.WithLabelValues(outcome).Inc()
}
