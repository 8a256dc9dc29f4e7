// Package metrics exposes Prometheus instrumentation for the humanize service.
package metrics

import (
	"net/http"
	"time"

	"github.com/hyperjump/kotoba/internal/humanizer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kotoba"

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	reverts         *prometheus.CounterVec
	degraded        *prometheus.CounterVec
	batchItemErrors *prometheus.CounterVec
	wsSessions      prometheus.Gauge
}

// New registers the collectors on reg. A nil reg gets a fresh registry with
// the Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,

		// Labels: tier, status (ok, invalid, error)
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "humanize",
			Name:      "requests_total",
			Help:      "Humanize requests by tier and status",
		}, []string{"tier", "status"}),

		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "humanize",
			Name:      "duration_seconds",
			Help:      "Humanize request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"tier"}),

		// Labels: result (hit, miss)
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Result cache lookups by result",
		}, []string{"result"}),

		reverts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "reverts_total",
			Help:      "Sentences reverted by the similarity gate",
		}, []string{"tier"}),

		degraded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "humanize",
			Name:      "degraded_sentences_total",
			Help:      "Sentences restored to their original after a technique fault",
		}, []string{"tier"}),

		batchItemErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "item_errors_total",
			Help:      "Batch items that failed",
		}, []string{"tier"}),

		wsSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "sessions",
			Help:      "Open websocket sessions",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one humanize request.
func (m *Metrics) ObserveRequest(tier, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(tier, status).Inc()
	m.duration.WithLabelValues(tier).Observe(elapsed.Seconds())
}

// CacheLookup records a result cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// BatchItemFailed records a failed batch item.
func (m *Metrics) BatchItemFailed(tier string) {
	if m == nil {
		return
	}
	m.batchItemErrors.WithLabelValues(tier).Inc()
}

// SessionOpened and SessionClosed track websocket sessions.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.wsSessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.wsSessions.Dec()
	}
}

// SentenceReverted implements humanizer.Observer.
func (m *Metrics) SentenceReverted(tier humanizer.TierName) {
	if m != nil {
		m.reverts.WithLabelValues(string(tier)).Inc()
	}
}

// SentenceDegraded implements humanizer.Observer.
func (m *Metrics) SentenceDegraded(tier humanizer.TierName) {
	if m != nil {
		m.degraded.WithLabelValues(string(tier)).Inc()
	}
}

var _ humanizer.Observer = (*Metrics)(nil)
