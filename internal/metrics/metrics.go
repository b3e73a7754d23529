// Package metrics holds the prometheus collectors of the storefront.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "easyshop"

type Metrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	Checkouts         *prometheus.CounterVec
	CheckoutDuration  prometheus.Histogram
	CartClearFailures prometheus.Counter

	OutboxPublished *prometheus.CounterVec
	CartsCleaned    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "total",
			Help:      "Checkouts by outcome.",
		}, []string{"outcome"}),
		CheckoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "duration_seconds",
			Help:      "Time spent in a checkout, lock wait included.",
			Buckets:   prometheus.DefBuckets,
		}),
		CartClearFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "cart_clear_failures_total",
			Help:      "Committed orders whose cart could not be cleared synchronously.",
		}),
		OutboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_total",
			Help:      "Outbox events by publish result.",
		}, []string{"result"}),
		CartsCleaned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "cleanup_total",
			Help:      "order.placed events handled by the cart cleanup consumer.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.Requests, m.LatencyMS,
		m.Checkouts, m.CheckoutDuration, m.CartClearFailures,
		m.OutboxPublished, m.CartsCleaned,
	)
	return m
}

// NewNop returns unregistered collectors for tests and tools.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler serves the collectors of g in the text exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
