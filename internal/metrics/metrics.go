// Package metrics exposes the relay's Prometheus counters: a private
// registry rebuilt under a lock, with package-level increment helpers
// so callers never touch *prometheus.Counter directly.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu  sync.RWMutex
	reg *prometheus.Registry

	webhooksReceived     prometheus.Counter
	deliveriesSuccessful prometheus.Counter
	deliveriesFailed     prometheus.Counter
	retryAttempts        prometheus.Counter
)

func init() {
	resetLocked()
}

// Reset clears and reinitializes all counters. Used by tests that need
// isolated counter state across cases.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	resetLocked()
}

// Handler exposes the registry in Prometheus text format.
func Handler() http.Handler {
	mu.RLock()
	registry := reg
	mu.RUnlock()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func IncWebhooksReceived() {
	mu.RLock()
	defer mu.RUnlock()
	webhooksReceived.Inc()
}

func IncDeliveriesSuccessful() {
	mu.RLock()
	defer mu.RUnlock()
	deliveriesSuccessful.Inc()
}

func IncDeliveriesFailed() {
	mu.RLock()
	defer mu.RUnlock()
	deliveriesFailed.Inc()
}

func IncRetryAttempts() {
	mu.RLock()
	defer mu.RUnlock()
	retryAttempts.Inc()
}

func resetLocked() {
	registry := prometheus.NewRegistry()

	received := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhooks_received_total",
		Help: "Total number of webhook events accepted at ingest.",
	})
	success := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhooks_deliveries_successful_total",
		Help: "Total number of webhook deliveries that received HTTP 200.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhooks_deliveries_failed_total",
		Help: "Total number of webhook delivery attempts that did not succeed.",
	})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhooks_retry_attempts_total",
		Help: "Total number of delivery retries scheduled.",
	})

	registry.MustRegister(received, success, failed, retries)

	reg = registry
	webhooksReceived = received
	deliveriesSuccessful = success
	deliveriesFailed = failed
	retryAttempts = retries
}
