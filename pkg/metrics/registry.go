// Package metrics defines the observability interfaces used across the
// toolkit and manages the process-wide Prometheus registry.
//
// All interfaces are optional: implementations are nil-safe, so callers can
// pass nil to disable collection with zero overhead.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the process-wide Prometheus registry with the
// standard Go runtime and process collectors.
//
// Must be called before any New*Metrics constructor; constructors called
// earlier return nil (metrics disabled).
func InitRegistry() {
	mu.Lock()
	defer mu.Unlock()

	if registry != nil {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ResetRegistry discards the current registry. Intended for tests that need
// to re-register collectors.
func ResetRegistry() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
}

// IsEnabled reports whether the registry has been initialized.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process-wide registry, or nil if metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// MustRegister registers collectors on the process-wide registry. A no-op
// when metrics are disabled.
func MustRegister(cs ...prometheus.Collector) {
	reg := GetRegistry()
	if reg == nil {
		return
	}
	reg.MustRegister(cs...)
}

// Handler returns the HTTP handler serving the registry in the Prometheus
// exposition format. Returns a 404 handler when metrics are disabled.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
