package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gantrykit/gantry/pkg/metrics"
)

// poolMetrics is the Prometheus implementation of metrics.PoolMetrics.
type poolMetrics struct {
	acquires        *prometheus.CounterVec
	acquireDuration prometheus.Histogram
	retries         prometheus.Counter
	healthChecks    *prometheus.CounterVec
	connsTotal      prometheus.Gauge
	connsIdle       prometheus.Gauge
	connsInUse      prometheus.Gauge
}

// NewPoolMetrics creates a new Prometheus-backed PoolMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewPoolMetrics() metrics.PoolMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &poolMetrics{
		acquires: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gantry_pool_acquires_total",
				Help: "Total number of connection lease attempts by outcome",
			},
			[]string{"outcome"}, // "ok", "timeout", "error"
		),
		acquireDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "gantry_pool_acquire_duration_milliseconds",
				Help: "Time spent waiting for a pooled connection in milliseconds",
				Buckets: []float64{
					0.1, // warm pool
					1,
					5,
					10,
					50,
					100,
					500,
					1000,
					5000, // saturated pool
				},
			},
		),
		retries: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "gantry_pool_retries_total",
				Help: "Total number of operations retried after a transient failure",
			},
		),
		healthChecks: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gantry_pool_health_checks_total",
				Help: "Total number of background health probes by result",
			},
			[]string{"result"}, // "healthy", "unhealthy"
		),
		connsTotal: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "gantry_pool_conns_total",
				Help: "Total number of connections currently in the pool",
			},
		),
		connsIdle: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "gantry_pool_conns_idle",
				Help: "Idle connections currently in the pool",
			},
		),
		connsInUse: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "gantry_pool_conns_in_use",
				Help: "Connections currently leased from the pool",
			},
		),
	}
}

func (m *poolMetrics) RecordAcquire(duration time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.acquires.WithLabelValues(outcome).Inc()
	m.acquireDuration.Observe(duration.Seconds() * 1000)
}

func (m *poolMetrics) RecordRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *poolMetrics) RecordHealthCheck(healthy bool) {
	if m == nil {
		return
	}
	result := "healthy"
	if !healthy {
		result = "unhealthy"
	}
	m.healthChecks.WithLabelValues(result).Inc()
}

func (m *poolMetrics) SetConnStats(total, idle, inUse int32) {
	if m == nil {
		return
	}
	m.connsTotal.Set(float64(total))
	m.connsIdle.Set(float64(idle))
	m.connsInUse.Set(float64(inUse))
}
