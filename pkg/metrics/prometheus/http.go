// Package prometheus provides Prometheus-backed implementations of the
// metrics interfaces.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gantrykit/gantry/pkg/metrics"
)

// httpMetrics is the Prometheus implementation of metrics.HTTPMetrics.
type httpMetrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestSize     *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	inFlight        *prometheus.GaugeVec
	panics          *prometheus.CounterVec
}

// NewHTTPMetrics creates a new Prometheus-backed HTTPMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewHTTPMetrics() metrics.HTTPMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &httpMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gantry_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "gantry_http_request_duration_milliseconds",
				Help: "Duration of HTTP requests in milliseconds",
				Buckets: []float64{
					1,    // 1ms - cached responses
					5,    // 5ms
					10,   // 10ms
					25,   // 25ms
					50,   // 50ms
					100,  // 100ms
					250,  // 250ms
					500,  // 500ms
					1000, // 1s
					2500, // 2.5s
					5000, // 5s - slow handlers
				},
			},
			[]string{"method", "route"},
		),
		requestSize: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "gantry_http_request_size_bytes",
				Help: "Distribution of HTTP request body sizes",
				Buckets: []float64{
					256,     // tiny JSON
					1024,    // 1KB
					4096,    // 4KB
					16384,   // 16KB
					65536,   // 64KB
					262144,  // 256KB
					1048576, // 1MB
				},
			},
			[]string{"method", "route"},
		),
		responseSize: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "gantry_http_response_size_bytes",
				Help: "Distribution of HTTP response body sizes",
				Buckets: []float64{
					256,
					1024,
					4096,
					16384,
					65536,
					262144,
					1048576,
				},
			},
			[]string{"method", "route"},
		),
		inFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gantry_http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
			[]string{"method"},
		),
		panics: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gantry_http_panics_recovered_total",
				Help: "Total number of panics recovered during request handling",
			},
			[]string{"method", "route"},
		),
	}
}

func (m *httpMetrics) RecordRequest(method, route string, status int, duration time.Duration, bytesIn, bytesOut int64) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds() * 1000)

	if bytesIn > 0 {
		m.requestSize.WithLabelValues(method, route).Observe(float64(bytesIn))
	}
	if bytesOut > 0 {
		m.responseSize.WithLabelValues(method, route).Observe(float64(bytesOut))
	}
}

func (m *httpMetrics) RecordRequestStart(method string) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(method).Inc()
}

func (m *httpMetrics) RecordRequestEnd(method string) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(method).Dec()
}

func (m *httpMetrics) RecordPanic(method, route string) {
	if m == nil {
		return
	}
	m.panics.WithLabelValues(method, route).Inc()
}
