package metrics

import (
	"time"
)

// HTTPMetrics provides observability for HTTP request handling.
//
// Implementations collect metrics about request counts, latency, payload
// sizes, and in-flight concurrency. This interface is optional - pass nil to
// disable metrics collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewHTTPMetrics()
//	chain.Use(middleware.Metrics(m))
//
//	// Without metrics (pass nil for zero overhead)
//	chain.Use(middleware.Metrics(nil))
type HTTPMetrics interface {
	// RecordRequest records a completed HTTP request with its method,
	// matched route pattern, response status, duration, and payload sizes.
	RecordRequest(method, route string, status int, duration time.Duration, bytesIn, bytesOut int64)

	// RecordRequestStart increments the in-flight request gauge.
	// Should be called when starting to process a request. The route is not
	// a label here: it is unknown until routing completes.
	RecordRequestStart(method string)

	// RecordRequestEnd decrements the in-flight request gauge.
	// Should be called when request processing completes.
	RecordRequestEnd(method string)

	// RecordPanic increments the recovered-panic counter for a route.
	RecordPanic(method, route string)
}
