package middleware

import (
	"net/http"
	"time"

	"github.com/gantrykit/gantry/pkg/metrics"
)

// Metrics returns the stage recording per-request Prometheus metrics: an
// in-flight gauge bracketing the handler plus request count, latency, and
// payload size observations labeled by method, matched route pattern, and
// status. Passing nil disables the stage entirely.
func Metrics(m metrics.HTTPMetrics) Stage {
	if m == nil {
		return passthrough("metrics")
	}
	return Stage{
		Name: "metrics",
		Wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				start := time.Now()

				m.RecordRequestStart(r.Method)
				defer m.RecordRequestEnd(r.Method)

				ww := wrapWriter(w, r)
				next.ServeHTTP(ww, r)

				var bytesIn int64
				if r.ContentLength > 0 {
					bytesIn = r.ContentLength
				}

				m.RecordRequest(
					r.Method,
					routePattern(r),
					statusOf(ww),
					time.Since(start),
					bytesIn,
					int64(ww.BytesWritten()),
				)
			})
		},
	}
}
