package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel/codes"

	"github.com/gantrykit/gantry/pkg/telemetry"
)

// Trace returns a stage that wraps each request in an OpenTelemetry server
// span. Inbound W3C trace context is honored, so the span joins the
// caller's trace when one is present.
//
// The span starts named after the method alone; once the inner handler
// returns and the route is known, the span is renamed to "METHOD route"
// and tagged with the matched pattern, response status, and response size.
// Responses with a 5xx status mark the span as an error.
func Trace() Stage {
	return Stage{
		Name: "trace",
		Wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := telemetry.Extract(r.Context(), r.Header)

				ctx, span := telemetry.StartServerSpan(ctx, r.Method, "",
					telemetry.URLPath(r.URL.Path),
					telemetry.ClientIP(clientIP(r)),
					telemetry.UserAgent(r.UserAgent()),
					telemetry.HTTPRequestID(GetRequestID(ctx)),
				)
				defer span.End()

				if r.ContentLength > 0 {
					span.SetAttributes(telemetry.HTTPRequestSize(r.ContentLength))
				}

				ww := wrapWriter(w, r)
				next.ServeHTTP(ww, r.WithContext(ctx))

				route := routePattern(r)
				status := statusOf(ww)

				span.SetName(r.Method + " " + route)
				span.SetAttributes(
					telemetry.HTTPRoute(route),
					telemetry.HTTPStatus(status),
					telemetry.HTTPResponseSize(int64(ww.BytesWritten())),
				)
				if status >= http.StatusInternalServerError {
					span.SetStatus(codes.Error, http.StatusText(status))
				}
			})
		},
	}
}
