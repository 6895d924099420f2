package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gantrykit/gantry/internal/logger"
	"github.com/gantrykit/gantry/pkg/telemetry"
)

// Logging returns the stage that builds the request's log context and logs
// request start and completion. Downstream stages and handlers that log
// through the *Ctx logger variants automatically inherit the request id,
// trace ids, and client IP established here.
//
// Header values are logged only on the start line, at debug level, and
// only after passing through the redactor, so credentials never reach the
// log stream. Healthcheck traffic is logged at debug on completion too, to
// keep probe noise out of production logs.
func Logging(red *Redactor) Stage {
	return Stage{
		Name: "logging",
		Wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				start := time.Now()

				lc := logger.NewLogContext(clientIP(r))
				lc = lc.WithRequestID(GetRequestID(r.Context()))
				lc = lc.WithRoute(r.Method, "")
				if traceID := telemetry.TraceID(r.Context()); traceID != "" {
					lc = lc.WithTrace(traceID, telemetry.SpanID(r.Context()))
				}
				ctx := logger.WithContext(r.Context(), lc)

				logger.DebugCtx(ctx, "request started",
					logger.Path(r.URL.Path),
					logger.UserAgent(r.UserAgent()),
					slog.Any("headers", red.Clean(r.Header)),
				)

				ww := wrapWriter(w, r)
				next.ServeHTTP(ww, r.WithContext(ctx))

				args := []any{
					logger.Route(routePattern(r)),
					logger.Path(r.URL.Path),
					logger.Status(statusOf(ww)),
					logger.BytesOut(int64(ww.BytesWritten())),
					logger.DurationMs(logger.Duration(start)),
				}

				// Probe traffic goes to debug to avoid polluting logs
				if isHealthPath(r.URL.Path) {
					logger.DebugCtx(ctx, "request completed", args...)
				} else {
					logger.InfoCtx(ctx, "request completed", args...)
				}
			})
		},
	}
}
