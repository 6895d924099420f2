package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gantrykit/gantry/internal/logger"
	"github.com/gantrykit/gantry/pkg/httperr"
	"github.com/gantrykit/gantry/pkg/metrics"
)

// Recovery returns the stage that converts panics in downstream stages or
// handlers into a 500 envelope, so a single bad request cannot take down
// the process. The panic value and stack are logged and counted.
// http.ErrAbortHandler is re-raised untouched to preserve net/http's
// connection-abort contract.
//
// Install Recovery as the outermost stage: anything above it is unprotected.
func Recovery(m metrics.HTTPMetrics) Stage {
	return Stage{
		Name: "recovery",
		Wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ww := wrapWriter(w, r)

				defer func() {
					rvr := recover()
					if rvr == nil {
						return
					}
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}

					logger.ErrorCtx(r.Context(), "panic recovered while serving request",
						logger.Method(r.Method),
						logger.Path(r.URL.Path),
						slog.Any("panic", rvr),
						slog.String("stack", string(debug.Stack())),
					)

					if m != nil {
						m.RecordPanic(r.Method, routePattern(r))
					}

					// Only write the envelope if the handler had not
					// started a response before panicking. The panic value
					// stays in the logs; clients get the generic envelope.
					if ww.Status() == 0 {
						httperr.Write(ww, r, httperr.Internal(nil))
					}
				}()

				next.ServeHTTP(ww, r)
			})
		},
	}
}
