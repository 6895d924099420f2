package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gantrykit/gantry/pkg/httperr"
)

// Timeout returns a stage that bounds each request with a deadline. The
// request context is canceled when the deadline passes; handlers are
// expected to observe ctx.Done() and unwind. If the deadline expired and
// the handler produced no response, the stage answers 504 with a "timeout"
// envelope on its behalf. A response already in flight is left alone since
// its status line is gone.
//
// A zero or negative duration disables the stage.
func Timeout(d time.Duration) Stage {
	if d <= 0 {
		return passthrough("timeout")
	}
	return Stage{
		Name: "timeout",
		Wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx, cancel := context.WithTimeout(r.Context(), d)
				defer cancel()

				ww := wrapWriter(w, r)
				next.ServeHTTP(ww, r.WithContext(ctx))

				if ctx.Err() == context.DeadlineExceeded && ww.Status() == 0 {
					httperr.Write(ww, r, httperr.Timeout("request exceeded the server timeout"))
				}
			})
		},
	}
}
