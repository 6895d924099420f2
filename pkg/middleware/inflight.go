package middleware

import (
	"net/http"
	"sync/atomic"

	"github.com/gantrykit/gantry/pkg/httperr"
)

// Tracker counts requests currently inside the pipeline and gates new ones
// once the server starts draining. The server reads InFlight during
// shutdown to decide when the drain is complete.
type Tracker struct {
	inFlight atomic.Int64
	draining atomic.Bool
}

// Add registers one in-flight request and returns the new count.
func (t *Tracker) Add() int64 {
	return t.inFlight.Add(1)
}

// Done deregisters one in-flight request and returns the new count.
func (t *Tracker) Done() int64 {
	return t.inFlight.Add(-1)
}

// InFlight returns the number of requests currently being served.
func (t *Tracker) InFlight() int64 {
	return t.inFlight.Load()
}

// SetDraining flips the drain gate. Once set, the InFlight stage refuses
// new non-health requests with 503.
func (t *Tracker) SetDraining(v bool) {
	t.draining.Store(v)
}

// Draining reports whether the drain gate is set.
func (t *Tracker) Draining() bool {
	return t.draining.Load()
}

// InFlight returns a stage that tracks active requests in t and refuses new
// work once the server is draining. Health endpoints stay reachable during
// the drain so orchestrator probes can still observe the instance; the
// readiness probe is what reports the instance as out of rotation.
func InFlight(t *Tracker) Stage {
	if t == nil {
		return passthrough("in_flight")
	}
	return Stage{
		Name: "in_flight",
		Wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if t.Draining() && !isHealthPath(r.URL.Path) {
					httperr.Write(w, r, httperr.Unavailable("server is shutting down"))
					return
				}

				t.Add()
				defer t.Done()

				next.ServeHTTP(w, r)
			})
		},
	}
}
