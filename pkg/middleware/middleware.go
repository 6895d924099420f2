// Package middleware provides the HTTP middleware pipeline for gantry
// services.
//
// Each middleware is a named Stage wrapping an http.Handler. Stages are
// assembled once at startup into a Chain. The chain applies stages in
// registration order: the first stage registered is the outermost wrapper,
// so it sees the request first and the response last. Stages may
// short-circuit by writing a response without calling the next handler.
//
// The stock pipeline, outermost first:
//
//	Recovery -> RequestID -> RealIP -> InFlight -> Trace -> Redact ->
//	Logging -> CORS -> Compress -> Timeout -> Metrics -> Auth -> router
package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gantrykit/gantry/pkg/httperr"
)

// Stage is a named middleware. The name shows up in startup logs and route
// listings; the wrap function is invoked once at chain build time.
type Stage struct {
	Name string
	Wrap func(next http.Handler) http.Handler
}

// Chain is an ordered list of stages assembled in front of a router.
type Chain struct {
	stages []Stage
}

// NewChain creates a chain from the given stages.
func NewChain(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// Use appends stages to the chain and returns the chain.
func (c *Chain) Use(stages ...Stage) *Chain {
	c.stages = append(c.stages, stages...)
	return c
}

// Then wraps the handler with every registered stage, first registered
// outermost. A nil handler falls back to the service 404 responder.
func (c *Chain) Then(h http.Handler) http.Handler {
	if h == nil {
		h = httperr.NotFoundHandler()
	}
	for i := len(c.stages) - 1; i >= 0; i-- {
		if c.stages[i].Wrap == nil {
			continue
		}
		h = c.stages[i].Wrap(h)
	}
	return h
}

// Mount registers every stage on the router in chain order. Stages mounted
// this way run inside the router's context, which gives them access to the
// matched route pattern after the inner handler returns.
func (c *Chain) Mount(r chi.Router) {
	for _, s := range c.stages {
		if s.Wrap == nil {
			continue
		}
		r.Use(s.Wrap)
	}
}

// Names returns the stage names in registration order, outermost first.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.stages))
	for _, s := range c.stages {
		names = append(names, s.Name)
	}
	return names
}

// Len returns the number of registered stages.
func (c *Chain) Len() int {
	return len(c.stages)
}

// passthrough is used by stages that are disabled by configuration.
func passthrough(name string) Stage {
	return Stage{
		Name: name,
		Wrap: func(next http.Handler) http.Handler { return next },
	}
}

// ExceptHealth returns a stage identical to s except that health endpoints
// bypass it. Liveness and readiness probes must stay reachable even behind
// gating stages like authentication.
func ExceptHealth(s Stage) Stage {
	return Stage{
		Name: s.Name,
		Wrap: func(next http.Handler) http.Handler {
			if s.Wrap == nil {
				return next
			}
			gated := s.Wrap(next)
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if isHealthPath(r.URL.Path) {
					next.ServeHTTP(w, r)
					return
				}
				gated.ServeHTTP(w, r)
			})
		},
	}
}

// wrapWriter returns w as a status-capturing writer, reusing an existing
// wrapper when an outer stage already installed one.
func wrapWriter(w http.ResponseWriter, r *http.Request) chimw.WrapResponseWriter {
	if ww, ok := w.(chimw.WrapResponseWriter); ok {
		return ww
	}
	return chimw.NewWrapResponseWriter(w, r.ProtoMajor)
}

// statusOf normalizes the captured status. A handler that wrote a body
// without calling WriteHeader got an implicit 200 from net/http.
func statusOf(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}

// routePattern returns the chi route pattern that matched the request, or
// "unmatched" when routing found no handler. Only meaningful after the
// inner handler has returned.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "unmatched"
}

// clientIP returns the request's client IP without the port. RealIP, when
// installed upstream, has already folded proxy headers into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isHealthPath returns true if the request path is a healthcheck endpoint.
func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}
