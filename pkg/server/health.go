package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gantrykit/gantry/pkg/httperr"
)

// CheckFunc probes one readiness dependency.
type CheckFunc func(ctx context.Context) error

type readyCheck struct {
	name  string
	check CheckFunc
}

// checkTimeout bounds the dependency probes of a single readiness request.
const checkTimeout = 5 * time.Second

type healthResponse struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Service   string        `json:"service"`
	State     string        `json:"state"`
	Uptime    string        `json:"uptime,omitempty"`
	Checks    []checkResult `json:"checks,omitempty"`
	Error     string        `json:"error,omitempty"`
}

type checkResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleHealth is the liveness probe: 200 whenever the process can answer,
// regardless of lifecycle state, so a draining server is alive but not ready.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httperr.WriteJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   s.config.Name,
		State:     s.State().String(),
		Uptime:    s.uptime(),
	})
}

// uptime reports how long the server has been up, empty before Run.
func (s *Server) uptime() string {
	started := s.started.Load()
	if started == nil {
		return ""
	}
	return time.Since(*started).Round(time.Second).String()
}

// handleReady is the readiness probe: 200 only while Running and while every
// registered dependency check passes. Anything else reports 503 so load
// balancers route traffic away, including during a drain.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	state := s.State()
	if state != StateRunning {
		httperr.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "unhealthy",
			Timestamp: time.Now().UTC(),
			Service:   s.config.Name,
			State:     state.String(),
			Error:     "server is " + state.String(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   s.config.Name,
		State:     state.String(),
	}
	status := http.StatusOK

	for _, rc := range s.checks {
		start := time.Now()
		err := rc.check(ctx)

		result := checkResult{
			Name:    rc.name,
			Status:  "healthy",
			Latency: time.Since(start).Round(time.Microsecond).String(),
		}
		if err != nil {
			result.Status = "unhealthy"
			result.Error = err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
		resp.Checks = append(resp.Checks, result)
	}

	httperr.WriteJSON(w, status, resp)
}
