// Package health declares the wire shape of the server health endpoints
// for CLI consumers.
package health

// Response mirrors the JSON body of /health and /health/ready.
type Response struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Service   string  `json:"service"`
	State     string  `json:"state"`
	Uptime    string  `json:"uptime,omitempty"`
	Checks    []Check `json:"checks,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Check is one readiness dependency probe result.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}
