package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so that log
// aggregation and querying work the same for every component.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID   = "trace_id"   // OpenTelemetry trace ID for request correlation
	KeySpanID    = "span_id"    // OpenTelemetry span ID for operation tracking
	KeyRequestID = "request_id" // Request correlation ID (X-Request-ID)

	// ========================================================================
	// HTTP Request
	// ========================================================================
	KeyMethod    = "method"     // HTTP method: GET, POST, etc.
	KeyRoute     = "route"      // Matched route pattern: /users/{id}
	KeyPath      = "path"       // Raw request path
	KeyStatus    = "status"     // HTTP response status code
	KeyProto     = "proto"      // HTTP protocol version
	KeyHost      = "host"       // Request Host header
	KeyUserAgent = "user_agent" // Client User-Agent header
	KeyBytesIn   = "bytes_in"   // Request body size in bytes
	KeyBytesOut  = "bytes_out"  // Response body size in bytes

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP  = "client_ip" // Client IP address
	KeyPrincipal = "principal" // Authenticated principal subject
	KeyRole      = "role"      // Principal role
	KeyUsername  = "username"  // Username for identity operations

	// ========================================================================
	// Lifecycle & Components
	// ========================================================================
	KeyComponent = "component" // Component name: server, pool, telemetry, ...
	KeyState     = "state"     // Lifecycle state: starting, running, draining, stopped
	KeyAddr      = "addr"      // Listen or remote address
	KeySignal    = "signal"    // OS signal name
	KeyInFlight  = "in_flight" // Requests currently being served
	KeyProcess   = "process"   // Managed background process name

	// ========================================================================
	// Database Pool
	// ========================================================================
	KeyDatabase   = "database"    // Database name
	KeyConnsTotal = "conns_total" // Total pooled connections
	KeyConnsIdle  = "conns_idle"  // Idle pooled connections
	KeyConnsInUse = "conns_in_use"
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts
	KeyMigration  = "migration"   // Migration version or name

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorKind  = "error_kind"  // Stable machine-readable error kind
	KeyEndpoint   = "endpoint"    // Remote endpoint (OTLP collector, ...)
	KeyConfigFile = "config_file" // Configuration file path
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// RequestID returns a slog.Attr for the request correlation ID
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Method returns a slog.Attr for the HTTP method
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Route returns a slog.Attr for the matched route pattern
func Route(pattern string) slog.Attr {
	return slog.String(KeyRoute, pattern)
}

// Path returns a slog.Attr for the raw request path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Status returns a slog.Attr for the HTTP response status code
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// UserAgent returns a slog.Attr for the client User-Agent
func UserAgent(ua string) slog.Attr {
	return slog.String(KeyUserAgent, ua)
}

// BytesIn returns a slog.Attr for the request body size
func BytesIn(n int64) slog.Attr {
	return slog.Int64(KeyBytesIn, n)
}

// BytesOut returns a slog.Attr for the response body size
func BytesOut(n int64) slog.Attr {
	return slog.Int64(KeyBytesOut, n)
}

// ClientIP returns a slog.Attr for the client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// Principal returns a slog.Attr for the authenticated principal
func Principal(subject string) slog.Attr {
	return slog.String(KeyPrincipal, subject)
}

// Username returns a slog.Attr for a username
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// Component returns a slog.Attr for a component name
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// State returns a slog.Attr for a lifecycle state
func State(s string) slog.Attr {
	return slog.String(KeyState, s)
}

// Addr returns a slog.Attr for a listen or remote address
func Addr(addr string) slog.Attr {
	return slog.String(KeyAddr, addr)
}

// Signal returns a slog.Attr for an OS signal name
func Signal(sig string) slog.Attr {
	return slog.String(KeySignal, sig)
}

// InFlight returns a slog.Attr for the in-flight request count
func InFlight(n int64) slog.Attr {
	return slog.Int64(KeyInFlight, n)
}

// Process returns a slog.Attr for a managed process name
func Process(name string) slog.Attr {
	return slog.String(KeyProcess, name)
}

// Database returns a slog.Attr for a database name
func Database(name string) slog.Attr {
	return slog.String(KeyDatabase, name)
}

// Attempt returns a slog.Attr for a retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorKind returns a slog.Attr for a stable error kind
func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}

// Endpoint returns a slog.Attr for a remote endpoint address
func Endpoint(addr string) slog.Attr {
	return slog.String(KeyEndpoint, addr)
}

// ConfigFile returns a slog.Attr for a configuration file path
func ConfigFile(path string) slog.Attr {
	return slog.String(KeyConfigFile, path)
}
