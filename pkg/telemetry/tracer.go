package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for service operations.
// These follow OpenTelemetry semantic conventions where applicable.
// HTTP keys use the stable http.*/url.* names, database keys use db.*.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.address"
	AttrClientPort = "client.port"

	// ========================================================================
	// HTTP request/response attributes
	// ========================================================================
	AttrHTTPMethod       = "http.request.method"
	AttrHTTPRoute        = "http.route"
	AttrHTTPStatus       = "http.response.status_code"
	AttrHTTPRequestSize  = "http.request.body.size"
	AttrHTTPResponseSize = "http.response.body.size"
	AttrHTTPRequestID    = "http.request.id"
	AttrURLPath          = "url.path"
	AttrURLQuery         = "url.query"
	AttrUserAgent        = "user_agent.original"
	AttrNetworkProto     = "network.protocol.version"

	// ========================================================================
	// Database attributes (connection pool, queries)
	// ========================================================================
	AttrDBSystem    = "db.system"
	AttrDBName      = "db.namespace"
	AttrDBOperation = "db.operation.name"
	AttrDBAttempt   = "db.operation.attempt"

	// ========================================================================
	// User/Auth attributes
	// ========================================================================
	AttrPrincipal  = "user.name"
	AttrUserRole   = "user.role"
	AttrAuthScheme = "auth.scheme"

	// ========================================================================
	// Service lifecycle attributes
	// ========================================================================
	AttrProcessName  = "process.runtime.name"
	AttrServiceState = "service.state"
)

// Operation names for internal spans. StartDBSpan and StartAuthSpan
// prefix these with their component ("db.", "auth.") to form the span
// name, so "acquire" becomes the span "db.acquire".
const (
	// Database operations
	OpDBAcquire     = "acquire"
	OpDBQuery       = "query"
	OpDBTransaction = "transaction"
	OpDBMigrate     = "migrate"
	OpDBHealthCheck = "health_check"

	// Credential operations
	OpAuthValidate = "validate"
	OpAuthIssue    = "issue"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// HTTPMethod returns an attribute for the HTTP request method
func HTTPMethod(method string) attribute.KeyValue {
	return attribute.String(AttrHTTPMethod, method)
}

// HTTPRoute returns an attribute for the matched route pattern
func HTTPRoute(route string) attribute.KeyValue {
	return attribute.String(AttrHTTPRoute, route)
}

// HTTPStatus returns an attribute for the HTTP response status code
func HTTPStatus(status int) attribute.KeyValue {
	return attribute.Int(AttrHTTPStatus, status)
}

// HTTPRequestSize returns an attribute for the request body size in bytes
func HTTPRequestSize(size int64) attribute.KeyValue {
	return attribute.Int64(AttrHTTPRequestSize, size)
}

// HTTPResponseSize returns an attribute for the response body size in bytes
func HTTPResponseSize(size int64) attribute.KeyValue {
	return attribute.Int64(AttrHTTPResponseSize, size)
}

// HTTPRequestID returns an attribute for the request correlation ID
func HTTPRequestID(id string) attribute.KeyValue {
	return attribute.String(AttrHTTPRequestID, id)
}

// URLPath returns an attribute for the raw request path
func URLPath(path string) attribute.KeyValue {
	return attribute.String(AttrURLPath, path)
}

// UserAgent returns an attribute for the client user agent
func UserAgent(ua string) attribute.KeyValue {
	return attribute.String(AttrUserAgent, ua)
}

// DBSystem returns an attribute for the database product (e.g. "postgresql")
func DBSystem(system string) attribute.KeyValue {
	return attribute.String(AttrDBSystem, system)
}

// DBName returns an attribute for the database name
func DBName(name string) attribute.KeyValue {
	return attribute.String(AttrDBName, name)
}

// DBOperation returns an attribute for the database operation name
func DBOperation(op string) attribute.KeyValue {
	return attribute.String(AttrDBOperation, op)
}

// DBAttempt returns an attribute for the retry attempt number, starting at 1
func DBAttempt(attempt int) attribute.KeyValue {
	return attribute.Int(AttrDBAttempt, attempt)
}

// Principal returns an attribute for the authenticated principal name
func Principal(name string) attribute.KeyValue {
	return attribute.String(AttrPrincipal, name)
}

// UserRole returns an attribute for the authenticated principal role
func UserRole(role string) attribute.KeyValue {
	return attribute.String(AttrUserRole, role)
}

// AuthScheme returns an attribute for the authentication scheme (e.g. "bearer")
func AuthScheme(scheme string) attribute.KeyValue {
	return attribute.String(AttrAuthScheme, scheme)
}

// ServiceState returns an attribute for the server lifecycle state
func ServiceState(state string) attribute.KeyValue {
	return attribute.String(AttrServiceState, state)
}

// StartServerSpan starts a SERVER span for an HTTP request. The span name
// follows the "<METHOD> <route>" convention; when the route is not yet known
// (e.g. before routing) pass an empty route and the method alone is used.
func StartServerSpan(ctx context.Context, method, route string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	name := method
	if route != "" {
		name = method + " " + route
	}

	allAttrs := []attribute.KeyValue{
		HTTPMethod(method),
	}
	if route != "" {
		allAttrs = append(allAttrs, HTTPRoute(route))
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(allAttrs...),
	)
}

// StartDBSpan starts a CLIENT span for a database operation.
func StartDBSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		DBSystem("postgresql"),
		DBOperation(operation),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(allAttrs...),
	)
}

// StartAuthSpan starts an INTERNAL span for a credential operation.
func StartAuthSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "auth."+operation, trace.WithAttributes(attrs...))
}
