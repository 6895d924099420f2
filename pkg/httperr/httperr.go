// Package httperr defines the JSON error envelope shared by every HTTP
// surface of the toolkit.
//
// All error responses follow this structure for consistency:
//
//	{"error": {"kind": "auth_expired_token", "details": "token has expired"}}
//
// Kind is a stable machine-readable identifier intended for clients and
// alerting; Details is a human-readable explanation. Any error value can be
// rendered: values that do not implement the Error interface fall back to a
// 500 "unhandled_error" envelope so handlers never leak plain-text bodies.
package httperr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gantrykit/gantry/internal/logger"
)

// Error is implemented by errors that know their HTTP representation.
type Error interface {
	error

	// Status returns the HTTP status code for this error.
	Status() int
	// Kind returns a stable machine-readable identifier.
	Kind() string
	// Details returns a human-readable explanation.
	Details() string
}

// Envelope is the JSON wire shape for error responses.
type Envelope struct {
	Error Info `json:"error"`
}

// Info carries the kind and details of a rendered error.
type Info struct {
	Kind    string `json:"kind"`
	Details string `json:"details"`
}

// appError is the standard Error implementation returned by the constructors.
type appError struct {
	status  int
	kind    string
	details string
}

func (e *appError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.details)
}

func (e *appError) Status() int     { return e.status }
func (e *appError) Kind() string    { return e.kind }
func (e *appError) Details() string { return e.details }

// wrapError preserves the original error chain for errors.Is / errors.As
// while carrying the HTTP representation.
type wrapError struct {
	appError
	cause error
}

func (e *wrapError) Unwrap() error { return e.cause }

// New creates an Error with the given HTTP status, kind and details.
func New(status int, kind, details string) Error {
	return &appError{status: status, kind: kind, details: details}
}

// Newf creates an Error with printf-style details.
func Newf(status int, kind, format string, args ...any) Error {
	return &appError{status: status, kind: kind, details: fmt.Sprintf(format, args...)}
}

// Wrap attaches an HTTP representation to err. The returned Error unwraps to
// err, so sentinel comparisons on the original error keep working.
func Wrap(status int, kind string, err error) Error {
	return &wrapError{
		appError: appError{status: status, kind: kind, details: err.Error()},
		cause:    err,
	}
}

// BadRequest returns a 400 error with the "bad_request" kind.
func BadRequest(details string) Error {
	return New(http.StatusBadRequest, "bad_request", details)
}

// Unauthorized returns a 401 error with the given kind.
func Unauthorized(kind, details string) Error {
	return New(http.StatusUnauthorized, kind, details)
}

// Forbidden returns a 403 error with the "forbidden" kind.
func Forbidden(details string) Error {
	return New(http.StatusForbidden, "forbidden", details)
}

// NotFound returns a 404 error with the "not_found" kind.
func NotFound(details string) Error {
	return New(http.StatusNotFound, "not_found", details)
}

// Conflict returns a 409 error with the "conflict" kind.
func Conflict(details string) Error {
	return New(http.StatusConflict, "conflict", details)
}

// Validation returns a 422 error with the "validation_error" kind.
func Validation(details string) Error {
	return New(http.StatusUnprocessableEntity, "validation_error", details)
}

// Timeout returns a 504 error with the "timeout" kind, used when a handler
// exceeds the per-request deadline.
func Timeout(details string) Error {
	return New(http.StatusGatewayTimeout, "timeout", details)
}

// Unavailable returns a 503 error with the "unavailable" kind, used while
// the server is draining or a backing resource is down.
func Unavailable(details string) Error {
	return New(http.StatusServiceUnavailable, "unavailable", details)
}

// Internal wraps err into a 500 "unhandled_error" envelope.
func Internal(err error) Error {
	if err == nil {
		return New(http.StatusInternalServerError, "unhandled_error", "internal server error")
	}
	return Wrap(http.StatusInternalServerError, "unhandled_error", err)
}

// From normalizes any error into an Error. Values already implementing the
// interface pass through; everything else becomes a 500 unhandled_error.
func From(err error) Error {
	if err == nil {
		return nil
	}
	var e Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Write renders err on w using the standard envelope.
//
// Server-side failures (5xx) are logged at error level with the request's
// trace context; client-side failures are logged at debug level only.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	e := From(err)
	if e == nil {
		return
	}

	if e.Status() >= http.StatusInternalServerError {
		logger.ErrorCtx(r.Context(), "Request failed",
			logger.KeyErrorKind, e.Kind(),
			logger.KeyError, e.Details(),
			logger.KeyStatus, e.Status(),
		)
	} else {
		logger.DebugCtx(r.Context(), "Request rejected",
			logger.KeyErrorKind, e.Kind(),
			logger.KeyStatus, e.Status(),
		)
	}

	WriteJSON(w, e.Status(), Envelope{Error: Info{Kind: e.Kind(), Details: e.Details()}})
}

// WriteJSON writes a JSON response with the given status code.
//
// Encoding is done to a buffer first so a failure can still be reported
// before any headers are sent.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", logger.KeyError, err.Error())
		http.Error(w, `{"error":{"kind":"unhandled_error","details":"failed to encode response"}}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
