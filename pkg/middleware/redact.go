package middleware

import (
	"context"
	"net/http"
	"net/textproto"
)

// RedactedValue replaces sensitive header values in logs and traces.
const RedactedValue = "[REDACTED]"

// DefaultRedactedHeaders are always treated as sensitive, regardless of
// configuration.
var DefaultRedactedHeaders = []string{"Authorization", "Proxy-Authorization", "Cookie", "Set-Cookie"}

// Redactor decides which header values must never be emitted. It is built
// once at startup and shared across requests; all methods are safe for
// concurrent use.
type Redactor struct {
	sensitive map[string]struct{}
}

// NewRedactor builds a redactor covering DefaultRedactedHeaders plus any
// extra names. Names are matched case-insensitively.
func NewRedactor(extra ...string) *Redactor {
	r := &Redactor{sensitive: make(map[string]struct{}, len(DefaultRedactedHeaders)+len(extra))}
	for _, name := range DefaultRedactedHeaders {
		r.sensitive[textproto.CanonicalMIMEHeaderKey(name)] = struct{}{}
	}
	for _, name := range extra {
		if name == "" {
			continue
		}
		r.sensitive[textproto.CanonicalMIMEHeaderKey(name)] = struct{}{}
	}
	return r
}

// IsSensitive reports whether the named header must be redacted.
func (r *Redactor) IsSensitive(name string) bool {
	if r == nil {
		r = defaultRedactor
	}
	_, ok := r.sensitive[textproto.CanonicalMIMEHeaderKey(name)]
	return ok
}

// Clean returns h with sensitive values replaced by RedactedValue. When no
// sensitive header is present the input is returned as-is, so callers must
// treat the result as read-only.
func (r *Redactor) Clean(h http.Header) http.Header {
	if r == nil {
		r = defaultRedactor
	}

	dirty := false
	for name := range h {
		if _, ok := r.sensitive[name]; ok {
			dirty = true
			break
		}
	}
	if !dirty {
		return h
	}

	out := make(http.Header, len(h))
	for name, values := range h {
		if _, ok := r.sensitive[name]; ok {
			out[name] = []string{RedactedValue}
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	return out
}

// Value returns the named header's value, redacted if sensitive.
func (r *Redactor) Value(h http.Header, name string) string {
	if r.IsSensitive(name) {
		if h.Get(name) == "" {
			return ""
		}
		return RedactedValue
	}
	return h.Get(name)
}

// defaultRedactor covers only the built-in sensitive headers.
var defaultRedactor = NewRedactor()

type redactorCtxKey struct{}

// Redact returns a stage that makes the configured redactor available to
// downstream consumers via RedactorFrom. The stage itself does not touch
// the request; it exists so handlers deep in the stack apply the same
// policy as the pipeline's own logging.
func Redact(r *Redactor) Stage {
	if r == nil {
		r = defaultRedactor
	}
	return Stage{
		Name: "redact",
		Wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := context.WithValue(req.Context(), redactorCtxKey{}, r)
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		},
	}
}

// RedactorFrom returns the redactor installed by the Redact stage, or the
// default redactor when none is present. Never returns nil.
func RedactorFrom(ctx context.Context) *Redactor {
	if r, ok := ctx.Value(redactorCtxKey{}).(*Redactor); ok && r != nil {
		return r
	}
	return defaultRedactor
}
