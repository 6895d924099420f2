package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the header carrying the request correlation ID.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen caps inbound IDs so a hostile client cannot inflate logs.
const maxRequestIDLen = 64

type requestIDCtxKey struct{}

// RequestID returns a stage that assigns every request a correlation ID.
// An inbound X-Request-ID is honored so IDs survive proxy hops; otherwise
// a fresh UUID is generated. The ID is stored in the request context and
// echoed on the response so clients can quote it when reporting problems.
func RequestID() Stage {
	return Stage{
		Name: "request_id",
		Wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				id := r.Header.Get(RequestIDHeader)
				if id == "" || len(id) > maxRequestIDLen {
					id = uuid.NewString()
				}

				ctx := context.WithValue(r.Context(), requestIDCtxKey{}, id)
				w.Header().Set(RequestIDHeader, id)

				next.ServeHTTP(w, r.WithContext(ctx))
			})
		},
	}
}

// GetRequestID returns the request correlation ID, or "" when the RequestID
// stage is not installed.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey{}).(string)
	return id
}
