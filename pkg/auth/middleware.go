package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gantrykit/gantry/internal/logger"
	"github.com/gantrykit/gantry/pkg/httperr"
	"github.com/gantrykit/gantry/pkg/middleware"
)

// Error kinds carried in 401 envelopes. All authentication failures share
// the 401 status; the kind tells clients whether to re-authenticate
// (expired) or fix their request (missing/invalid).
const (
	KindMissingToken = "auth_missing_token"
	KindInvalidToken = "auth_invalid_token"
	KindExpiredToken = "auth_expired_token"
)

// Middleware returns the pipeline stage enforcing bearer authentication.
// Requests with a valid access token proceed with the Principal installed
// in the context, exactly once; everything else is refused with a 401
// envelope before reaching the router. A nil service disables enforcement.
func Middleware(svc *Service) middleware.Stage {
	if svc == nil {
		return middleware.Stage{
			Name: "auth",
			Wrap: func(next http.Handler) http.Handler { return next },
		}
	}
	return middleware.Stage{
		Name: "auth",
		Wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				token, ok := extractBearerToken(r)
				if !ok {
					unauthorized(w, r, ErrMissingToken)
					return
				}

				claims, err := svc.ValidateAccess(token)
				if err != nil {
					unauthorized(w, r, err)
					return
				}

				p := claims.Principal()
				ctx := WithPrincipal(r.Context(), p)
				if lc := logger.FromContext(ctx); lc != nil {
					ctx = logger.WithContext(ctx, lc.WithPrincipal(p.Subject))
				}

				next.ServeHTTP(w, r.WithContext(ctx))
			})
		},
	}
}

// RequireRole returns a guard stage allowing only principals holding at
// least one of the given roles. Mount it inside a route group, after the
// auth stage. Unauthenticated requests get 401, authenticated ones without
// the role get 403.
func RequireRole(roles ...string) middleware.Stage {
	return middleware.Stage{
		Name: "require_role",
		Wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				p := PrincipalFrom(r.Context())
				if p == nil {
					unauthorized(w, r, ErrMissingToken)
					return
				}

				for _, role := range roles {
					if p.HasRole(role) {
						next.ServeHTTP(w, r)
						return
					}
				}

				logger.DebugCtx(r.Context(), "principal lacks required role",
					logger.Principal(p.Subject),
					logger.Route(r.URL.Path),
				)
				httperr.Write(w, r, httperr.Forbidden("insufficient role"))
			})
		},
	}
}

// unauthorized renders the 401 envelope for an authentication failure.
func unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	kind := KindInvalidToken
	switch {
	case errors.Is(err, ErrMissingToken):
		kind = KindMissingToken
	case errors.Is(err, ErrExpiredToken):
		kind = KindExpiredToken
	}

	logger.DebugCtx(r.Context(), "request not authenticated",
		logger.ErrorKind(kind),
		logger.Err(err),
	)
	httperr.Write(w, r, httperr.Unauthorized(kind, err.Error()))
}

// extractBearerToken pulls the token from the Authorization header.
// The Bearer scheme is matched case-insensitively.
func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}

	return token, true
}
