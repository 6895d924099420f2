package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORS returns the stage enforcing the configured cross-origin policy.
//
// Preflight OPTIONS requests from an allowed origin are answered directly
// with 204 and never reach the router. Other requests from an allowed
// origin gain the Access-Control-* response headers. Requests from
// disallowed origins pass through without CORS headers; the browser
// enforces the block. Vary: Origin is always set on cross-origin traffic
// so caches do not serve one origin's policy to another.
func CORS(cfg CORSConfig) Stage {
	if !cfg.Enabled {
		return passthrough("cors")
	}

	allowAll := false
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			allowAll = true
			break
		}
	}

	allowMethods := strings.Join(cfg.AllowedMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowedHeaders, ", ")
	exposeHeaders := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return Stage{
		Name: "cors",
		Wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// Same-origin or non-browser client
					next.ServeHTTP(w, r)
					return
				}

				w.Header().Add("Vary", "Origin")

				if !allowAll && !originAllowed(cfg.AllowedOrigins, origin) {
					next.ServeHTTP(w, r)
					return
				}

				allowOrigin := origin
				if allowAll && !cfg.AllowCredentials {
					allowOrigin = "*"
				}
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				if exposeHeaders != "" {
					w.Header().Set("Access-Control-Expose-Headers", exposeHeaders)
				}

				if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
					w.Header().Set("Access-Control-Allow-Methods", allowMethods)
					w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
					if cfg.MaxAge > 0 {
						w.Header().Set("Access-Control-Max-Age", maxAge)
					}
					w.WriteHeader(http.StatusNoContent)
					return
				}

				next.ServeHTTP(w, r)
			})
		},
	}
}

// originAllowed matches the request origin against the configured list.
// Entries may be exact origins or subdomain wildcards like
// "https://*.example.com", which match any single-label or nested
// subdomain but not the bare domain.
func originAllowed(allowed []string, origin string) bool {
	for _, entry := range allowed {
		if entry == origin {
			return true
		}
		if scheme, host, ok := strings.Cut(entry, "*."); ok && strings.HasSuffix(scheme, "://") {
			if strings.HasPrefix(origin, scheme) && strings.HasSuffix(origin, "."+host) {
				return true
			}
		}
	}
	return false
}
