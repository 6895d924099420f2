package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeEnvelope extracts the error kind and details from a response body.
func decodeEnvelope(t *testing.T, body []byte) (kind, details string) {
	t.Helper()
	var envelope struct {
		Error struct {
			Kind    string `json:"kind"`
			Details string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope.Error.Kind, envelope.Error.Details
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name        string
		authHeader  string
		wantToken   string
		wantSuccess bool
	}{
		{"empty header", "", "", false},
		{"bearer token", "Bearer abc123", "abc123", true},
		{"bearer lowercase", "bearer abc123", "abc123", true},
		{"BEARER uppercase", "BEARER abc123", "abc123", true},
		{"missing token", "Bearer", "", false},
		{"wrong scheme", "Basic abc123", "", false},
		{"no space", "Bearerabc123", "", false},
		{"token with spaces", "Bearer token with spaces", "token with spaces", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			token, ok := extractBearerToken(req)
			assert.Equal(t, tt.wantSuccess, ok)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestMiddleware(t *testing.T) {
	svc := newTestService(t)
	pair, err := svc.IssuePair(Identity{Subject: "alice", Roles: []string{"admin"}})
	require.NoError(t, err)

	t.Run("missing authorization header", func(t *testing.T) {
		h := Middleware(svc).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}))

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		kind, _ := decodeEnvelope(t, rr.Body.Bytes())
		assert.Equal(t, KindMissingToken, kind)
	})

	t.Run("malformed scheme counts as missing", func(t *testing.T) {
		h := Middleware(svc).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		kind, _ := decodeEnvelope(t, rr.Body.Bytes())
		assert.Equal(t, KindMissingToken, kind)
	})

	t.Run("invalid token", func(t *testing.T) {
		h := Middleware(svc).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		kind, _ := decodeEnvelope(t, rr.Body.Bytes())
		assert.Equal(t, KindInvalidToken, kind)
	})

	t.Run("expired token", func(t *testing.T) {
		expiredSvc := newTestService(t, func(c *Config) { c.TokenDuration = -time.Minute })
		expiredPair, err := expiredSvc.IssuePair(Identity{Subject: "alice"})
		require.NoError(t, err)

		h := Middleware(expiredSvc).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+expiredPair.AccessToken)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		kind, details := decodeEnvelope(t, rr.Body.Bytes())
		assert.Equal(t, KindExpiredToken, kind)
		assert.Equal(t, "token has expired", details)
	})

	t.Run("refresh token rejected on api routes", func(t *testing.T) {
		h := Middleware(svc).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		kind, _ := decodeEnvelope(t, rr.Body.Bytes())
		assert.Equal(t, KindInvalidToken, kind)
	})

	t.Run("valid token installs the principal", func(t *testing.T) {
		var captured *Principal
		h := Middleware(svc).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = PrincipalFrom(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, captured)
		assert.Equal(t, "alice", captured.Subject)
		assert.True(t, captured.HasRole("admin"))
	})

	t.Run("nil service disables enforcement", func(t *testing.T) {
		var captured *Principal
		h := Middleware(nil).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = PrincipalFrom(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Nil(t, captured)
	})
}

func TestRequireRole(t *testing.T) {
	t.Run("no principal in context", func(t *testing.T) {
		h := RequireRole("admin").Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}))

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("principal without the role", func(t *testing.T) {
		h := RequireRole("admin").Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithPrincipal(req.Context(), &Principal{Subject: "bob", Roles: []string{"viewer"}}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		kind, _ := decodeEnvelope(t, rr.Body.Bytes())
		assert.Equal(t, "forbidden", kind)
	})

	t.Run("principal with the role", func(t *testing.T) {
		called := false
		h := RequireRole("admin").Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithPrincipal(req.Context(), &Principal{Subject: "alice", Roles: []string{"admin"}}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, called)
	})

	t.Run("any of several roles suffices", func(t *testing.T) {
		h := RequireRole("admin", "operator").Wrap(okTestHandler())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithPrincipal(req.Context(), &Principal{Subject: "carol", Roles: []string{"operator"}}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func okTestHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
