package commands

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gantrykit/gantry/internal/logger"
	"github.com/gantrykit/gantry/pkg/auth"
	"github.com/gantrykit/gantry/pkg/httperr"
	"github.com/gantrykit/gantry/pkg/identity"
	"github.com/gantrykit/gantry/pkg/postgres"
)

// serverDeps carries the backends gantryd handlers use. Nil fields mean
// the subsystem is disabled in configuration.
type serverDeps struct {
	auth  *auth.Service
	users *identity.Store
	pool  *postgres.Pool
}

// buildRouter assembles the gantryd route table. Ping, login and refresh
// stay public; everything else requires a valid access token, and the
// admin group additionally requires the admin role.
func buildRouter(deps serverDeps) chi.Router {
	r := chi.NewRouter()

	r.Get("/ping", handlePing)
	r.Post("/login", handleLogin(deps))
	r.Post("/token/refresh", handleRefresh(deps))

	r.Group(func(pr chi.Router) {
		// With authentication disabled this is a passthrough and the
		// handlers behind it answer 401 for want of a principal.
		pr.Use(auth.Middleware(deps.auth).Wrap)

		pr.Get("/me", handleMe(deps))
		pr.Get("/db/ping", handleDBPing(deps))

		pr.Group(func(ar chi.Router) {
			ar.Use(auth.RequireRole(string(identity.RoleAdmin)).Wrap)
			ar.Get("/admin/users", handleListUsers(deps))
		})
	})

	return r
}

func handlePing(w http.ResponseWriter, r *http.Request) {
	httperr.WriteJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin exchanges a username/password pair for a token pair.
func handleLogin(deps serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.auth == nil || deps.users == nil {
			httperr.Write(w, r, httperr.Unavailable("authentication is disabled"))
			return
		}

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperr.Write(w, r, httperr.BadRequest("malformed login request"))
			return
		}
		if req.Username == "" || req.Password == "" {
			httperr.Write(w, r, httperr.Validation("username and password are required"))
			return
		}

		user, err := deps.users.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrInvalidCredentials):
				httperr.Write(w, r, httperr.Unauthorized("invalid_credentials", "username or password is incorrect"))
			case errors.Is(err, identity.ErrUserDisabled):
				httperr.Write(w, r, httperr.Forbidden("account is disabled"))
			default:
				httperr.Write(w, r, httperr.Internal(err))
			}
			return
		}

		// Best effort: a failed timestamp update must not fail the login.
		if err := deps.users.UpdateLastLogin(r.Context(), user.Username, time.Now().UTC()); err != nil {
			logger.WarnCtx(r.Context(), "Failed to record login time", logger.Err(err))
		}
		recordLoginEvent(r.Context(), deps.pool, user.Username)

		pair, err := deps.auth.IssuePair(auth.Identity{
			Subject: user.ID,
			Name:    user.Username,
			Roles:   []string{user.Role},
		})
		if err != nil {
			httperr.Write(w, r, httperr.Internal(err))
			return
		}

		httperr.WriteJSON(w, http.StatusOK, pair)
	}
}

// recordLoginEvent appends to the audit trail in the application
// database. Best effort: the table only exists once migrations ran, and
// a missed audit row must not fail a login.
func recordLoginEvent(ctx context.Context, pool *postgres.Pool, username string) {
	if pool == nil {
		return
	}
	err := pool.WithConn(ctx, func(ctx context.Context, conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, "INSERT INTO login_events (username) VALUES ($1)", username)
		return err
	})
	if err != nil {
		logger.WarnCtx(ctx, "Failed to record login event", logger.Err(err))
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// handleRefresh exchanges a valid refresh token for a fresh token pair.
func handleRefresh(deps serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.auth == nil {
			httperr.Write(w, r, httperr.Unavailable("authentication is disabled"))
			return
		}

		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
			httperr.Write(w, r, httperr.BadRequest("refresh_token is required"))
			return
		}

		claims, err := deps.auth.ValidateRefresh(req.RefreshToken)
		if err != nil {
			kind := auth.KindInvalidToken
			if errors.Is(err, auth.ErrExpiredToken) {
				kind = auth.KindExpiredToken
			}
			httperr.Write(w, r, httperr.Unauthorized(kind, "refresh token rejected"))
			return
		}

		pair, err := deps.auth.IssuePair(auth.Identity{
			Subject: claims.Subject,
			Name:    claims.Name,
			Roles:   claims.Roles,
		})
		if err != nil {
			httperr.Write(w, r, httperr.Internal(err))
			return
		}

		httperr.WriteJSON(w, http.StatusOK, pair)
	}
}

type meResponse struct {
	Subject   string     `json:"subject"`
	Username  string     `json:"username"`
	Roles     []string   `json:"roles"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// handleMe describes the authenticated principal, enriched with the stored
// account when an identity store is configured.
func handleMe(deps serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := auth.PrincipalFrom(r.Context())
		if p == nil {
			httperr.Write(w, r, httperr.Unauthorized(auth.KindMissingToken, "no authenticated principal"))
			return
		}

		resp := meResponse{
			Subject:  p.Subject,
			Username: p.Name,
			Roles:    p.Roles,
		}

		if deps.users != nil {
			user, err := deps.users.GetUserByID(r.Context(), p.Subject)
			switch {
			case err == nil:
				resp.Username = user.Username
				resp.LastLogin = user.LastLogin
			case errors.Is(err, identity.ErrUserNotFound):
				// Token outlived the account.
				httperr.Write(w, r, httperr.Unauthorized(auth.KindInvalidToken, "account no longer exists"))
				return
			default:
				httperr.Write(w, r, httperr.Internal(err))
				return
			}
		}

		httperr.WriteJSON(w, http.StatusOK, resp)
	}
}

// handleDBPing round-trips a query through the managed pool so operators
// can verify database connectivity end to end.
func handleDBPing(deps serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.pool == nil {
			httperr.Write(w, r, httperr.Unavailable("database is disabled"))
			return
		}

		start := time.Now()
		err := deps.pool.WithConn(r.Context(), func(ctx context.Context, conn *pgxpool.Conn) error {
			var one int
			return conn.QueryRow(ctx, "SELECT 1").Scan(&one)
		})
		if err != nil {
			httperr.Write(w, r, httperr.From(err))
			return
		}

		httperr.WriteJSON(w, http.StatusOK, map[string]string{
			"database": "ok",
			"latency":  time.Since(start).Round(time.Microsecond).String(),
		})
	}
}

// handleListUsers lists every account. Admin only.
func handleListUsers(deps serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.users == nil {
			httperr.Write(w, r, httperr.Unavailable("identity store is disabled"))
			return
		}

		users, err := deps.users.ListUsers(r.Context())
		if err != nil {
			httperr.Write(w, r, httperr.Internal(err))
			return
		}

		httperr.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
	}
}
