// Package auth provides JWT authentication for HTTP services.
//
// A Service signs and validates HS256 tokens: short-lived access tokens
// for request authentication and longer-lived refresh tokens for
// re-issuing pairs. Middleware turns a validated access token into a
// request-scoped Principal; RequireRole gates routes on the principal's
// role.
//
// Tokens travel as "Authorization: Bearer <token>". Every failure mode
// maps to a 401 envelope with a machine-readable kind, so clients can
// tell a missing credential from an expired one.
package auth
