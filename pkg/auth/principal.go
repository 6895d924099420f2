package auth

import (
	"context"
	"slices"
)

// Principal is the authenticated identity attached to a request after the
// auth stage accepts its token. Handlers read it through PrincipalFrom.
type Principal struct {
	// Subject is the stable identity, typically a username or service name.
	Subject string

	// Name is the display name, when the token carries one.
	Name string

	// Roles grants access to role-guarded route groups.
	Roles []string
}

// HasRole reports whether the principal holds the given role.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Roles, role)
}

type principalCtxKey struct{}

// WithPrincipal returns a context carrying the principal. The auth stage
// calls this exactly once per authenticated request.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFrom returns the request principal, or nil when the request was
// not authenticated.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalCtxKey{}).(*Principal)
	return p
}
