package auth

import (
	"context"
	"errors"
)

type contextKey int

const principalContextKey contextKey = iota

// ErrNoPrincipalInContext indicates a handler ran without the authentication
// middleware in front of it.
var ErrNoPrincipalInContext = errors.New("no principal in context")

// WithPrincipal attaches the authenticated principal to the context.
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext returns the principal the authentication middleware
// stored for this request.
func PrincipalFromContext(ctx context.Context) (*Principal, error) {
	principal, ok := ctx.Value(principalContextKey).(*Principal)
	if !ok || principal == nil {
		return nil, ErrNoPrincipalInContext
	}
	return principal, nil
}
