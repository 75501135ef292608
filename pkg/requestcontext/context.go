// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them, services read them, and
// keeping the package free of net/http lets services import only what they
// need.
package requestcontext

import (
	"context"

	"custodia/pkg/domain"
)

type principalKey struct{}

// ContextKeyPrincipal is exported for tests that need context.WithValue
// directly.
var ContextKeyPrincipal = principalKey{}

// Principal retrieves the authenticated audit principal from the context.
// Returns the zero value when unauthenticated.
func Principal(ctx context.Context) domain.AuditPrincipal {
	if p, ok := ctx.Value(ContextKeyPrincipal).(domain.AuditPrincipal); ok {
		return p
	}
	return domain.AuditPrincipal{}
}

// WithPrincipal injects an audit principal into the context.
func WithPrincipal(ctx context.Context, p domain.AuditPrincipal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}
