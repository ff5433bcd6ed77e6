package middleware

import (
	"context"

	pkgAuth "github.com/angelmondragon/conduit-storefront/pkg/auth"
)

type contextKey string

const ctxCartOwner contextKey = "cart_owner"

// PrincipalFromContext returns the authenticated principal, or nil for
// anonymous requests.
func PrincipalFromContext(ctx context.Context) *pkgAuth.Principal {
	return pkgAuth.PrincipalFromContext(ctx)
}

func UserIDFromContext(ctx context.Context) string {
	if p := pkgAuth.PrincipalFromContext(ctx); p != nil {
		return p.UserID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if p := pkgAuth.PrincipalFromContext(ctx); p != nil {
		return string(p.Role)
	}
	return ""
}

// CartOwnerFromContext returns the owner resolved by CartOwner.
func CartOwnerFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCartOwner).(string); ok {
		return v
	}
	return ""
}

// WithCartOwner injects the cart owner into the context.
func WithCartOwner(ctx context.Context, owner string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCartOwner, owner)
}
