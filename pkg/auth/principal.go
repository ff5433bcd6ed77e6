package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/conduit-storefront/pkg/enums"
)

// Principal is the identity authenticated for one request. SessionID is the
// access token jti, which also keys the refresh session.
type Principal struct {
	UserID    uuid.UUID
	Role      enums.UserRole
	SessionID string
}

func (p *Principal) IsDistributor() bool {
	return p != nil && p.Role == enums.UserRoleDistributor
}

// UserIDPtr returns the user id for nullable ownership columns.
func (p *Principal) UserIDPtr() *uuid.UUID {
	if p == nil || p.UserID == uuid.Nil {
		return nil
	}
	id := p.UserID
	return &id
}

type principalKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
