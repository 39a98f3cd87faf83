package middleware

import (
	"context"

	"github.com/swiftpdv/pdv-backend/pkg/enums"
)

type principalKey struct{}

// Principal is the operator behind an authenticated request.
type Principal struct {
	UserID   uint
	Level    enums.AccessLevel
	AccessID string
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the request principal; ok is false on anonymous routes.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// WithUserID stores a principal that only carries a user id.
func WithUserID(ctx context.Context, userID uint) context.Context {
	p, _ := PrincipalFrom(ctx)
	p.UserID = userID
	return WithPrincipal(ctx, p)
}

func WithAccessLevel(ctx context.Context, level enums.AccessLevel) context.Context {
	p, _ := PrincipalFrom(ctx)
	p.Level = level
	return WithPrincipal(ctx, p)
}

func UserIDFromContext(ctx context.Context) uint {
	p, _ := PrincipalFrom(ctx)
	return p.UserID
}

func AccessLevelFromContext(ctx context.Context) enums.AccessLevel {
	p, _ := PrincipalFrom(ctx)
	return p.Level
}

func AccessIDFromContext(ctx context.Context) string {
	p, _ := PrincipalFrom(ctx)
	return p.AccessID
}
