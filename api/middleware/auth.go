package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/swiftpdv/pdv-backend/api/responses"
	pkgAuth "github.com/swiftpdv/pdv-backend/pkg/auth"
	"github.com/swiftpdv/pdv-backend/pkg/auth/session"
	"github.com/swiftpdv/pdv-backend/pkg/config"
	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
)

// Auth admits requests that carry a valid token whose session is still
// open in Redis. A nil checker skips the session lookup.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := authenticate(r, cfg, sessions)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ctx := WithPrincipal(r.Context(), p)
			if logg != nil {
				ctx = logg.WithUserID(ctx, strconv.FormatUint(uint64(p.UserID), 10))
				ctx = logg.WithActorRole(ctx, p.Level.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, sessions session.AccessSessionChecker) (Principal, error) {
	raw := TokenFromRequest(r, cfg.CookieName)
	if raw == "" {
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, raw)
	if err != nil {
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if err := checkSession(r.Context(), sessions, claims.ID); err != nil {
		return Principal{}, err
	}
	return Principal{UserID: claims.UserID, Level: claims.AccessLevel, AccessID: claims.ID}, nil
}

func checkSession(ctx context.Context, sessions session.AccessSessionChecker, accessID string) error {
	if sessions == nil {
		return nil
	}
	live, err := sessions.HasSession(ctx, accessID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session lookup failed")
	}
	if !live {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired or logged out")
	}
	return nil
}

// TokenFromRequest reads the auth cookie, then a Bearer Authorization header.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && strings.TrimSpace(c.Value) != "" {
			return strings.TrimSpace(c.Value)
		}
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
