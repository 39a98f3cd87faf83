package controllers

import (
	"net/http"
	"time"

	"github.com/swiftpdv/pdv-backend/api/middleware"
	"github.com/swiftpdv/pdv-backend/api/responses"
	"github.com/swiftpdv/pdv-backend/api/validators"
	"github.com/swiftpdv/pdv-backend/internal/auth"
	pkgAuth "github.com/swiftpdv/pdv-backend/pkg/auth"
	"github.com/swiftpdv/pdv-backend/pkg/config"
	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
)

// CookieSettings controls the auth cookie written on login.
type CookieSettings struct {
	JWT    config.JWTConfig
	Secure bool
}

func (c CookieSettings) session(token string) *http.Cookie {
	return &http.Cookie{
		Name:     c.JWT.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(c.JWT.TTL() / time.Second),
	}
}

func (c CookieSettings) cleared() *http.Cookie {
	return &http.Cookie{
		Name:     c.JWT.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	}
}

// AuthLogin exchanges credentials for a session cookie.
func AuthLogin(svc auth.Service, cookies CookieSettings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.SetCookie(w, cookies.session(result.Token))
		responses.WriteSuccess(w, result)
	}
}

// AuthLogout revokes the presented session, if any, and always clears the cookie.
func AuthLogout(svc auth.Service, cookies CookieSettings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		if token := middleware.TokenFromRequest(r, cookies.JWT.CookieName); token != "" {
			if claims, err := pkgAuth.ParseAccessToken(cookies.JWT, token); err == nil {
				if err := svc.Logout(r.Context(), claims.ID); err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
			}
		}

		http.SetCookie(w, cookies.cleared())
		responses.WriteSuccess(w, map[string]string{"message": "logged out"})
	}
}

// AuthStatus answers only behind the auth guard, so reaching it means the
// session is valid.
func AuthStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, auth.StatusResponse{Authenticated: true})
	}
}

func AuthMe(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		user, err := svc.Me(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
