package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/swiftpdv/pdv-backend/api/middleware"
	"github.com/swiftpdv/pdv-backend/internal/auth"
	"github.com/swiftpdv/pdv-backend/internal/users"
	pkgAuth "github.com/swiftpdv/pdv-backend/pkg/auth"
	"github.com/swiftpdv/pdv-backend/pkg/config"
	"github.com/swiftpdv/pdv-backend/pkg/enums"
	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
)

var testCookies = CookieSettings{
	JWT: config.JWTConfig{Secret: "secret", Issuer: "pdv-test", ExpirationMinutes: 60, CookieName: "token"},
}

type stubAuthService struct {
	result    *auth.LoginResult
	loginErr  error
	me        *users.UserDTO
	meErr     error
	loggedOut []string
	logoutErr error
	gotLogin  auth.LoginRequest
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResult, error) {
	s.gotLogin = req
	return s.result, s.loginErr
}

func (s *stubAuthService) Logout(ctx context.Context, accessID string) error {
	s.loggedOut = append(s.loggedOut, accessID)
	return s.logoutErr
}

func (s *stubAuthService) Me(ctx context.Context, userID uint) (*users.UserDTO, error) {
	return s.me, s.meErr
}

func cookieNamed(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthLoginSetsCookie(t *testing.T) {
	svc := &stubAuthService{result: &auth.LoginResult{
		Token:     "signed.jwt",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      &users.UserDTO{ID: 1, Username: "admin"},
	}}

	rec := serve(AuthLogin(svc, testCookies, testLogger()), newRequest(http.MethodPost, "/api/v1/auth/login", `{"username":"admin","password":"admin123"}`, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.gotLogin.Username != "admin" || svc.gotLogin.Password != "admin123" {
		t.Fatalf("unexpected login request %+v", svc.gotLogin)
	}

	cookie := cookieNamed(rec.Result(), "token")
	if cookie == nil {
		t.Fatal("expected token cookie")
	}
	if cookie.Value != "signed.jwt" || !cookie.HttpOnly || cookie.MaxAge != 3600 {
		t.Fatalf("unexpected cookie %+v", cookie)
	}
	if cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("expected SameSite=Strict got %v", cookie.SameSite)
	}
	if cookie.Secure {
		t.Fatal("cookie should not be secure outside production")
	}

	var body struct {
		Token string         `json:"token"`
		User  *users.UserDTO `json:"user"`
	}
	decodeData(t, rec, &body)
	if body.Token != "" {
		t.Fatal("token must not be echoed in the body")
	}
	if body.User == nil || body.User.Username != "admin" {
		t.Fatalf("unexpected user %+v", body.User)
	}
}

func TestAuthLoginSecureCookieInProduction(t *testing.T) {
	svc := &stubAuthService{result: &auth.LoginResult{Token: "t", User: &users.UserDTO{ID: 1}}}
	cookies := testCookies
	cookies.Secure = true

	rec := serve(AuthLogin(svc, cookies, nil), newRequest(http.MethodPost, "/", `{"username":"a","password":"b"}`, nil))
	if c := cookieNamed(rec.Result(), "token"); c == nil || !c.Secure {
		t.Fatalf("expected secure cookie, got %+v", c)
	}
}

func TestAuthLoginErrors(t *testing.T) {
	t.Run("invalid credentials", func(t *testing.T) {
		svc := &stubAuthService{loginErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
		rec := serve(AuthLogin(svc, testCookies, nil), newRequest(http.MethodPost, "/", `{"username":"admin","password":"nope"}`, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 got %d", rec.Code)
		}
		if msg := decodeError(t, rec).Message; msg != "invalid credentials" {
			t.Fatalf("unexpected message %q", msg)
		}
		if cookieNamed(rec.Result(), "token") != nil {
			t.Fatal("no cookie expected on failure")
		}
	})

	t.Run("missing password", func(t *testing.T) {
		rec := serve(AuthLogin(&stubAuthService{}, testCookies, nil), newRequest(http.MethodPost, "/", `{"username":"admin"}`, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 got %d", rec.Code)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := serve(AuthLogin(&stubAuthService{}, testCookies, nil), newRequest(http.MethodPost, "/", `{"username":"a","password":"b","store":"x"}`, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 got %d", rec.Code)
		}
	})
}

func TestAuthLogoutRevokesAndClearsCookie(t *testing.T) {
	token, err := pkgAuth.MintAccessToken(testCookies.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:      1,
		Username:    "admin",
		AccessLevel: enums.AccessLevelAdmin,
		JTI:         "jti-1",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	svc := &stubAuthService{}
	req := newRequest(http.MethodPost, "/api/v1/auth/logout", "", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rec := serve(AuthLogout(svc, testCookies, nil), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(svc.loggedOut) != 1 || svc.loggedOut[0] != "jti-1" {
		t.Fatalf("expected session jti-1 revoked, got %v", svc.loggedOut)
	}
	cookie := cookieNamed(rec.Result(), "token")
	if cookie == nil || cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cookie)
	}
}

func TestAuthLogoutWithoutTokenStillClears(t *testing.T) {
	svc := &stubAuthService{}
	rec := serve(AuthLogout(svc, testCookies, nil), newRequest(http.MethodPost, "/", "", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(svc.loggedOut) != 0 {
		t.Fatalf("nothing should be revoked, got %v", svc.loggedOut)
	}
	if cookieNamed(rec.Result(), "token") == nil {
		t.Fatal("expected clearing cookie")
	}
}

func TestAuthStatus(t *testing.T) {
	rec := serve(AuthStatus(), newRequest(http.MethodGet, "/", "", nil))
	var body auth.StatusResponse
	decodeData(t, rec, &body)
	if !body.Authenticated {
		t.Fatal("expected authenticated=true")
	}
}

func TestAuthMe(t *testing.T) {
	svc := &stubAuthService{me: &users.UserDTO{ID: 4, Username: "caixa"}}

	rec := serve(AuthMe(svc, nil), newRequest(http.MethodGet, "/", "", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user context got %d", rec.Code)
	}

	req := newRequest(http.MethodGet, "/", "", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), 4))
	rec = serve(AuthMe(svc, nil), req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var user users.UserDTO
	decodeData(t, rec, &user)
	if user.Username != "caixa" {
		t.Fatalf("unexpected user %+v", user)
	}

	svc.meErr = errors.New("db down")
	rec = serve(AuthMe(svc, nil), req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}
