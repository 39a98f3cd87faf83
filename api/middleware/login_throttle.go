package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/swiftpdv/pdv-backend/api/responses"
	"github.com/swiftpdv/pdv-backend/pkg/config"
	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
)

// WindowCounter counts hits for a scope inside a fixed time window.
type WindowCounter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// maxLoginBody caps how much of a login body is buffered to find the username.
const maxLoginBody = 16 << 10

type throttleRule struct {
	kind  string
	limit int
	// subject returns "" when the rule does not apply to the request.
	subject func(r *http.Request, body []byte) string
}

// LoginThrottle limits login attempts per client address and per username.
// Usernames are hashed before they reach the counter or the logs.
func LoginThrottle(cfg config.AuthRateLimitConfig, counter WindowCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	var rules []throttleRule
	if cfg.LoginIPLimit > 0 {
		rules = append(rules, throttleRule{kind: "ip", limit: cfg.LoginIPLimit, subject: func(r *http.Request, _ []byte) string {
			return clientIP(r)
		}})
	}
	if cfg.LoginUsernameLimit > 0 {
		rules = append(rules, throttleRule{kind: "user", limit: cfg.LoginUsernameLimit, subject: func(_ *http.Request, body []byte) string {
			if name := loginUsername(body); name != "" {
				return digest(name)
			}
			return ""
		}})
	}
	window := cfg.LoginWindow

	return func(next http.Handler) http.Handler {
		if counter == nil || window <= 0 || len(rules) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			body, err := io.ReadAll(io.LimitReader(r.Body, maxLoginBody))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			for _, rule := range rules {
				subject := rule.subject(r, body)
				if subject == "" {
					continue
				}
				ok, hits, err := counter.FixedWindowAllow(ctx, "login:"+rule.kind+":"+subject, int64(rule.limit), window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "login throttle unavailable"))
					return
				}
				if !ok {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"rule":     rule.kind,
							"subject":  subject,
							"attempts": hits,
							"limit":    rule.limit,
						}), "login throttled")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(window.Round(time.Second).Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts, try again later"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func loginUsername(body []byte) string {
	var in struct {
		Username string `json:"username"`
	}
	if json.Unmarshal(body, &in) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(in.Username))
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
