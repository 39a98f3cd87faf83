package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/swiftpdv/pdv-backend/api/responses"
	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
	pkgredis "github.com/swiftpdv/pdv-backend/pkg/redis"
)

// IdempotencyHeader is optional. Requests without it run unguarded.
const IdempotencyHeader = "Idempotency-Key"

const (
	catalogReplayTTL = 24 * time.Hour
	saleReplayTTL    = 7 * 24 * time.Hour
	inFlightTTL      = 30 * time.Second
	maxKeyLength     = 128
	maxGuardedBody   = 1 << 20
	inFlightMarker   = "in-flight"
)

// replayTTL reports how long a successful response for method and path is
// kept. Sales live longest: a duplicated sale decrements stock twice.
func replayTTL(method, p string) (time.Duration, bool) {
	switch {
	case method == http.MethodPost && p == "/api/v1/sales":
		return saleReplayTTL, true
	case method == http.MethodDelete && strings.HasPrefix(p, "/api/v1/sales/"):
		return saleReplayTTL, true
	case method == http.MethodPost && (p == "/api/v1/products" || p == "/api/v1/users" || p == "/api/v1/customers"):
		return catalogReplayTTL, true
	}
	return 0, false
}

type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

// Idempotency replays the first successful response for a repeated
// Idempotency-Key. The key is reserved while the handler runs so a
// concurrent duplicate gets a 409 instead of a second execution; failed
// outcomes release the reservation and may be retried.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ttl, guarded := replayTTL(r.Method, cleanPath(r.URL.Path))
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if !guarded || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(clientKey) > maxKeyLength {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key must be at most 128 characters"))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxGuardedBody))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(strings.NewReader(string(body)))

			fingerprint := fingerprintRequest(r.Method, r.URL.Path, body)
			key := store.IdempotencyKey(idempotencyScope(ctx), clientKey)

			reserved, err := store.SetNX(ctx, key, inFlightMarker, inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency store unavailable"))
				return
			}
			if !reserved {
				replayOrReject(ctx, logg, w, store, key, fingerprint)
				return
			}

			capture := newCapture(w)
			serveReserved(ctx, logg, store, key, next, capture, r)

			if capture.status >= http.StatusBadRequest {
				releaseKey(ctx, logg, store, key)
				return
			}
			saved, err := json.Marshal(storedResponse{
				Fingerprint: fingerprint,
				Status:      capture.status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body,
			})
			if err == nil {
				err = store.Set(ctx, key, string(saved), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "store idempotent response", err)
			}
		})
	}
}

// serveReserved runs next while key is reserved. A panicking handler
// releases the key before the panic reaches the recoverer.
func serveReserved(ctx context.Context, logg *logger.Logger, store pkgredis.IdempotencyStore, key string, next http.Handler, w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			releaseKey(ctx, logg, store, key)
			panic(rec)
		}
	}()
	next.ServeHTTP(w, r)
}

func releaseKey(ctx context.Context, logg *logger.Logger, store pkgredis.IdempotencyStore, key string) {
	if err := store.Del(context.WithoutCancel(ctx), key); err != nil && logg != nil {
		logg.Error(ctx, "release idempotency key", err)
	}
}

func replayOrReject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store pkgredis.IdempotencyStore, key, fingerprint string) {
	raw, err := store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		// reservation expired between SETNX and GET
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
		return
	case err != nil:
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency store unavailable"))
		return
	case raw == inFlightMarker:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this Idempotency-Key is still in progress"))
		return
	}

	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt idempotency record"))
		return
	}
	if prior.Fingerprint != fingerprint {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "Idempotency-Key was already used for a different request"))
		return
	}
	if prior.ContentType != "" {
		w.Header().Set("Content-Type", prior.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(prior.Status)
	_, _ = w.Write(prior.Body)
}

// idempotencyScope keeps keys from different operators apart.
func idempotencyScope(ctx context.Context) string {
	return "user:" + strconv.FormatUint(uint64(UserIDFromContext(ctx)), 10)
}

func fingerprintRequest(method, p string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method + " " + cleanPath(p) + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean(p)
}

type capture struct {
	http.ResponseWriter
	status int
	body   []byte
}

func newCapture(w http.ResponseWriter) *capture {
	return &capture{ResponseWriter: w, status: http.StatusOK}
}

func (c *capture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *capture) Write(b []byte) (int, error) {
	c.body = append(c.body, b...)
	return c.ResponseWriter.Write(b)
}
