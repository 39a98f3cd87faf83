package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/swiftpdv/pdv-backend/pkg/config"
)

var (
	errNoSecret = errors.New("auth: jwt signing secret is not configured")
	errNoJTI    = errors.New("auth: token carries no jti")
)

const signingAlg = "HS256"

// MintAccessToken signs an HS256 token for payload that expires cfg.TTL()
// after now. A blank JTI gets a random one.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	key, err := signingKey(cfg)
	if err != nil {
		return "", err
	}
	switch {
	case cfg.Issuer == "":
		return "", errors.New("auth: jwt issuer is not configured")
	case payload.UserID == 0:
		return "", errors.New("auth: token needs a user id")
	case !payload.AccessLevel.IsValid():
		return "", fmt.Errorf("auth: unknown access level %q", payload.AccessLevel)
	}

	id := strings.TrimSpace(payload.JTI)
	if id == "" {
		id = uuid.NewString()
	}
	claims := AccessTokenClaims{
		UserID:      payload.UserID,
		Username:    payload.Username,
		AccessLevel: payload.AccessLevel,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    cfg.Issuer,
			Subject:   strconv.FormatUint(uint64(payload.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL())),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.GetSigningMethod(signingAlg), claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry. Errors from the
// jwt package are returned as is so callers can match jwt.ErrTokenExpired.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	key, err := signingKey(cfg)
	if err != nil {
		return nil, err
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingAlg}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	var claims AccessTokenClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return key, nil }); err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errNoJTI
	}
	return &claims, nil
}

func signingKey(cfg config.JWTConfig) ([]byte, error) {
	secret := cfg.SigningSecret()
	if secret == "" {
		return nil, errNoSecret
	}
	return []byte(secret), nil
}
