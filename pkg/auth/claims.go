package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/swiftpdv/pdv-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID      uint
	Username    string
	AccessLevel enums.AccessLevel
	JTI         string
}

// AccessTokenClaims represents the typed JWT issued to operators.
type AccessTokenClaims struct {
	UserID      uint              `json:"uid"`
	Username    string            `json:"username"`
	AccessLevel enums.AccessLevel `json:"access_level"`
	jwt.RegisteredClaims
}
