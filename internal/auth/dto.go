package auth

import (
	"time"

	"github.com/swiftpdv/pdv-backend/internal/users"
)

// LoginRequest captures the operator credentials sent to the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

// LoginResult carries the signed token and the profile of the operator.
// The controller moves the token into the auth cookie.
type LoginResult struct {
	Token     string         `json:"-"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *users.UserDTO `json:"user"`
}

// StatusResponse answers the session probe.
type StatusResponse struct {
	Authenticated bool `json:"authenticated"`
}
