package security

import (
	"errors"
	"fmt"

	"github.com/swiftpdv/pdv-backend/pkg/config"
	"golang.org/x/crypto/bcrypt"
)

const defaultBcryptCost = 12

// ErrInvalidHash signals a value that is not a bcrypt hash.
var ErrInvalidHash = errors.New("invalid bcrypt hash")

// HashPassword returns a bcrypt hash using the configured cost.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), costFromConfig(cfg))
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword returns true when the password matches the encoded hash.
func VerifyPassword(password, encoded string) (bool, error) {
	if _, err := bcrypt.Cost([]byte(encoded)); err != nil {
		return false, ErrInvalidHash
	}
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

func costFromConfig(cfg config.PasswordConfig) int {
	cost := cfg.BcryptCost
	if cost == 0 {
		return defaultBcryptCost
	}
	if cost < bcrypt.MinCost {
		return bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		return bcrypt.MaxCost
	}
	return cost
}
