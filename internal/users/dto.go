package users

import (
	"time"

	"github.com/swiftpdv/pdv-backend/pkg/db/models"
	"github.com/swiftpdv/pdv-backend/pkg/enums"
)

// CreateUserInput holds the plaintext values for a new operator.
type CreateUserInput struct {
	Name        string
	Surname     *string
	Username    string
	Password    string
	Email       *string
	Phone       *string
	Role        string
	AccessLevel enums.AccessLevel
	IsActive    bool
}

// UpdateUserInput holds optional changes. A non-empty Password is re-hashed.
type UpdateUserInput struct {
	Name        *string
	Surname     *string
	Username    *string
	Password    *string
	Email       *string
	Phone       *string
	Role        *string
	AccessLevel *enums.AccessLevel
	IsActive    *bool
}

// UserDTO is the decrypted operator profile. It never carries the password.
type UserDTO struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	Surname     *string           `json:"surname,omitempty"`
	Username    string            `json:"username"`
	Email       *string           `json:"email,omitempty"`
	Phone       *string           `json:"phone,omitempty"`
	Role        string            `json:"role"`
	AccessLevel enums.AccessLevel `json:"access_level"`
	IsActive    bool              `json:"is_active"`
	LastLoginAt *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type fieldCipher interface {
	Encrypt(plain string) string
	EncryptPtr(plain *string) *string
	DecryptSafe(encoded string) string
	DecryptPtr(encoded *string) *string
}

// FromModel decrypts a stored user into its API shape.
func FromModel(user *models.User, cipher fieldCipher) *UserDTO {
	if user == nil {
		return nil
	}
	return &UserDTO{
		ID:          user.ID,
		Name:        cipher.DecryptSafe(user.Name),
		Surname:     cipher.DecryptPtr(user.Surname),
		Username:    cipher.DecryptSafe(user.Username),
		Email:       cipher.DecryptPtr(user.Email),
		Phone:       cipher.DecryptPtr(user.Phone),
		Role:        user.Role,
		AccessLevel: user.AccessLevel,
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}
