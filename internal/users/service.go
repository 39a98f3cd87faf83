package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/swiftpdv/pdv-backend/pkg/config"
	"github.com/swiftpdv/pdv-backend/pkg/db"
	"github.com/swiftpdv/pdv-backend/pkg/db/models"
	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
	"github.com/swiftpdv/pdv-backend/pkg/security"
)

// Service manages back-office operators.
type Service interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*UserDTO, error)
	UpdateUser(ctx context.Context, id uint, input UpdateUserInput) (*UserDTO, error)
	DeleteUser(ctx context.Context, id uint) error
	GetUser(ctx context.Context, id uint) (*UserDTO, error)
	ListUsers(ctx context.Context) ([]UserDTO, error)
}

type service struct {
	repo     *Repository
	cipher   fieldCipher
	password config.PasswordConfig
	logg     *logger.Logger
}

// NewService wires the user service.
func NewService(repo *Repository, cipher fieldCipher, password config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if cipher == nil {
		return nil, fmt.Errorf("field cipher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, cipher: cipher, password: password, logg: logg}, nil
}

func (s *service) CreateUser(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	name := strings.TrimSpace(input.Name)
	username := strings.TrimSpace(input.Username)
	role := strings.TrimSpace(input.Role)
	switch {
	case name == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case username == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	case input.Password == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	case role == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role is required")
	case !input.AccessLevel.IsValid():
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid access level %q", input.AccessLevel))
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Name:         s.cipher.Encrypt(name),
		Surname:      s.cipher.EncryptPtr(trimOptional(input.Surname)),
		Username:     s.cipher.Encrypt(username),
		Email:        s.cipher.EncryptPtr(NormalizeEmail(input.Email)),
		Phone:        s.cipher.EncryptPtr(trimOptional(input.Phone)),
		PasswordHash: hash,
		Role:         role,
		AccessLevel:  input.AccessLevel,
		IsActive:     input.IsActive,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, writeError(err, "create user")
	}

	s.logg.Info(s.logg.WithField(ctx, "target_user_id", user.ID), "user created")
	return FromModel(user, s.cipher), nil
}

func (s *service) UpdateUser(ctx context.Context, id uint, input UpdateUserInput) (*UserDTO, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		updates["name"] = s.cipher.Encrypt(name)
	}
	if input.Surname != nil {
		updates["surname"] = s.cipher.EncryptPtr(trimOptional(input.Surname))
	}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "username cannot be blank")
		}
		updates["username"] = s.cipher.Encrypt(username)
	}
	if input.Email != nil {
		updates["email"] = s.cipher.EncryptPtr(NormalizeEmail(input.Email))
	}
	if input.Phone != nil {
		updates["phone"] = s.cipher.EncryptPtr(trimOptional(input.Phone))
	}
	if input.Role != nil {
		role := strings.TrimSpace(*input.Role)
		if role == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "role cannot be blank")
		}
		updates["role"] = role
	}
	if input.AccessLevel != nil {
		if !input.AccessLevel.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid access level %q", *input.AccessLevel))
		}
		updates["access_level"] = *input.AccessLevel
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.Password != nil && *input.Password != "" {
		hash, err := security.HashPassword(*input.Password, s.password)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		updates["password_hash"] = hash
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, writeError(err, "update user")
	}
	s.logg.Info(s.logg.WithField(ctx, "target_user_id", id), "user updated")
	return s.GetUser(ctx, id)
}

// DeleteUser refuses operators that rang up sales.
func (s *service) DeleteUser(ctx context.Context, id uint) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	sales, err := s.repo.CountSales(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count user sales")
	}
	if sales > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "user has sales").
			WithDetails(map[string]any{"user_id": id, "sales": sales})
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return writeError(err, "delete user")
	}
	if !deleted {
		return pkgerrors.NotFound("user", id)
	}
	s.logg.Info(s.logg.WithField(ctx, "target_user_id", id), "user deleted")
	return nil
}

func (s *service) GetUser(ctx context.Context, id uint) (*UserDTO, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user, s.cipher), nil
}

func (s *service) ListUsers(ctx context.Context) ([]UserDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i], s.cipher))
	}
	return out, nil
}

func (s *service) find(ctx context.Context, id uint) (*models.User, error) {
	if id == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.NotFound("user", id)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

// NormalizeEmail lowercases and trims an optional email; blank becomes nil.
func NormalizeEmail(email *string) *string {
	trimmed := trimOptional(email)
	if trimmed == nil {
		return nil
	}
	lower := strings.ToLower(*trimmed)
	return &lower
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func writeError(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if field, ok := db.UniqueViolationField(err); ok {
		return pkgerrors.ConstraintViolation(err, field)
	}
	if field, ok := db.ForeignKeyViolationField(err); ok {
		return pkgerrors.ReferenceViolation(err, field)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
