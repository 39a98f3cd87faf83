package controllers

import (
	"net/http"
	"strings"

	"github.com/swiftpdv/pdv-backend/api/responses"
	"github.com/swiftpdv/pdv-backend/api/validators"
	"github.com/swiftpdv/pdv-backend/internal/users"
	"github.com/swiftpdv/pdv-backend/pkg/enums"
	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
)

type createUserRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Surname     *string `json:"surname,omitempty" validate:"omitempty,max=100"`
	Username    string  `json:"username" validate:"required,min=3,max=50"`
	Password    string  `json:"password" validate:"required,min=6,max=200"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Role        string  `json:"role" validate:"required,max=50"`
	AccessLevel string  `json:"access_level" validate:"required"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func (r createUserRequest) toInput() (users.CreateUserInput, error) {
	level, err := enums.ParseAccessLevel(r.AccessLevel)
	if err != nil {
		return users.CreateUserInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid access level")
	}
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return users.CreateUserInput{
		Name:        strings.TrimSpace(r.Name),
		Surname:     r.Surname,
		Username:    strings.TrimSpace(r.Username),
		Password:    r.Password,
		Email:       r.Email,
		Phone:       r.Phone,
		Role:        strings.TrimSpace(r.Role),
		AccessLevel: level,
		IsActive:    active,
	}, nil
}

type updateUserRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Surname     *string `json:"surname,omitempty" validate:"omitempty,max=100"`
	Username    *string `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	Password    *string `json:"password,omitempty" validate:"omitempty,min=6,max=200"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Role        *string `json:"role,omitempty" validate:"omitempty,max=50"`
	AccessLevel *string `json:"access_level,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func (r updateUserRequest) toInput() (users.UpdateUserInput, error) {
	input := users.UpdateUserInput{
		Name:     r.Name,
		Surname:  r.Surname,
		Username: r.Username,
		Password: r.Password,
		Email:    r.Email,
		Phone:    r.Phone,
		Role:     r.Role,
		IsActive: r.IsActive,
	}
	if r.AccessLevel != nil {
		level, err := enums.ParseAccessLevel(*r.AccessLevel)
		if err != nil {
			return users.UpdateUserInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid access level")
		}
		input.AccessLevel = &level
	}
	return input, nil
}

func UserList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListUsers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func UserGet(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.GetUser(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func UserCreate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createUserRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.CreateUser(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}

func UserUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateUserRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.UpdateUser(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func UserDelete(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteUser(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
