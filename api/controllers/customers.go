package controllers

import (
	"net/http"


	"github.com/swiftpdv/pdv-backend/api/responses"
	"github.com/swiftpdv/pdv-backend/api/validators"
	"github.com/swiftpdv/pdv-backend/internal/customers"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
)

type createCustomerRequest struct {
	Name    string  `json:"name" validate:"required,max=100"`
	Surname string  `json:"surname" validate:"required,max=100"`
	CPF     string  `json:"cpf" validate:"required,max=14"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

type updateCustomerRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Surname *string `json:"surname,omitempty" validate:"omitempty,max=100"`
	CPF     *string `json:"cpf,omitempty" validate:"omitempty,max=14"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

func CustomerList(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListCustomers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func CustomerGet(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.GetCustomer(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

// CustomerGetByCPF accepts the CPF formatted or as bare digits.
func CustomerGetByCPF(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customer, err := svc.GetCustomerByCPF(r.Context(), validators.TextParam(r, "cpf", 14))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

func CustomerCreate(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createCustomerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.CreateCustomer(r.Context(), customers.CreateCustomerInput{
			Name:    payload.Name,
			Surname: payload.Surname,
			CPF:     payload.CPF,
			Phone:   payload.Phone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, customer)
	}
}

func CustomerUpdate(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateCustomerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.UpdateCustomer(r.Context(), id, customers.UpdateCustomerInput{
			Name:    payload.Name,
			Surname: payload.Surname,
			CPF:     payload.CPF,
			Phone:   payload.Phone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

func CustomerDelete(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteCustomer(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
