package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/swiftpdv/pdv-backend/internal/customers"
	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
)

type stubCustomerService struct {
	created  customers.CreateCustomerInput
	updated  customers.UpdateCustomerInput
	cpf      string
	deleted  uint
	customer *customers.CustomerDTO
	err      error
}

func (s *stubCustomerService) CreateCustomer(ctx context.Context, input customers.CreateCustomerInput) (*customers.CustomerDTO, error) {
	s.created = input
	return s.customer, s.err
}

func (s *stubCustomerService) UpdateCustomer(ctx context.Context, id uint, input customers.UpdateCustomerInput) (*customers.CustomerDTO, error) {
	s.updated = input
	return s.customer, s.err
}

func (s *stubCustomerService) DeleteCustomer(ctx context.Context, id uint) error {
	s.deleted = id
	return s.err
}

func (s *stubCustomerService) GetCustomer(ctx context.Context, id uint) (*customers.CustomerDTO, error) {
	return s.customer, s.err
}

func (s *stubCustomerService) GetCustomerByCPF(ctx context.Context, cpf string) (*customers.CustomerDTO, error) {
	s.cpf = cpf
	return s.customer, s.err
}

func (s *stubCustomerService) ListCustomers(ctx context.Context) ([]customers.CustomerDTO, error) {
	return nil, s.err
}

func TestCustomerCreate(t *testing.T) {
	svc := &stubCustomerService{customer: &customers.CustomerDTO{ID: 1, CPF: "52998224725"}}
	rec := serve(CustomerCreate(svc, nil), newRequest(http.MethodPost, "/", `{"name":"João","surname":"Silva","cpf":"529.982.247-25"}`, nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.created.CPF != "529.982.247-25" {
		t.Fatalf("cpf should reach the service untouched, got %q", svc.created.CPF)
	}

	svc.err = pkgerrors.New(pkgerrors.CodeValidation, "invalid cpf")
	rec = serve(CustomerCreate(svc, nil), newRequest(http.MethodPost, "/", `{"name":"João","surname":"Silva","cpf":"111.111.111-11"}`, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if msg := decodeError(t, rec).Message; msg != "invalid cpf" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestCustomerCreateRequiresSurname(t *testing.T) {
	rec := serve(CustomerCreate(&stubCustomerService{}, nil), newRequest(http.MethodPost, "/", `{"name":"João","cpf":"52998224725"}`, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCustomerGetByCPF(t *testing.T) {
	svc := &stubCustomerService{customer: &customers.CustomerDTO{ID: 1}}
	rec := serve(CustomerGetByCPF(svc, nil), newRequest(http.MethodGet, "/", "", map[string]string{"cpf": "52998224725"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.cpf != "52998224725" {
		t.Fatalf("unexpected cpf %q", svc.cpf)
	}
}

func TestCustomerUpdateAndDelete(t *testing.T) {
	svc := &stubCustomerService{customer: &customers.CustomerDTO{ID: 1}}
	phone := "11999990000"
	rec := serve(CustomerUpdate(svc, nil), newRequest(http.MethodPatch, "/", `{"phone":"`+phone+`"}`, map[string]string{"id": "1"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.updated.Phone == nil || *svc.updated.Phone != phone || svc.updated.Name != nil {
		t.Fatalf("unexpected update %+v", svc.updated)
	}

	rec = serve(CustomerDelete(svc, nil), newRequest(http.MethodDelete, "/", "", map[string]string{"id": "1"}))
	if rec.Code != http.StatusNoContent || svc.deleted != 1 {
		t.Fatalf("expected 204 deleting 1, got %d/%d", rec.Code, svc.deleted)
	}
}
