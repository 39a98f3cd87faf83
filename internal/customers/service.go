package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/swiftpdv/pdv-backend/pkg/db"
	"github.com/swiftpdv/pdv-backend/pkg/db/models"
	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
)

// Service manages register customers.
type Service interface {
	CreateCustomer(ctx context.Context, input CreateCustomerInput) (*CustomerDTO, error)
	UpdateCustomer(ctx context.Context, id uint, input UpdateCustomerInput) (*CustomerDTO, error)
	DeleteCustomer(ctx context.Context, id uint) error
	GetCustomer(ctx context.Context, id uint) (*CustomerDTO, error)
	GetCustomerByCPF(ctx context.Context, cpf string) (*CustomerDTO, error)
	ListCustomers(ctx context.Context) ([]CustomerDTO, error)
}

type service struct {
	repo   *Repository
	cipher fieldCipher
	logg   *logger.Logger
}

func NewService(repo *Repository, cipher fieldCipher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if cipher == nil {
		return nil, fmt.Errorf("field cipher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, cipher: cipher, logg: logg}, nil
}

func (s *service) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*CustomerDTO, error) {
	name := strings.TrimSpace(input.Name)
	surname := strings.TrimSpace(input.Surname)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if surname == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "surname is required")
	}
	cpf, err := parseCPF(input.CPF)
	if err != nil {
		return nil, err
	}

	customer := &models.Customer{
		Name:    s.cipher.Encrypt(name),
		Surname: s.cipher.Encrypt(surname),
		CPF:     s.cipher.Encrypt(cpf),
		Phone:   s.cipher.EncryptPtr(trimOptional(input.Phone)),
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, writeError(err, "create customer")
	}
	s.logg.Info(s.logg.WithField(ctx, "customer_id", customer.ID), "customer created")
	return fromModel(customer, s.cipher), nil
}

func (s *service) UpdateCustomer(ctx context.Context, id uint, input UpdateCustomerInput) (*CustomerDTO, error) {
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
		surname := strings.TrimSpace(*input.Surname)
		if surname == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "surname cannot be blank")
		}
		updates["surname"] = s.cipher.Encrypt(surname)
	}
	if input.CPF != nil {
		cpf, err := parseCPF(*input.CPF)
		if err != nil {
			return nil, err
		}
		updates["cpf"] = s.cipher.Encrypt(cpf)
	}
	if input.Phone != nil {
		updates["phone"] = s.cipher.EncryptPtr(trimOptional(input.Phone))
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, writeError(err, "update customer")
	}
	s.logg.Info(s.logg.WithField(ctx, "customer_id", id), "customer updated")
	return s.GetCustomer(ctx, id)
}

// DeleteCustomer refuses customers referenced by a sale.
func (s *service) DeleteCustomer(ctx context.Context, id uint) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	sales, err := s.repo.CountSales(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count customer sales")
	}
	if sales > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "customer has sales").
			WithDetails(map[string]any{"customer_id": id, "sales": sales})
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return writeError(err, "delete customer")
	}
	if !deleted {
		return pkgerrors.NotFound("customer", id)
	}
	s.logg.Info(s.logg.WithField(ctx, "customer_id", id), "customer deleted")
	return nil
}

func (s *service) GetCustomer(ctx context.Context, id uint) (*CustomerDTO, error) {
	customer, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromModel(customer, s.cipher), nil
}

func (s *service) GetCustomerByCPF(ctx context.Context, cpf string) (*CustomerDTO, error) {
	digits, err := parseCPF(cpf)
	if err != nil {
		return nil, err
	}
	customer, err := s.repo.FindByCPF(ctx, s.cipher.Encrypt(digits))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return fromModel(customer, s.cipher), nil
}

func (s *service) ListCustomers(ctx context.Context) ([]CustomerDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	out := make([]CustomerDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *fromModel(&rows[i], s.cipher))
	}
	return out, nil
}

func (s *service) find(ctx context.Context, id uint) (*models.Customer, error) {
	if id == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	customer, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.NotFound("customer", id)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
}

func parseCPF(value string) (string, error) {
	digits, ok := NormalizeCPF(value)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cpf")
	}
	return digits, nil
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
