package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swiftpdv/pdv-backend/internal/inventory"
	"github.com/swiftpdv/pdv-backend/pkg/db"
	"github.com/swiftpdv/pdv-backend/pkg/db/models"
	"github.com/swiftpdv/pdv-backend/pkg/enums"
	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
)

const (
	initialStockNote = "Initial stock"
	adjustmentNote   = "Manual adjustment"
)

// Service exposes catalog management operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uint, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uint) error
	GetProduct(ctx context.Context, productID uint) (*ProductDTO, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*ProductDTO, error)
	ListProducts(ctx context.Context) ([]ProductDTO, error)
	ListLowStock(ctx context.Context) ([]ProductDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockApplier interface {
	Apply(ctx context.Context, tx *gorm.DB, adj inventory.Adjustment) (*models.InventoryMovement, error)
}

type service struct {
	repo      *Repository
	tx        txRunner
	inventory stockApplier
	logg      *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx txRunner, inv stockApplier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, inventory: inv, logg: logg}, nil
}

// CreateProduct inserts the product with zero stock and books any starting
// quantity as an IN movement.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	product := &models.Product{
		Barcode:     strings.TrimSpace(input.Barcode),
		Name:        strings.TrimSpace(input.Name),
		Description: trimPtr(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Unit:        input.Unit,
		SalePrice:   input.SalePrice,
		CostPrice:   input.CostPrice,
		MinStock:    input.MinStock,
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			return err
		}
		if input.Stock == 0 {
			return nil
		}
		_, err := s.inventory.Apply(ctx, tx, inventory.Adjustment{
			ProductID: product.ID,
			Type:      enums.MovementIn,
			Quantity:  input.Stock,
			Note:      initialStockNote,
		})
		return err
	})
	if err != nil {
		return nil, writeError(err, "create product")
	}

	s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID), "product created")
	return s.GetProduct(ctx, product.ID)
}

// UpdateProduct applies the provided fields. A stock change is written as a
// movement for the difference so the audit log stays complete.
func (s *service) UpdateProduct(ctx context.Context, productID uint, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.find(ctx, productID)
	if err != nil {
		return nil, err
	}
	applyUpdate(product, input)
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if input.Stock != nil && *input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, product); err != nil {
			return err
		}
		if input.Stock == nil || *input.Stock == product.Stock {
			return nil
		}
		adj := inventory.Adjustment{
			ProductID: product.ID,
			Type:      enums.MovementIn,
			Quantity:  *input.Stock - product.Stock,
			Note:      adjustmentNote,
		}
		if adj.Quantity < 0 {
			adj.Type = enums.MovementOut
			adj.Quantity = -adj.Quantity
		}
		_, err := s.inventory.Apply(ctx, tx, adj)
		if errors.Is(err, inventory.ErrInsufficientStock) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "stock changed while updating, retry")
		}
		if errors.Is(err, inventory.ErrProductMissing) {
			return pkgerrors.NotFound("product", product.ID)
		}
		return err
	})
	if err != nil {
		return nil, writeError(err, "update product")
	}

	s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID), "product updated")
	return s.GetProduct(ctx, product.ID)
}

// DeleteProduct refuses products that appear on a recorded sale.
func (s *service) DeleteProduct(ctx context.Context, productID uint) error {
	if _, err := s.find(ctx, productID); err != nil {
		return err
	}
	lines, err := s.repo.CountSaleLines(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count product sales")
	}
	if lines > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "product has sales").
			WithDetails(map[string]any{"product_id": productID, "sale_lines": lines})
	}

	deleted, err := s.repo.Delete(ctx, productID)
	if err != nil {
		return writeError(err, "delete product")
	}
	if !deleted {
		return pkgerrors.NotFound("product", productID)
	}
	s.logg.Info(s.logg.WithField(ctx, "product_id", productID), "product deleted")
	return nil
}

func (s *service) GetProduct(ctx context.Context, productID uint) (*ProductDTO, error) {
	product, err := s.find(ctx, productID)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

func (s *service) GetProductByBarcode(ctx context.Context, barcode string) (*ProductDTO, error) {
	code := strings.TrimSpace(barcode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "barcode is required")
	}
	product, err := s.repo.FindByBarcode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.NotFound("product", code)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(product), nil
}

func (s *service) ListProducts(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return newProductDTOs(rows), nil
}

func (s *service) ListLowStock(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock products")
	}
	return newProductDTOs(rows), nil
}

func (s *service) find(ctx context.Context, productID uint) (*models.Product, error) {
	if productID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.NotFound("product", productID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func applyUpdate(product *models.Product, input UpdateProductInput) {
	if input.Barcode != nil {
		product.Barcode = strings.TrimSpace(*input.Barcode)
	}
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = trimPtr(input.Description)
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.Unit != nil {
		product.Unit = *input.Unit
	}
	if input.SalePrice != nil {
		product.SalePrice = *input.SalePrice
	}
	if input.CostPrice != nil {
		product.CostPrice = *input.CostPrice
	}
	if input.MinStock != nil {
		product.MinStock = *input.MinStock
	}
}

func validateProduct(p *models.Product) error {
	switch {
	case p.Barcode == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "barcode is required")
	case p.Name == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case p.Category == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	case !p.Unit.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit %q", p.Unit))
	case p.SalePrice.LessThan(decimal.Zero):
		return pkgerrors.New(pkgerrors.CodeValidation, "sale price cannot be negative")
	case p.CostPrice.LessThan(decimal.Zero):
		return pkgerrors.New(pkgerrors.CodeValidation, "cost price cannot be negative")
	case p.MinStock < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "minimum stock cannot be negative")
	}
	return nil
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

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
