package inventory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/swiftpdv/pdv-backend/pkg/db/models"
	"github.com/swiftpdv/pdv-backend/pkg/enums"
)

var (
	// ErrInsufficientStock is returned when a decrement would take stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrProductMissing is returned when the adjusted product row does not exist.
	ErrProductMissing = errors.New("product missing")
)

// Service applies stock changes. Every change writes exactly one movement.
type Service interface {
	Apply(ctx context.Context, tx *gorm.DB, adj Adjustment) (*models.InventoryMovement, error)
	MovementsForSale(ctx context.Context, saleID uint) ([]models.InventoryMovement, error)
	MovementsForProduct(ctx context.Context, productID uint) ([]models.InventoryMovement, error)
}

// Adjustment describes one directional stock change.
type Adjustment struct {
	ProductID uint
	Type      enums.MovementType
	Quantity  int
	Note      string
	SaleID    *uint
}

type service struct {
	repo Repository
}

// NewService wires an inventory service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo}, nil
}

// Apply must run inside the caller's transaction so the stock change and its
// movement commit or roll back together.
func (s *service) Apply(ctx context.Context, tx *gorm.DB, adj Adjustment) (*models.InventoryMovement, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if adj.ProductID == 0 {
		return nil, fmt.Errorf("product id is required")
	}
	if adj.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if !adj.Type.IsValid() {
		return nil, fmt.Errorf("invalid movement type %q", adj.Type)
	}

	repo := s.repo.WithTx(tx)
	switch adj.Type {
	case enums.MovementOut:
		ok, err := repo.DecrementStock(ctx, adj.ProductID, adj.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrInsufficientStock
		}
	case enums.MovementIn:
		ok, err := repo.IncrementStock(ctx, adj.ProductID, adj.Quantity)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrProductMissing
		}
	}

	movement := &models.InventoryMovement{
		ProductID: adj.ProductID,
		Type:      adj.Type,
		Quantity:  adj.Quantity,
		Note:      adj.Note,
		SaleID:    adj.SaleID,
	}
	if err := repo.CreateMovement(ctx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

func (s *service) MovementsForSale(ctx context.Context, saleID uint) ([]models.InventoryMovement, error) {
	if saleID == 0 {
		return nil, fmt.Errorf("sale id is required")
	}
	return s.repo.ListBySale(ctx, saleID)
}

func (s *service) MovementsForProduct(ctx context.Context, productID uint) ([]models.InventoryMovement, error) {
	if productID == 0 {
		return nil, fmt.Errorf("product id is required")
	}
	return s.repo.ListByProduct(ctx, productID)
}

// SaleNote is the note written on the OUT movement of a sale line.
func SaleNote(saleID uint) string {
	return fmt.Sprintf("Sale #%d", saleID)
}

// ReversalNote is the note written on the IN movement when a sale is deleted.
func ReversalNote(saleID uint) string {
	return fmt.Sprintf("Reversal of sale #%d", saleID)
}
