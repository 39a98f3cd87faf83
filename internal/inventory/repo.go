package inventory

import (
	"context"

	"gorm.io/gorm"

	"github.com/swiftpdv/pdv-backend/pkg/db/models"
)

// Repository persists stock levels and the movement log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	DecrementStock(ctx context.Context, productID uint, quantity int) (bool, error)
	IncrementStock(ctx context.Context, productID uint, quantity int) (bool, error)
	CreateMovement(ctx context.Context, movement *models.InventoryMovement) error
	ListBySale(ctx context.Context, saleID uint) ([]models.InventoryMovement, error)
	ListByProduct(ctx context.Context, productID uint) ([]models.InventoryMovement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// DecrementStock only succeeds while the row still holds enough stock, so two
// concurrent sales can never drive it negative.
func (r *repository) DecrementStock(ctx context.Context, productID uint, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) IncrementStock(ctx context.Context, productID uint, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.InventoryMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListBySale(ctx context.Context, saleID uint) ([]models.InventoryMovement, error) {
	var movements []models.InventoryMovement
	if err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("id ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repository) ListByProduct(ctx context.Context, productID uint) ([]models.InventoryMovement, error) {
	var movements []models.InventoryMovement
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id DESC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
