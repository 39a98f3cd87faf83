package product

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/swiftpdv/pdv-backend/pkg/db/models"
)

// Repository persists catalog products.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update writes the catalog fields. Stock is left alone; it only moves
// through inventory adjustments.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", product.ID).
		Select("barcode", "name", "description", "category", "unit", "sale_price", "cost_price", "min_stock", "updated_at").
		Updates(product).Error
}

// Delete removes the product row and reports whether it existed.
func (r *Repository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "barcode = ?", strings.TrimSpace(barcode)).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns the catalog ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ListLowStock returns products at or below their minimum stock, lowest first.
func (r *Repository) ListLowStock(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Where("stock <= min_stock").
		Order("stock ASC").
		Order("name ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ExistingBarcodes returns the subset of barcodes already in the catalog.
func (r *Repository) ExistingBarcodes(ctx context.Context, barcodes []string) (map[string]bool, error) {
	out := make(map[string]bool, len(barcodes))
	if len(barcodes) == 0 {
		return out, nil
	}
	var found []string
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("barcode IN ?", barcodes).
		Pluck("barcode", &found).Error; err != nil {
		return nil, err
	}
	for _, code := range found {
		out[code] = true
	}
	return out, nil
}

func (r *Repository) CountSaleLines(ctx context.Context, productID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SaleLine{}).Where("product_id = ?", productID).Count(&count).Error
	return count, err
}
