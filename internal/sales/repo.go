package sales

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/swiftpdv/pdv-backend/pkg/db/models"
)

// Repository persists sales and resolves the rows a sale references.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindUser(ctx context.Context, id uint) (*models.User, error)
	FindCustomer(ctx context.Context, id uint) (*models.Customer, error)
	FindProduct(ctx context.Context, id uint) (*models.Product, error)
	ExistingProductIDs(ctx context.Context, ids []uint) (map[uint]bool, error)
	CreateSale(ctx context.Context, sale *models.Sale) error
	CreateLine(ctx context.Context, line *models.SaleLine) error
	FindSaleWithLines(ctx context.Context, id uint) (*models.Sale, error)
	DeleteLines(ctx context.Context, saleID uint) error
	DeleteSale(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]models.Sale, error)
}

// ListFilter narrows List to one operator or one customer.
type ListFilter struct {
	UserID     *uint
	CustomerID *uint
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sales repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) FindProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ExistingProductIDs(ctx context.Context, ids []uint) (map[uint]bool, error) {
	found := make(map[uint]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	var existing []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id IN ?", ids).
		Pluck("id", &existing).Error; err != nil {
		return nil, err
	}
	for _, id := range existing {
		found[id] = true
	}
	return found, nil
}

func (r *repository) CreateSale(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(sale).Error
}

func (r *repository) CreateLine(ctx context.Context, line *models.SaleLine) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(line).Error
}

func (r *repository) FindSaleWithLines(ctx context.Context, id uint) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) DeleteLines(ctx context.Context, saleID uint) error {
	return r.db.WithContext(ctx).Where("sale_id = ?", saleID).Delete(&models.SaleLine{}).Error
}

func (r *repository) DeleteSale(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Sale{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Sale, error) {
	q := r.db.WithContext(ctx).
		Preload("User").
		Preload("Customer").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Lines.Product")
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}

	var rows []models.Sale
	if err := q.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
