package users

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/swiftpdv/pdv-backend/pkg/db/models"
)

// Repository stores operators. Username lookups take the encrypted value,
// never the plain text.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) scoped(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{})
}

func (r *Repository) first(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Update applies a partial column map; an empty map is a no-op.
func (r *Repository) Update(ctx context.Context, id uint, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.scoped(ctx).Where("id = ?", id).Updates(updates).Error
}

// Delete reports false when no row had that id.
func (r *Repository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) FindByUsername(ctx context.Context, encryptedUsername string) (*models.User, error) {
	return r.first(ctx, "username = ?", encryptedUsername)
}

func (r *Repository) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := r.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

// UpdateLastLogin skips hooks so updated_at keeps tracking profile edits.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.scoped(ctx).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

// CountSales is used to refuse deleting an operator that has rung up sales.
func (r *Repository) CountSales(ctx context.Context, id uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Sale{}).Where("user_id = ?", id).Count(&n).Error
	return n, err
}
