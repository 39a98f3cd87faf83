// Package seed loads the starter catalog and the bootstrap administrator.
// Running it twice is a no-op.
package seed

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	product "github.com/swiftpdv/pdv-backend/internal/products"
	"github.com/swiftpdv/pdv-backend/internal/users"
	"github.com/swiftpdv/pdv-backend/pkg/db/models"
	"github.com/swiftpdv/pdv-backend/pkg/enums"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
)

const (
	AdminUsername = "admin"
	adminPassword = "admin123"
	adminName     = "Administrador"
	adminEmail    = "admin@admin.com"
	adminRole     = "Administrador"
)

type barcodeIndex interface {
	ExistingBarcodes(ctx context.Context, barcodes []string) (map[string]bool, error)
}

type productCreator interface {
	CreateProduct(ctx context.Context, input product.CreateProductInput) (*product.ProductDTO, error)
}

type userFinder interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type userCreator interface {
	CreateUser(ctx context.Context, input users.CreateUserInput) (*users.UserDTO, error)
}

type usernameCipher interface {
	Encrypt(plain string) string
}

type Params struct {
	Barcodes barcodeIndex
	Products productCreator
	UserRepo userFinder
	Users    userCreator
	Cipher   usernameCipher
	Logger   *logger.Logger
}

// Result reports what a run inserted.
type Result struct {
	ProductsCreated int
	ProductsSkipped int
	AdminCreated    bool
}

type Seeder struct {
	barcodes barcodeIndex
	products productCreator
	userRepo userFinder
	users    userCreator
	cipher   usernameCipher
	logg     *logger.Logger
}

func NewSeeder(p Params) (*Seeder, error) {
	switch {
	case p.Barcodes == nil:
		return nil, fmt.Errorf("barcode index required")
	case p.Products == nil:
		return nil, fmt.Errorf("product service required")
	case p.UserRepo == nil:
		return nil, fmt.Errorf("user repository required")
	case p.Users == nil:
		return nil, fmt.Errorf("user service required")
	case p.Cipher == nil:
		return nil, fmt.Errorf("field cipher required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &Seeder{
		barcodes: p.Barcodes,
		products: p.Products,
		userRepo: p.UserRepo,
		users:    p.Users,
		cipher:   p.Cipher,
		logg:     p.Logger,
	}, nil
}

func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result

	existing, err := s.barcodes.ExistingBarcodes(ctx, catalogBarcodes())
	if err != nil {
		return res, fmt.Errorf("loading existing barcodes: %w", err)
	}
	for _, entry := range defaultCatalog {
		if existing[entry.barcode] {
			res.ProductsSkipped++
			continue
		}
		if _, err := s.products.CreateProduct(ctx, entry.input()); err != nil {
			return res, fmt.Errorf("seeding product %s: %w", entry.barcode, err)
		}
		res.ProductsCreated++
	}

	created, err := s.ensureAdmin(ctx)
	if err != nil {
		return res, err
	}
	res.AdminCreated = created

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"products_created": res.ProductsCreated,
		"products_skipped": res.ProductsSkipped,
		"admin_created":    res.AdminCreated,
	}), "seed completed")
	return res, nil
}

func (s *Seeder) ensureAdmin(ctx context.Context) (bool, error) {
	_, err := s.userRepo.FindByUsername(ctx, s.cipher.Encrypt(AdminUsername))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("looking up admin user: %w", err)
	}

	email := adminEmail
	if _, err := s.users.CreateUser(ctx, users.CreateUserInput{
		Name:        adminName,
		Username:    AdminUsername,
		Password:    adminPassword,
		Email:       &email,
		Role:        adminRole,
		AccessLevel: enums.AccessLevelAdmin,
		IsActive:    true,
	}); err != nil {
		return false, fmt.Errorf("creating admin user: %w", err)
	}
	return true, nil
}
