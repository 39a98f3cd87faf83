package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/swiftpdv/pdv-backend/internal/auth"
	"github.com/swiftpdv/pdv-backend/internal/customers"
	"github.com/swiftpdv/pdv-backend/internal/inventory"
	product "github.com/swiftpdv/pdv-backend/internal/products"
	"github.com/swiftpdv/pdv-backend/internal/reports"
	"github.com/swiftpdv/pdv-backend/internal/sales"
	"github.com/swiftpdv/pdv-backend/internal/seed"
	"github.com/swiftpdv/pdv-backend/internal/users"
	"github.com/swiftpdv/pdv-backend/pkg/auth/session"
	"github.com/swiftpdv/pdv-backend/pkg/config"
	"github.com/swiftpdv/pdv-backend/pkg/db"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
	"github.com/swiftpdv/pdv-backend/pkg/metrics"
	"github.com/swiftpdv/pdv-backend/pkg/outbox"
	"github.com/swiftpdv/pdv-backend/pkg/security"
)

type services struct {
	auth      auth.Service
	products  product.Service
	users     users.Service
	customers customers.Service
	sales     sales.Service
	exporter  *reports.Exporter
	seeder    *seed.Seeder
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessions *session.Manager, reg prometheus.Registerer) (*services, error) {
	cipher, err := security.NewFieldCipher(cfg.Crypto)
	if err != nil {
		return nil, fmt.Errorf("field cipher: %w", err)
	}

	gdb := dbClient.DB()
	userRepo := users.NewRepository(gdb)
	productRepo := product.NewRepository(gdb)

	inventorySvc, err := inventory.NewService(inventory.NewRepository(gdb))
	if err != nil {
		return nil, err
	}
	productSvc, err := product.NewService(productRepo, dbClient, inventorySvc, logg)
	if err != nil {
		return nil, err
	}
	userSvc, err := users.NewService(userRepo, cipher, cfg.Password, logg)
	if err != nil {
		return nil, err
	}
	customerSvc, err := customers.NewService(customers.NewRepository(gdb), cipher, logg)
	if err != nil {
		return nil, err
	}
	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		Cipher:         cipher,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return nil, err
	}
	salesSvc, err := sales.NewService(sales.ServiceParams{
		Repository: sales.NewRepository(gdb),
		Inventory:  inventorySvc,
		Tx:         dbClient,
		Outbox:     outbox.NewWriter(outbox.NewRepository(gdb), logg),
		Cipher:     cipher,
		Metrics:    metrics.NewSaleMetrics(reg),
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}
	exporter, err := reports.NewExporter(salesSvc)
	if err != nil {
		return nil, err
	}
	seeder, err := seed.NewSeeder(seed.Params{
		Barcodes: productRepo,
		Products: productSvc,
		UserRepo: userRepo,
		Users:    userSvc,
		Cipher:   cipher,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	return &services{
		auth:      authSvc,
		products:  productSvc,
		users:     userSvc,
		customers: customerSvc,
		sales:     salesSvc,
		exporter:  exporter,
		seeder:    seeder,
	}, nil
}
