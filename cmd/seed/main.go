package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/swiftpdv/pdv-backend/internal/inventory"
	product "github.com/swiftpdv/pdv-backend/internal/products"
	"github.com/swiftpdv/pdv-backend/internal/seed"
	"github.com/swiftpdv/pdv-backend/internal/users"
	"github.com/swiftpdv/pdv-backend/pkg/config"
	"github.com/swiftpdv/pdv-backend/pkg/db"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
	"github.com/swiftpdv/pdv-backend/pkg/migrate"
	"github.com/swiftpdv/pdv-backend/pkg/security"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "migrations", err)

	cipher, err := security.NewFieldCipher(cfg.Crypto)
	requireResource(ctx, logg, "field cipher", err)

	gdb := dbClient.DB()
	productRepo := product.NewRepository(gdb)
	userRepo := users.NewRepository(gdb)

	inventorySvc, err := inventory.NewService(inventory.NewRepository(gdb))
	requireResource(ctx, logg, "inventory service", err)
	productSvc, err := product.NewService(productRepo, dbClient, inventorySvc, logg)
	requireResource(ctx, logg, "product service", err)
	userSvc, err := users.NewService(userRepo, cipher, cfg.Password, logg)
	requireResource(ctx, logg, "user service", err)

	seeder, err := seed.NewSeeder(seed.Params{
		Barcodes: productRepo,
		Products: productSvc,
		UserRepo: userRepo,
		Users:    userSvc,
		Cipher:   cipher,
		Logger:   logg,
	})
	requireResource(ctx, logg, "seeder", err)

	res, err := seeder.Run(ctx)
	if err != nil {
		logg.Error(ctx, "seed failed", err)
		dbClient.Close()
		os.Exit(1)
	}
	fmt.Printf("products created=%d skipped=%d admin created=%t\n", res.ProductsCreated, res.ProductsSkipped, res.AdminCreated)
}

func requireResource(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("failed to initialize %s", name), err)
	os.Exit(1)
}
