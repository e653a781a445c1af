package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/craftora/marketplace-backend/pkg/config"
	"github.com/craftora/marketplace-backend/pkg/db"
	"github.com/craftora/marketplace-backend/pkg/db/models"
	"github.com/craftora/marketplace-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	logg.Info(ctx, "running schema migration")

	if err := dbClient.DB().AutoMigrate(
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.VendorOrder{},
		&models.OrderItem{},
		&models.LedgerEntry{},
	); err != nil {
		logg.Error(ctx, "schema migration failed", err)
		os.Exit(1)
	}

	logg.Info(ctx, "schema migration complete")
}
