package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/scmdesk/scmdesk/internal/app"
	"github.com/scmdesk/scmdesk/internal/departments"
	"github.com/scmdesk/scmdesk/internal/inventory"
	"github.com/scmdesk/scmdesk/internal/parts"
	"github.com/scmdesk/scmdesk/internal/platform/db"
	"github.com/scmdesk/scmdesk/internal/procurement"
	"github.com/scmdesk/scmdesk/internal/requisitions"
	"github.com/scmdesk/scmdesk/internal/shared"
	"github.com/scmdesk/scmdesk/internal/vendors"
)

func main() {
	file := flag.String("file", "", "fixtures YAML (defaults to the built-in set)")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	ctx := context.Background()

	fixtures, err := LoadFixtures(*file)
	if err != nil {
		logger.Error("load fixtures", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Seeding runs without the list cache; API processes pick the data up on their next miss.
	audit := shared.NewAuditLogger(pool)
	vendorService := vendors.NewService(vendors.NewRepository(pool), audit, nil)
	partService := parts.NewService(parts.NewRepository(pool), audit, nil)
	departmentService := departments.NewService(departments.NewRepository(pool), audit, nil)
	inventoryService := inventory.NewService(inventory.NewRepository(pool), audit, shared.NewIdempotencyStore(pool), nil, inventory.ServiceConfig{
		AllowNegativeStock: cfg.InventoryAllowNegative,
	})

	seeder := &Seeder{
		Vendors:     vendorService,
		Parts:       partService,
		Departments: departmentService,
		Receiving:   procurement.NewService(procurement.NewRepository(pool), inventoryService, vendorService, audit, nil),
		Issuing:     requisitions.NewService(requisitions.NewRepository(pool), inventoryService, departmentService, audit, nil),
		Logger:      logger,
	}
	stats, err := seeder.Run(ctx, fixtures)
	if errors.Is(err, ErrAlreadySeeded) {
		logger.Info("seed skipped", slog.String("reason", err.Error()))
		return
	}
	if err != nil {
		logger.Error("seed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seed complete",
		slog.Int("vendors", stats.Vendors),
		slog.Int("parts", stats.Parts),
		slog.Int("departments", stats.Departments),
		slog.Int("rates", stats.Rates),
		slog.Int("receipts", stats.Receipts),
		slog.Int("issues", stats.Issues))
}
