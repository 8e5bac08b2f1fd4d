package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/scmdesk/scmdesk/internal/app"
	"github.com/scmdesk/scmdesk/internal/dashboard"
	"github.com/scmdesk/scmdesk/internal/departments"
	"github.com/scmdesk/scmdesk/internal/export"
	"github.com/scmdesk/scmdesk/internal/inventory"
	"github.com/scmdesk/scmdesk/internal/listcache"
	"github.com/scmdesk/scmdesk/internal/observability"
	"github.com/scmdesk/scmdesk/internal/parts"
	"github.com/scmdesk/scmdesk/internal/platform/cache"
	"github.com/scmdesk/scmdesk/internal/platform/db"
	"github.com/scmdesk/scmdesk/internal/procurement"
	"github.com/scmdesk/scmdesk/internal/quality"
	"github.com/scmdesk/scmdesk/internal/realtime"
	"github.com/scmdesk/scmdesk/internal/requisitions"
	"github.com/scmdesk/scmdesk/internal/shared"
	"github.com/scmdesk/scmdesk/internal/vendors"
	"github.com/scmdesk/scmdesk/jobs"
	"github.com/scmdesk/scmdesk/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Without Redis every list read goes straight to PostgreSQL.
	var listCache *listcache.Cache
	redisClient, err := cache.New(ctx, cfg.RedisAddr, "", 0)
	if err != nil {
		logger.Warn("redis unavailable, list cache disabled", slog.Any("error", err))
	} else {
		defer func(client *redis.Client) {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}(redisClient)
		listCache = listcache.New(redisClient, cfg.CacheTTL)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	vendorService := vendors.NewService(vendors.NewRepository(dbpool), auditLogger, listCache)
	partService := parts.NewService(parts.NewRepository(dbpool), auditLogger, listCache)
	departmentService := departments.NewService(departments.NewRepository(dbpool), auditLogger, listCache)

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger, idempotencyStore, listCache, inventory.ServiceConfig{
		AllowNegativeStock: cfg.InventoryAllowNegative,
		Metrics:            metrics,
	})
	procurementService := procurement.NewService(procurement.NewRepository(dbpool), inventoryService, vendorService, auditLogger, listCache)
	requisitionService := requisitions.NewService(requisitions.NewRepository(dbpool), inventoryService, departmentService, auditLogger, listCache)
	qualityService := quality.NewService(quality.NewRepository(dbpool), auditLogger, listCache)

	dashboardService := dashboard.NewService(partService, vendorService, procurementService,
		dashboard.NewRepository(dbpool), listCache, cfg.LanguageTag())

	reportClient := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	exportService := export.NewService(export.NewRepository(dbpool), reportClient)

	hub := realtime.NewHub(logger, cfg.WSAllowedOrigins)
	if err := hub.Run(ctx, listCache); err != nil {
		logger.Warn("realtime feed disabled", slog.Any("error", err))
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		VendorsHandler:      vendors.NewHandler(logger, vendorService),
		PartsHandler:        parts.NewHandler(logger, partService),
		DepartmentsHandler:  departments.NewHandler(logger, departmentService),
		ProcurementHandler:  procurement.NewHandler(logger, procurementService),
		RequisitionsHandler: requisitions.NewHandler(logger, requisitionService),
		QualityHandler:      quality.NewHandler(logger, qualityService),
		InventoryHandler:    inventory.NewHandler(logger, inventoryService),
		DashboardHandler:    dashboard.NewHandler(logger, dashboardService),
		ExportHandler:       export.NewHandler(logger, exportService, cfg.ExportRateLimit),
		ReportHandler:       report.NewHandler(reportClient, logger),
		JobHandler:          jobs.NewHandler(inspector, logger),
		Hub:                 hub,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
