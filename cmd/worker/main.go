package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scmdesk/scmdesk/internal/app"
	"github.com/scmdesk/scmdesk/internal/inventory"
	jobmetrics "github.com/scmdesk/scmdesk/internal/jobs"
	"github.com/scmdesk/scmdesk/internal/listcache"
	"github.com/scmdesk/scmdesk/internal/observability"
	"github.com/scmdesk/scmdesk/internal/parts"
	"github.com/scmdesk/scmdesk/internal/platform/cache"
	"github.com/scmdesk/scmdesk/internal/platform/db"
	"github.com/scmdesk/scmdesk/internal/shared"
	"github.com/scmdesk/scmdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var listCache *listcache.Cache
	redisClient, err := cache.New(ctx, cfg.RedisAddr, "", 0)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		listCache = listcache.New(redisClient, cfg.CacheTTL)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	inventoryService := inventory.NewService(inventory.NewRepository(pool), auditLogger, idempotencyStore, listCache, inventory.ServiceConfig{
		AllowNegativeStock: cfg.InventoryAllowNegative,
		Metrics:            metrics,
	})
	partService := parts.NewService(parts.NewRepository(pool), auditLogger, listCache)

	cron, err := jobs.Schedule(cfg.ReconcileCron, cfg.ReorderScanCron, cfg.IdempotencyCleanupCron, cfg.ReconcileAutoFix)
	if err != nil {
		logger.Error("build schedule", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: &jobs.Handlers{
			Reconciler: inventoryService,
			Reorder:    partService,
			Keys:       idempotencyStore,
			Metrics:    jobmetrics.NewMetrics(metrics.Registerer()),
			Logger:     logger,
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
