package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scmdesk/scmdesk/internal/inventory"
	jobmetrics "github.com/scmdesk/scmdesk/internal/jobs"
	"github.com/scmdesk/scmdesk/internal/parts"
)

// DefaultKeyRetention is how long idempotency keys are kept when a payload gives none.
const DefaultKeyRetention = 72 * time.Hour

// Reconciler checks stored stock against the ledger.
type Reconciler interface {
	Reconcile(ctx context.Context, fix bool) (inventory.ReconcileReport, error)
}

// ReorderScanner lists parts due for replenishment.
type ReorderScanner interface {
	BelowReorderLevel(ctx context.Context) ([]parts.ReorderLevel, error)
}

// KeyCleaner purges old idempotency keys.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Handlers processes the supply chain tasks.
type Handlers struct {
	Reconciler Reconciler
	Reorder    ReorderScanner
	Keys       KeyCleaner
	Metrics    *jobmetrics.Metrics
	Logger     *slog.Logger
}

// Register attaches every task handler to mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskReconcile, h.HandleReconcile)
	mux.HandleFunc(TaskReorderScan, h.HandleReorderScan)
	mux.HandleFunc(TaskIdempotencyCleanup, h.HandleIdempotencyCleanup)
}

// HandleReconcile runs a ledger reconciliation pass.
func (h *Handlers) HandleReconcile(ctx context.Context, t *asynq.Task) error {
	var payload ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%w: reconcile payload: %v", asynq.SkipRetry, err)
	}
	tracker := h.Metrics.Track(TaskReconcile)
	report, err := h.Reconciler.Reconcile(ctx, payload.Fix)
	if err != nil {
		return tracker.End(fmt.Errorf("reconcile: %w", err))
	}
	level := slog.LevelInfo
	if len(report.Drifts) > 0 {
		level = slog.LevelWarn
	}
	h.Logger.Log(ctx, level, "ledger reconciled",
		slog.String("job", TaskReconcile),
		slog.Int("checked", report.Checked),
		slog.Int("drifts", len(report.Drifts)),
		slog.Bool("fix", payload.Fix))
	for _, d := range report.Drifts {
		h.Logger.Warn("stock drift",
			slog.String("part_no", d.PartNo),
			slog.Int("stored", d.Stored),
			slog.Int("expected", d.Expected),
			slog.Bool("fixed", d.Fixed))
	}
	return tracker.End(nil)
}

// HandleReorderScan logs every part at or under its reorder level.
func (h *Handlers) HandleReorderScan(ctx context.Context, t *asynq.Task) error {
	var payload ReorderScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%w: reorder payload: %v", asynq.SkipRetry, err)
	}
	tracker := h.Metrics.Track(TaskReorderScan)
	rows, err := h.Reorder.BelowReorderLevel(ctx)
	if err != nil {
		return tracker.End(fmt.Errorf("reorder scan: %w", err))
	}
	h.Metrics.SetBelowReorder(len(rows))
	for _, row := range rows {
		h.Logger.Info("part below reorder level",
			slog.String("job", TaskReorderScan),
			slog.String("part_no", row.PartNo),
			slog.Int("current_stock", row.CurrentStock),
			slog.Int("reorder_level", row.ReorderLevel),
			slog.Int("order_quantity", row.OrderQuantity),
			slog.Int("lead_time_days", row.LeadTimeDays))
	}
	return tracker.End(nil)
}

// HandleIdempotencyCleanup deletes expired idempotency keys.
func (h *Handlers) HandleIdempotencyCleanup(ctx context.Context, t *asynq.Task) error {
	var payload CleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("%w: cleanup payload: %v", asynq.SkipRetry, err)
	}
	if payload.OlderThan <= 0 {
		payload.OlderThan = DefaultKeyRetention
	}
	tracker := h.Metrics.Track(TaskIdempotencyCleanup)
	removed, err := h.Keys.Cleanup(ctx, payload.OlderThan)
	if err != nil {
		return tracker.End(fmt.Errorf("idempotency cleanup: %w", err))
	}
	h.Logger.Info("idempotency keys purged", slog.String("job", TaskIdempotencyCleanup), slog.Int64("removed", removed))
	return tracker.End(nil)
}
