package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReconcile compares stored stock with the ledger.
	TaskReconcile = "inventory:reconcile"
	// TaskReorderScan lists parts at or below their reorder level.
	TaskReorderScan = "inventory:reorder_scan"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// ReconcilePayload selects report-only or repair mode.
type ReconcilePayload struct {
	Fix          bool      `json:"fix"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// ReorderScanPayload carries scheduling metadata.
type ReorderScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// CleanupPayload sets how old a key must be before it is purged.
type CleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewReconcileTask constructs a reconciliation task.
func NewReconcileTask(fix bool, at time.Time) (*asynq.Task, error) {
	return newTask(TaskReconcile, ReconcilePayload{Fix: fix, ScheduledFor: at})
}

// NewReorderScanTask constructs a reorder scan task.
func NewReorderScanTask(at time.Time) (*asynq.Task, error) {
	return newTask(TaskReorderScan, ReorderScanPayload{ScheduledFor: at})
}

// NewIdempotencyCleanupTask constructs a cleanup task.
func NewIdempotencyCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	return newTask(TaskIdempotencyCleanup, CleanupPayload{OlderThan: olderThan})
}

func newTask(typ string, payload any) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3), asynq.Timeout(5*time.Minute)), nil
}
