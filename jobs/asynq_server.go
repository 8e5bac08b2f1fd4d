package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
)

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    *Handlers
	Cron        []CronRegistration
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Handlers == nil {
		return nil, errors.New("worker: handlers required")
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueDefault: 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			cfg.Logger.Error("job failed", slog.String("task", task.Type()), slog.Any("error", err))
		}),
	})
	mux := asynq.NewServeMux()
	cfg.Handlers.Register(mux)

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: cfg.Logger}, nil
}

// Schedule builds the standing cron entries. An empty spec disables that entry.
func Schedule(reconcileSpec, reorderSpec, cleanupSpec string, fix bool) ([]CronRegistration, error) {
	var out []CronRegistration
	now := time.Now().UTC()
	if reconcileSpec != "" {
		task, err := NewReconcileTask(fix, now)
		if err != nil {
			return nil, err
		}
		out = append(out, CronRegistration{Spec: reconcileSpec, Task: task})
	}
	if reorderSpec != "" {
		task, err := NewReorderScanTask(now)
		if err != nil {
			return nil, err
		}
		out = append(out, CronRegistration{Spec: reorderSpec, Task: task})
	}
	if cleanupSpec != "" {
		task, err := NewIdempotencyCleanupTask(DefaultKeyRetention)
		if err != nil {
			return nil, err
		}
		out = append(out, CronRegistration{Spec: cleanupSpec, Task: task})
	}
	return out, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueReconcile queues a reconciliation pass.
func (c *Client) EnqueueReconcile(ctx context.Context, fix bool) (*asynq.TaskInfo, error) {
	task, err := NewReconcileTask(fix, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// EnqueueReorderScan queues a reorder scan.
func (c *Client) EnqueueReorderScan(ctx context.Context) (*asynq.TaskInfo, error) {
	task, err := NewReorderScanTask(time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// EnqueueIdempotencyCleanup queues a key purge.
func (c *Client) EnqueueIdempotencyCleanup(ctx context.Context, olderThan time.Duration) (*asynq.TaskInfo, error) {
	task, err := NewIdempotencyCleanupTask(olderThan)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// QueueInspector reports queue depth.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"queue":"default","pending":0}`))
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	pending, failed := 0, 0
	queueName := QueueDefault
	if info != nil {
		pending = info.Pending
		failed = info.Archived
		queueName = info.Queue
	}
	_, _ = w.Write([]byte(`{"queue":"` + queueName + `","pending":` + itoa(pending) + `,"archived":` + itoa(failed) + `}`))
}

func itoa(i int) string {
	return strconv.FormatInt(int64(i), 10)
}
