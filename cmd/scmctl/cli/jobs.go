package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scmdesk/scmdesk/jobs"
)

// Enqueuer submits supply chain tasks.
type Enqueuer interface {
	EnqueueReconcile(ctx context.Context, fix bool) (*asynq.TaskInfo, error)
	EnqueueReorderScan(ctx context.Context) (*asynq.TaskInfo, error)
	EnqueueIdempotencyCleanup(ctx context.Context, olderThan time.Duration) (*asynq.TaskInfo, error)
	Close() error
}

// Inspector reads queue state.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	Close() error
}

// JobsCLI wraps manual management helpers for the job queue.
type JobsCLI struct {
	client    Enqueuer
	inspector Inspector
	stdout    io.Writer
	stderr    io.Writer
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string, stdout, stderr io.Writer) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return New(jobs.NewClient(opts), asynq.NewInspector(opts), stdout, stderr)
}

// New builds a JobsCLI from explicit queue collaborators.
func New(client Enqueuer, inspector Inspector, stdout, stderr io.Writer) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector, stdout: stdout, stderr: stderr}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		err = errors.Join(err, c.inspector.Close())
	}
	if c.client != nil {
		err = errors.Join(err, c.client.Close())
	}
	return err
}

// Usage prints the command summary.
func (c *JobsCLI) Usage() {
	_, _ = fmt.Fprintln(c.stderr, `usage: scmctl <command> [flags]

commands:
  reconcile [-fix]            queue a ledger reconciliation
  reorder-scan                queue a scan for parts below their reorder point
  cleanup [-older-than 72h]   queue a purge of old idempotency keys
  queue [-json]               show default queue depth
  scheduled [-size 10]        list scheduled tasks`)
}

// Run executes one command and returns the process exit code.
func (c *JobsCLI) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		c.Usage()
		return 2
	}
	name, rest := args[0], args[1:]
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)

	switch name {
	case "reconcile":
		fix := fs.Bool("fix", false, "rewrite drifted stock figures from the ledger")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		return c.enqueued(c.client.EnqueueReconcile(ctx, *fix))
	case "reorder-scan":
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		return c.enqueued(c.client.EnqueueReorderScan(ctx))
	case "cleanup":
		olderThan := fs.Duration("older-than", jobs.DefaultKeyRetention, "minimum key age to purge")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		if *olderThan <= 0 {
			_, _ = fmt.Fprintln(c.stderr, "cleanup: -older-than must be positive")
			return 2
		}
		return c.enqueued(c.client.EnqueueIdempotencyCleanup(ctx, *olderThan))
	case "queue":
		asJSON := fs.Bool("json", false, "print JSON")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		return c.queue(*asJSON)
	case "scheduled":
		size := fs.Int("size", 10, "page size")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		return c.scheduled(*size)
	}
	_, _ = fmt.Fprintf(c.stderr, "scmctl: unknown command %q\n", name)
	c.Usage()
	return 2
}

func (c *JobsCLI) enqueued(info *asynq.TaskInfo, err error) int {
	if err != nil {
		_, _ = fmt.Fprintf(c.stderr, "enqueue: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(c.stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	return 0
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

func (c *JobsCLI) queue(asJSON bool) int {
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		_, _ = fmt.Fprintf(c.stderr, "queue: %v\n", err)
		return 1
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	if asJSON {
		if err := json.NewEncoder(c.stdout).Encode(stats); err != nil {
			_, _ = fmt.Fprintf(c.stderr, "queue: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = fmt.Fprintf(c.stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	return 0
}

func (c *JobsCLI) scheduled(size int) int {
	if size <= 0 {
		size = 10
	}
	tasks, err := c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
	if err != nil {
		_, _ = fmt.Fprintf(c.stderr, "scheduled: %v\n", err)
		return 1
	}
	for _, t := range tasks {
		_, _ = fmt.Fprintf(c.stdout, "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.UTC().Format(time.RFC3339))
	}
	return 0
}
