package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scmdesk/scmdesk/internal/shared"
)

// WithTx executes fn within a ReadCommitted transaction, committing when fn returns nil.
// Callers that read-modify-write take explicit row locks (SELECT ... FOR UPDATE) so every
// statement after the lock observes the latest committed rows.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return WithTxIso(ctx, pool, pgx.ReadCommitted, fn)
}

// WithTxIso executes fn within a transaction using the given isolation level.
func WithTxIso(ctx context.Context, pool *pgxpool.Pool, iso pgx.TxIsoLevel, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: iso})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return Translate(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", Translate(err))
	}

	return nil
}

// RetryDuplicate reruns fn while it fails with shared.ErrDuplicate, up to attempts times.
// Used around inserts that allocate document numbers.
func RetryDuplicate(ctx context.Context, attempts int, fn func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil || !errors.Is(err, shared.ErrDuplicate) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}
