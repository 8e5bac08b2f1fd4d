package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/scmdesk/scmdesk/internal/shared"
)

// NumberingTarget names the table and column holding a document number.
type NumberingTarget struct {
	Table  string
	Column string
	Prefix string
}

// NextNumber allocates the next PREFIX-YEAR-NNN number inside tx.
// A transaction-scoped advisory lock serialises allocation per prefix and year;
// the unique constraint on the column stays the final guard.
func NextNumber(ctx context.Context, tx pgx.Tx, target NumberingTarget, at time.Time) (string, error) {
	stem := shared.NumberPrefix(target.Prefix, at)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, stem); err != nil {
		return "", fmt.Errorf("platform/db: numbering lock: %w", err)
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s LIKE $1`, pgx.Identifier{target.Table}.Sanitize(), pgx.Identifier{target.Column}.Sanitize())
	var count int
	if err := tx.QueryRow(ctx, query, stem+"%").Scan(&count); err != nil {
		return "", fmt.Errorf("platform/db: count %s: %w", target.Table, err)
	}
	return shared.DocumentNumber(target.Prefix, at.Year(), count), nil
}
