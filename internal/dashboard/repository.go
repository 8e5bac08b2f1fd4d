package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads ledger aggregates straight from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// MonthlyTotals sums GRR receipts and MIR issues per month from the first day of since.
// Adjustments are corrections, not flow, and are left out.
func (r *Repository) MonthlyTotals(ctx context.Context, since time.Time) ([]MonthTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT date_trunc('month', movement_date)::date AS month,
			COALESCE(SUM(quantity) FILTER (WHERE movement_type='IN' AND reference_type='GRR'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE movement_type='OUT' AND reference_type='MIR'), 0)
		FROM stock_movements
		WHERE movement_date >= $1
		GROUP BY 1 ORDER BY 1`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MonthTotal
	for rows.Next() {
		var t MonthTotal
		if err := rows.Scan(&t.Month, &t.In, &t.Out); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
