package export

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads export tables from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ReadTable runs the table query and returns raw row values.
func (r *Repository) ReadTable(ctx context.Context, t DataTable) ([][]any, error) {
	rows, err := r.pool.Query(ctx, t.Query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, rows.Err()
}
