package parts

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scmdesk/scmdesk/internal/platform/db"
	"github.com/scmdesk/scmdesk/internal/shared"
)

// Repository persists parts and reorder levels.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const partColumns = `id, part_no, description, category, COALESCE(unit_of_measure,''), unit_rate,
	opening_stock, current_stock, minimum_stock, order_quantity, created_at, updated_at`

func scanPart(row pgx.Row) (Part, error) {
	var p Part
	err := row.Scan(&p.ID, &p.PartNo, &p.Description, &p.Category, &p.UnitOfMeasure, &p.UnitRate,
		&p.OpeningStock, &p.CurrentStock, &p.MinimumStock, &p.OrderQuantity, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListParts returns every part ordered by part number.
func (r *Repository) ListParts(ctx context.Context) ([]Part, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+partColumns+` FROM parts ORDER BY part_no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPart loads one part.
func (r *Repository) GetPart(ctx context.Context, id uuid.UUID) (Part, error) {
	p, err := scanPart(r.pool.QueryRow(ctx, `SELECT `+partColumns+` FROM parts WHERE id=$1`, id))
	if err != nil {
		return Part{}, db.Translate(err)
	}
	return p, nil
}

// InsertPart stores a part with current stock equal to its opening stock.
func (r *Repository) InsertPart(ctx context.Context, p Part) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO parts
		(id, part_no, description, category, unit_of_measure, unit_rate, opening_stock, current_stock,
		 minimum_stock, order_quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$7,$8,$9,$10,$10)`,
		p.ID, p.PartNo, p.Description, p.Category, p.UnitOfMeasure, p.UnitRate, p.OpeningStock,
		p.MinimumStock, p.OrderQuantity, p.CreatedAt)
	return db.Translate(err)
}

// UpdatePart writes the editable columns. Stock columns are left to the ledger.
func (r *Repository) UpdatePart(ctx context.Context, p Part) error {
	tag, err := r.pool.Exec(ctx, `UPDATE parts SET part_no=$2, description=$3, category=$4,
		unit_of_measure=NULLIF($5,''), unit_rate=$6, minimum_stock=$7, order_quantity=$8, updated_at=$9
		WHERE id=$1`,
		p.ID, p.PartNo, p.Description, p.Category, p.UnitOfMeasure, p.UnitRate, p.MinimumStock,
		p.OrderQuantity, p.UpdatedAt)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListReorderLevels returns reorder levels joined with part stock.
func (r *Repository) ListReorderLevels(ctx context.Context) ([]ReorderLevel, error) {
	rows, err := r.pool.Query(ctx, `SELECT rl.id, rl.part_id, p.part_no, p.description, p.current_stock,
			p.order_quantity, rl.reorder_level, rl.max_stock_level, rl.lead_time_days, rl.created_at, rl.updated_at
		FROM reorder_levels rl JOIN parts p ON p.id = rl.part_id
		ORDER BY p.part_no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReorderLevel
	for rows.Next() {
		var rl ReorderLevel
		if err := rows.Scan(&rl.ID, &rl.PartID, &rl.PartNo, &rl.Description, &rl.CurrentStock,
			&rl.OrderQuantity, &rl.ReorderLevel, &rl.MaxStockLevel, &rl.LeadTimeDays, &rl.CreatedAt, &rl.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rl)
	}
	return out, rows.Err()
}

// UpsertReorderLevel creates or replaces the reorder level of rl.PartID.
func (r *Repository) UpsertReorderLevel(ctx context.Context, rl ReorderLevel) (ReorderLevel, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO reorder_levels
			(id, part_id, reorder_level, max_stock_level, lead_time_days, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$6)
		ON CONFLICT (part_id) DO UPDATE SET reorder_level=EXCLUDED.reorder_level,
			max_stock_level=EXCLUDED.max_stock_level, lead_time_days=EXCLUDED.lead_time_days,
			updated_at=EXCLUDED.updated_at
		RETURNING id, created_at`,
		rl.ID, rl.PartID, rl.ReorderLevel, rl.MaxStockLevel, rl.LeadTimeDays, rl.UpdatedAt).
		Scan(&rl.ID, &rl.CreatedAt)
	if err != nil {
		return ReorderLevel{}, db.Translate(err)
	}
	return rl, nil
}
