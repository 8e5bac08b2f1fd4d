package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scmdesk/scmdesk/internal/platform/db"
)

// Repository persists the stock ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn with a ledger bound to one transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, LedgerTx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewLedgerTx(tx))
	})
}

type pgLedger struct {
	tx pgx.Tx
}

// NewLedgerTx binds the ledger operations to tx. Document repositories embed the result so
// their transition and its movements share one transaction.
func NewLedgerTx(tx pgx.Tx) LedgerTx {
	return &pgLedger{tx: tx}
}

func (l *pgLedger) LockParts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]PartStock, error) {
	stocks := make(map[uuid.UUID]PartStock, len(ids))
	for _, id := range ids {
		var s PartStock
		err := l.tx.QueryRow(ctx, `SELECT id, part_no, opening_stock, current_stock, unit_rate
			FROM parts WHERE id=$1 FOR UPDATE`, id).
			Scan(&s.PartID, &s.PartNo, &s.OpeningStock, &s.CurrentStock, &s.UnitRate)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, fmt.Errorf("inventory: lock part: %w", err)
		}
		stocks[id] = s
	}
	return stocks, nil
}

func (l *pgLedger) InsertMovement(ctx context.Context, m Movement) error {
	_, err := l.tx.Exec(ctx, `INSERT INTO stock_movements
		(id, part_id, movement_type, quantity, reference_type, reference_id, movement_date, unit_rate, remarks, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),NULLIF($10,''),$11)`,
		m.ID, m.PartID, string(m.Type), m.Quantity, string(m.ReferenceType), m.ReferenceID,
		m.MovementDate, m.UnitRate, m.Remarks, m.CreatedBy, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("inventory: insert movement: %w", err)
	}
	return nil
}

func (l *pgLedger) MovementTotals(ctx context.Context, partID uuid.UUID) (Totals, error) {
	var t Totals
	err := l.tx.QueryRow(ctx, `SELECT
			COALESCE(SUM(quantity) FILTER (WHERE movement_type='IN'), 0),
			COALESCE(SUM(quantity) FILTER (WHERE movement_type='OUT'), 0)
		FROM stock_movements WHERE part_id=$1`, partID).Scan(&t.In, &t.Out)
	if err != nil {
		return Totals{}, fmt.Errorf("inventory: movement totals: %w", err)
	}
	return t, nil
}

func (l *pgLedger) SetCurrentStock(ctx context.Context, partID uuid.UUID, qty int) error {
	tag, err := l.tx.Exec(ctx, `UPDATE parts SET current_stock=$2, updated_at=NOW() WHERE id=$1`, partID, qty)
	if err != nil {
		return fmt.Errorf("inventory: set current stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPartNotFound
	}
	return nil
}

// PartStock loads a part's stock state without locking.
func (r *Repository) PartStock(ctx context.Context, partID uuid.UUID) (PartStock, error) {
	var s PartStock
	err := r.pool.QueryRow(ctx, `SELECT id, part_no, opening_stock, current_stock, unit_rate
		FROM parts WHERE id=$1`, partID).
		Scan(&s.PartID, &s.PartNo, &s.OpeningStock, &s.CurrentStock, &s.UnitRate)
	if err != nil {
		return PartStock{}, db.Translate(err)
	}
	return s, nil
}

// ListMovements returns movements joined with their part, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.PartID != nil {
		add("m.part_id=$%d", *filter.PartID)
	}
	if filter.Type != "" {
		add("m.movement_type=$%d", string(filter.Type))
	}
	if filter.ReferenceType != "" {
		add("m.reference_type=$%d", string(filter.ReferenceType))
	}
	if filter.ReferenceID != nil {
		add("m.reference_id=$%d", *filter.ReferenceID)
	}
	if !filter.From.IsZero() {
		add("m.movement_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("m.movement_date <= $%d", filter.To)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT m.id, m.part_id, p.part_no, COALESCE(p.description,''), m.movement_type, m.quantity,
		m.reference_type, m.reference_id, m.movement_date, m.unit_rate,
		COALESCE(m.remarks,''), COALESCE(m.created_by,''), m.created_at
		FROM stock_movements m JOIN parts p ON p.id = m.part_id`)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY m.movement_date DESC, m.created_at DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var (
			m        Movement
			mType    string
			refType  string
			refIDRaw *uuid.UUID
		)
		if err := rows.Scan(&m.ID, &m.PartID, &m.PartNo, &m.Description, &mType, &m.Quantity,
			&refType, &refIDRaw, &m.MovementDate, &m.UnitRate, &m.Remarks, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Type = MovementType(mType)
		m.ReferenceType = ReferenceType(refType)
		m.ReferenceID = refIDRaw
		out = append(out, m)
	}
	return out, rows.Err()
}

// LedgerSummary returns every part with its ledger totals.
func (r *Repository) LedgerSummary(ctx context.Context) ([]PartLedger, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.part_no, p.opening_stock, p.current_stock, p.unit_rate,
			COALESCE(SUM(m.quantity) FILTER (WHERE m.movement_type='IN'), 0),
			COALESCE(SUM(m.quantity) FILTER (WHERE m.movement_type='OUT'), 0)
		FROM parts p LEFT JOIN stock_movements m ON m.part_id = p.id
		GROUP BY p.id ORDER BY p.part_no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PartLedger
	for rows.Next() {
		var row PartLedger
		if err := rows.Scan(&row.Stock.PartID, &row.Stock.PartNo, &row.Stock.OpeningStock, &row.Stock.CurrentStock,
			&row.Stock.UnitRate, &row.Totals.In, &row.Totals.Out); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
