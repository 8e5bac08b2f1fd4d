package requisitions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/inventory"
	"github.com/scmdesk/scmdesk/internal/platform/db"
	"github.com/scmdesk/scmdesk/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations, including the stock ledger.
type TxRepository interface {
	inventory.LedgerTx
	NextNumber(ctx context.Context, at time.Time) (string, error)
	PartRates(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	InsertMIR(ctx context.Context, m MIR) error
	InsertLine(ctx context.Context, l Line) error
	LockMIR(ctx context.Context, id uuid.UUID) (MIR, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, actor, remarks string, at time.Time) error
}

type txRepo struct {
	inventory.LedgerTx
	tx pgx.Tx
}

var numbering = db.NumberingTarget{Table: "mirs", Column: "mir_no", Prefix: shared.PrefixMIR}

// WithTx wraps callback in a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{LedgerTx: inventory.NewLedgerTx(tx), tx: tx})
	})
}

func (t *txRepo) NextNumber(ctx context.Context, at time.Time) (string, error) {
	return db.NextNumber(ctx, t.tx, numbering, at)
}

func (t *txRepo) PartRates(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, unit_rate FROM parts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]decimal.Decimal, len(ids))
	for rows.Next() {
		var (
			id   uuid.UUID
			rate decimal.Decimal
		)
		if err := rows.Scan(&id, &rate); err != nil {
			return nil, err
		}
		out[id] = rate
	}
	return out, rows.Err()
}

func (t *txRepo) InsertMIR(ctx context.Context, m MIR) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO mirs
		(id, mir_no, date, department, requested_by, status, total_value, purpose, remarks, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),NULLIF($9,''),$10,$10)`,
		m.ID, m.MIRNo, m.Date, m.Department, m.RequestedBy, string(m.Status), m.TotalValue, m.Purpose, m.Remarks, m.CreatedAt)
	return err
}

func (t *txRepo) InsertLine(ctx context.Context, l Line) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO mir_parts (id, mir_id, part_id, qty_issued, unit_rate) VALUES ($1,$2,$3,$4,$5)`,
		l.ID, l.MIRID, l.PartID, l.QtyIssued, l.UnitRate)
	return err
}

func (t *txRepo) LockMIR(ctx context.Context, id uuid.UUID) (MIR, error) {
	m, err := scanMIR(t.tx.QueryRow(ctx, `SELECT `+mirColumns+` FROM mirs WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return MIR{}, err
	}
	m.Lines, err = loadLines(ctx, t.tx, id)
	return m, err
}

func (t *txRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, actor, remarks string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE mirs SET status=$2,
			issued_by=CASE WHEN $2='Issued' THEN NULLIF($3,'') ELSE issued_by END,
			remarks=COALESCE(NULLIF($4,''), remarks), updated_at=$5
		WHERE id=$1`, id, string(status), actor, remarks, at)
	return err
}

const mirColumns = `id, mir_no, date, department, requested_by, status, total_value, COALESCE(purpose,''),
	COALESCE(remarks,''), COALESCE(issued_by,''), created_at, updated_at`

func scanMIR(row pgx.Row) (MIR, error) {
	var (
		m      MIR
		status string
	)
	err := row.Scan(&m.ID, &m.MIRNo, &m.Date, &m.Department, &m.RequestedBy, &status, &m.TotalValue,
		&m.Purpose, &m.Remarks, &m.IssuedBy, &m.CreatedAt, &m.UpdatedAt)
	m.Status = Status(status)
	return m, err
}

func loadLines(ctx context.Context, q interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
}, mirID uuid.UUID) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT mp.id, mp.mir_id, mp.part_id, p.part_no, p.description, mp.qty_issued, mp.unit_rate
		FROM mir_parts mp JOIN parts p ON p.id = mp.part_id
		WHERE mp.mir_id=$1 ORDER BY p.part_no`, mirID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.MIRID, &l.PartID, &l.PartNo, &l.Description, &l.QtyIssued, &l.UnitRate); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListMIRs returns MIR headers, newest first.
func (r *Repository) ListMIRs(ctx context.Context) ([]MIR, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+mirColumns+` FROM mirs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MIR
	for rows.Next() {
		m, err := scanMIR(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMIR loads a MIR with its lines.
func (r *Repository) GetMIR(ctx context.Context, id uuid.UUID) (MIR, error) {
	m, err := scanMIR(r.pool.QueryRow(ctx, `SELECT `+mirColumns+` FROM mirs WHERE id=$1`, id))
	if err != nil {
		return MIR{}, db.Translate(err)
	}
	m.Lines, err = loadLines(ctx, r.pool, id)
	return m, err
}
