package quality

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

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

// TxRepository exposes transactional operations.
type TxRepository interface {
	NextNumber(ctx context.Context, at time.Time) (string, error)
	GRRLine(ctx context.Context, id uuid.UUID) (GRRLine, error)
	Insert(ctx context.Context, in Inspection) error
	Lock(ctx context.Context, id uuid.UUID) (Inspection, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, remarks string, at time.Time) error
}

type txRepo struct {
	tx pgx.Tx
}

var numbering = db.NumberingTarget{Table: "quality_inspections", Column: "inspection_no", Prefix: shared.PrefixInspection}

// WithTx wraps callback in a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) NextNumber(ctx context.Context, at time.Time) (string, error) {
	return db.NextNumber(ctx, t.tx, numbering, at)
}

func (t *txRepo) GRRLine(ctx context.Context, id uuid.UUID) (GRRLine, error) {
	var l GRRLine
	err := t.tx.QueryRow(ctx, `SELECT gp.id, g.grr_no, p.part_no, gp.challan_qty
		FROM grr_parts gp JOIN grrs g ON g.id = gp.grr_id JOIN parts p ON p.id = gp.part_id
		WHERE gp.id=$1`, id).Scan(&l.ID, &l.GRRNo, &l.PartNo, &l.ChallanQty)
	return l, err
}

func (t *txRepo) Insert(ctx context.Context, in Inspection) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO quality_inspections
		(id, inspection_no, grr_part_id, inspector_name, inspection_date, batch_no, quantity_inspected,
		 quantity_accepted, quantity_rejected, defect_type, test_parameters, dimensional_result, visual_result,
		 mechanical_result, status, remarks, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8,$9,NULLIF($10,''),NULLIF($11,''),$12,$13,$14,$15,NULLIF($16,''),$17,$17)`,
		in.ID, in.InspectionNo, in.GRRPartID, in.InspectorName, in.InspectionDate, in.BatchNo, in.QuantityInspected,
		in.QuantityAccepted, in.QuantityRejected, in.DefectType, in.TestParameters, string(in.Results.Dimensional),
		string(in.Results.Visual), string(in.Results.Mechanical), string(in.Status), in.Remarks, in.CreatedAt)
	return err
}

func (t *txRepo) Lock(ctx context.Context, id uuid.UUID) (Inspection, error) {
	return scan(t.tx.QueryRow(ctx, `SELECT `+columns+from+` WHERE qi.id=$1 FOR UPDATE OF qi`, id))
}

func (t *txRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, remarks string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE quality_inspections SET status=$2, remarks=COALESCE(NULLIF($3,''), remarks), updated_at=$4
		WHERE id=$1`, id, string(status), remarks, at)
	return err
}

const columns = `qi.id, qi.inspection_no, qi.grr_part_id, g.grr_no, p.part_no, p.description, qi.inspector_name,
	qi.inspection_date, COALESCE(qi.batch_no,''), qi.quantity_inspected, qi.quantity_accepted, qi.quantity_rejected,
	COALESCE(qi.defect_type,''), COALESCE(qi.test_parameters,''), qi.dimensional_result, qi.visual_result,
	qi.mechanical_result, qi.status, COALESCE(qi.remarks,''), qi.created_at, qi.updated_at`

const from = ` FROM quality_inspections qi
	JOIN grr_parts gp ON gp.id = qi.grr_part_id
	JOIN grrs g ON g.id = gp.grr_id
	JOIN parts p ON p.id = gp.part_id`

func scan(row pgx.Row) (Inspection, error) {
	var (
		in                     Inspection
		dim, vis, mech, status string
	)
	err := row.Scan(&in.ID, &in.InspectionNo, &in.GRRPartID, &in.GRRNo, &in.PartNo, &in.PartDescription,
		&in.InspectorName, &in.InspectionDate, &in.BatchNo, &in.QuantityInspected, &in.QuantityAccepted,
		&in.QuantityRejected, &in.DefectType, &in.TestParameters, &dim, &vis, &mech, &status, &in.Remarks,
		&in.CreatedAt, &in.UpdatedAt)
	in.Results = TestResults{Dimensional: Result(dim), Visual: Result(vis), Mechanical: Result(mech)}
	in.Status = Status(status)
	return in, err
}

// List returns every inspection with its GRR and part numbers, newest first.
func (r *Repository) List(ctx context.Context) ([]Inspection, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+from+` ORDER BY qi.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Inspection
	for rows.Next() {
		in, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// Get loads one inspection.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Inspection, error) {
	in, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+from+` WHERE qi.id=$1`, id))
	if err != nil {
		return Inspection{}, db.Translate(err)
	}
	return in, nil
}
