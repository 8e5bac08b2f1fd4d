package procurement

import (
	"context"
	"fmt"
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

// TxRepository exposes transactional operations. It carries the stock ledger so a GRR
// acceptance and its movements share the transaction.
type TxRepository interface {
	inventory.LedgerTx
	NextNumber(ctx context.Context, prefix string, at time.Time) (string, error)
	PartRates(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	InsertGRR(ctx context.Context, grr GRR) error
	InsertGRRLine(ctx context.Context, line GRRLine) error
	LockGRR(ctx context.Context, id uuid.UUID) (GRR, error)
	UpdateGRRStatus(ctx context.Context, id uuid.UUID, status GRRStatus, total decimal.Decimal, remarks string, at time.Time) error
	UpdateGRRLine(ctx context.Context, line GRRLine) error
	InsertPO(ctx context.Context, po PurchaseOrder) error
	InsertPOItem(ctx context.Context, item POItem) error
	LockPO(ctx context.Context, id uuid.UUID) (PurchaseOrder, error)
	UpdatePOStatus(ctx context.Context, id uuid.UUID, status POStatus, approvedBy string, at time.Time) error
}

type txRepo struct {
	inventory.LedgerTx
	tx pgx.Tx
}

var numberTargets = map[string]db.NumberingTarget{
	shared.PrefixGRR: {Table: "grrs", Column: "grr_no", Prefix: shared.PrefixGRR},
	shared.PrefixPO:  {Table: "purchase_orders", Column: "po_no", Prefix: shared.PrefixPO},
}

// WithTx wraps callback in a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{LedgerTx: inventory.NewLedgerTx(tx), tx: tx})
	})
}

func (t *txRepo) NextNumber(ctx context.Context, prefix string, at time.Time) (string, error) {
	target, ok := numberTargets[prefix]
	if !ok {
		return "", fmt.Errorf("procurement: no numbering for %s", prefix)
	}
	return db.NextNumber(ctx, t.tx, target, at)
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

func (t *txRepo) InsertGRR(ctx context.Context, g GRR) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO grrs
		(id, grr_no, challan_date, transporter_name, po_reference, vendor_id, status, total_value, remarks, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),NULLIF($10,''),$11,$11)`,
		g.ID, g.GRRNo, g.ChallanDate, g.TransporterName, g.POReference, g.VendorID, string(g.Status),
		g.TotalValue, g.Remarks, g.CreatedBy, g.CreatedAt)
	return err
}

func (t *txRepo) InsertGRRLine(ctx context.Context, l GRRLine) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO grr_parts (id, grr_id, part_id, challan_qty, accepted_qty, rejected_qty)
		VALUES ($1,$2,$3,$4,$5,$6)`, l.ID, l.GRRID, l.PartID, l.ChallanQty, l.AcceptedQty, l.RejectedQty)
	return err
}

func (t *txRepo) LockGRR(ctx context.Context, id uuid.UUID) (GRR, error) {
	g, err := scanGRR(t.tx.QueryRow(ctx, `SELECT `+grrColumns+` FROM grrs g LEFT JOIN vendors v ON v.id = g.vendor_id
		WHERE g.id=$1 FOR UPDATE OF g`, id))
	if err != nil {
		return GRR{}, err
	}
	g.Lines, err = loadGRRLines(ctx, t.tx, id)
	return g, err
}

func (t *txRepo) UpdateGRRStatus(ctx context.Context, id uuid.UUID, status GRRStatus, total decimal.Decimal, remarks string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE grrs SET status=$2, total_value=$3, remarks=COALESCE(NULLIF($4,''), remarks), updated_at=$5
		WHERE id=$1`, id, string(status), total, remarks, at)
	return err
}

func (t *txRepo) UpdateGRRLine(ctx context.Context, l GRRLine) error {
	_, err := t.tx.Exec(ctx, `UPDATE grr_parts SET accepted_qty=$2, rejected_qty=$3 WHERE id=$1`,
		l.ID, l.AcceptedQty, l.RejectedQty)
	return err
}

func (t *txRepo) InsertPO(ctx context.Context, po PurchaseOrder) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO purchase_orders
		(id, po_no, po_date, vendor_id, total_amount, status, delivery_date, terms_conditions, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),NULLIF($9,''),$10,$10)`,
		po.ID, po.PONo, po.PODate, po.VendorID, po.TotalAmount, string(po.Status), po.DeliveryDate,
		po.TermsConditions, po.CreatedBy, po.CreatedAt)
	return err
}

func (t *txRepo) InsertPOItem(ctx context.Context, item POItem) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO po_items
		(id, po_id, part_id, quantity, unit_rate, total_amount, delivery_date, specifications)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''))`,
		item.ID, item.POID, item.PartID, item.Quantity, item.UnitRate, item.TotalAmount, item.DeliveryDate, item.Specifications)
	return err
}

func (t *txRepo) LockPO(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	return scanPO(t.tx.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders po JOIN vendors v ON v.id = po.vendor_id
		WHERE po.id=$1 FOR UPDATE OF po`, id))
}

func (t *txRepo) UpdatePOStatus(ctx context.Context, id uuid.UUID, status POStatus, approvedBy string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status=$2, approved_by=COALESCE(NULLIF($3,''), approved_by), updated_at=$4
		WHERE id=$1`, id, string(status), approvedBy, at)
	return err
}

const grrColumns = `g.id, g.grr_no, g.challan_date, g.transporter_name, g.po_reference, g.vendor_id,
	COALESCE(v.name,''), g.status, g.total_value, COALESCE(g.remarks,''), COALESCE(g.created_by,''),
	g.created_at, g.updated_at`

func scanGRR(row pgx.Row) (GRR, error) {
	var (
		g      GRR
		status string
	)
	err := row.Scan(&g.ID, &g.GRRNo, &g.ChallanDate, &g.TransporterName, &g.POReference, &g.VendorID,
		&g.VendorName, &status, &g.TotalValue, &g.Remarks, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt)
	g.Status = GRRStatus(status)
	return g, err
}

func loadGRRLines(ctx context.Context, q interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
}, grrID uuid.UUID) ([]GRRLine, error) {
	rows, err := q.Query(ctx, `SELECT gp.id, gp.grr_id, gp.part_id, p.part_no, p.description, p.unit_rate,
			gp.challan_qty, gp.accepted_qty, gp.rejected_qty
		FROM grr_parts gp JOIN parts p ON p.id = gp.part_id
		WHERE gp.grr_id=$1 ORDER BY p.part_no`, grrID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GRRLine
	for rows.Next() {
		var l GRRLine
		if err := rows.Scan(&l.ID, &l.GRRID, &l.PartID, &l.PartNo, &l.Description, &l.UnitRate,
			&l.ChallanQty, &l.AcceptedQty, &l.RejectedQty); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListGRRs returns GRR headers with vendor names, newest first.
func (r *Repository) ListGRRs(ctx context.Context) ([]GRR, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+grrColumns+` FROM grrs g LEFT JOIN vendors v ON v.id = g.vendor_id
		ORDER BY g.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GRR
	for rows.Next() {
		g, err := scanGRR(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetGRR loads a GRR with its lines.
func (r *Repository) GetGRR(ctx context.Context, id uuid.UUID) (GRR, error) {
	g, err := scanGRR(r.pool.QueryRow(ctx, `SELECT `+grrColumns+` FROM grrs g LEFT JOIN vendors v ON v.id = g.vendor_id
		WHERE g.id=$1`, id))
	if err != nil {
		return GRR{}, db.Translate(err)
	}
	g.Lines, err = loadGRRLines(ctx, r.pool, id)
	return g, err
}

const poColumns = `po.id, po.po_no, po.po_date, po.vendor_id, v.name, po.total_amount, po.status, po.delivery_date,
	COALESCE(po.terms_conditions,''), COALESCE(po.created_by,''), COALESCE(po.approved_by,''), po.created_at, po.updated_at`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var (
		po     PurchaseOrder
		status string
	)
	err := row.Scan(&po.ID, &po.PONo, &po.PODate, &po.VendorID, &po.VendorName, &po.TotalAmount, &status,
		&po.DeliveryDate, &po.TermsConditions, &po.CreatedBy, &po.ApprovedBy, &po.CreatedAt, &po.UpdatedAt)
	po.Status = POStatus(status)
	return po, err
}

// ListPOs returns purchase order headers with vendor names, newest first.
func (r *Repository) ListPOs(ctx context.Context) ([]PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+poColumns+` FROM purchase_orders po JOIN vendors v ON v.id = po.vendor_id
		ORDER BY po.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

// GetPO loads a purchase order with its items.
func (r *Repository) GetPO(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	po, err := scanPO(r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders po JOIN vendors v ON v.id = po.vendor_id
		WHERE po.id=$1`, id))
	if err != nil {
		return PurchaseOrder{}, db.Translate(err)
	}
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.po_id, i.part_id, p.part_no, i.quantity, i.unit_rate, i.total_amount,
			i.delivery_date, COALESCE(i.specifications,'')
		FROM po_items i JOIN parts p ON p.id = i.part_id WHERE i.po_id=$1 ORDER BY p.part_no`, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item POItem
		if err := rows.Scan(&item.ID, &item.POID, &item.PartID, &item.PartNo, &item.Quantity, &item.UnitRate,
			&item.TotalAmount, &item.DeliveryDate, &item.Specifications); err != nil {
			return PurchaseOrder{}, err
		}
		po.Items = append(po.Items, item)
	}
	return po, rows.Err()
}
