package vendors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scmdesk/scmdesk/internal/platform/db"
	"github.com/scmdesk/scmdesk/internal/shared"
)

// Repository persists vendors, their rates and part links.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const vendorColumns = `id, vendor_code, name, address, COALESCE(phone,''), COALESCE(email,''),
	COALESCE(payment_terms,''), rating, status, created_at, updated_at`

func scanVendor(row pgx.Row) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.VendorCode, &v.Name, &v.Address, &v.Phone, &v.Email,
		&v.PaymentTerms, &v.Rating, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// ListVendors returns every vendor ordered by name.
func (r *Repository) ListVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+vendorColumns+` FROM vendors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetVendor loads one vendor.
func (r *Repository) GetVendor(ctx context.Context, id uuid.UUID) (Vendor, error) {
	v, err := scanVendor(r.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id=$1`, id))
	if err != nil {
		return Vendor{}, db.Translate(err)
	}
	return v, nil
}

// InsertVendor stores a new vendor.
func (r *Repository) InsertVendor(ctx context.Context, v Vendor) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO vendors
		(id, vendor_code, name, address, phone, email, payment_terms, rating, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,NULLIF($5,''),NULLIF($6,''),NULLIF($7,''),$8,$9,$10,$10)`,
		v.ID, v.VendorCode, v.Name, v.Address, v.Phone, v.Email, v.PaymentTerms, v.Rating, v.Status, v.CreatedAt)
	return db.Translate(err)
}

// UpdateVendor overwrites the editable columns of a vendor.
func (r *Repository) UpdateVendor(ctx context.Context, v Vendor) error {
	tag, err := r.pool.Exec(ctx, `UPDATE vendors SET vendor_code=$2, name=$3, address=$4,
		phone=NULLIF($5,''), email=NULLIF($6,''), payment_terms=NULLIF($7,''), rating=$8, status=$9, updated_at=$10
		WHERE id=$1`,
		v.ID, v.VendorCode, v.Name, v.Address, v.Phone, v.Email, v.PaymentTerms, v.Rating, v.Status, v.UpdatedAt)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListRates returns rates joined with vendor name and part number, newest window first.
func (r *Repository) ListRates(ctx context.Context, filter RateFilter) ([]Rate, error) {
	var (
		where []string
		args  []any
	)
	if filter.VendorID != nil {
		args = append(args, *filter.VendorID)
		where = append(where, fmt.Sprintf("vr.vendor_id=$%d", len(args)))
	}
	if filter.PartID != nil {
		args = append(args, *filter.PartID)
		where = append(where, fmt.Sprintf("vr.part_id=$%d", len(args)))
	}
	if filter.ActiveOnly {
		where = append(where, "vr.is_active")
	}
	query := `SELECT vr.id, vr.vendor_id, v.name, vr.part_id, p.part_no, vr.rate,
		vr.effective_from, vr.effective_to, vr.is_active, vr.created_at
		FROM vendor_rates vr
		JOIN vendors v ON v.id = vr.vendor_id
		JOIN parts p ON p.id = vr.part_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY vr.effective_from DESC, vr.created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Rate
	for rows.Next() {
		var rt Rate
		if err := rows.Scan(&rt.ID, &rt.VendorID, &rt.VendorName, &rt.PartID, &rt.PartNo, &rt.Rate,
			&rt.EffectiveFrom, &rt.EffectiveTo, &rt.IsActive, &rt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// InsertRate stores a new rate.
func (r *Repository) InsertRate(ctx context.Context, rt Rate) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO vendor_rates
		(id, vendor_id, part_id, rate, effective_from, effective_to, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rt.ID, rt.VendorID, rt.PartID, rt.Rate, rt.EffectiveFrom, rt.EffectiveTo, rt.IsActive, rt.CreatedAt)
	return db.Translate(err)
}

// DeactivateRate marks a rate inactive.
func (r *Repository) DeactivateRate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE vendor_rates SET is_active=FALSE WHERE id=$1`, id)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// EffectiveRate returns the active rate whose window contains at, preferring the latest start.
func (r *Repository) EffectiveRate(ctx context.Context, vendorID, partID uuid.UUID, at time.Time) (Rate, error) {
	var rt Rate
	err := r.pool.QueryRow(ctx, `SELECT vr.id, vr.vendor_id, v.name, vr.part_id, p.part_no, vr.rate,
			vr.effective_from, vr.effective_to, vr.is_active, vr.created_at
		FROM vendor_rates vr
		JOIN vendors v ON v.id = vr.vendor_id
		JOIN parts p ON p.id = vr.part_id
		WHERE vr.vendor_id=$1 AND vr.part_id=$2 AND vr.is_active
		  AND vr.effective_from <= $3 AND (vr.effective_to IS NULL OR vr.effective_to >= $3)
		ORDER BY vr.effective_from DESC LIMIT 1`, vendorID, partID, at).
		Scan(&rt.ID, &rt.VendorID, &rt.VendorName, &rt.PartID, &rt.PartNo, &rt.Rate,
			&rt.EffectiveFrom, &rt.EffectiveTo, &rt.IsActive, &rt.CreatedAt)
	if err != nil {
		return Rate{}, db.Translate(err)
	}
	return rt, nil
}

// LinkPart records that vendorID supplies partID.
func (r *Repository) LinkPart(ctx context.Context, vendorID, partID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO vendor_parts (id, vendor_id, part_id, created_at) VALUES ($1,$2,$3,$4)`,
		uuid.New(), vendorID, partID, at)
	return db.Translate(err)
}

// UnlinkPart removes the link between vendorID and partID.
func (r *Repository) UnlinkPart(ctx context.Context, vendorID, partID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vendor_parts WHERE vendor_id=$1 AND part_id=$2`, vendorID, partID)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListVendorParts returns every vendor-part link with part details.
func (r *Repository) ListVendorParts(ctx context.Context) ([]VendorPart, error) {
	rows, err := r.pool.Query(ctx, `SELECT vp.vendor_id, vp.part_id, p.part_no, p.description, p.category,
			p.unit_rate, vp.created_at
		FROM vendor_parts vp JOIN parts p ON p.id = vp.part_id
		ORDER BY p.part_no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VendorPart
	for rows.Next() {
		var vp VendorPart
		if err := rows.Scan(&vp.VendorID, &vp.PartID, &vp.PartNo, &vp.Description, &vp.Category,
			&vp.UnitRate, &vp.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, vp)
	}
	return out, rows.Err()
}
