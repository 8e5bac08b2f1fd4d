package procurement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/inventory"
	"github.com/scmdesk/scmdesk/internal/listcache"
	"github.com/scmdesk/scmdesk/internal/platform/db"
	"github.com/scmdesk/scmdesk/internal/shared"
	"github.com/scmdesk/scmdesk/internal/vendors"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListGRRs(ctx context.Context) ([]GRR, error)
	GetGRR(ctx context.Context, id uuid.UUID) (GRR, error)
	ListPOs(ctx context.Context) ([]PurchaseOrder, error)
	GetPO(ctx context.Context, id uuid.UUID) (PurchaseOrder, error)
}

// LedgerPort posts stock movements inside a caller's transaction.
type LedgerPort interface {
	PostWithin(ctx context.Context, tx inventory.LedgerTx, inputs []inventory.MovementInput) ([]inventory.Movement, error)
}

// RatePort resolves a vendor's price for a part.
type RatePort interface {
	EffectiveRate(ctx context.Context, vendorID, partID uuid.UUID, at time.Time) (vendors.Rate, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates procurement flows.
type Service struct {
	repo   RepositoryPort
	ledger LedgerPort
	rates  RatePort
	audit  AuditPort
	cache  *listcache.Cache
	now    func() time.Time
}

// NewService constructs procurement service.
func NewService(repo RepositoryPort, ledger LedgerPort, rates RatePort, audit AuditPort, cache *listcache.Cache) *Service {
	return &Service{repo: repo, ledger: ledger, rates: rates, audit: audit, cache: cache, now: time.Now}
}

const numberAttempts = 3

var grrSorts = shared.Comparators[GRR]{
	"grr_no":       func(a, b GRR) bool { return a.GRRNo < b.GRRNo },
	"challan_date": func(a, b GRR) bool { return a.ChallanDate.Before(b.ChallanDate) },
	"total_value":  func(a, b GRR) bool { return a.TotalValue.LessThan(b.TotalValue) },
	"created_at":   func(a, b GRR) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

// AllGRRs returns every GRR header through the collection cache.
func (s *Service) AllGRRs(ctx context.Context) ([]GRR, error) {
	return listcache.Collection(ctx, s.cache, listcache.GRRs, s.repo.ListGRRs)
}

// ListGRRs searches GRRs by number, PO reference or vendor name and filters by status.
func (s *Service) ListGRRs(ctx context.Context, filters ListFilters) (shared.Page[GRR], error) {
	rows, err := s.AllGRRs(ctx)
	if err != nil {
		return shared.Page[GRR]{}, err
	}
	rows = shared.FilterRows(rows, filters.Search, func(g GRR) []string {
		return []string{g.GRRNo, g.POReference, g.VendorName}
	})
	if filters.Status != "" {
		kept := rows[:0:0]
		for _, g := range rows {
			if strings.EqualFold(string(g.Status), filters.Status) {
				kept = append(kept, g)
			}
		}
		rows = kept
	}
	if filters.SortBy == "" {
		filters.SortBy, filters.SortDir = "created_at", "desc"
	}
	shared.SortRows(rows, filters, grrSorts, "created_at")
	return shared.Paginate(rows, filters), nil
}

// GetGRR returns a GRR with its lines.
func (s *Service) GetGRR(ctx context.Context, id uuid.UUID) (GRR, error) {
	return s.repo.GetGRR(ctx, id)
}

// CreateGRR numbers and stores a GRR in Pending Inspection.
func (s *Service) CreateGRR(ctx context.Context, input CreateGRRInput) (GRR, error) {
	input.TransporterName = strings.TrimSpace(input.TransporterName)
	input.POReference = strings.TrimSpace(input.POReference)
	fields := shared.FieldErrors{}
	if input.ChallanDate.IsZero() {
		fields.Add("challan_date", "is required")
	}
	fields.Required("transporter_name", input.TransporterName)
	fields.Required("po_reference", input.POReference)
	if len(input.Lines) == 0 {
		fields.Add("lines", "must contain at least one part")
	}
	seen := map[uuid.UUID]bool{}
	for i, line := range input.Lines {
		key := fmt.Sprintf("lines[%d]", i)
		if line.PartID == uuid.Nil {
			fields.Add(key+".part_id", "is required")
		} else if seen[line.PartID] {
			fields.Add(key+".part_id", "is listed twice")
		}
		seen[line.PartID] = true
		if line.ChallanQty <= 0 {
			fields.Add(key+".challan_qty", "must be greater than zero")
		}
	}
	if err := fields.Err(); err != nil {
		return GRR{}, err
	}

	var created GRR
	err := db.RetryDuplicate(ctx, numberAttempts, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			now := s.now().UTC()
			number, err := tx.NextNumber(ctx, shared.PrefixGRR, now)
			if err != nil {
				return err
			}
			ids := make([]uuid.UUID, 0, len(input.Lines))
			for _, line := range input.Lines {
				ids = append(ids, line.PartID)
			}
			rates, err := tx.PartRates(ctx, ids)
			if err != nil {
				return err
			}
			g := GRR{
				ID:              uuid.New(),
				GRRNo:           number,
				ChallanDate:     input.ChallanDate,
				TransporterName: input.TransporterName,
				POReference:     input.POReference,
				VendorID:        input.VendorID,
				Status:          GRRPendingInspection,
				TotalValue:      decimal.Zero,
				Remarks:         input.Remarks,
				CreatedBy:       input.CreatedBy,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			for _, line := range input.Lines {
				rate, ok := rates[line.PartID]
				if !ok {
					return fmt.Errorf("%w: part %s", shared.ErrNotFound, line.PartID)
				}
				g.TotalValue = g.TotalValue.Add(rate.Mul(decimal.NewFromInt(int64(line.ChallanQty))))
				g.Lines = append(g.Lines, GRRLine{ID: uuid.New(), GRRID: g.ID, PartID: line.PartID, UnitRate: rate, ChallanQty: line.ChallanQty})
			}
			if err := tx.InsertGRR(ctx, g); err != nil {
				return err
			}
			for _, line := range g.Lines {
				if err := tx.InsertGRRLine(ctx, line); err != nil {
					return err
				}
			}
			created = g
			return nil
		})
	})
	if err != nil {
		return GRR{}, fmt.Errorf("create grr: %w", err)
	}
	s.recordAudit(ctx, input.CreatedBy, "GRR_CREATE", "grr", created.ID, map[string]any{"grr_no": created.GRRNo})
	s.invalidate(ctx, listcache.GRRs)
	return created, nil
}

// StartQualityCheck moves a GRR from Pending Inspection to Quality Check.
func (s *Service) StartQualityCheck(ctx context.Context, id uuid.UUID, actor string) (GRR, error) {
	var out GRR
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		g, err := tx.LockGRR(ctx, id)
		if err != nil {
			return err
		}
		if err := grrTransitions.Check(g.Status, GRRQualityCheck); err != nil {
			return err
		}
		now := s.now().UTC()
		if err := tx.UpdateGRRStatus(ctx, id, GRRQualityCheck, g.TotalValue, "", now); err != nil {
			return err
		}
		g.Status, g.UpdatedAt = GRRQualityCheck, now
		out = g
		return nil
	})
	if err != nil {
		return GRR{}, err
	}
	s.recordAudit(ctx, actor, "GRR_QUALITY_CHECK", "grr", id, nil)
	s.invalidate(ctx, listcache.GRRs)
	return out, nil
}

// RecordLineResults stores accepted and rejected quantities while the GRR is in Quality Check.
func (s *Service) RecordLineResults(ctx context.Context, id uuid.UUID, results []LineResult, actor string) (GRR, error) {
	if len(results) == 0 {
		return GRR{}, fmt.Errorf("%w: results must not be empty", shared.ErrValidation)
	}
	var out GRR
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		g, err := tx.LockGRR(ctx, id)
		if err != nil {
			return err
		}
		if g.Status != GRRQualityCheck {
			return fmt.Errorf("%w: line results need status %s, GRR is %s", shared.ErrInvalidState, GRRQualityCheck, g.Status)
		}
		byID := make(map[uuid.UUID]int, len(g.Lines))
		for i, l := range g.Lines {
			byID[l.ID] = i
		}
		fields := shared.FieldErrors{}
		for i, res := range results {
			key := fmt.Sprintf("results[%d]", i)
			idx, ok := byID[res.LineID]
			if !ok {
				fields.Add(key+".line_id", "is not a line of this GRR")
				continue
			}
			line := g.Lines[idx]
			switch {
			case res.AcceptedQty < 0 || res.RejectedQty < 0:
				fields.Add(key, "quantities must not be negative")
			case res.AcceptedQty+res.RejectedQty > line.ChallanQty:
				fields.Add(key, fmt.Sprintf("accepted + rejected exceeds challan quantity %d", line.ChallanQty))
			}
			line.AcceptedQty, line.RejectedQty = res.AcceptedQty, res.RejectedQty
			g.Lines[idx] = line
		}
		if err := fields.Err(); err != nil {
			return err
		}
		for _, res := range results {
			if err := tx.UpdateGRRLine(ctx, g.Lines[byID[res.LineID]]); err != nil {
				return err
			}
		}
		out = g
		return nil
	})
	if err != nil {
		return GRR{}, err
	}
	s.recordAudit(ctx, actor, "GRR_LINE_RESULTS", "grr", id, map[string]any{"lines": len(results)})
	s.invalidate(ctx, listcache.GRRs)
	return out, nil
}

// AcceptGRR accepts a GRR and posts one IN movement per line with an accepted quantity, in
// the same transaction. Lines without recorded results are accepted in full. The GRR value
// becomes the accepted quantities priced at the part rates at acceptance.
func (s *Service) AcceptGRR(ctx context.Context, id uuid.UUID, actor string) (GRR, error) {
	var out GRR
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		g, err := tx.LockGRR(ctx, id)
		if err != nil {
			return err
		}
		if err := grrTransitions.Check(g.Status, GRRAccepted); err != nil {
			return err
		}
		now := s.now().UTC()
		var inputs []inventory.MovementInput
		for i, line := range g.Lines {
			if !line.Inspected() {
				line.AcceptedQty = line.ChallanQty
				if err := tx.UpdateGRRLine(ctx, line); err != nil {
					return err
				}
				g.Lines[i] = line
			}
			if line.AcceptedQty <= 0 {
				continue
			}
			ref := g.ID
			inputs = append(inputs, inventory.MovementInput{
				PartID:        line.PartID,
				Type:          inventory.MovementIn,
				Quantity:      line.AcceptedQty,
				ReferenceType: inventory.ReferenceGRR,
				ReferenceID:   &ref,
				MovementDate:  now,
				Remarks:       "GRR " + g.GRRNo,
				CreatedBy:     actor,
			})
		}
		movements, err := s.ledger.PostWithin(ctx, tx, inputs)
		if err != nil {
			return err
		}
		total := decimal.Zero
		for _, m := range movements {
			total = total.Add(m.UnitRate.Mul(decimal.NewFromInt(int64(m.Quantity))))
		}
		if err := tx.UpdateGRRStatus(ctx, id, GRRAccepted, total, "", now); err != nil {
			return err
		}
		g.Status, g.TotalValue, g.UpdatedAt = GRRAccepted, total, now
		out = g
		return nil
	})
	if err != nil {
		return GRR{}, err
	}
	s.recordAudit(ctx, actor, "GRR_ACCEPT", "grr", id, map[string]any{"total_value": out.TotalValue.String()})
	s.invalidate(ctx, listcache.GRRs, listcache.Parts, listcache.StockMovements, listcache.ReorderLevels)
	return out, nil
}

// RejectGRR rejects a GRR under quality check. No stock moves.
func (s *Service) RejectGRR(ctx context.Context, id uuid.UUID, reason, actor string) (GRR, error) {
	var out GRR
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		g, err := tx.LockGRR(ctx, id)
		if err != nil {
			return err
		}
		if err := grrTransitions.Check(g.Status, GRRRejected); err != nil {
			return err
		}
		now := s.now().UTC()
		if err := tx.UpdateGRRStatus(ctx, id, GRRRejected, g.TotalValue, strings.TrimSpace(reason), now); err != nil {
			return err
		}
		g.Status, g.UpdatedAt = GRRRejected, now
		if reason = strings.TrimSpace(reason); reason != "" {
			g.Remarks = reason
		}
		out = g
		return nil
	})
	if err != nil {
		return GRR{}, err
	}
	s.recordAudit(ctx, actor, "GRR_REJECT", "grr", id, map[string]any{"reason": reason})
	s.invalidate(ctx, listcache.GRRs)
	return out, nil
}

func (s *Service) recordAudit(ctx context.Context, actor, action, entity string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: entity, EntityID: id.String(), Meta: meta})
}

func (s *Service) invalidate(ctx context.Context, collections ...string) {
	_ = s.cache.Invalidate(ctx, collections...)
}
