package procurement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/listcache"
	"github.com/scmdesk/scmdesk/internal/platform/db"
	"github.com/scmdesk/scmdesk/internal/shared"
)

var poSorts = shared.Comparators[PurchaseOrder]{
	"po_no":        func(a, b PurchaseOrder) bool { return a.PONo < b.PONo },
	"po_date":      func(a, b PurchaseOrder) bool { return a.PODate.Before(b.PODate) },
	"total_amount": func(a, b PurchaseOrder) bool { return a.TotalAmount.LessThan(b.TotalAmount) },
	"vendor_name":  func(a, b PurchaseOrder) bool { return a.VendorName < b.VendorName },
	"created_at":   func(a, b PurchaseOrder) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

// AllPurchaseOrders returns every purchase order header through the collection cache.
func (s *Service) AllPurchaseOrders(ctx context.Context) ([]PurchaseOrder, error) {
	return listcache.Collection(ctx, s.cache, listcache.PurchaseOrders, s.repo.ListPOs)
}

// ListPurchaseOrders searches by PO number or vendor name and filters by status.
func (s *Service) ListPurchaseOrders(ctx context.Context, filters ListFilters) (shared.Page[PurchaseOrder], error) {
	rows, err := s.AllPurchaseOrders(ctx)
	if err != nil {
		return shared.Page[PurchaseOrder]{}, err
	}
	rows = shared.FilterRows(rows, filters.Search, func(po PurchaseOrder) []string {
		return []string{po.PONo, po.VendorName}
	})
	if filters.Status != "" {
		kept := rows[:0:0]
		for _, po := range rows {
			if strings.EqualFold(string(po.Status), filters.Status) {
				kept = append(kept, po)
			}
		}
		rows = kept
	}
	if filters.SortBy == "" {
		filters.SortBy, filters.SortDir = "created_at", "desc"
	}
	shared.SortRows(rows, filters, poSorts, "created_at")
	return shared.Paginate(rows, filters), nil
}

// GetPurchaseOrder returns a purchase order with its items.
func (s *Service) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	return s.repo.GetPO(ctx, id)
}

// CreatePurchaseOrder numbers and stores a Draft purchase order. Items without a rate are
// priced at the vendor's rate effective on the PO date.
func (s *Service) CreatePurchaseOrder(ctx context.Context, input CreatePOInput) (PurchaseOrder, error) {
	fields := shared.FieldErrors{}
	if input.VendorID == uuid.Nil {
		fields.Add("vendor_id", "is required")
	}
	if input.PODate.IsZero() {
		input.PODate = s.now().UTC()
	}
	if input.DeliveryDate != nil && input.DeliveryDate.Before(input.PODate) {
		fields.Add("delivery_date", "must not be before po_date")
	}
	if len(input.Items) == 0 {
		fields.Add("items", "must contain at least one part")
	}
	for i, item := range input.Items {
		key := fmt.Sprintf("items[%d]", i)
		if item.PartID == uuid.Nil {
			fields.Add(key+".part_id", "is required")
		}
		if item.Quantity <= 0 {
			fields.Add(key+".quantity", "must be greater than zero")
		}
		if item.UnitRate.IsNegative() {
			fields.Add(key+".unit_rate", "must not be negative")
		}
	}
	if err := fields.Err(); err != nil {
		return PurchaseOrder{}, err
	}

	items := make([]POItem, 0, len(input.Items))
	total := decimal.Zero
	for _, in := range input.Items {
		rate := in.UnitRate
		if rate.IsZero() && s.rates != nil {
			effective, err := s.rates.EffectiveRate(ctx, input.VendorID, in.PartID, input.PODate)
			switch {
			case err == nil:
				rate = effective.Rate
			case !errors.Is(err, shared.ErrNotFound):
				return PurchaseOrder{}, fmt.Errorf("create purchase order: rate lookup: %w", err)
			}
		}
		amount := rate.Mul(decimal.NewFromInt(int64(in.Quantity)))
		total = total.Add(amount)
		items = append(items, POItem{
			ID:             uuid.New(),
			PartID:         in.PartID,
			Quantity:       in.Quantity,
			UnitRate:       rate,
			TotalAmount:    amount,
			DeliveryDate:   in.DeliveryDate,
			Specifications: strings.TrimSpace(in.Specifications),
		})
	}

	var created PurchaseOrder
	err := db.RetryDuplicate(ctx, numberAttempts, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			now := s.now().UTC()
			number, err := tx.NextNumber(ctx, shared.PrefixPO, input.PODate)
			if err != nil {
				return err
			}
			po := PurchaseOrder{
				ID:              uuid.New(),
				PONo:            number,
				PODate:          input.PODate,
				VendorID:        input.VendorID,
				TotalAmount:     total,
				Status:          PODraft,
				DeliveryDate:    input.DeliveryDate,
				TermsConditions: strings.TrimSpace(input.TermsConditions),
				CreatedBy:       input.CreatedBy,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := tx.InsertPO(ctx, po); err != nil {
				return err
			}
			for _, item := range items {
				item.POID = po.ID
				if err := tx.InsertPOItem(ctx, item); err != nil {
					return err
				}
				po.Items = append(po.Items, item)
			}
			created = po
			return nil
		})
	})
	if err != nil {
		return PurchaseOrder{}, fmt.Errorf("create purchase order: %w", err)
	}
	s.recordAudit(ctx, input.CreatedBy, "PO_CREATE", "purchase_order", created.ID, map[string]any{"po_no": created.PONo})
	s.invalidate(ctx, listcache.PurchaseOrders)
	return created, nil
}

// ApprovePurchaseOrder moves a Draft order to Approved.
func (s *Service) ApprovePurchaseOrder(ctx context.Context, id uuid.UUID, approver string) (PurchaseOrder, error) {
	if strings.TrimSpace(approver) == "" {
		return PurchaseOrder{}, fmt.Errorf("%w: approved_by is required", shared.ErrValidation)
	}
	return s.transitionPO(ctx, id, POApproved, approver, "PO_APPROVE")
}

// CancelPurchaseOrder cancels a Draft or Approved order.
func (s *Service) CancelPurchaseOrder(ctx context.Context, id uuid.UUID, actor string) (PurchaseOrder, error) {
	return s.transitionPO(ctx, id, POCancelled, actor, "PO_CANCEL")
}

// ClosePurchaseOrder closes an Approved order.
func (s *Service) ClosePurchaseOrder(ctx context.Context, id uuid.UUID, actor string) (PurchaseOrder, error) {
	return s.transitionPO(ctx, id, POClosed, actor, "PO_CLOSE")
}

func (s *Service) transitionPO(ctx context.Context, id uuid.UUID, to POStatus, actor, action string) (PurchaseOrder, error) {
	var out PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.LockPO(ctx, id)
		if err != nil {
			return err
		}
		if err := poTransitions.Check(po.Status, to); err != nil {
			return err
		}
		approvedBy := ""
		if to == POApproved {
			approvedBy = actor
			po.ApprovedBy = actor
		}
		now := s.now().UTC()
		if err := tx.UpdatePOStatus(ctx, id, to, approvedBy, now); err != nil {
			return err
		}
		po.Status, po.UpdatedAt = to, now
		out = po
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actor, action, "purchase_order", id, map[string]any{"status": string(to)})
	s.invalidate(ctx, listcache.PurchaseOrders)
	return out, nil
}
