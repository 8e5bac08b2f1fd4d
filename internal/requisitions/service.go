package requisitions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/departments"
	"github.com/scmdesk/scmdesk/internal/inventory"
	"github.com/scmdesk/scmdesk/internal/listcache"
	"github.com/scmdesk/scmdesk/internal/platform/db"
	"github.com/scmdesk/scmdesk/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMIRs(ctx context.Context) ([]MIR, error)
	GetMIR(ctx context.Context, id uuid.UUID) (MIR, error)
}

// LedgerPort posts stock movements inside a caller's transaction.
type LedgerPort interface {
	PostWithin(ctx context.Context, tx inventory.LedgerTx, inputs []inventory.MovementInput) ([]inventory.Movement, error)
}

// DepartmentPort resolves the department a MIR is raised for.
type DepartmentPort interface {
	ActiveByName(ctx context.Context, name string) (departments.Department, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates requisition flows.
type Service struct {
	repo        RepositoryPort
	ledger      LedgerPort
	departments DepartmentPort
	audit       AuditPort
	cache       *listcache.Cache
	now         func() time.Time
}

// NewService constructs the requisition service. A nil departments port skips the
// department lookup.
func NewService(repo RepositoryPort, ledger LedgerPort, depts DepartmentPort, audit AuditPort, cache *listcache.Cache) *Service {
	return &Service{repo: repo, ledger: ledger, departments: depts, audit: audit, cache: cache, now: time.Now}
}

const numberAttempts = 3

var sorts = shared.Comparators[MIR]{
	"mir_no":      func(a, b MIR) bool { return a.MIRNo < b.MIRNo },
	"date":        func(a, b MIR) bool { return a.Date.Before(b.Date) },
	"department":  func(a, b MIR) bool { return a.Department < b.Department },
	"total_value": func(a, b MIR) bool { return a.TotalValue.LessThan(b.TotalValue) },
	"created_at":  func(a, b MIR) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

// All returns every MIR header through the collection cache.
func (s *Service) All(ctx context.Context) ([]MIR, error) {
	return listcache.Collection(ctx, s.cache, listcache.MIRs, s.repo.ListMIRs)
}

// List searches MIRs by number, department or requester and filters by status.
func (s *Service) List(ctx context.Context, filters ListFilters) (shared.Page[MIR], error) {
	rows, err := s.All(ctx)
	if err != nil {
		return shared.Page[MIR]{}, err
	}
	rows = shared.FilterRows(rows, filters.Search, func(m MIR) []string {
		return []string{m.MIRNo, m.Department, m.RequestedBy}
	})
	if filters.Status != "" {
		kept := rows[:0:0]
		for _, m := range rows {
			if strings.EqualFold(string(m.Status), filters.Status) {
				kept = append(kept, m)
			}
		}
		rows = kept
	}
	if filters.SortBy == "" {
		filters.SortBy, filters.SortDir = "created_at", "desc"
	}
	shared.SortRows(rows, filters, sorts, "created_at")
	return shared.Paginate(rows, filters), nil
}

// Get returns a MIR with its lines.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (MIR, error) {
	return s.repo.GetMIR(ctx, id)
}

// Create numbers and stores a Pending MIR. Stock is not touched until the MIR is issued.
func (s *Service) Create(ctx context.Context, input CreateInput, actor string) (MIR, error) {
	input.Department = strings.TrimSpace(input.Department)
	input.RequestedBy = strings.TrimSpace(input.RequestedBy)
	fields := shared.FieldErrors{}
	if input.Date.IsZero() {
		fields.Add("date", "is required")
	}
	fields.Required("department", input.Department)
	fields.Required("requested_by", input.RequestedBy)
	if len(input.Lines) == 0 {
		fields.Add("lines", "must contain at least one part")
	}
	for i, line := range input.Lines {
		key := fmt.Sprintf("lines[%d]", i)
		if line.PartID == uuid.Nil {
			fields.Add(key+".part_id", "is required")
		}
		if line.QtyIssued <= 0 {
			fields.Add(key+".qty_issued", "must be greater than zero")
		}
		if line.UnitRate.IsNegative() {
			fields.Add(key+".unit_rate", "must not be negative")
		}
	}
	if err := fields.Err(); err != nil {
		return MIR{}, err
	}
	if s.departments != nil {
		dept, err := s.departments.ActiveByName(ctx, input.Department)
		if err != nil {
			return MIR{}, fmt.Errorf("create mir: %w", err)
		}
		input.Department = dept.DeptName
	}

	var created MIR
	err := db.RetryDuplicate(ctx, numberAttempts, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			now := s.now().UTC()
			number, err := tx.NextNumber(ctx, now)
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
			m := MIR{
				ID:          uuid.New(),
				MIRNo:       number,
				Date:        input.Date,
				Department:  input.Department,
				RequestedBy: input.RequestedBy,
				Status:      StatusPending,
				TotalValue:  decimal.Zero,
				Purpose:     strings.TrimSpace(input.Purpose),
				Remarks:     strings.TrimSpace(input.Remarks),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			for _, in := range input.Lines {
				partRate, ok := rates[in.PartID]
				if !ok {
					return fmt.Errorf("%w: part %s", shared.ErrNotFound, in.PartID)
				}
				rate := in.UnitRate
				if rate.IsZero() {
					rate = partRate
				}
				line := Line{ID: uuid.New(), MIRID: m.ID, PartID: in.PartID, QtyIssued: in.QtyIssued, UnitRate: rate}
				m.TotalValue = m.TotalValue.Add(line.Value())
				m.Lines = append(m.Lines, line)
			}
			if err := tx.InsertMIR(ctx, m); err != nil {
				return err
			}
			for _, line := range m.Lines {
				if err := tx.InsertLine(ctx, line); err != nil {
					return err
				}
			}
			created = m
			return nil
		})
	})
	if err != nil {
		return MIR{}, fmt.Errorf("create mir: %w", err)
	}
	s.recordAudit(ctx, actor, "MIR_CREATE", created.ID, map[string]any{"mir_no": created.MIRNo})
	s.invalidate(ctx, listcache.MIRs)
	return created, nil
}

// Issue marks a Pending MIR as Issued and posts one OUT movement per line at the line
// rate, in the same transaction. Insufficient stock fails the whole issue.
func (s *Service) Issue(ctx context.Context, id uuid.UUID, actor string) (MIR, error) {
	var out MIR
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := tx.LockMIR(ctx, id)
		if err != nil {
			return err
		}
		if err := transitions.Check(m.Status, StatusIssued); err != nil {
			return err
		}
		now := s.now().UTC()
		inputs := make([]inventory.MovementInput, 0, len(m.Lines))
		for _, line := range m.Lines {
			ref := m.ID
			inputs = append(inputs, inventory.MovementInput{
				PartID:        line.PartID,
				Type:          inventory.MovementOut,
				Quantity:      line.QtyIssued,
				ReferenceType: inventory.ReferenceMIR,
				ReferenceID:   &ref,
				MovementDate:  now,
				UnitRate:      line.UnitRate,
				Remarks:       "MIR " + m.MIRNo + " " + m.Department,
				CreatedBy:     actor,
			})
		}
		if _, err := s.ledger.PostWithin(ctx, tx, inputs); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, id, StatusIssued, actor, "", now); err != nil {
			return err
		}
		m.Status, m.IssuedBy, m.UpdatedAt = StatusIssued, actor, now
		out = m
		return nil
	})
	if err != nil {
		return MIR{}, err
	}
	s.recordAudit(ctx, actor, "MIR_ISSUE", id, map[string]any{"total_value": out.TotalValue.String()})
	s.invalidate(ctx, listcache.MIRs, listcache.Parts, listcache.StockMovements, listcache.ReorderLevels)
	return out, nil
}

// Cancel cancels a Pending MIR. No stock moves.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason, actor string) (MIR, error) {
	reason = strings.TrimSpace(reason)
	var out MIR
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := tx.LockMIR(ctx, id)
		if err != nil {
			return err
		}
		if err := transitions.Check(m.Status, StatusCancelled); err != nil {
			return err
		}
		now := s.now().UTC()
		if err := tx.UpdateStatus(ctx, id, StatusCancelled, actor, reason, now); err != nil {
			return err
		}
		m.Status, m.UpdatedAt = StatusCancelled, now
		if reason != "" {
			m.Remarks = reason
		}
		out = m
		return nil
	})
	if err != nil {
		return MIR{}, err
	}
	s.recordAudit(ctx, actor, "MIR_CANCEL", id, map[string]any{"reason": reason})
	s.invalidate(ctx, listcache.MIRs)
	return out, nil
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "mir", EntityID: id.String(), Meta: meta})
}

func (s *Service) invalidate(ctx context.Context, collections ...string) {
	_ = s.cache.Invalidate(ctx, collections...)
}
