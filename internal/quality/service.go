package quality

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scmdesk/scmdesk/internal/display"
	"github.com/scmdesk/scmdesk/internal/listcache"
	"github.com/scmdesk/scmdesk/internal/platform/db"
	"github.com/scmdesk/scmdesk/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context) ([]Inspection, error)
	Get(ctx context.Context, id uuid.UUID) (Inspection, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates inspection use cases.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	cache *listcache.Cache
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cache *listcache.Cache) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, now: time.Now}
}

const numberAttempts = 3

var sorts = shared.Comparators[Inspection]{
	"inspection_no":   func(a, b Inspection) bool { return a.InspectionNo < b.InspectionNo },
	"inspection_date": func(a, b Inspection) bool { return a.InspectionDate.Before(b.InspectionDate) },
	"inspector_name":  func(a, b Inspection) bool { return a.InspectorName < b.InspectorName },
	"created_at":      func(a, b Inspection) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

// All returns every inspection through the collection cache.
func (s *Service) All(ctx context.Context) ([]Inspection, error) {
	return listcache.Collection(ctx, s.cache, listcache.QualityInspections, s.repo.List)
}

// List searches by inspection number, GRR number or part number and filters by status.
func (s *Service) List(ctx context.Context, filters ListFilters) (shared.Page[Inspection], error) {
	rows, err := s.All(ctx)
	if err != nil {
		return shared.Page[Inspection]{}, err
	}
	rows = shared.FilterRows(rows, filters.Search, func(in Inspection) []string {
		return []string{in.InspectionNo, in.GRRNo, in.PartNo}
	})
	if filters.Status != "" {
		kept := rows[:0:0]
		for _, in := range rows {
			if strings.EqualFold(string(in.Status), filters.Status) {
				kept = append(kept, in)
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

// Get returns one inspection.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Inspection, error) {
	return s.repo.Get(ctx, id)
}

// Summarize counts inspections per status and computes the overall pass rate.
func (s *Service) Summarize(ctx context.Context) (Summary, error) {
	rows, err := s.All(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(rows), nil
}

// Summarize aggregates rows. The pass rate is zero when nothing was inspected.
func Summarize(rows []Inspection) Summary {
	var sum Summary
	for _, in := range rows {
		sum.Total++
		switch in.Status {
		case StatusInProgress:
			sum.InProgress++
		case StatusCompleted:
			sum.Completed++
		case StatusFailed:
			sum.Failed++
		}
		sum.QuantityInspected += in.QuantityInspected
		sum.QuantityAccepted += in.QuantityAccepted
	}
	sum.PassRate = display.PassRate(sum.QuantityAccepted, sum.QuantityInspected)
	return sum
}

// Create numbers and stores an In Progress inspection of a GRR line.
func (s *Service) Create(ctx context.Context, input CreateInput, actor string) (Inspection, error) {
	input.InspectorName = strings.TrimSpace(input.InspectorName)
	if input.Results.Dimensional == "" {
		input.Results.Dimensional = Pass
	}
	if input.Results.Visual == "" {
		input.Results.Visual = Pass
	}
	if input.Results.Mechanical == "" {
		input.Results.Mechanical = Pass
	}
	fields := shared.FieldErrors{}
	if input.GRRPartID == uuid.Nil {
		fields.Add("grr_part_id", "is required")
	}
	fields.Required("inspector_name", input.InspectorName)
	if input.QuantityInspected < 0 || input.QuantityAccepted < 0 || input.QuantityRejected < 0 {
		fields.Add("quantity", "must not be negative")
	}
	if input.QuantityAccepted+input.QuantityRejected > input.QuantityInspected {
		fields.Add("quantity_accepted", "accepted + rejected exceeds quantity inspected")
	}
	for name, r := range map[string]Result{
		"test_results.dimensional": input.Results.Dimensional,
		"test_results.visual":      input.Results.Visual,
		"test_results.mechanical":  input.Results.Mechanical,
	} {
		if r != Pass && r != Fail {
			fields.Add(name, "must be Pass or Fail")
		}
	}
	if err := fields.Err(); err != nil {
		return Inspection{}, err
	}

	var created Inspection
	err := db.RetryDuplicate(ctx, numberAttempts, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			line, err := tx.GRRLine(ctx, input.GRRPartID)
			if err != nil {
				return err
			}
			if input.QuantityInspected > line.ChallanQty {
				return fmt.Errorf("%w: quantity_inspected exceeds challan quantity %d", shared.ErrValidation, line.ChallanQty)
			}
			now := s.now().UTC()
			number, err := tx.NextNumber(ctx, now)
			if err != nil {
				return err
			}
			date := input.InspectionDate
			if date.IsZero() {
				date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			}
			in := Inspection{
				ID:                uuid.New(),
				InspectionNo:      number,
				GRRPartID:         line.ID,
				GRRNo:             line.GRRNo,
				PartNo:            line.PartNo,
				InspectorName:     input.InspectorName,
				InspectionDate:    date,
				BatchNo:           strings.TrimSpace(input.BatchNo),
				QuantityInspected: input.QuantityInspected,
				QuantityAccepted:  input.QuantityAccepted,
				QuantityRejected:  input.QuantityRejected,
				DefectType:        strings.TrimSpace(input.DefectType),
				TestParameters:    strings.TrimSpace(input.TestParameters),
				Results:           input.Results,
				Status:            StatusInProgress,
				Remarks:           strings.TrimSpace(input.Remarks),
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := tx.Insert(ctx, in); err != nil {
				return err
			}
			created = in
			return nil
		})
	})
	if err != nil {
		return Inspection{}, fmt.Errorf("create inspection: %w", err)
	}
	s.recordAudit(ctx, actor, "QC_CREATE", created.ID, map[string]any{"inspection_no": created.InspectionNo})
	_ = s.cache.Invalidate(ctx, listcache.QualityInspections)
	return created, nil
}

// Complete closes an inspection as Completed. Every test result must be Pass.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, remarks, actor string) (Inspection, error) {
	return s.transition(ctx, id, StatusCompleted, remarks, actor, "QC_COMPLETE")
}

// Fail closes an inspection as Failed.
func (s *Service) Fail(ctx context.Context, id uuid.UUID, remarks, actor string) (Inspection, error) {
	return s.transition(ctx, id, StatusFailed, remarks, actor, "QC_FAIL")
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status, remarks, actor, action string) (Inspection, error) {
	remarks = strings.TrimSpace(remarks)
	var out Inspection
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		in, err := tx.Lock(ctx, id)
		if err != nil {
			return err
		}
		if err := transitions.Check(in.Status, to); err != nil {
			return err
		}
		if to == StatusCompleted && !in.Results.AllPassed() {
			return fmt.Errorf("%w: %s has failed test results", shared.ErrInvalidState, in.InspectionNo)
		}
		now := s.now().UTC()
		if err := tx.UpdateStatus(ctx, id, to, remarks, now); err != nil {
			return err
		}
		in.Status, in.UpdatedAt = to, now
		if remarks != "" {
			in.Remarks = remarks
		}
		out = in
		return nil
	})
	if err != nil {
		return Inspection{}, err
	}
	s.recordAudit(ctx, actor, action, id, nil)
	_ = s.cache.Invalidate(ctx, listcache.QualityInspections)
	return out, nil
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "quality_inspection", EntityID: id.String(), Meta: meta})
}
