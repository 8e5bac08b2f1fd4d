package parts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scmdesk/scmdesk/internal/display"
	"github.com/scmdesk/scmdesk/internal/listcache"
	"github.com/scmdesk/scmdesk/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	ListParts(ctx context.Context) ([]Part, error)
	GetPart(ctx context.Context, id uuid.UUID) (Part, error)
	InsertPart(ctx context.Context, p Part) error
	UpdatePart(ctx context.Context, p Part) error
	ListReorderLevels(ctx context.Context) ([]ReorderLevel, error)
	UpsertReorderLevel(ctx context.Context, rl ReorderLevel) (ReorderLevel, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates part and reorder level use cases.
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

var partSorts = shared.Comparators[Part]{
	"part_no":       func(a, b Part) bool { return a.PartNo < b.PartNo },
	"description":   func(a, b Part) bool { return a.Description < b.Description },
	"current_stock": func(a, b Part) bool { return a.CurrentStock < b.CurrentStock },
	"unit_rate":     func(a, b Part) bool { return a.UnitRate.LessThan(b.UnitRate) },
	"created_at":    func(a, b Part) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

// All returns every part with its stock status, through the collection cache.
func (s *Service) All(ctx context.Context) ([]Part, error) {
	rows, err := listcache.Collection(ctx, s.cache, listcache.Parts, s.repo.ListParts)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].StockStatus = display.ClassifyStock(rows[i].CurrentStock, rows[i].MinimumStock)
	}
	return rows, nil
}

// List searches parts by number or description and filters by category and stock status.
func (s *Service) List(ctx context.Context, filters ListFilters) (shared.Page[Part], error) {
	rows, err := s.All(ctx)
	if err != nil {
		return shared.Page[Part]{}, err
	}
	rows = shared.FilterRows(rows, filters.Search, func(p Part) []string {
		return []string{p.PartNo, p.Description}
	})
	kept := rows[:0:0]
	for _, p := range rows {
		if filters.Category != "" && !strings.EqualFold(p.Category, filters.Category) {
			continue
		}
		if filters.StockStatus != "" && !strings.EqualFold(string(p.StockStatus), filters.StockStatus) {
			continue
		}
		kept = append(kept, p)
	}
	common := shared.ListFilters{Page: filters.Page, PerPage: filters.PerPage, SortBy: filters.SortBy, SortDir: filters.SortDir}
	shared.SortRows(kept, common, partSorts, "part_no")
	return shared.Paginate(kept, common), nil
}

// Get returns a part by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Part, error) {
	p, err := s.repo.GetPart(ctx, id)
	if err != nil {
		return Part{}, err
	}
	p.StockStatus = display.ClassifyStock(p.CurrentStock, p.MinimumStock)
	return p, nil
}

// Create stores a part; its current stock starts at the opening stock.
func (s *Service) Create(ctx context.Context, input PartInput, actor string) (Part, error) {
	input = normalisePart(input)
	if err := validatePart(input, true); err != nil {
		return Part{}, err
	}
	now := s.now().UTC()
	p := Part{
		ID:            uuid.New(),
		PartNo:        input.PartNo,
		Description:   input.Description,
		Category:      input.Category,
		UnitOfMeasure: input.UnitOfMeasure,
		UnitRate:      input.UnitRate,
		OpeningStock:  input.OpeningStock,
		CurrentStock:  input.OpeningStock,
		MinimumStock:  input.MinimumStock,
		OrderQuantity: input.OrderQuantity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.InsertPart(ctx, p); err != nil {
		return Part{}, fmt.Errorf("create part: %w", err)
	}
	p.StockStatus = display.ClassifyStock(p.CurrentStock, p.MinimumStock)
	s.recordAudit(ctx, actor, "PART_CREATE", p.ID, map[string]any{"part_no": p.PartNo, "opening_stock": p.OpeningStock})
	s.invalidate(ctx, listcache.Parts)
	return p, nil
}

// Update changes the descriptive fields of a part. Opening and current stock are not
// editable; corrections go through ledger adjustments.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input PartInput, actor string) (Part, error) {
	input = normalisePart(input)
	if err := validatePart(input, false); err != nil {
		return Part{}, err
	}
	existing, err := s.repo.GetPart(ctx, id)
	if err != nil {
		return Part{}, err
	}
	existing.PartNo = input.PartNo
	existing.Description = input.Description
	existing.Category = input.Category
	existing.UnitOfMeasure = input.UnitOfMeasure
	existing.UnitRate = input.UnitRate
	existing.MinimumStock = input.MinimumStock
	existing.OrderQuantity = input.OrderQuantity
	existing.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdatePart(ctx, existing); err != nil {
		return Part{}, fmt.Errorf("update part: %w", err)
	}
	existing.StockStatus = display.ClassifyStock(existing.CurrentStock, existing.MinimumStock)
	s.recordAudit(ctx, actor, "PART_UPDATE", id, nil)
	// Listings of documents and links join part_no and description.
	s.invalidate(ctx, listcache.Parts, listcache.ReorderLevels, listcache.VendorParts,
		listcache.VendorRates, listcache.StockMovements)
	return existing, nil
}

// ReorderLevels lists every reorder level with current stock.
func (s *Service) ReorderLevels(ctx context.Context) ([]ReorderLevel, error) {
	rows, err := listcache.Collection(ctx, s.cache, listcache.ReorderLevels, s.repo.ListReorderLevels)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []ReorderLevel{}
	}
	return rows, nil
}

// BelowReorderLevel returns parts at or under their reorder level. It reads the database
// directly so scheduled scans never act on a stale cache.
func (s *Service) BelowReorderLevel(ctx context.Context) ([]ReorderLevel, error) {
	rows, err := s.repo.ListReorderLevels(ctx)
	if err != nil {
		return nil, err
	}
	out := []ReorderLevel{}
	for _, rl := range rows {
		if rl.Below() {
			out = append(out, rl)
		}
	}
	return out, nil
}

// SetReorderLevel creates or replaces a part's reorder level.
func (s *Service) SetReorderLevel(ctx context.Context, partID uuid.UUID, input ReorderInput, actor string) (ReorderLevel, error) {
	fields := shared.FieldErrors{}
	if input.ReorderLevel < 0 {
		fields.Add("reorder_level", "must not be negative")
	}
	if input.MaxStockLevel < input.ReorderLevel {
		fields.Add("max_stock_level", "must not be below reorder_level")
	}
	if input.LeadTimeDays < 0 {
		fields.Add("lead_time_days", "must not be negative")
	}
	if err := fields.Err(); err != nil {
		return ReorderLevel{}, err
	}
	part, err := s.repo.GetPart(ctx, partID)
	if err != nil {
		return ReorderLevel{}, err
	}
	rl, err := s.repo.UpsertReorderLevel(ctx, ReorderLevel{
		ID:            uuid.New(),
		PartID:        partID,
		ReorderLevel:  input.ReorderLevel,
		MaxStockLevel: input.MaxStockLevel,
		LeadTimeDays:  input.LeadTimeDays,
		UpdatedAt:     s.now().UTC(),
	})
	if err != nil {
		return ReorderLevel{}, fmt.Errorf("set reorder level: %w", err)
	}
	rl.PartNo = part.PartNo
	rl.Description = part.Description
	rl.CurrentStock = part.CurrentStock
	rl.OrderQuantity = part.OrderQuantity
	s.recordAudit(ctx, actor, "REORDER_LEVEL_SET", partID, map[string]any{"reorder_level": rl.ReorderLevel})
	s.invalidate(ctx, listcache.ReorderLevels)
	return rl, nil
}

func normalisePart(in PartInput) PartInput {
	in.PartNo = strings.ToUpper(strings.TrimSpace(in.PartNo))
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.UnitOfMeasure = strings.TrimSpace(in.UnitOfMeasure)
	return in
}

func validatePart(in PartInput, creating bool) error {
	fields := shared.FieldErrors{}
	fields.Required("part_no", in.PartNo)
	fields.Required("description", in.Description)
	switch in.Category {
	case CategoryRawMaterial, CategoryFinishedPart:
	case "":
		fields.Add("category", "is required")
	default:
		fields.Add("category", "must be Raw Material or Finished Part")
	}
	if in.UnitRate.IsNegative() {
		fields.Add("unit_rate", "must not be negative")
	}
	if creating && in.OpeningStock < 0 {
		fields.Add("opening_stock", "must not be negative")
	}
	if in.MinimumStock < 0 {
		fields.Add("minimum_stock", "must not be negative")
	}
	if in.OrderQuantity < 0 {
		fields.Add("order_quantity", "must not be negative")
	}
	return fields.Err()
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "part", EntityID: id.String(), Meta: meta})
}

func (s *Service) invalidate(ctx context.Context, collections ...string) {
	_ = s.cache.Invalidate(ctx, collections...)
}
