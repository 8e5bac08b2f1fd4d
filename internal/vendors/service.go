package vendors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/listcache"
	"github.com/scmdesk/scmdesk/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	ListVendors(ctx context.Context) ([]Vendor, error)
	GetVendor(ctx context.Context, id uuid.UUID) (Vendor, error)
	InsertVendor(ctx context.Context, v Vendor) error
	UpdateVendor(ctx context.Context, v Vendor) error
	ListRates(ctx context.Context, filter RateFilter) ([]Rate, error)
	InsertRate(ctx context.Context, rt Rate) error
	DeactivateRate(ctx context.Context, id uuid.UUID) error
	EffectiveRate(ctx context.Context, vendorID, partID uuid.UUID, at time.Time) (Rate, error)
	LinkPart(ctx context.Context, vendorID, partID uuid.UUID, at time.Time) error
	UnlinkPart(ctx context.Context, vendorID, partID uuid.UUID) error
	ListVendorParts(ctx context.Context) ([]VendorPart, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates vendor use cases.
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

var maxRating = decimal.NewFromInt(5)

var vendorSorts = shared.Comparators[Vendor]{
	"name":        func(a, b Vendor) bool { return a.Name < b.Name },
	"vendor_code": func(a, b Vendor) bool { return a.VendorCode < b.VendorCode },
	"rating":      func(a, b Vendor) bool { return a.Rating.LessThan(b.Rating) },
	"created_at":  func(a, b Vendor) bool { return a.CreatedAt.Before(b.CreatedAt) },
}

// All returns every vendor through the collection cache.
func (s *Service) All(ctx context.Context) ([]Vendor, error) {
	return listcache.Collection(ctx, s.cache, listcache.Vendors, s.repo.ListVendors)
}

// List searches vendors by name or code, filters by status, then sorts and paginates.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) (shared.Page[Vendor], error) {
	rows, err := s.All(ctx)
	if err != nil {
		return shared.Page[Vendor]{}, err
	}
	rows = shared.FilterRows(rows, filters.Search, func(v Vendor) []string {
		return []string{v.Name, v.VendorCode}
	})
	if filters.Status != "" {
		kept := rows[:0:0]
		for _, v := range rows {
			if strings.EqualFold(v.Status, filters.Status) {
				kept = append(kept, v)
			}
		}
		rows = kept
	}
	shared.SortRows(rows, filters, vendorSorts, "name")
	return shared.Paginate(rows, filters), nil
}

// Get returns a vendor by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Vendor, error) {
	return s.repo.GetVendor(ctx, id)
}

// Create validates and stores a vendor, applying default rating and status.
func (s *Service) Create(ctx context.Context, input VendorInput, actor string) (Vendor, error) {
	input = normaliseVendor(input)
	if input.Status == "" {
		input.Status = StatusActive
	}
	if err := validateVendor(input); err != nil {
		return Vendor{}, err
	}
	now := s.now().UTC()
	v := Vendor{
		ID:           uuid.New(),
		VendorCode:   input.VendorCode,
		Name:         input.Name,
		Address:      input.Address,
		Phone:        input.Phone,
		Email:        input.Email,
		PaymentTerms: input.PaymentTerms,
		Rating:       input.Rating.Round(1),
		Status:       input.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertVendor(ctx, v); err != nil {
		return Vendor{}, fmt.Errorf("create vendor: %w", err)
	}
	s.recordAudit(ctx, actor, "VENDOR_CREATE", v.ID, map[string]any{"vendor_code": v.VendorCode})
	s.invalidate(ctx, listcache.Vendors)
	return v, nil
}

// Update replaces the editable fields of a vendor.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input VendorInput, actor string) (Vendor, error) {
	input = normaliseVendor(input)
	existing, err := s.repo.GetVendor(ctx, id)
	if err != nil {
		return Vendor{}, err
	}
	if input.Status == "" {
		input.Status = existing.Status
	}
	if err := validateVendor(input); err != nil {
		return Vendor{}, err
	}
	existing.VendorCode = input.VendorCode
	existing.Name = input.Name
	existing.Address = input.Address
	existing.Phone = input.Phone
	existing.Email = input.Email
	existing.PaymentTerms = input.PaymentTerms
	existing.Rating = input.Rating.Round(1)
	existing.Status = input.Status
	existing.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateVendor(ctx, existing); err != nil {
		return Vendor{}, fmt.Errorf("update vendor: %w", err)
	}
	s.recordAudit(ctx, actor, "VENDOR_UPDATE", id, nil)
	// GRR and PO listings join the vendor name.
	s.invalidate(ctx, listcache.Vendors, listcache.GRRs, listcache.PurchaseOrders, listcache.VendorRates)
	return existing, nil
}

// ListRates returns rates for a vendor or part.
func (s *Service) ListRates(ctx context.Context, filter RateFilter) ([]Rate, error) {
	rates, err := s.repo.ListRates(ctx, filter)
	if err != nil {
		return nil, err
	}
	if rates == nil {
		rates = []Rate{}
	}
	return rates, nil
}

// CreateRate stores a new active rate for a vendor and part.
func (s *Service) CreateRate(ctx context.Context, input RateInput, actor string) (Rate, error) {
	fields := shared.FieldErrors{}
	if input.VendorID == uuid.Nil {
		fields.Add("vendor_id", "is required")
	}
	if input.PartID == uuid.Nil {
		fields.Add("part_id", "is required")
	}
	if !input.Rate.IsPositive() {
		fields.Add("rate", "must be greater than zero")
	}
	if input.EffectiveFrom.IsZero() {
		fields.Add("effective_from", "is required")
	}
	if input.EffectiveTo != nil && input.EffectiveTo.Before(input.EffectiveFrom) {
		fields.Add("effective_to", "must not be before effective_from")
	}
	if err := fields.Err(); err != nil {
		return Rate{}, err
	}
	rt := Rate{
		ID:            uuid.New(),
		VendorID:      input.VendorID,
		PartID:        input.PartID,
		Rate:          input.Rate,
		EffectiveFrom: input.EffectiveFrom,
		EffectiveTo:   input.EffectiveTo,
		IsActive:      true,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.InsertRate(ctx, rt); err != nil {
		return Rate{}, fmt.Errorf("create vendor rate: %w", err)
	}
	s.recordAudit(ctx, actor, "VENDOR_RATE_CREATE", rt.ID, map[string]any{"rate": rt.Rate.String()})
	s.invalidate(ctx, listcache.VendorRates)
	return rt, nil
}

// DeactivateRate retires a rate.
func (s *Service) DeactivateRate(ctx context.Context, id uuid.UUID, actor string) error {
	if err := s.repo.DeactivateRate(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "VENDOR_RATE_DEACTIVATE", id, nil)
	s.invalidate(ctx, listcache.VendorRates)
	return nil
}

// EffectiveRate returns the rate a vendor charges for a part on a date.
func (s *Service) EffectiveRate(ctx context.Context, vendorID, partID uuid.UUID, at time.Time) (Rate, error) {
	if at.IsZero() {
		at = s.now().UTC()
	}
	return s.repo.EffectiveRate(ctx, vendorID, partID, at)
}

// Parts lists the parts a vendor supplies.
func (s *Service) Parts(ctx context.Context, vendorID uuid.UUID) ([]VendorPart, error) {
	links, err := listcache.Collection(ctx, s.cache, listcache.VendorParts, s.repo.ListVendorParts)
	if err != nil {
		return nil, err
	}
	out := []VendorPart{}
	for _, l := range links {
		if l.VendorID == vendorID {
			out = append(out, l)
		}
	}
	return out, nil
}

// LinkPart associates a part with a vendor.
func (s *Service) LinkPart(ctx context.Context, vendorID, partID uuid.UUID, actor string) error {
	if partID == uuid.Nil {
		return fmt.Errorf("%w: part_id is required", shared.ErrValidation)
	}
	if _, err := s.repo.GetVendor(ctx, vendorID); err != nil {
		return err
	}
	if err := s.repo.LinkPart(ctx, vendorID, partID, s.now().UTC()); err != nil {
		return fmt.Errorf("link vendor part: %w", err)
	}
	s.recordAudit(ctx, actor, "VENDOR_PART_LINK", vendorID, map[string]any{"part_id": partID.String()})
	s.invalidate(ctx, listcache.VendorParts)
	return nil
}

// UnlinkPart removes a vendor-part association.
func (s *Service) UnlinkPart(ctx context.Context, vendorID, partID uuid.UUID, actor string) error {
	if err := s.repo.UnlinkPart(ctx, vendorID, partID); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "VENDOR_PART_UNLINK", vendorID, map[string]any{"part_id": partID.String()})
	s.invalidate(ctx, listcache.VendorParts)
	return nil
}

func normaliseVendor(in VendorInput) VendorInput {
	in.VendorCode = strings.ToUpper(strings.TrimSpace(in.VendorCode))
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.PaymentTerms = strings.TrimSpace(in.PaymentTerms)
	return in
}

func validateVendor(in VendorInput) error {
	fields := shared.FieldErrors{}
	fields.Required("vendor_code", in.VendorCode)
	fields.Required("name", in.Name)
	fields.Required("address", in.Address)
	if in.Rating.IsNegative() || in.Rating.GreaterThan(maxRating) {
		fields.Add("rating", "must be between 0 and 5")
	}
	if in.Status != StatusActive && in.Status != StatusInactive {
		fields.Add("status", "must be Active or Inactive")
	}
	return fields.Err()
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "vendor", EntityID: id.String(), Meta: meta})
}

func (s *Service) invalidate(ctx context.Context, collections ...string) {
	_ = s.cache.Invalidate(ctx, collections...)
}
