package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/departments"
	"github.com/scmdesk/scmdesk/internal/parts"
	"github.com/scmdesk/scmdesk/internal/procurement"
	"github.com/scmdesk/scmdesk/internal/requisitions"
	"github.com/scmdesk/scmdesk/internal/vendors"
)

const seedActor = "seed"

// ErrAlreadySeeded reports that parts exist and the run was skipped.
var ErrAlreadySeeded = errors.New("seed: database already holds parts")

// VendorStore creates vendors, their rates and part links.
type VendorStore interface {
	Create(ctx context.Context, input vendors.VendorInput, actor string) (vendors.Vendor, error)
	CreateRate(ctx context.Context, input vendors.RateInput, actor string) (vendors.Rate, error)
	LinkPart(ctx context.Context, vendorID, partID uuid.UUID, actor string) error
}

// PartStore creates parts and reorder levels.
type PartStore interface {
	All(ctx context.Context) ([]parts.Part, error)
	Create(ctx context.Context, input parts.PartInput, actor string) (parts.Part, error)
	SetReorderLevel(ctx context.Context, partID uuid.UUID, input parts.ReorderInput, actor string) (parts.ReorderLevel, error)
}

// DepartmentStore creates departments.
type DepartmentStore interface {
	Create(ctx context.Context, input departments.Input, actor string) (departments.Department, error)
}

// Receiving drives a GRR from creation to acceptance.
type Receiving interface {
	CreateGRR(ctx context.Context, input procurement.CreateGRRInput) (procurement.GRR, error)
	StartQualityCheck(ctx context.Context, id uuid.UUID, actor string) (procurement.GRR, error)
	RecordLineResults(ctx context.Context, id uuid.UUID, results []procurement.LineResult, actor string) (procurement.GRR, error)
	AcceptGRR(ctx context.Context, id uuid.UUID, actor string) (procurement.GRR, error)
}

// Issuing raises and issues MIRs.
type Issuing interface {
	Create(ctx context.Context, input requisitions.CreateInput, actor string) (requisitions.MIR, error)
	Issue(ctx context.Context, id uuid.UUID, actor string) (requisitions.MIR, error)
}

// Seeder loads fixtures through the domain services so stock moves through the ledger.
type Seeder struct {
	Vendors     VendorStore
	Parts       PartStore
	Departments DepartmentStore
	Receiving   Receiving
	Issuing     Issuing
	Logger      *slog.Logger
}

// Stats counts what a run created.
type Stats struct {
	Vendors, Parts, Departments, Rates, Receipts, Issues int
}

// Run seeds every fixture in dependency order.
func (s *Seeder) Run(ctx context.Context, f Fixtures) (Stats, error) {
	var stats Stats
	existing, err := s.Parts.All(ctx)
	if err != nil {
		return stats, err
	}
	if len(existing) > 0 {
		return stats, ErrAlreadySeeded
	}

	vendorIDs := map[string]uuid.UUID{}
	for _, v := range f.Vendors {
		rating, err := decimal.NewFromString(v.Rating)
		if err != nil {
			return stats, fmt.Errorf("seed: vendor %s rating: %w", v.Code, err)
		}
		created, err := s.Vendors.Create(ctx, vendors.VendorInput{
			VendorCode:   v.Code,
			Name:         v.Name,
			Address:      v.Address,
			Phone:        v.Phone,
			Email:        v.Email,
			PaymentTerms: v.PaymentTerms,
			Rating:       rating,
			Status:       vendors.StatusActive,
		}, seedActor)
		if err != nil {
			return stats, fmt.Errorf("seed: vendor %s: %w", v.Code, err)
		}
		vendorIDs[v.Code] = created.ID
		stats.Vendors++
	}

	partIDs := map[string]uuid.UUID{}
	for _, p := range f.Parts {
		rate, err := decimal.NewFromString(p.UnitRate)
		if err != nil {
			return stats, fmt.Errorf("seed: part %s rate: %w", p.PartNo, err)
		}
		created, err := s.Parts.Create(ctx, parts.PartInput{
			PartNo:        p.PartNo,
			Description:   p.Description,
			Category:      p.Category,
			UnitOfMeasure: p.UnitOfMeasure,
			UnitRate:      rate,
			OpeningStock:  p.OpeningStock,
			MinimumStock:  p.MinimumStock,
			OrderQuantity: p.OrderQuantity,
		}, seedActor)
		if err != nil {
			return stats, fmt.Errorf("seed: part %s: %w", p.PartNo, err)
		}
		partIDs[p.PartNo] = created.ID
		stats.Parts++
		if p.ReorderLevel > 0 {
			if _, err := s.Parts.SetReorderLevel(ctx, created.ID, parts.ReorderInput{
				ReorderLevel:  p.ReorderLevel,
				MaxStockLevel: p.MaxStockLevel,
				LeadTimeDays:  p.LeadTimeDays,
			}, seedActor); err != nil {
				return stats, fmt.Errorf("seed: reorder level %s: %w", p.PartNo, err)
			}
		}
	}

	for _, d := range f.Departments {
		if _, err := s.Departments.Create(ctx, departments.Input{
			DeptCode:   d.Code,
			DeptName:   d.Name,
			HeadOfDept: d.Head,
			CostCenter: d.CostCenter,
		}, seedActor); err != nil {
			return stats, fmt.Errorf("seed: department %s: %w", d.Code, err)
		}
		stats.Departments++
	}

	for _, r := range f.Rates {
		vendorID, partID, err := resolve(vendorIDs, r.Vendor, partIDs, r.Part)
		if err != nil {
			return stats, err
		}
		rate, err := decimal.NewFromString(r.Rate)
		if err != nil {
			return stats, fmt.Errorf("seed: rate %s/%s: %w", r.Vendor, r.Part, err)
		}
		from, err := time.Parse(time.DateOnly, r.From)
		if err != nil {
			return stats, fmt.Errorf("seed: rate %s/%s date: %w", r.Vendor, r.Part, err)
		}
		if err := s.Vendors.LinkPart(ctx, vendorID, partID, seedActor); err != nil {
			return stats, fmt.Errorf("seed: link %s/%s: %w", r.Vendor, r.Part, err)
		}
		if _, err := s.Vendors.CreateRate(ctx, vendors.RateInput{VendorID: vendorID, PartID: partID, Rate: rate, EffectiveFrom: from}, seedActor); err != nil {
			return stats, fmt.Errorf("seed: rate %s/%s: %w", r.Vendor, r.Part, err)
		}
		stats.Rates++
	}

	for i, rec := range f.Receipts {
		if err := s.receive(ctx, vendorIDs, partIDs, i, rec); err != nil {
			return stats, err
		}
		stats.Receipts++
	}

	for i, iss := range f.Issues {
		date, err := time.Parse(time.DateOnly, iss.Date)
		if err != nil {
			return stats, fmt.Errorf("seed: issue %d date: %w", i, err)
		}
		input := requisitions.CreateInput{Date: date, Department: iss.Department, RequestedBy: iss.RequestedBy, Purpose: iss.Purpose}
		for _, l := range iss.Lines {
			partID, ok := partIDs[l.Part]
			if !ok {
				return stats, fmt.Errorf("seed: issue %d: unknown part %s", i, l.Part)
			}
			input.Lines = append(input.Lines, requisitions.LineInput{PartID: partID, QtyIssued: l.Qty})
		}
		mir, err := s.Issuing.Create(ctx, input, seedActor)
		if err != nil {
			return stats, fmt.Errorf("seed: issue %d: %w", i, err)
		}
		if _, err := s.Issuing.Issue(ctx, mir.ID, seedActor); err != nil {
			return stats, fmt.Errorf("seed: issue %s: %w", mir.MIRNo, err)
		}
		stats.Issues++
	}
	return stats, nil
}

func (s *Seeder) receive(ctx context.Context, vendorIDs, partIDs map[string]uuid.UUID, i int, rec ReceiptFixture) error {
	date, err := time.Parse(time.DateOnly, rec.ChallanDate)
	if err != nil {
		return fmt.Errorf("seed: receipt %d date: %w", i, err)
	}
	vendorID, ok := vendorIDs[rec.Vendor]
	if !ok {
		return fmt.Errorf("seed: receipt %d: unknown vendor %s", i, rec.Vendor)
	}
	input := procurement.CreateGRRInput{ChallanDate: date, TransporterName: rec.Transporter, VendorID: &vendorID, CreatedBy: seedActor}
	accepted := map[uuid.UUID]int{}
	for _, l := range rec.Lines {
		partID, ok := partIDs[l.Part]
		if !ok {
			return fmt.Errorf("seed: receipt %d: unknown part %s", i, l.Part)
		}
		input.Lines = append(input.Lines, procurement.GRRLineInput{PartID: partID, ChallanQty: l.Challan})
		if l.Accepted != nil {
			accepted[partID] = *l.Accepted
		}
	}
	grr, err := s.Receiving.CreateGRR(ctx, input)
	if err != nil {
		return fmt.Errorf("seed: receipt %d: %w", i, err)
	}
	if _, err := s.Receiving.StartQualityCheck(ctx, grr.ID, seedActor); err != nil {
		return fmt.Errorf("seed: quality check %s: %w", grr.GRRNo, err)
	}
	var results []procurement.LineResult
	for _, line := range grr.Lines {
		if qty, ok := accepted[line.PartID]; ok {
			results = append(results, procurement.LineResult{LineID: line.ID, AcceptedQty: qty, RejectedQty: line.ChallanQty - qty})
		}
	}
	if len(results) > 0 {
		if _, err := s.Receiving.RecordLineResults(ctx, grr.ID, results, seedActor); err != nil {
			return fmt.Errorf("seed: line results %s: %w", grr.GRRNo, err)
		}
	}
	if _, err := s.Receiving.AcceptGRR(ctx, grr.ID, seedActor); err != nil {
		return fmt.Errorf("seed: accept %s: %w", grr.GRRNo, err)
	}
	s.Logger.Info("seeded receipt", slog.String("grr_no", grr.GRRNo))
	return nil
}

func resolve(vendorIDs map[string]uuid.UUID, vendor string, partIDs map[string]uuid.UUID, part string) (uuid.UUID, uuid.UUID, error) {
	vendorID, ok := vendorIDs[vendor]
	if !ok {
		return uuid.Nil, uuid.Nil, fmt.Errorf("seed: unknown vendor %s", vendor)
	}
	partID, ok := partIDs[part]
	if !ok {
		return uuid.Nil, uuid.Nil, fmt.Errorf("seed: unknown part %s", part)
	}
	return vendorID, partID, nil
}
