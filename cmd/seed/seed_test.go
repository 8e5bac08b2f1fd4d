package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/scmdesk/scmdesk/internal/departments"
	"github.com/scmdesk/scmdesk/internal/parts"
	"github.com/scmdesk/scmdesk/internal/procurement"
	"github.com/scmdesk/scmdesk/internal/requisitions"
	"github.com/scmdesk/scmdesk/internal/vendors"
)

type fakeVendors struct {
	created []vendors.VendorInput
	rates   []vendors.RateInput
	links   int
}

func (f *fakeVendors) Create(_ context.Context, in vendors.VendorInput, _ string) (vendors.Vendor, error) {
	f.created = append(f.created, in)
	return vendors.Vendor{ID: uuid.New(), VendorCode: in.VendorCode}, nil
}

func (f *fakeVendors) CreateRate(_ context.Context, in vendors.RateInput, _ string) (vendors.Rate, error) {
	f.rates = append(f.rates, in)
	return vendors.Rate{ID: uuid.New()}, nil
}

func (f *fakeVendors) LinkPart(context.Context, uuid.UUID, uuid.UUID, string) error {
	f.links++
	return nil
}

type fakeParts struct {
	existing []parts.Part
	created  []parts.PartInput
	reorder  []parts.ReorderInput
}

func (f *fakeParts) All(context.Context) ([]parts.Part, error) { return f.existing, nil }

func (f *fakeParts) Create(_ context.Context, in parts.PartInput, _ string) (parts.Part, error) {
	f.created = append(f.created, in)
	return parts.Part{ID: uuid.New(), PartNo: in.PartNo}, nil
}

func (f *fakeParts) SetReorderLevel(_ context.Context, _ uuid.UUID, in parts.ReorderInput, _ string) (parts.ReorderLevel, error) {
	f.reorder = append(f.reorder, in)
	return parts.ReorderLevel{}, nil
}

type fakeDepartments struct{ names []string }

func (f *fakeDepartments) Create(_ context.Context, in departments.Input, _ string) (departments.Department, error) {
	f.names = append(f.names, in.DeptName)
	return departments.Department{ID: uuid.New()}, nil
}

type fakeReceiving struct {
	grrs     map[uuid.UUID]procurement.GRR
	results  [][]procurement.LineResult
	accepted []uuid.UUID
}

func (f *fakeReceiving) CreateGRR(_ context.Context, in procurement.CreateGRRInput) (procurement.GRR, error) {
	g := procurement.GRR{ID: uuid.New(), GRRNo: fmt.Sprintf("GRR-2024-%03d", len(f.grrs)+1)}
	for _, l := range in.Lines {
		g.Lines = append(g.Lines, procurement.GRRLine{ID: uuid.New(), PartID: l.PartID, ChallanQty: l.ChallanQty})
	}
	f.grrs[g.ID] = g
	return g, nil
}

func (f *fakeReceiving) StartQualityCheck(_ context.Context, id uuid.UUID, _ string) (procurement.GRR, error) {
	return f.grrs[id], nil
}

func (f *fakeReceiving) RecordLineResults(_ context.Context, id uuid.UUID, results []procurement.LineResult, _ string) (procurement.GRR, error) {
	f.results = append(f.results, results)
	return f.grrs[id], nil
}

func (f *fakeReceiving) AcceptGRR(_ context.Context, id uuid.UUID, _ string) (procurement.GRR, error) {
	f.accepted = append(f.accepted, id)
	return f.grrs[id], nil
}

type fakeIssuing struct {
	created []requisitions.CreateInput
	issued  int
}

func (f *fakeIssuing) Create(_ context.Context, in requisitions.CreateInput, _ string) (requisitions.MIR, error) {
	f.created = append(f.created, in)
	return requisitions.MIR{ID: uuid.New(), MIRNo: "MIR-2024-001"}, nil
}

func (f *fakeIssuing) Issue(_ context.Context, id uuid.UUID, _ string) (requisitions.MIR, error) {
	f.issued++
	return requisitions.MIR{ID: id}, nil
}

func TestSeederLoadsEmbeddedFixtures(t *testing.T) {
	fixtures, err := LoadFixtures("")
	require.NoError(t, err)

	v, p, d := &fakeVendors{}, &fakeParts{}, &fakeDepartments{}
	recv := &fakeReceiving{grrs: map[uuid.UUID]procurement.GRR{}}
	iss := &fakeIssuing{}
	s := &Seeder{Vendors: v, Parts: p, Departments: d, Receiving: recv, Issuing: iss,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	stats, err := s.Run(context.Background(), fixtures)
	require.NoError(t, err)
	require.Equal(t, Stats{Vendors: 3, Parts: 3, Departments: 2, Rates: 2, Receipts: 2, Issues: 1}, stats)

	require.Equal(t, "4.6", v.created[0].Rating.String())
	require.Equal(t, vendors.StatusActive, v.created[0].Status)
	require.Equal(t, "85", p.created[0].UnitRate.String())
	require.Len(t, p.reorder, 2, "only parts with a reorder level get one")
	for _, in := range p.reorder {
		require.GreaterOrEqual(t, in.MaxStockLevel, in.ReorderLevel)
	}
	require.Equal(t, []string{"Production", "Maintenance"}, d.names)
	require.Equal(t, 2, v.links)

	require.Len(t, recv.accepted, 2)
	require.Len(t, recv.results, 1, "the second receipt is accepted in full")
	require.Equal(t, 290, recv.results[0][0].AcceptedQty)
	require.Equal(t, 10, recv.results[0][0].RejectedQty)

	require.Len(t, iss.created, 1)
	require.Equal(t, "Production", iss.created[0].Department)
	require.Len(t, iss.created[0].Lines, 2)
	require.Equal(t, 1, iss.issued)
}

func TestSeederSkipsPopulatedDatabase(t *testing.T) {
	s := &Seeder{Parts: &fakeParts{existing: []parts.Part{{PartNo: "X"}}}}
	_, err := s.Run(context.Background(), Fixtures{})
	require.ErrorIs(t, err, ErrAlreadySeeded)
}

func TestSeederRejectsUnknownReferences(t *testing.T) {
	s := &Seeder{Vendors: &fakeVendors{}, Parts: &fakeParts{}, Departments: &fakeDepartments{}}
	_, err := s.Run(context.Background(), Fixtures{Rates: []RateFixture{{Vendor: "V-NONE", Part: "P", Rate: "1", From: "2024-01-01"}}})
	require.ErrorContains(t, err, "unknown vendor V-NONE")
}

func TestLoadFixturesReportsParseErrors(t *testing.T) {
	_, err := LoadFixtures("does-not-exist.yaml")
	require.ErrorContains(t, err, "read fixtures")
}
