package requisitions

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/scmdesk/scmdesk/internal/departments"
	"github.com/scmdesk/scmdesk/internal/inventory"
	"github.com/scmdesk/scmdesk/internal/shared"
)

type memoryState struct {
	parts     map[uuid.UUID]inventory.PartStock
	movements []inventory.Movement
	mirs      map[uuid.UUID]MIR
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		parts:     make(map[uuid.UUID]inventory.PartStock, len(s.parts)),
		movements: append([]inventory.Movement(nil), s.movements...),
		mirs:      make(map[uuid.UUID]MIR, len(s.mirs)),
	}
	for k, v := range s.parts {
		out.parts[k] = v
	}
	for k, v := range s.mirs {
		v.Lines = append([]Line(nil), v.Lines...)
		out.mirs[k] = v
	}
	return out
}

type memoryRepo struct {
	state memoryState
}

type memoryTx struct {
	state *memoryState
}

func newMemoryRepo(parts ...inventory.PartStock) *memoryRepo {
	repo := &memoryRepo{state: memoryState{parts: map[uuid.UUID]inventory.PartStock{}, mirs: map[uuid.UUID]MIR{}}}
	for _, p := range parts {
		repo.state.parts[p.PartID] = p
	}
	return repo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := r.state.clone()
	if err := fn(ctx, &memoryTx{state: &staged}); err != nil {
		return err
	}
	r.state = staged
	return nil
}

func (r *memoryRepo) ListMIRs(context.Context) ([]MIR, error) {
	out := make([]MIR, 0, len(r.state.mirs))
	for _, m := range r.state.mirs {
		m.Lines = nil
		out = append(out, m)
	}
	return out, nil
}

func (r *memoryRepo) GetMIR(_ context.Context, id uuid.UUID) (MIR, error) {
	m, ok := r.state.mirs[id]
	if !ok {
		return MIR{}, shared.ErrNotFound
	}
	return m, nil
}

func (t *memoryTx) LockParts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]inventory.PartStock, error) {
	out := map[uuid.UUID]inventory.PartStock{}
	for _, id := range ids {
		if p, ok := t.state.parts[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *memoryTx) InsertMovement(_ context.Context, m inventory.Movement) error {
	t.state.movements = append(t.state.movements, m)
	return nil
}

func (t *memoryTx) MovementTotals(_ context.Context, partID uuid.UUID) (inventory.Totals, error) {
	var totals inventory.Totals
	for _, m := range t.state.movements {
		if m.PartID != partID {
			continue
		}
		if m.Type == inventory.MovementIn {
			totals.In += m.Quantity
		} else {
			totals.Out += m.Quantity
		}
	}
	return totals, nil
}

func (t *memoryTx) SetCurrentStock(_ context.Context, partID uuid.UUID, qty int) error {
	p := t.state.parts[partID]
	p.CurrentStock = qty
	t.state.parts[partID] = p
	return nil
}

func (t *memoryTx) NextNumber(_ context.Context, at time.Time) (string, error) {
	stem := shared.NumberPrefix(shared.PrefixMIR, at)
	count := 0
	for _, m := range t.state.mirs {
		if strings.HasPrefix(m.MIRNo, stem) {
			count++
		}
	}
	return shared.DocumentNumber(shared.PrefixMIR, at.Year(), count), nil
}

func (t *memoryTx) PartRates(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := map[uuid.UUID]decimal.Decimal{}
	for _, id := range ids {
		if p, ok := t.state.parts[id]; ok {
			out[id] = p.UnitRate
		}
	}
	return out, nil
}

func (t *memoryTx) InsertMIR(_ context.Context, m MIR) error {
	m.Lines = nil
	t.state.mirs[m.ID] = m
	return nil
}

func (t *memoryTx) InsertLine(_ context.Context, l Line) error {
	m := t.state.mirs[l.MIRID]
	m.Lines = append(m.Lines, l)
	t.state.mirs[l.MIRID] = m
	return nil
}

func (t *memoryTx) LockMIR(_ context.Context, id uuid.UUID) (MIR, error) {
	m, ok := t.state.mirs[id]
	if !ok {
		return MIR{}, shared.ErrNotFound
	}
	return m, nil
}

func (t *memoryTx) UpdateStatus(_ context.Context, id uuid.UUID, status Status, actor, remarks string, at time.Time) error {
	m := t.state.mirs[id]
	m.Status, m.UpdatedAt = status, at
	if status == StatusIssued {
		m.IssuedBy = actor
	}
	if remarks != "" {
		m.Remarks = remarks
	}
	t.state.mirs[id] = m
	return nil
}

type staticDepartments map[string]bool

func (d staticDepartments) ActiveByName(_ context.Context, name string) (departments.Department, error) {
	for dept, active := range d {
		if active && strings.EqualFold(dept, name) {
			return departments.Department{DeptName: dept, IsActive: true}, nil
		}
	}
	return departments.Department{}, fmt.Errorf("%w: department %q", shared.ErrNotFound, name)
}

var clock = func() time.Time { return time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC) }

func newPart(no string, opening int, rate string) inventory.PartStock {
	return inventory.PartStock{PartID: uuid.New(), PartNo: no, OpeningStock: opening, CurrentStock: opening, UnitRate: decimal.RequireFromString(rate)}
}

func newFixture(parts ...inventory.PartStock) (*Service, *memoryRepo) {
	repo := newMemoryRepo(parts...)
	ledger := inventory.NewService(nil, nil, nil, nil, inventory.ServiceConfig{Clock: clock})
	svc := NewService(repo, ledger, staticDepartments{"Assembly": true, "Paint Shop": false}, nil, nil)
	svc.now = clock
	return svc, repo
}

func mirInput(lines ...LineInput) CreateInput {
	return CreateInput{
		Date:        time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Department:  "assembly",
		RequestedBy: "R. Iyer",
		Purpose:     "line 2 build",
		Lines:       lines,
	}
}

func TestCreateMIRPricesLinesAndNumbers(t *testing.T) {
	bolt := newPart("BOLT", 50, "2.00")
	svc, _ := newFixture(bolt)
	ctx := context.Background()

	first, err := svc.Create(ctx, mirInput(
		LineInput{PartID: bolt.PartID, QtyIssued: 10},
		LineInput{PartID: bolt.PartID, QtyIssued: 5, UnitRate: decimal.RequireFromString("3.50")},
	), "stores")
	require.NoError(t, err)
	require.Equal(t, "MIR-2024-001", first.MIRNo)
	require.Equal(t, StatusPending, first.Status)
	require.Equal(t, "Assembly", first.Department)
	require.Equal(t, "37.5", first.TotalValue.String())

	second, err := svc.Create(ctx, mirInput(LineInput{PartID: bolt.PartID, QtyIssued: 1}), "stores")
	require.NoError(t, err)
	require.Equal(t, "MIR-2024-002", second.MIRNo)
}

func TestCreateMIRValidation(t *testing.T) {
	svc, _ := newFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Lines: []LineInput{{QtyIssued: -1}}}, "stores")
	require.ErrorIs(t, err, shared.ErrValidation)
	for _, field := range []string{"date", "department", "requested_by", "lines[0].part_id", "lines[0].qty_issued"} {
		require.Contains(t, err.Error(), field)
	}

	in := mirInput(LineInput{PartID: uuid.New(), QtyIssued: 1})
	in.Department = "Paint Shop"
	_, err = svc.Create(ctx, in, "stores")
	require.ErrorIs(t, err, shared.ErrNotFound, "inactive department")

	_, err = svc.Create(ctx, mirInput(LineInput{PartID: uuid.New(), QtyIssued: 1}), "stores")
	require.ErrorIs(t, err, shared.ErrNotFound, "unknown part")
}

func TestIssueMIRPostsOutMovements(t *testing.T) {
	bolt := newPart("BOLT", 50, "2.00")
	nut := newPart("NUT", 8, "1.00")
	svc, repo := newFixture(bolt, nut)
	ctx := context.Background()

	m, err := svc.Create(ctx, mirInput(
		LineInput{PartID: bolt.PartID, QtyIssued: 20},
		LineInput{PartID: nut.PartID, QtyIssued: 8, UnitRate: decimal.RequireFromString("1.25")},
	), "stores")
	require.NoError(t, err)
	require.Empty(t, repo.state.movements, "creation does not move stock")

	issued, err := svc.Issue(ctx, m.ID, "storekeeper")
	require.NoError(t, err)
	require.Equal(t, StatusIssued, issued.Status)
	require.Equal(t, "storekeeper", repo.state.mirs[m.ID].IssuedBy)

	require.Equal(t, 30, repo.state.parts[bolt.PartID].CurrentStock)
	require.Equal(t, 0, repo.state.parts[nut.PartID].CurrentStock)
	require.Len(t, repo.state.movements, 2)
	for _, mv := range repo.state.movements {
		require.Equal(t, inventory.MovementOut, mv.Type)
		require.Equal(t, inventory.ReferenceMIR, mv.ReferenceType)
		require.Equal(t, m.ID, *mv.ReferenceID)
		if mv.PartID == nut.PartID {
			require.Equal(t, "1.25", mv.UnitRate.String())
		}
	}

	_, err = svc.Issue(ctx, m.ID, "storekeeper")
	require.ErrorIs(t, err, shared.ErrInvalidState)
	_, err = svc.Cancel(ctx, m.ID, "", "storekeeper")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestIssueWithInsufficientStockLeavesMIRPending(t *testing.T) {
	bolt := newPart("BOLT", 50, "2.00")
	nut := newPart("NUT", 3, "1.00")
	svc, repo := newFixture(bolt, nut)
	ctx := context.Background()

	m, err := svc.Create(ctx, mirInput(
		LineInput{PartID: bolt.PartID, QtyIssued: 5},
		LineInput{PartID: nut.PartID, QtyIssued: 4},
	), "stores")
	require.NoError(t, err)

	_, err = svc.Issue(ctx, m.ID, "storekeeper")
	require.ErrorIs(t, err, inventory.ErrNegativeStock)

	require.Equal(t, StatusPending, repo.state.mirs[m.ID].Status)
	require.Equal(t, 50, repo.state.parts[bolt.PartID].CurrentStock)
	require.Empty(t, repo.state.movements)
}

func TestCancelMIR(t *testing.T) {
	bolt := newPart("BOLT", 5, "2.00")
	svc, repo := newFixture(bolt)
	ctx := context.Background()
	m, err := svc.Create(ctx, mirInput(LineInput{PartID: bolt.PartID, QtyIssued: 1}), "stores")
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, m.ID, "  duplicate request ", "stores")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Equal(t, "duplicate request", repo.state.mirs[m.ID].Remarks)

	_, err = svc.Issue(ctx, m.ID, "stores")
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Equal(t, 5, repo.state.parts[bolt.PartID].CurrentStock)

	_, err = svc.Cancel(ctx, uuid.New(), "", "stores")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListMIRsSearch(t *testing.T) {
	bolt := newPart("BOLT", 5, "2.00")
	svc, _ := newFixture(bolt)
	ctx := context.Background()
	_, err := svc.Create(ctx, mirInput(LineInput{PartID: bolt.PartID, QtyIssued: 1}), "stores")
	require.NoError(t, err)
	other := mirInput(LineInput{PartID: bolt.PartID, QtyIssued: 1})
	other.RequestedBy = "Zoë Okafor"
	_, err = svc.Create(ctx, other, "stores")
	require.NoError(t, err)

	page, err := svc.List(ctx, ListFilters{Search: "ZOË"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "Zoë Okafor", page.Items[0].RequestedBy)

	page, err = svc.List(ctx, ListFilters{Search: "assembly", Status: "pending"})
	require.NoError(t, err)
	require.Equal(t, 2, page.Pagination.Total)

	page, err = svc.List(ctx, ListFilters{Status: "issued"})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}
