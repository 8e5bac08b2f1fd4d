package procurement

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/scmdesk/scmdesk/internal/inventory"
	"github.com/scmdesk/scmdesk/internal/shared"
	"github.com/scmdesk/scmdesk/internal/vendors"
)

type memoryState struct {
	parts     map[uuid.UUID]inventory.PartStock
	movements []inventory.Movement
	grrs      map[uuid.UUID]GRR
	pos       map[uuid.UUID]PurchaseOrder
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		parts:     make(map[uuid.UUID]inventory.PartStock, len(s.parts)),
		movements: append([]inventory.Movement(nil), s.movements...),
		grrs:      make(map[uuid.UUID]GRR, len(s.grrs)),
		pos:       make(map[uuid.UUID]PurchaseOrder, len(s.pos)),
	}
	for k, v := range s.parts {
		out.parts[k] = v
	}
	for k, v := range s.grrs {
		v.Lines = append([]GRRLine(nil), v.Lines...)
		out.grrs[k] = v
	}
	for k, v := range s.pos {
		v.Items = append([]POItem(nil), v.Items...)
		out.pos[k] = v
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
	repo := &memoryRepo{state: memoryState{
		parts: map[uuid.UUID]inventory.PartStock{},
		grrs:  map[uuid.UUID]GRR{},
		pos:   map[uuid.UUID]PurchaseOrder{},
	}}
	for _, p := range parts {
		repo.state.parts[p.PartID] = p
	}
	return repo
}

// WithTx works on a copy of the state and keeps it only when fn succeeds.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := r.state.clone()
	if err := fn(ctx, &memoryTx{state: &staged}); err != nil {
		return err
	}
	r.state = staged
	return nil
}

func (r *memoryRepo) ListGRRs(context.Context) ([]GRR, error) {
	var out []GRR
	for _, g := range r.state.grrs {
		g.Lines = nil
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GRRNo < out[j].GRRNo })
	return out, nil
}

func (r *memoryRepo) GetGRR(_ context.Context, id uuid.UUID) (GRR, error) {
	g, ok := r.state.grrs[id]
	if !ok {
		return GRR{}, shared.ErrNotFound
	}
	return g, nil
}

func (r *memoryRepo) ListPOs(context.Context) ([]PurchaseOrder, error) {
	var out []PurchaseOrder
	for _, po := range r.state.pos {
		out = append(out, po)
	}
	return out, nil
}

func (r *memoryRepo) GetPO(_ context.Context, id uuid.UUID) (PurchaseOrder, error) {
	po, ok := r.state.pos[id]
	if !ok {
		return PurchaseOrder{}, shared.ErrNotFound
	}
	return po, nil
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

func (t *memoryTx) NextNumber(_ context.Context, prefix string, at time.Time) (string, error) {
	stem := shared.NumberPrefix(prefix, at)
	count := 0
	for _, g := range t.state.grrs {
		if len(g.GRRNo) >= len(stem) && g.GRRNo[:len(stem)] == stem {
			count++
		}
	}
	for _, po := range t.state.pos {
		if len(po.PONo) >= len(stem) && po.PONo[:len(stem)] == stem {
			count++
		}
	}
	return shared.DocumentNumber(prefix, at.Year(), count), nil
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

func (t *memoryTx) InsertGRR(_ context.Context, g GRR) error {
	g.Lines = nil
	t.state.grrs[g.ID] = g
	return nil
}

func (t *memoryTx) InsertGRRLine(_ context.Context, l GRRLine) error {
	g := t.state.grrs[l.GRRID]
	g.Lines = append(g.Lines, l)
	t.state.grrs[l.GRRID] = g
	return nil
}

func (t *memoryTx) LockGRR(_ context.Context, id uuid.UUID) (GRR, error) {
	g, ok := t.state.grrs[id]
	if !ok {
		return GRR{}, shared.ErrNotFound
	}
	g.Lines = append([]GRRLine(nil), g.Lines...)
	return g, nil
}

func (t *memoryTx) UpdateGRRStatus(_ context.Context, id uuid.UUID, status GRRStatus, total decimal.Decimal, remarks string, at time.Time) error {
	g := t.state.grrs[id]
	g.Status, g.TotalValue, g.UpdatedAt = status, total, at
	if remarks != "" {
		g.Remarks = remarks
	}
	t.state.grrs[id] = g
	return nil
}

func (t *memoryTx) UpdateGRRLine(_ context.Context, l GRRLine) error {
	g := t.state.grrs[l.GRRID]
	for i := range g.Lines {
		if g.Lines[i].ID == l.ID {
			g.Lines[i].AcceptedQty, g.Lines[i].RejectedQty = l.AcceptedQty, l.RejectedQty
		}
	}
	t.state.grrs[l.GRRID] = g
	return nil
}

func (t *memoryTx) InsertPO(_ context.Context, po PurchaseOrder) error {
	t.state.pos[po.ID] = po
	return nil
}

func (t *memoryTx) InsertPOItem(_ context.Context, item POItem) error {
	po := t.state.pos[item.POID]
	po.Items = append(po.Items, item)
	t.state.pos[item.POID] = po
	return nil
}

func (t *memoryTx) LockPO(_ context.Context, id uuid.UUID) (PurchaseOrder, error) {
	po, ok := t.state.pos[id]
	if !ok {
		return PurchaseOrder{}, shared.ErrNotFound
	}
	return po, nil
}

func (t *memoryTx) UpdatePOStatus(_ context.Context, id uuid.UUID, status POStatus, approvedBy string, at time.Time) error {
	po := t.state.pos[id]
	po.Status, po.UpdatedAt = status, at
	if approvedBy != "" {
		po.ApprovedBy = approvedBy
	}
	t.state.pos[id] = po
	return nil
}

type failingLedger struct{}

func (failingLedger) PostWithin(context.Context, inventory.LedgerTx, []inventory.MovementInput) ([]inventory.Movement, error) {
	return nil, inventory.ErrNegativeStock
}

type fixedRates struct {
	rate decimal.Decimal
}

func (f fixedRates) EffectiveRate(_ context.Context, vendorID, partID uuid.UUID, _ time.Time) (vendors.Rate, error) {
	if f.rate.IsZero() {
		return vendors.Rate{}, shared.ErrNotFound
	}
	return vendors.Rate{VendorID: vendorID, PartID: partID, Rate: f.rate, IsActive: true}, nil
}

var clock = func() time.Time { return time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC) }

func newPart(no string, opening int, rate string) inventory.PartStock {
	return inventory.PartStock{PartID: uuid.New(), PartNo: no, OpeningStock: opening, CurrentStock: opening, UnitRate: decimal.RequireFromString(rate)}
}

func newFixture(parts ...inventory.PartStock) (*Service, *memoryRepo) {
	repo := newMemoryRepo(parts...)
	ledger := inventory.NewService(nil, nil, nil, nil, inventory.ServiceConfig{Clock: clock})
	svc := NewService(repo, ledger, fixedRates{}, nil, nil)
	svc.now = clock
	return svc, repo
}

func grrInput(lines ...GRRLineInput) CreateGRRInput {
	return CreateGRRInput{
		ChallanDate:     time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC),
		TransporterName: "Blue Dart",
		POReference:     "PO-2024-001",
		CreatedBy:       "stores",
		Lines:           lines,
	}
}

func TestCreateGRRNumbersSequentially(t *testing.T) {
	bolt := newPart("BOLT", 0, "2.50")
	svc, _ := newFixture(bolt)
	ctx := context.Background()

	first, err := svc.CreateGRR(ctx, grrInput(GRRLineInput{PartID: bolt.PartID, ChallanQty: 100}))
	require.NoError(t, err)
	second, err := svc.CreateGRR(ctx, grrInput(GRRLineInput{PartID: bolt.PartID, ChallanQty: 10}))
	require.NoError(t, err)

	require.Equal(t, "GRR-2024-001", first.GRRNo)
	require.Equal(t, "GRR-2024-002", second.GRRNo)
	require.Equal(t, GRRPendingInspection, first.Status)
	require.Equal(t, "250", first.TotalValue.String())
}

func TestCreateGRRValidation(t *testing.T) {
	svc, _ := newFixture()
	_, err := svc.CreateGRR(context.Background(), CreateGRRInput{})
	require.ErrorIs(t, err, shared.ErrValidation)
	for _, field := range []string{"challan_date", "transporter_name", "po_reference", "lines"} {
		require.Contains(t, err.Error(), field)
	}

	_, err = svc.CreateGRR(context.Background(), grrInput(GRRLineInput{PartID: uuid.New(), ChallanQty: 1}))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGRRLifecyclePostsAcceptedQuantities(t *testing.T) {
	bolt := newPart("BOLT", 10, "2.00")
	nut := newPart("NUT", 5, "1.00")
	svc, repo := newFixture(bolt, nut)
	ctx := context.Background()

	grr, err := svc.CreateGRR(ctx, grrInput(
		GRRLineInput{PartID: bolt.PartID, ChallanQty: 100},
		GRRLineInput{PartID: nut.PartID, ChallanQty: 40},
	))
	require.NoError(t, err)

	_, err = svc.AcceptGRR(ctx, grr.ID, "qa")
	require.ErrorIs(t, err, shared.ErrInvalidState, "must pass quality check first")

	_, err = svc.RecordLineResults(ctx, grr.ID, []LineResult{{LineID: grr.Lines[0].ID, AcceptedQty: 1}}, "qa")
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.StartQualityCheck(ctx, grr.ID, "qa")
	require.NoError(t, err)

	_, err = svc.RecordLineResults(ctx, grr.ID, []LineResult{{LineID: grr.Lines[0].ID, AcceptedQty: 90, RejectedQty: 20}}, "qa")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordLineResults(ctx, grr.ID, []LineResult{
		{LineID: grr.Lines[0].ID, AcceptedQty: 90, RejectedQty: 10},
		{LineID: grr.Lines[1].ID, AcceptedQty: 0, RejectedQty: 40},
	}, "qa")
	require.NoError(t, err)

	accepted, err := svc.AcceptGRR(ctx, grr.ID, "qa")
	require.NoError(t, err)
	require.Equal(t, GRRAccepted, accepted.Status)
	require.Equal(t, "180", accepted.TotalValue.String())

	require.Equal(t, 100, repo.state.parts[bolt.PartID].CurrentStock)
	require.Equal(t, 5, repo.state.parts[nut.PartID].CurrentStock)
	require.Len(t, repo.state.movements, 1)
	m := repo.state.movements[0]
	require.Equal(t, inventory.ReferenceGRR, m.ReferenceType)
	require.Equal(t, grr.ID, *m.ReferenceID)
	require.True(t, m.UnitRate.Equal(decimal.RequireFromString("2.00")))

	_, err = svc.RejectGRR(ctx, grr.ID, "late", "qa")
	require.ErrorIs(t, err, shared.ErrInvalidState, "accepted is terminal")
}

func TestAcceptGRRWithoutResultsAcceptsChallanQuantity(t *testing.T) {
	bolt := newPart("BOLT", 0, "1.00")
	svc, repo := newFixture(bolt)
	ctx := context.Background()

	grr, err := svc.CreateGRR(ctx, grrInput(GRRLineInput{PartID: bolt.PartID, ChallanQty: 25}))
	require.NoError(t, err)
	_, err = svc.StartQualityCheck(ctx, grr.ID, "qa")
	require.NoError(t, err)
	_, err = svc.AcceptGRR(ctx, grr.ID, "qa")
	require.NoError(t, err)

	require.Equal(t, 25, repo.state.parts[bolt.PartID].CurrentStock)
	require.Equal(t, 25, repo.state.grrs[grr.ID].Lines[0].AcceptedQty)
}

func TestFailedPostingLeavesGRRUnchanged(t *testing.T) {
	bolt := newPart("BOLT", 0, "1.00")
	svc, repo := newFixture(bolt)
	ctx := context.Background()
	grr, err := svc.CreateGRR(ctx, grrInput(GRRLineInput{PartID: bolt.PartID, ChallanQty: 5}))
	require.NoError(t, err)
	_, err = svc.StartQualityCheck(ctx, grr.ID, "qa")
	require.NoError(t, err)

	svc.ledger = failingLedger{}
	_, err = svc.AcceptGRR(ctx, grr.ID, "qa")
	require.Error(t, err)

	require.Equal(t, GRRQualityCheck, repo.state.grrs[grr.ID].Status)
	require.Equal(t, 0, repo.state.grrs[grr.ID].Lines[0].AcceptedQty)
	require.Empty(t, repo.state.movements)
}

func TestRejectGRRKeepsStock(t *testing.T) {
	bolt := newPart("BOLT", 7, "1.00")
	svc, repo := newFixture(bolt)
	ctx := context.Background()
	grr, err := svc.CreateGRR(ctx, grrInput(GRRLineInput{PartID: bolt.PartID, ChallanQty: 5}))
	require.NoError(t, err)
	_, err = svc.RejectGRR(ctx, grr.ID, "damaged", "qa")
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.StartQualityCheck(ctx, grr.ID, "qa")
	require.NoError(t, err)
	rejected, err := svc.RejectGRR(ctx, grr.ID, "damaged", "qa")
	require.NoError(t, err)
	require.Equal(t, GRRRejected, rejected.Status)
	require.Equal(t, "damaged", repo.state.grrs[grr.ID].Remarks)
	require.Equal(t, 7, repo.state.parts[bolt.PartID].CurrentStock)
}

func TestListGRRsSearchAndStatus(t *testing.T) {
	bolt := newPart("BOLT", 0, "1.00")
	svc, _ := newFixture(bolt)
	ctx := context.Background()
	a, err := svc.CreateGRR(ctx, grrInput(GRRLineInput{PartID: bolt.PartID, ChallanQty: 1}))
	require.NoError(t, err)
	other := grrInput(GRRLineInput{PartID: bolt.PartID, ChallanQty: 1})
	other.POReference = "PO-2024-777"
	_, err = svc.CreateGRR(ctx, other)
	require.NoError(t, err)
	_, err = svc.StartQualityCheck(ctx, a.ID, "qa")
	require.NoError(t, err)

	page, err := svc.ListGRRs(ctx, ListFilters{Search: "777"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	page, err = svc.ListGRRs(ctx, ListFilters{Status: "quality check"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, a.ID, page.Items[0].ID)

	page, err = svc.ListGRRs(ctx, ListFilters{Search: "grr-2024", SortBy: "grr_no"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, "GRR-2024-001", page.Items[0].GRRNo)
}

func TestPurchaseOrderLifecycle(t *testing.T) {
	bolt := newPart("BOLT", 0, "1.00")
	svc, _ := newFixture(bolt)
	svc.rates = fixedRates{rate: decimal.RequireFromString("3.25")}
	ctx := context.Background()
	vendorID := uuid.New()

	po, err := svc.CreatePurchaseOrder(ctx, CreatePOInput{
		VendorID: vendorID,
		Items: []POItemInput{
			{PartID: bolt.PartID, Quantity: 10, UnitRate: decimal.RequireFromString("4.00")},
			{PartID: bolt.PartID, Quantity: 4},
		},
		CreatedBy: "buyer",
	})
	require.NoError(t, err)
	require.Equal(t, "PO-2024-001", po.PONo)
	require.Equal(t, PODraft, po.Status)
	require.Equal(t, "53", po.TotalAmount.String())
	require.Equal(t, "13", po.Items[1].TotalAmount.String())

	_, err = svc.ClosePurchaseOrder(ctx, po.ID, "buyer")
	require.ErrorIs(t, err, shared.ErrInvalidState)

	approved, err := svc.ApprovePurchaseOrder(ctx, po.ID, "manager")
	require.NoError(t, err)
	require.Equal(t, POApproved, approved.Status)
	require.Equal(t, "manager", approved.ApprovedBy)

	closed, err := svc.ClosePurchaseOrder(ctx, po.ID, "buyer")
	require.NoError(t, err)
	require.Equal(t, POClosed, closed.Status)

	_, err = svc.CancelPurchaseOrder(ctx, po.ID, "buyer")
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestPurchaseOrderValidation(t *testing.T) {
	svc, _ := newFixture()
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		DeliveryDate: &past,
		Items:        []POItemInput{{Quantity: 0}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	for _, field := range []string{"vendor_id", "delivery_date", "items[0].part_id", "items[0].quantity"} {
		require.Contains(t, err.Error(), field)
	}

	draft, err := svc.CreatePurchaseOrder(context.Background(), CreatePOInput{
		VendorID: uuid.New(),
		Items:    []POItemInput{{PartID: uuid.New(), Quantity: 1}},
	})
	require.NoError(t, err)
	require.True(t, draft.TotalAmount.IsZero(), "no rate on file leaves the item unpriced")
	cancelled, err := svc.CancelPurchaseOrder(context.Background(), draft.ID, "buyer")
	require.NoError(t, err)
	require.Equal(t, POCancelled, cancelled.Status)
}
