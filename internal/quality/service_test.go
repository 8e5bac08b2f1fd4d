package quality

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/scmdesk/scmdesk/internal/shared"
)

type memoryRepo struct {
	lines       map[uuid.UUID]GRRLine
	inspections map[uuid.UUID]Inspection
}

func newMemoryRepo(lines ...GRRLine) *memoryRepo {
	repo := &memoryRepo{lines: map[uuid.UUID]GRRLine{}, inspections: map[uuid.UUID]Inspection{}}
	for _, l := range lines {
		repo.lines[l.ID] = l
	}
	return repo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := make(map[uuid.UUID]Inspection, len(r.inspections))
	for k, v := range r.inspections {
		staged[k] = v
	}
	if err := fn(ctx, &memoryTx{repo: r, staged: staged}); err != nil {
		return err
	}
	r.inspections = staged
	return nil
}

func (r *memoryRepo) List(context.Context) ([]Inspection, error) {
	out := make([]Inspection, 0, len(r.inspections))
	for _, in := range r.inspections {
		out = append(out, in)
	}
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID) (Inspection, error) {
	in, ok := r.inspections[id]
	if !ok {
		return Inspection{}, shared.ErrNotFound
	}
	return in, nil
}

type memoryTx struct {
	repo   *memoryRepo
	staged map[uuid.UUID]Inspection
}

func (t *memoryTx) NextNumber(_ context.Context, at time.Time) (string, error) {
	stem := shared.NumberPrefix(shared.PrefixInspection, at)
	count := 0
	for _, in := range t.staged {
		if strings.HasPrefix(in.InspectionNo, stem) {
			count++
		}
	}
	return shared.DocumentNumber(shared.PrefixInspection, at.Year(), count), nil
}

func (t *memoryTx) GRRLine(_ context.Context, id uuid.UUID) (GRRLine, error) {
	l, ok := t.repo.lines[id]
	if !ok {
		return GRRLine{}, shared.ErrNotFound
	}
	return l, nil
}

func (t *memoryTx) Insert(_ context.Context, in Inspection) error {
	t.staged[in.ID] = in
	return nil
}

func (t *memoryTx) Lock(_ context.Context, id uuid.UUID) (Inspection, error) {
	in, ok := t.staged[id]
	if !ok {
		return Inspection{}, shared.ErrNotFound
	}
	return in, nil
}

func (t *memoryTx) UpdateStatus(_ context.Context, id uuid.UUID, status Status, remarks string, at time.Time) error {
	in := t.staged[id]
	in.Status, in.UpdatedAt = status, at
	if remarks != "" {
		in.Remarks = remarks
	}
	t.staged[id] = in
	return nil
}

func newFixture(lines ...GRRLine) (*Service, *memoryRepo) {
	repo := newMemoryRepo(lines...)
	svc := NewService(repo, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC) }
	return svc, repo
}

func grrLine(grrNo, partNo string, challan int) GRRLine {
	return GRRLine{ID: uuid.New(), GRRNo: grrNo, PartNo: partNo, ChallanQty: challan}
}

func TestCreateInspection(t *testing.T) {
	line := grrLine("GRR-2024-001", "BRK-PAD-01", 100)
	svc, _ := newFixture(line)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateInput{
		GRRPartID:         line.ID,
		InspectorName:     " A. Mehta ",
		QuantityInspected: 100,
		QuantityAccepted:  95,
		QuantityRejected:  5,
		Results:           TestResults{Visual: Fail},
	}, "qa")
	require.NoError(t, err)
	require.Equal(t, "QC-2024-001", first.InspectionNo)
	require.Equal(t, StatusInProgress, first.Status)
	require.Equal(t, "A. Mehta", first.InspectorName)
	require.Equal(t, "GRR-2024-001", first.GRRNo)
	require.Equal(t, TestResults{Dimensional: Pass, Visual: Fail, Mechanical: Pass}, first.Results)
	require.False(t, first.Results.AllPassed())
	require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), first.InspectionDate)

	second, err := svc.Create(ctx, CreateInput{GRRPartID: line.ID, InspectorName: "B", QuantityInspected: 10}, "qa")
	require.NoError(t, err)
	require.Equal(t, "QC-2024-002", second.InspectionNo)
}

func TestCreateInspectionValidation(t *testing.T) {
	line := grrLine("GRR-2024-001", "BRK-PAD-01", 10)
	svc, repo := newFixture(line)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{QuantityInspected: 5, QuantityAccepted: 4, QuantityRejected: 2, Results: TestResults{Visual: "Maybe"}}, "qa")
	require.ErrorIs(t, err, shared.ErrValidation)
	for _, field := range []string{"grr_part_id", "inspector_name", "quantity_accepted", "test_results.visual"} {
		require.Contains(t, err.Error(), field)
	}

	_, err = svc.Create(ctx, CreateInput{GRRPartID: line.ID, InspectorName: "A", QuantityInspected: 11}, "qa")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateInput{GRRPartID: uuid.New(), InspectorName: "A"}, "qa")
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.inspections)
}

func TestInspectionTransitions(t *testing.T) {
	line := grrLine("GRR-2024-001", "BRK-PAD-01", 10)
	svc, repo := newFixture(line)
	ctx := context.Background()

	in, err := svc.Create(ctx, CreateInput{GRRPartID: line.ID, InspectorName: "A", QuantityInspected: 10, QuantityAccepted: 10}, "qa")
	require.NoError(t, err)

	done, err := svc.Complete(ctx, in.ID, "all good", "qa")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)
	require.Equal(t, "all good", repo.inspections[in.ID].Remarks)

	_, err = svc.Fail(ctx, in.ID, "", "qa")
	require.ErrorIs(t, err, shared.ErrInvalidState)

	other, err := svc.Create(ctx, CreateInput{GRRPartID: line.ID, InspectorName: "A", QuantityInspected: 2}, "qa")
	require.NoError(t, err)
	failed, err := svc.Fail(ctx, other.ID, "cracks", "qa")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, failed.Status)
}

func TestCompleteRejectsFailedResults(t *testing.T) {
	line := grrLine("GRR-2024-001", "BRK-PAD-01", 10)
	svc, repo := newFixture(line)
	ctx := context.Background()

	in, err := svc.Create(ctx, CreateInput{
		GRRPartID:         line.ID,
		InspectorName:     "A",
		QuantityInspected: 10,
		QuantityAccepted:  8,
		QuantityRejected:  2,
		Results:           TestResults{Mechanical: Fail},
	}, "qa")
	require.NoError(t, err)

	_, err = svc.Complete(ctx, in.ID, "", "qa")
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Equal(t, StatusInProgress, repo.inspections[in.ID].Status)

	failed, err := svc.Fail(ctx, in.ID, "hardness out of range", "qa")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, failed.Status)
}

func TestSummarize(t *testing.T) {
	empty := Summarize(nil)
	require.Equal(t, 0, empty.Total)
	require.True(t, empty.PassRate.IsZero(), "no inspections gives a zero pass rate")

	sum := Summarize([]Inspection{
		{Status: StatusCompleted, QuantityInspected: 100, QuantityAccepted: 95},
		{Status: StatusCompleted, QuantityInspected: 50, QuantityAccepted: 50},
		{Status: StatusInProgress, QuantityInspected: 0},
		{Status: StatusFailed, QuantityInspected: 30, QuantityAccepted: 10},
	})
	require.Equal(t, 4, sum.Total)
	require.Equal(t, 2, sum.Completed)
	require.Equal(t, 1, sum.InProgress)
	require.Equal(t, 1, sum.Failed)
	require.Equal(t, "86.1", sum.PassRate.String())
}

func TestListInspectionsSearch(t *testing.T) {
	a := grrLine("GRR-2024-001", "BRK-PAD-01", 10)
	b := grrLine("GRR-2024-002", "ÉCROU-M8", 10)
	svc, _ := newFixture(a, b)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateInput{GRRPartID: a.ID, InspectorName: "A"}, "qa")
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{GRRPartID: b.ID, InspectorName: "A"}, "qa")
	require.NoError(t, err)

	page, err := svc.List(ctx, ListFilters{Search: "écrou"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "GRR-2024-002", page.Items[0].GRRNo)

	page, err = svc.List(ctx, ListFilters{Search: "qc-2024"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	page, err = svc.List(ctx, ListFilters{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
}

func TestHandlerInspectionFlow(t *testing.T) {
	line := grrLine("GRR-2024-001", "BRK-PAD-01", 10)
	svc, _ := newFixture(line)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	router := chi.NewRouter()
	h.MountRoutes(router)

	body := `{"grr_part_id":"` + line.ID.String() + `","inspector_name":"A","quantity_inspected":10,
		"quantity_accepted":8,"quantity_rejected":2,"test_results":{"dimensional":"Pass","visual":"Fail"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/inspections", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inspections/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"pass_rate":"80"`)

	bad := `{"grr_part_id":"` + line.ID.String() + `","inspector_name":"A","test_results":{"visual":"Maybe"}}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/inspections", strings.NewReader(bad)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
