package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/scmdesk/scmdesk/internal/display"
	"github.com/scmdesk/scmdesk/internal/listcache"
	"github.com/scmdesk/scmdesk/internal/parts"
	"github.com/scmdesk/scmdesk/internal/procurement"
	"github.com/scmdesk/scmdesk/internal/vendors"
)

type stubParts struct {
	rows  []parts.Part
	calls int
}

func (s *stubParts) All(context.Context) ([]parts.Part, error) {
	s.calls++
	return s.rows, nil
}

type stubVendors []vendors.Vendor

func (s stubVendors) All(context.Context) ([]vendors.Vendor, error) { return s, nil }

type stubGRRs []procurement.GRR

func (s stubGRRs) AllGRRs(context.Context) ([]procurement.GRR, error) { return s, nil }

type stubTrend struct {
	rows  []MonthTotal
	since time.Time
	err   error
}

func (s *stubTrend) MonthlyTotals(_ context.Context, since time.Time) ([]MonthTotal, error) {
	s.since = since
	return s.rows, s.err
}

var now = time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)

func part(no, category string, current, minimum int, rate string) parts.Part {
	return parts.Part{ID: uuid.New(), PartNo: no, Category: category, CurrentStock: current, MinimumStock: minimum, UnitRate: decimal.RequireFromString(rate)}
}

func fixture() (*stubParts, stubVendors, stubGRRs, *stubTrend) {
	acme := vendors.Vendor{ID: uuid.New(), VendorCode: "V-ACME", Name: "Acme", Rating: decimal.RequireFromString("4.6"), Status: vendors.StatusActive}
	bolt := vendors.Vendor{ID: uuid.New(), VendorCode: "V-BOLT", Name: "Bolt Co", Rating: decimal.RequireFromString("3.2"), Status: vendors.StatusInactive}
	p := &stubParts{rows: []parts.Part{
		part("STEEL", parts.CategoryRawMaterial, 10, 10, "100.00"),
		part("WIRE", parts.CategoryRawMaterial, 15, 10, "2.50"),
		part("GEAR", parts.CategoryFinishedPart, 1000, 10, "1234.50"),
	}}
	grrs := stubGRRs{
		{VendorID: &acme.ID, Status: procurement.GRRAccepted},
		{VendorID: &acme.ID, Status: procurement.GRRQualityCheck},
		{VendorID: &bolt.ID, Status: procurement.GRRPendingInspection},
		{Status: procurement.GRRRejected},
	}
	trend := &stubTrend{rows: []MonthTotal{
		{Month: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), In: 40, Out: 10},
		{Month: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), In: 5, Out: 25},
	}}
	return p, stubVendors{bolt, acme}, grrs, trend
}

func newService(t *testing.T, cache *listcache.Cache) (*Service, *stubParts, *stubTrend) {
	t.Helper()
	p, v, g, tr := fixture()
	svc := NewService(p, v, g, tr, cache, language.English)
	svc.now = func() time.Time { return now }
	return svc, p, tr
}

func TestOverviewAggregates(t *testing.T) {
	svc, _, trend := newService(t, nil)
	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)

	require.Equal(t, 3, ov.KPIs.TotalParts)
	require.Equal(t, 1, ov.KPIs.ActiveVendors)
	require.Equal(t, 2, ov.KPIs.PendingGRRs)
	require.Equal(t, 2, ov.KPIs.LowStockItems, "STEEL is critical and WIRE is low")
	require.Equal(t, "1235537.5", ov.KPIs.StockValue.String())
	require.Equal(t, "1,235,537.50", ov.KPIs.StockValueLabel)

	require.Len(t, ov.Categories, 2)
	require.Equal(t, parts.CategoryFinishedPart, ov.Categories[0].Category)
	require.Equal(t, 2, ov.Categories[1].Parts)
	require.Equal(t, 25, ov.Categories[1].Units)

	require.Len(t, ov.Vendors, 2)
	require.Equal(t, "Acme", ov.Vendors[0].Name)
	require.Equal(t, display.RatingExcellent, ov.Vendors[0].Bucket)
	require.Equal(t, 2, ov.Vendors[0].GRRs)
	require.Equal(t, 1, ov.Vendors[0].AcceptedGRRs)
	require.Equal(t, display.RatingPoor, ov.Vendors[1].Bucket)

	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), trend.since)
	require.Len(t, ov.Trend, TrendMonths)
	require.Equal(t, MonthTrend{Month: "2024-01"}, ov.Trend[0])
	require.Equal(t, MonthTrend{Month: "2024-02", Received: 40, Issued: 10}, ov.Trend[1])
	require.Equal(t, MonthTrend{Month: "2024-06", Received: 5, Issued: 25}, ov.Trend[5])
}

func TestOverviewCachedUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := listcache.New(client, time.Minute)
	svc, p, _ := newService(t, cache)
	ctx := context.Background()

	_, err := svc.Overview(ctx)
	require.NoError(t, err)
	_, err = svc.Overview(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, p.calls)

	require.NoError(t, cache.Invalidate(ctx, listcache.StockMovements))
	_, err = svc.Overview(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, p.calls)
}

func TestOverviewPropagatesSourceErrors(t *testing.T) {
	svc, _, trend := newService(t, nil)
	trend.err = errors.New("db down")
	_, err := svc.Overview(context.Background())
	require.ErrorContains(t, err, "db down")
}

func TestChartsHandler(t *testing.T) {
	svc, _, _ := newService(t, nil)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	h.MountRoutes(r)

	for _, name := range []string{ChartMonthlyTrend, ChartNetFlow, ChartCategories} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/charts/"+name+".svg", nil))
		require.Equal(t, http.StatusOK, rec.Code, name)
		require.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
		require.True(t, strings.HasPrefix(rec.Body.String(), "<svg"), name)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/charts/pie.svg", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"pending_grrs":2`)
}
