package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/parts/{id}")

	req := httptest.NewRequest(http.MethodGet, "/api/parts/42", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `scm_http_requests_total{code="418",route="/api/parts/{id}"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `scm_http_request_duration_seconds_bucket{route="/api/parts/{id}"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestLedgerMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveMovement("IN", "GRR", 40)
	metrics.ObserveMovement("IN", "ADJUSTMENT", 2)
	metrics.ObserveMovement("OUT", "MIR", 5)
	metrics.ObserveDrift(3)

	body := scrape(t, metrics)
	for _, want := range []string{
		`scm_stock_movements_total{reference="GRR",type="IN"} 1`,
		`scm_stock_movements_total{reference="MIR",type="OUT"} 1`,
		`scm_stock_moved_quantity_total{type="IN"} 42`,
		`scm_stock_moved_quantity_total{type="OUT"} 5`,
		`scm_ledger_drift_parts 3`,
		`scm_ledger_reconciliations_total 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in scrape, got: %s", want, body)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveMovement("IN", "GRR", 1)
	metrics.ObserveDrift(1)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if metrics.Middleware(next) == nil {
		t.Fatal("expected passthrough handler")
	}
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
