package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/scmdesk/scmdesk/internal/dashboard"
	"github.com/scmdesk/scmdesk/internal/departments"
	"github.com/scmdesk/scmdesk/internal/export"
	"github.com/scmdesk/scmdesk/internal/inventory"
	"github.com/scmdesk/scmdesk/internal/observability"
	"github.com/scmdesk/scmdesk/internal/parts"
	"github.com/scmdesk/scmdesk/internal/procurement"
	"github.com/scmdesk/scmdesk/internal/quality"
	"github.com/scmdesk/scmdesk/internal/realtime"
	"github.com/scmdesk/scmdesk/internal/requisitions"
	"github.com/scmdesk/scmdesk/internal/vendors"
	"github.com/scmdesk/scmdesk/jobs"
	"github.com/scmdesk/scmdesk/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	VendorsHandler      *vendors.Handler
	PartsHandler        *parts.Handler
	DepartmentsHandler  *departments.Handler
	ProcurementHandler  *procurement.Handler
	RequisitionsHandler *requisitions.Handler
	QualityHandler      *quality.Handler
	InventoryHandler    *inventory.Handler
	DashboardHandler    *dashboard.Handler
	ExportHandler       *export.Handler
	ReportHandler       *report.Handler
	JobHandler          *jobs.Handler
	Hub                 *realtime.Hub
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with the scmdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	mw := MiddlewareConfig{Logger: params.Logger, Config: params.Config, Metrics: params.Metrics}
	for _, m := range BaseStack(mw) {
		r.Use(m)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		for _, m := range APIStack(mw) {
			r.Use(m)
		}
		if params.VendorsHandler != nil {
			params.VendorsHandler.MountRoutes(r)
		}
		if params.PartsHandler != nil {
			params.PartsHandler.MountRoutes(r)
		}
		if params.DepartmentsHandler != nil {
			params.DepartmentsHandler.MountRoutes(r)
		}
		if params.ProcurementHandler != nil {
			params.ProcurementHandler.MountRoutes(r)
		}
		if params.RequisitionsHandler != nil {
			params.RequisitionsHandler.MountRoutes(r)
		}
		if params.QualityHandler != nil {
			params.QualityHandler.MountRoutes(r)
		}
		if params.InventoryHandler != nil {
			params.InventoryHandler.MountRoutes(r)
		}
		if params.DashboardHandler != nil {
			params.DashboardHandler.MountRoutes(r)
		}
		if params.ExportHandler != nil {
			params.ExportHandler.MountRoutes(r)
		}
		if params.ReportHandler != nil {
			params.ReportHandler.MountRoutes(r)
		}
	})

	// The websocket feed is long-lived and stays outside the API deadline.
	if params.Hub != nil {
		r.Handle("/ws", params.Hub)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}
