package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scmdesk/scmdesk/internal/platform/httpx"
)

// Handler exposes the dashboard.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.overview)
	r.Get("/dashboard/charts/{name}.svg", h.chart)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.service.Overview(r.Context())
	if err != nil {
		h.fail(w, r, "overview", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ov)
}

func (h *Handler) chart(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.Chart(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.fail(w, r, "chart", err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !httpx.IsClientError(err) {
		h.logger.Error("dashboard: "+op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}
