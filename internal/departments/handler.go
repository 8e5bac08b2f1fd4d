package departments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scmdesk/scmdesk/internal/platform/httpx"
)

// Handler manages department endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers department routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/departments", h.list)
	r.Post("/departments", h.create)
	r.Get("/departments/{id}", h.get)
	r.Put("/departments/{id}", h.update)
}

type request struct {
	DeptCode   string `json:"dept_code" validate:"required,max=16"`
	DeptName   string `json:"dept_name" validate:"required,max=100"`
	HeadOfDept string `json:"head_of_dept"`
	CostCenter string `json:"cost_center"`
	IsActive   *bool  `json:"is_active"`
}

func (req request) input() Input {
	return Input{DeptCode: req.DeptCode, DeptName: req.DeptName, HeadOfDept: req.HeadOfDept, CostCenter: req.CostCenter, IsActive: req.IsActive}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), httpx.ListFilters(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.Create(r.Context(), req.input(), httpx.Actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req request
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.Update(r.Context(), id, req.input(), httpx.Actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !httpx.IsClientError(err) {
		h.logger.Error("departments request failed", slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}
