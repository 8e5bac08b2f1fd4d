package parts

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/platform/httpx"
)

// Handler manages part and reorder level endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers part routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/parts", h.list)
	r.Post("/parts", h.create)
	r.Get("/parts/{id}", h.get)
	r.Put("/parts/{id}", h.update)
	r.Put("/parts/{id}/reorder-level", h.setReorderLevel)
	r.Get("/reorder-levels", h.listReorderLevels)
}

type partRequest struct {
	PartNo        string          `json:"part_no" validate:"required,max=64"`
	Description   string          `json:"description" validate:"required"`
	Category      string          `json:"category" validate:"required,oneof='Raw Material' 'Finished Part'"`
	UnitOfMeasure string          `json:"unit_of_measure" validate:"max=16"`
	UnitRate      decimal.Decimal `json:"unit_rate"`
	OpeningStock  int             `json:"opening_stock" validate:"gte=0"`
	MinimumStock  int             `json:"minimum_stock" validate:"gte=0"`
	OrderQuantity int             `json:"order_quantity" validate:"gte=0"`
}

func (req partRequest) input() PartInput {
	return PartInput{
		PartNo:        req.PartNo,
		Description:   req.Description,
		Category:      req.Category,
		UnitOfMeasure: req.UnitOfMeasure,
		UnitRate:      req.UnitRate,
		OpeningStock:  req.OpeningStock,
		MinimumStock:  req.MinimumStock,
		OrderQuantity: req.OrderQuantity,
	}
}

type reorderRequest struct {
	ReorderLevel  int `json:"reorder_level" validate:"gte=0"`
	MaxStockLevel int `json:"max_stock_level" validate:"gte=0"`
	LeadTimeDays  int `json:"lead_time_days" validate:"gte=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	common := httpx.ListFilters(r)
	filters := ListFilters{
		Page:        common.Page,
		PerPage:     common.PerPage,
		Search:      common.Search,
		Category:    strings.TrimSpace(r.URL.Query().Get("category")),
		StockStatus: strings.TrimSpace(r.URL.Query().Get("stock_status")),
		SortBy:      common.SortBy,
		SortDir:     common.SortDir,
	}
	page, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.fail(w, r, "list parts", err)
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
	part, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get part", err)
		return
	}
	httpx.JSON(w, http.StatusOK, part)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req partRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	part, err := h.service.Create(r.Context(), req.input(), httpx.Actor(r))
	if err != nil {
		h.fail(w, r, "create part", err)
		return
	}
	w.Header().Set("Location", "/api/parts/"+part.ID.String())
	httpx.JSON(w, http.StatusCreated, part)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req partRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	part, err := h.service.Update(r.Context(), id, req.input(), httpx.Actor(r))
	if err != nil {
		h.fail(w, r, "update part", err)
		return
	}
	httpx.JSON(w, http.StatusOK, part)
}

func (h *Handler) setReorderLevel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req reorderRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rl, err := h.service.SetReorderLevel(r.Context(), id, ReorderInput(req), httpx.Actor(r))
	if err != nil {
		h.fail(w, r, "set reorder level", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rl)
}

func (h *Handler) listReorderLevels(w http.ResponseWriter, r *http.Request) {
	var (
		rows []ReorderLevel
		err  error
	)
	if below, _ := strconv.ParseBool(r.URL.Query().Get("below")); below {
		rows, err = h.service.BelowReorderLevel(r.Context())
	} else {
		rows, err = h.service.ReorderLevels(r.Context())
	}
	if err != nil {
		h.fail(w, r, "list reorder levels", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !httpx.IsClientError(err) {
		h.logger.Error("parts: "+op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}
