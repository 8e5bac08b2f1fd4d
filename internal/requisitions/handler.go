package requisitions

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/platform/httpx"
)

// Handler exposes MIR endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers requisition routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/mirs", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Post("/{id}/issue", h.issue)
		r.Post("/{id}/cancel", h.cancel)
	})
}

type createRequest struct {
	Date        string        `json:"date" validate:"required"`
	Department  string        `json:"department" validate:"required"`
	RequestedBy string        `json:"requested_by" validate:"required"`
	Purpose     string        `json:"purpose"`
	Remarks     string        `json:"remarks"`
	Lines       []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type lineRequest struct {
	PartID    uuid.UUID       `json:"part_id" validate:"required"`
	QtyIssued int             `json:"qty_issued" validate:"required,min=1"`
	UnitRate  decimal.Decimal `json:"unit_rate"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), httpx.ListFilters(r))
	if err != nil {
		h.fail(w, r, "list mirs", err)
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
	m, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get mir", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := httpx.ParseDate("date", req.Date)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := CreateInput{
		Date:        date,
		Department:  req.Department,
		RequestedBy: req.RequestedBy,
		Purpose:     req.Purpose,
		Remarks:     req.Remarks,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{PartID: line.PartID, QtyIssued: line.QtyIssued, UnitRate: line.UnitRate})
	}
	m, err := h.service.Create(r.Context(), input, httpx.Actor(r))
	if err != nil {
		h.fail(w, r, "create mir", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	m, err := h.service.Issue(r.Context(), id, httpx.Actor(r))
	if err != nil {
		h.fail(w, r, "issue mir", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req cancelRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	m, err := h.service.Cancel(r.Context(), id, req.Reason, httpx.Actor(r))
	if err != nil {
		h.fail(w, r, "cancel mir", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !httpx.IsClientError(err) {
		h.logger.Error("requisitions: "+op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}
