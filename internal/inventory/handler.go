package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/platform/httpx"
)

// Handler exposes ledger endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock-movements", h.listMovements)
	r.Post("/stock-movements", h.postAdjustment)
	r.Get("/parts/{id}/stock-card", h.stockCard)
	r.Post("/inventory/reconcile", h.reconcile)
}

type adjustmentRequest struct {
	PartID       string          `json:"part_id" validate:"required,uuid"`
	MovementType string          `json:"movement_type" validate:"required,oneof=IN OUT"`
	Quantity     int             `json:"quantity" validate:"required,min=1"`
	UnitRate     decimal.Decimal `json:"unit_rate"`
	MovementDate string          `json:"movement_date"`
	Remarks      string          `json:"remarks" validate:"max=500"`
	CreatedBy    string          `json:"created_by"`
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := MovementFilter{
		Type:          MovementType(q.Get("movement_type")),
		ReferenceType: ReferenceType(q.Get("reference_type")),
	}
	var err error
	if filter.PartID, err = httpx.QueryUUID(r, "part_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.ReferenceID, err = httpx.QueryUUID(r, "reference_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.From, err = httpx.ParseDate("from", q.Get("from")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.To, err = httpx.ParseDate("to", q.Get("to")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	movements, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list movements", err)
		return
	}
	if movements == nil {
		movements = []Movement{}
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) postAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := httpx.ParseDate("movement_date", req.MovementDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := AdjustmentInput{
		Type:           MovementType(req.MovementType),
		Quantity:       req.Quantity,
		UnitRate:       req.UnitRate,
		MovementDate:   date,
		Remarks:        req.Remarks,
		CreatedBy:      req.CreatedBy,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	_ = input.PartID.UnmarshalText([]byte(req.PartID))

	movement, err := h.service.PostAdjustment(r.Context(), input)
	if err != nil {
		h.fail(w, r, "post adjustment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) stockCard(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	card, err := h.service.StockCard(r.Context(), id)
	if err != nil {
		h.fail(w, r, "stock card", err)
		return
	}
	httpx.JSON(w, http.StatusOK, card)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	fix := r.URL.Query().Get("fix") == "true"
	report, err := h.service.Reconcile(r.Context(), fix)
	if err != nil {
		h.fail(w, r, "reconcile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !httpx.IsClientError(err) {
		h.logger.Error("inventory: "+op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}
