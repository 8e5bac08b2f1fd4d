package procurement

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/platform/httpx"
)

// Handler manages procurement endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/grrs", func(r chi.Router) {
		r.Get("/", h.listGRRs)
		r.Post("/", h.createGRR)
		r.Get("/{id}", h.getGRR)
		r.Post("/{id}/quality-check", h.startQualityCheck)
		r.Put("/{id}/lines", h.recordLineResults)
		r.Post("/{id}/accept", h.acceptGRR)
		r.Post("/{id}/reject", h.rejectGRR)
	})
	r.Route("/purchase-orders", func(r chi.Router) {
		r.Get("/", h.listPOs)
		r.Post("/", h.createPO)
		r.Get("/{id}", h.getPO)
		r.Post("/{id}/approve", h.approvePO)
		r.Post("/{id}/cancel", h.cancelPO)
		r.Post("/{id}/close", h.closePO)
	})
}

type grrRequest struct {
	ChallanDate     string           `json:"challan_date" validate:"required"`
	TransporterName string           `json:"transporter_name" validate:"required"`
	POReference     string           `json:"po_reference" validate:"required"`
	VendorID        *uuid.UUID       `json:"vendor_id"`
	Remarks         string           `json:"remarks"`
	Lines           []grrLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type grrLineRequest struct {
	PartID     uuid.UUID `json:"part_id" validate:"required"`
	ChallanQty int       `json:"challan_qty" validate:"required,min=1"`
}

type lineResultsRequest struct {
	Results []struct {
		LineID      uuid.UUID `json:"line_id" validate:"required"`
		AcceptedQty int       `json:"accepted_qty" validate:"gte=0"`
		RejectedQty int       `json:"rejected_qty" validate:"gte=0"`
	} `json:"results" validate:"required,min=1,dive"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type poRequest struct {
	PODate          string          `json:"po_date"`
	VendorID        uuid.UUID       `json:"vendor_id" validate:"required"`
	DeliveryDate    string          `json:"delivery_date"`
	TermsConditions string          `json:"terms_conditions"`
	Items           []poItemRequest `json:"items" validate:"required,min=1,dive"`
}

type poItemRequest struct {
	PartID         uuid.UUID       `json:"part_id" validate:"required"`
	Quantity       int             `json:"quantity" validate:"required,min=1"`
	UnitRate       decimal.Decimal `json:"unit_rate"`
	DeliveryDate   string          `json:"delivery_date"`
	Specifications string          `json:"specifications"`
}

func (h *Handler) listGRRs(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListGRRs(r.Context(), httpx.ListFilters(r))
	if err != nil {
		h.fail(w, r, "list grrs", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) getGRR(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	grr, err := h.service.GetGRR(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get grr", err)
		return
	}
	httpx.JSON(w, http.StatusOK, grr)
}

func (h *Handler) createGRR(w http.ResponseWriter, r *http.Request) {
	var req grrRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	challanDate, err := httpx.ParseDate("challan_date", req.ChallanDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := CreateGRRInput{
		ChallanDate:     challanDate,
		TransporterName: req.TransporterName,
		POReference:     req.POReference,
		VendorID:        req.VendorID,
		Remarks:         req.Remarks,
		CreatedBy:       httpx.Actor(r),
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, GRRLineInput{PartID: line.PartID, ChallanQty: line.ChallanQty})
	}
	grr, err := h.service.CreateGRR(r.Context(), input)
	if err != nil {
		h.fail(w, r, "create grr", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grr)
}

func (h *Handler) startQualityCheck(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	grr, err := h.service.StartQualityCheck(r.Context(), id, httpx.Actor(r))
	if err != nil {
		h.fail(w, r, "start quality check", err)
		return
	}
	httpx.JSON(w, http.StatusOK, grr)
}

func (h *Handler) recordLineResults(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req lineResultsRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	results := make([]LineResult, 0, len(req.Results))
	for _, res := range req.Results {
		results = append(results, LineResult{LineID: res.LineID, AcceptedQty: res.AcceptedQty, RejectedQty: res.RejectedQty})
	}
	grr, err := h.service.RecordLineResults(r.Context(), id, results, httpx.Actor(r))
	if err != nil {
		h.fail(w, r, "record line results", err)
		return
	}
	httpx.JSON(w, http.StatusOK, grr)
}

func (h *Handler) acceptGRR(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	grr, err := h.service.AcceptGRR(r.Context(), id, httpx.Actor(r))
	if err != nil {
		h.fail(w, r, "accept grr", err)
		return
	}
	httpx.JSON(w, http.StatusOK, grr)
}

func (h *Handler) rejectGRR(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req rejectRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	grr, err := h.service.RejectGRR(r.Context(), id, req.Reason, httpx.Actor(r))
	if err != nil {
		h.fail(w, r, "reject grr", err)
		return
	}
	httpx.JSON(w, http.StatusOK, grr)
}

func (h *Handler) listPOs(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListPurchaseOrders(r.Context(), httpx.ListFilters(r))
	if err != nil {
		h.fail(w, r, "list purchase orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) getPO(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, err := h.service.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) createPO(w http.ResponseWriter, r *http.Request) {
	var req poRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	poDate, err := httpx.ParseDate("po_date", req.PODate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := CreatePOInput{PODate: poDate, VendorID: req.VendorID, TermsConditions: req.TermsConditions, CreatedBy: httpx.Actor(r)}
	if input.DeliveryDate, err = optionalDate("delivery_date", req.DeliveryDate); err != nil {
		httpx.RespondError(w, err)
		return
	}
	for _, item := range req.Items {
		delivery, err := optionalDate("items.delivery_date", item.DeliveryDate)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		input.Items = append(input.Items, POItemInput{
			PartID:         item.PartID,
			Quantity:       item.Quantity,
			UnitRate:       item.UnitRate,
			DeliveryDate:   delivery,
			Specifications: item.Specifications,
		})
	}
	po, err := h.service.CreatePurchaseOrder(r.Context(), input)
	if err != nil {
		h.fail(w, r, "create purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) approvePO(w http.ResponseWriter, r *http.Request) {
	h.transitionPO(w, r, "approve purchase order", h.service.ApprovePurchaseOrder)
}

func (h *Handler) cancelPO(w http.ResponseWriter, r *http.Request) {
	h.transitionPO(w, r, "cancel purchase order", h.service.CancelPurchaseOrder)
}

func (h *Handler) closePO(w http.ResponseWriter, r *http.Request) {
	h.transitionPO(w, r, "close purchase order", h.service.ClosePurchaseOrder)
}

func (h *Handler) transitionPO(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, uuid.UUID, string) (PurchaseOrder, error)) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, err := fn(r.Context(), id, httpx.Actor(r))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func optionalDate(field, value string) (*time.Time, error) {
	t, err := httpx.ParseDate(field, value)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !httpx.IsClientError(err) {
		h.logger.Error("procurement: "+op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}
