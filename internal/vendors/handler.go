package vendors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scmdesk/scmdesk/internal/platform/httpx"
)

// Handler manages vendor endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers vendor routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/vendors", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Get("/rates", h.listRates)
			r.Post("/rates", h.createRate)
			r.Get("/rates/effective", h.effectiveRate)
			r.Get("/parts", h.listParts)
			r.Post("/parts", h.linkPart)
			r.Delete("/parts/{partID}", h.unlinkPart)
		})
	})
	r.Post("/vendor-rates/{id}/deactivate", h.deactivateRate)
}

type vendorRequest struct {
	VendorCode   string          `json:"vendor_code" validate:"required,max=32"`
	Name         string          `json:"name" validate:"required,max=200"`
	Address      string          `json:"address" validate:"required"`
	Phone        string          `json:"phone" validate:"max=32"`
	Email        string          `json:"email" validate:"omitempty,email"`
	PaymentTerms string          `json:"payment_terms"`
	Rating       decimal.Decimal `json:"rating"`
	Status       string          `json:"status" validate:"omitempty,oneof=Active Inactive"`
}

func (req vendorRequest) input() VendorInput {
	return VendorInput{
		VendorCode:   req.VendorCode,
		Name:         req.Name,
		Address:      req.Address,
		Phone:        req.Phone,
		Email:        req.Email,
		PaymentTerms: req.PaymentTerms,
		Rating:       req.Rating,
		Status:       req.Status,
	}
}

type rateRequest struct {
	PartID        uuid.UUID       `json:"part_id" validate:"required"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveFrom string          `json:"effective_from" validate:"required"`
	EffectiveTo   string          `json:"effective_to"`
}

type linkRequest struct {
	PartID uuid.UUID `json:"part_id" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), httpx.ListFilters(r))
	if err != nil {
		h.fail(w, r, "list vendors", err)
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
	vendor, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get vendor", err)
		return
	}
	httpx.JSON(w, http.StatusOK, vendor)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req vendorRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	vendor, err := h.service.Create(r.Context(), req.input(), httpx.Actor(r))
	if err != nil {
		h.fail(w, r, "create vendor", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, vendor)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req vendorRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	vendor, err := h.service.Update(r.Context(), id, req.input(), httpx.Actor(r))
	if err != nil {
		h.fail(w, r, "update vendor", err)
		return
	}
	httpx.JSON(w, http.StatusOK, vendor)
}

func (h *Handler) listRates(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := RateFilter{VendorID: &id, ActiveOnly: r.URL.Query().Get("active") == "true"}
	if filter.PartID, err = httpx.QueryUUID(r, "part_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rates, err := h.service.ListRates(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list rates", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rates)
}

func (h *Handler) createRate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req rateRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	from, err := httpx.ParseDate("effective_from", req.EffectiveFrom)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := RateInput{VendorID: id, PartID: req.PartID, Rate: req.Rate, EffectiveFrom: from}
	if req.EffectiveTo != "" {
		to, err := httpx.ParseDate("effective_to", req.EffectiveTo)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		input.EffectiveTo = &to
	}
	rate, err := h.service.CreateRate(r.Context(), input, httpx.Actor(r))
	if err != nil {
		h.fail(w, r, "create rate", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rate)
}

func (h *Handler) effectiveRate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	partID, err := httpx.QueryUUID(r, "part_id")
	if err != nil || partID == nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "part_id is required")
		return
	}
	at, err := httpx.ParseDate("date", r.URL.Query().Get("date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rate, err := h.service.EffectiveRate(r.Context(), id, *partID, at)
	if err != nil {
		h.fail(w, r, "effective rate", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rate)
}

func (h *Handler) deactivateRate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeactivateRate(r.Context(), id, httpx.Actor(r)); err != nil {
		h.fail(w, r, "deactivate rate", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listParts(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	parts, err := h.service.Parts(r.Context(), id)
	if err != nil {
		h.fail(w, r, "list vendor parts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, parts)
}

func (h *Handler) linkPart(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req linkRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.LinkPart(r.Context(), id, req.PartID, httpx.Actor(r)); err != nil {
		h.fail(w, r, "link part", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unlinkPart(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	partID, err := httpx.IDParam(r, "partID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.UnlinkPart(r.Context(), id, partID, httpx.Actor(r)); err != nil {
		h.fail(w, r, "unlink part", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !httpx.IsClientError(err) {
		h.logger.Error("vendors: "+op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}
