package quality

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/scmdesk/scmdesk/internal/platform/httpx"
)

// Handler exposes inspection endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inspection routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/inspections", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/summary", h.summary)
		r.Get("/{id}", h.get)
		r.Post("/{id}/complete", h.complete)
		r.Post("/{id}/fail", h.fail)
	})
}

type createRequest struct {
	GRRPartID         uuid.UUID `json:"grr_part_id" validate:"required"`
	InspectorName     string    `json:"inspector_name" validate:"required"`
	InspectionDate    string    `json:"inspection_date"`
	BatchNo           string    `json:"batch_no"`
	QuantityInspected int       `json:"quantity_inspected" validate:"gte=0"`
	QuantityAccepted  int       `json:"quantity_accepted" validate:"gte=0"`
	QuantityRejected  int       `json:"quantity_rejected" validate:"gte=0"`
	DefectType        string    `json:"defect_type"`
	TestParameters    string    `json:"test_parameters"`
	TestResults       struct {
		Dimensional string `json:"dimensional" validate:"omitempty,oneof=Pass Fail"`
		Visual      string `json:"visual" validate:"omitempty,oneof=Pass Fail"`
		Mechanical  string `json:"mechanical" validate:"omitempty,oneof=Pass Fail"`
	} `json:"test_results"`
	Remarks string `json:"remarks"`
}

type closeRequest struct {
	Remarks string `json:"remarks"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), httpx.ListFilters(r))
	if err != nil {
		h.respondFailure(w, r, "list inspections", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summarize(r.Context())
	if err != nil {
		h.respondFailure(w, r, "inspection summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, "get inspection", err)
		return
	}
	httpx.JSON(w, http.StatusOK, in)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := httpx.ParseDate("inspection_date", req.InspectionDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, err := h.service.Create(r.Context(), CreateInput{
		GRRPartID:         req.GRRPartID,
		InspectorName:     req.InspectorName,
		InspectionDate:    date,
		BatchNo:           req.BatchNo,
		QuantityInspected: req.QuantityInspected,
		QuantityAccepted:  req.QuantityAccepted,
		QuantityRejected:  req.QuantityRejected,
		DefectType:        req.DefectType,
		TestParameters:    req.TestParameters,
		Results: TestResults{
			Dimensional: Result(req.TestResults.Dimensional),
			Visual:      Result(req.TestResults.Visual),
			Mechanical:  Result(req.TestResults.Mechanical),
		},
		Remarks: req.Remarks,
	}, httpx.Actor(r))
	if err != nil {
		h.respondFailure(w, r, "create inspection", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, in)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, "complete inspection", h.service.Complete)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, "fail inspection", h.service.Fail)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, id uuid.UUID, remarks, actor string) (Inspection, error)) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req closeRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	in, err := fn(r.Context(), id, req.Remarks, httpx.Actor(r))
	if err != nil {
		h.respondFailure(w, r, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, in)
}

func (h *Handler) respondFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !httpx.IsClientError(err) {
		h.logger.Error("quality: "+op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}
