package export

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfFilename     = "supply_chain_er_diagram.pdf"
)

// Handler serves export downloads.
type Handler struct {
	logger  *slog.Logger
	service *Service
	limit   int
}

// NewHandler builds Handler. limit caps heavy exports per client IP per minute.
func NewHandler(logger *slog.Logger, service *Service, limit int) *Handler {
	if limit <= 0 {
		limit = 10
	}
	return &Handler{logger: logger, service: service, limit: limit}
}

// MountRoutes registers export routes.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(h.limit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.Get("/export/er-diagram.svg", h.diagram)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/export/workbook", h.workbook)
		gr.Get("/export/er-diagram.pdf", h.pdf)
	})
}

func (h *Handler) workbook(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Workbook(r.Context())
	if err != nil {
		h.logger.Error("export workbook", slog.Any("error", err))
		http.Error(w, "failed to export database", http.StatusInternalServerError)
		return
	}
	download(w, xlsxContentType, WorkbookFilename, data)
}

func (h *Handler) diagram(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.DiagramSVG()
	if err != nil {
		h.logger.Error("export diagram", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write([]byte(out))
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.DiagramPDF(r.Context())
	if err != nil {
		h.logger.Error("export diagram pdf", slog.Any("error", err))
		http.Error(w, "failed to export ER diagram", http.StatusBadGateway)
		return
	}
	download(w, "application/pdf", pdfFilename, data)
}

func download(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
