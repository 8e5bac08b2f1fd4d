package report

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes renderer health.
type Handler struct {
	client *Client
	logger *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(client *Client, logger *slog.Logger) *Handler {
	return &Handler{client: client, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/report/ping", h.ping)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
