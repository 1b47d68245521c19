package reference

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/invoice-insights/internal/platform/httpx"
)

// Handler serves the read-only reference lists.
type Handler struct {
	logger   *slog.Logger
	registry *Registry
}

// NewHandler constructs a Handler over the process registry.
func NewHandler(logger *slog.Logger, registry *Registry) *Handler {
	return &Handler{logger: logger, registry: registry}
}

// MountRoutes registers /currencies and /invoice-statuses on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/currencies", h.ListCurrencies)
	r.Get("/invoice-statuses", h.ListStatuses)
}

func (h *Handler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	cache, err := h.registry.Current(r.Context())
	if err != nil {
		h.logger.Error("load reference data", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cache.Currencies())
}

func (h *Handler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	cache, err := h.registry.Current(r.Context())
	if err != nil {
		h.logger.Error("load reference data", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cache.Statuses())
}
