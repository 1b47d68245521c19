package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	analytichttp "github.com/odyssey-erp/invoice-insights/internal/analytics/http"
	"github.com/odyssey-erp/invoice-insights/internal/ingest"
	"github.com/odyssey-erp/invoice-insights/internal/observability"
	"github.com/odyssey-erp/invoice-insights/internal/platform/httpx"
	"github.com/odyssey-erp/invoice-insights/internal/reference"
	"github.com/odyssey-erp/invoice-insights/internal/suppliers"
	"github.com/odyssey-erp/invoice-insights/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	IngestHandler    *ingest.Handler
	SupplierHandler  *suppliers.Handler
	ReferenceHandler *reference.Handler
	AnalyticsHandler *analytichttp.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		if params.IngestHandler != nil {
			api.Route("/invoices", params.IngestHandler.MountRoutes)
		}
		if params.SupplierHandler != nil {
			api.Route("/suppliers", params.SupplierHandler.MountRoutes)
		}
		if params.ReferenceHandler != nil {
			params.ReferenceHandler.MountRoutes(api)
		}
		if params.AnalyticsHandler != nil {
			api.Route("/analytics", params.AnalyticsHandler.MountRoutes)
		}
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})
	return r
}
