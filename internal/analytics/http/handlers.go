package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/invoice-insights/internal/analytics"
	"github.com/odyssey-erp/invoice-insights/internal/analytics/export"
	"github.com/odyssey-erp/invoice-insights/internal/platform/httpx"
	"github.com/odyssey-erp/invoice-insights/internal/shared"
)

const requestTimeout = 5 * time.Second

// AnalyticsService defines the chart data contract used by the handler.
type AnalyticsService interface {
	AmountsByStatus(ctx context.Context, f analytics.Filter) ([]analytics.ChartPoint, error)
	OverdueTrend(ctx context.Context, f analytics.Filter) ([]analytics.ChartPoint, error)
	MonthlyTotals(ctx context.Context, f analytics.Filter) ([]analytics.ChartPoint, error)
	SupplierTotals(ctx context.Context, f analytics.Filter) ([]analytics.ChartPoint, error)
	WeeklyMetrics(ctx context.Context) (analytics.WeeklyMetrics, error)
}

// chart describes one filterable series and its CSV column headings.
type chart struct {
	load  func(AnalyticsService, context.Context, analytics.Filter) ([]analytics.ChartPoint, error)
	label string
	value string
}

var charts = map[string]chart{
	"amounts-by-status": {load: AnalyticsService.AmountsByStatus, label: "Status", value: "Amount"},
	"overdue-trend":     {load: AnalyticsService.OverdueTrend, label: "Due Date", value: "Overdue"},
	"monthly-totals":    {load: AnalyticsService.MonthlyTotals, label: "Month", value: "Total"},
	"supplier-totals":   {load: AnalyticsService.SupplierTotals, label: "Supplier", value: "Total"},
}

// Handler coordinates HTTP requests for the invoice analytics charts.
type Handler struct {
	logger  *slog.Logger
	service AnalyticsService
	csvPool sync.Pool
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, service AnalyticsService) *Handler {
	h := &Handler{logger: logger, service: service}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

func (h *Handler) handleChart(name string) http.HandlerFunc {
	c := charts[name]
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseFilter(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		points, err := c.load(h.service, ctx, filter)
		if err != nil {
			h.handleError(w, name, err)
			return
		}
		httpx.JSON(w, http.StatusOK, points)
	}
}

func (h *Handler) handleWeekly(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	metrics, err := h.service.WeeklyMetrics(ctx)
	if err != nil {
		h.handleError(w, "weekly-metrics", err)
		return
	}
	httpx.JSON(w, http.StatusOK, metrics)
}

type dashboardData struct {
	AmountsByStatus []analytics.ChartPoint  `json:"amounts_by_status"`
	OverdueTrend    []analytics.ChartPoint  `json:"overdue_trend"`
	MonthlyTotals   []analytics.ChartPoint  `json:"monthly_totals"`
	SupplierTotals  []analytics.ChartPoint  `json:"supplier_totals"`
	Weekly          analytics.WeeklyMetrics `json:"weekly_metrics"`
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	data, err := h.loadDashboardData(ctx, filter)
	if err != nil {
		h.handleError(w, "dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}

func (h *Handler) loadDashboardData(ctx context.Context, filter analytics.Filter) (dashboardData, error) {
	var data dashboardData
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		points, err := h.service.AmountsByStatus(ctx, filter)
		data.AmountsByStatus = points
		return err
	})
	g.Go(func() error {
		points, err := h.service.OverdueTrend(ctx, filter)
		data.OverdueTrend = points
		return err
	})
	g.Go(func() error {
		points, err := h.service.MonthlyTotals(ctx, filter)
		data.MonthlyTotals = points
		return err
	})
	g.Go(func() error {
		points, err := h.service.SupplierTotals(ctx, filter)
		data.SupplierTotals = points
		return err
	})
	g.Go(func() error {
		weekly, err := h.service.WeeklyMetrics(ctx)
		data.Weekly = weekly
		return err
	})

	if err := g.Wait(); err != nil {
		return dashboardData{}, err
	}
	return data, nil
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "chart")

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if name == "weekly-metrics" {
		metrics, err := h.service.WeeklyMetrics(ctx)
		if err != nil {
			h.handleError(w, name, err)
			return
		}
		if err := export.WriteWeeklyCSV(buf, metrics); err != nil {
			h.handleError(w, "write weekly csv", err)
			return
		}
	} else {
		c, ok := charts[name]
		if !ok {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown chart "+name)
			return
		}
		filter, err := parseFilter(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		points, err := c.load(h.service, ctx, filter)
		if err != nil {
			h.handleError(w, name, err)
			return
		}
		if err := export.WriteChartCSV(buf, c.label, c.value, points); err != nil {
			h.handleError(w, "write chart csv", err)
			return
		}
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", name))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

// parseFilter reads supplier_ids, start_date, end_date and status_id.
func parseFilter(r *http.Request) (analytics.Filter, error) {
	q := r.URL.Query()
	var (
		filter analytics.Filter
		fields []shared.FieldError
	)

	if raw := strings.TrimSpace(q.Get("supplier_ids")); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				filter.SupplierIDs = append(filter.SupplierIDs, id)
			}
		}
	}
	for _, param := range []struct {
		name string
		dest **time.Time
	}{{"start_date", &filter.StartDate}, {"end_date", &filter.EndDate}} {
		raw := strings.TrimSpace(q.Get(param.name))
		if raw == "" {
			continue
		}
		day, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			fields = append(fields, shared.FieldError{Field: param.name, Rule: "date", Message: "must be YYYY-MM-DD"})
			continue
		}
		*param.dest = &day
	}
	if raw := strings.TrimSpace(q.Get("status_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			fields = append(fields, shared.FieldError{Field: "status_id", Rule: "id", Message: "must be a positive integer"})
		} else {
			filter.StatusID = &id
		}
	}

	if len(fields) > 0 {
		return analytics.Filter{}, &shared.Error{
			Kind:   shared.KindValidationFailed,
			Op:     "analytics: parse filter",
			Fields: fields,
		}
	}
	if err := filter.Validate(); err != nil {
		return analytics.Filter{}, err
	}
	return filter, nil
}

func (h *Handler) handleError(w http.ResponseWriter, context string, err error) {
	if !errors.Is(err, shared.ErrValidationFailed) {
		h.logError(context, err)
	}
	httpx.RespondError(w, err)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}
