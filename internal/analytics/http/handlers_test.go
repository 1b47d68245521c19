package analytichttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/invoice-insights/internal/analytics"
	"github.com/odyssey-erp/invoice-insights/internal/platform/httpx"
)

type stubService struct {
	mu      sync.Mutex
	points  []analytics.ChartPoint
	weekly  analytics.WeeklyMetrics
	err     error
	filters []analytics.Filter
}

func (s *stubService) record(f analytics.Filter) ([]analytics.ChartPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, f)
	return s.points, s.err
}

func (s *stubService) AmountsByStatus(ctx context.Context, f analytics.Filter) ([]analytics.ChartPoint, error) {
	return s.record(f)
}

func (s *stubService) OverdueTrend(ctx context.Context, f analytics.Filter) ([]analytics.ChartPoint, error) {
	return s.record(f)
}

func (s *stubService) MonthlyTotals(ctx context.Context, f analytics.Filter) ([]analytics.ChartPoint, error) {
	return s.record(f)
}

func (s *stubService) SupplierTotals(ctx context.Context, f analytics.Filter) ([]analytics.ChartPoint, error) {
	return s.record(f)
}

func (s *stubService) WeeklyMetrics(ctx context.Context) (analytics.WeeklyMetrics, error) {
	return s.weekly, s.err
}

func newRouter(svc AnalyticsService) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/analytics", NewHandler(nil, svc).MountRoutes)
	return r
}

func TestMonthlyTotalsEndpoint(t *testing.T) {
	svc := &stubService{points: []analytics.ChartPoint{{Name: "March 2024", Value: 150}}}
	req := httptest.NewRequest(http.MethodGet, "/api/analytics/monthly-totals?supplier_ids=S1,%20S2&start_date=2024-03-01&end_date=2024-03-31&status_id=1", nil)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[{"name":"March 2024","value":150}]`, rec.Body.String())

	require.Len(t, svc.filters, 1)
	f := svc.filters[0]
	require.Equal(t, []string{"S1", "S2"}, f.SupplierIDs)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *f.StartDate)
	require.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), *f.EndDate)
	require.Equal(t, int64(1), *f.StatusID)
}

func TestFilterErrors(t *testing.T) {
	cases := map[string]string{
		"bad date":   "/api/analytics/amounts-by-status?start_date=01/03/2024&end_date=2024-03-31",
		"half range": "/api/analytics/amounts-by-status?start_date=2024-03-01",
		"bad status": "/api/analytics/overdue-trend?status_id=abc",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubService{}
			rec := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var problem httpx.ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			require.Equal(t, "ValidationFailed", problem.Kind)
			require.Empty(t, svc.filters)
		})
	}
}

func TestWeeklyMetricsEndpoint(t *testing.T) {
	svc := &stubService{weekly: analytics.WeeklyMetrics{
		Earnings: analytics.MetricDelta{Difference: -25, Amount: 300},
		Invoices: analytics.MetricDelta{Difference: 100, Amount: 3},
	}}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/weekly-metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"earnings":{"difference":-25,"amount":300},"invoices":{"difference":100,"amount":3},"overdue":{"difference":0,"amount":0}}`, rec.Body.String())
}

func TestDashboardEndpoint(t *testing.T) {
	svc := &stubService{points: []analytics.ChartPoint{{Name: "PAID", Value: 10}}}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "amounts_by_status")
	require.Contains(t, body, "weekly_metrics")
}

func TestChartCSVExport(t *testing.T) {
	svc := &stubService{points: []analytics.ChartPoint{{Name: "March 2024", Value: 150}}}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/monthly-totals.csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "monthly-totals.csv")
	require.Equal(t, "Month,Total\nMarch 2024,150.00\n", rec.Body.String())
}

func TestWeeklyCSVExport(t *testing.T) {
	svc := &stubService{}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/weekly-metrics.csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Earnings,0,0")
}

func TestUnknownChartCSV(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/nope.csv", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStorageFailureHidesDetail(t *testing.T) {
	svc := &stubService{err: errors.New("pg down")}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/supplier-totals", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "pg down")
}

func TestCSVExportIsRateLimited(t *testing.T) {
	router := newRouter(&stubService{})
	var last int
	for i := 0; i < 11; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/analytics/amounts-by-status.csv", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}
