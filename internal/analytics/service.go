package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/odyssey-erp/invoice-insights/internal/shared"
)

// Service coordinates analytics query execution with the cache layer.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the reference time used by WeeklyMetrics.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache, opts ...Option) *Service {
	s := &Service{repo: repo, cache: cache, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invalidate drops every cached aggregate.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// AmountsByStatus sums invoice cost per status name.
func (s *Service) AmountsByStatus(ctx context.Context, f Filter) ([]ChartPoint, error) {
	const op = "analytics: amounts by status"
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var out []ChartPoint
	err := s.cached(ctx, op, &out, func(ctx context.Context) (any, error) {
		return s.repo.AmountsByStatus(ctx, f)
	}, "analytics", "status", f.cacheToken())
	return nonNil(out), err
}

// OverdueTrend counts overdue invoices per due date, labelled DD/MM/YYYY.
func (s *Service) OverdueTrend(ctx context.Context, f Filter) ([]ChartPoint, error) {
	const op = "analytics: overdue trend"
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var out []ChartPoint
	err := s.cached(ctx, op, &out, func(ctx context.Context) (any, error) {
		rows, err := s.repo.OverdueByDueDate(ctx, f)
		if err != nil {
			return nil, err
		}
		points := make([]ChartPoint, 0, len(rows))
		for _, row := range rows {
			points = append(points, ChartPoint{Name: DayLabel(row.Day), Value: float64(row.Count)})
		}
		return points, nil
	}, "analytics", "overdue", f.cacheToken())
	return nonNil(out), err
}

// MonthlyTotals sums invoice cost per calendar month, labelled "March 2024".
func (s *Service) MonthlyTotals(ctx context.Context, f Filter) ([]ChartPoint, error) {
	const op = "analytics: monthly totals"
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var out []ChartPoint
	err := s.cached(ctx, op, &out, func(ctx context.Context) (any, error) {
		rows, err := s.repo.MonthlyTotals(ctx, f)
		if err != nil {
			return nil, err
		}
		points := make([]ChartPoint, 0, len(rows))
		for _, row := range rows {
			points = append(points, ChartPoint{Name: MonthLabel(row.Month), Value: row.Total})
		}
		return points, nil
	}, "analytics", "monthly", f.cacheToken())
	return nonNil(out), err
}

// SupplierTotals sums invoice cost per supplier company name.
func (s *Service) SupplierTotals(ctx context.Context, f Filter) ([]ChartPoint, error) {
	const op = "analytics: supplier totals"
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var out []ChartPoint
	err := s.cached(ctx, op, &out, func(ctx context.Context) (any, error) {
		return s.repo.SupplierTotals(ctx, f)
	}, "analytics", "suppliers", f.cacheToken())
	return nonNil(out), err
}

// WeeklyMetrics compares [now-7d, now] with [now-14d, now-7d]. Filters do not apply.
func (s *Service) WeeklyMetrics(ctx context.Context) (WeeklyMetrics, error) {
	const op = "analytics: weekly metrics"
	now := s.now().UTC()
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)

	var out WeeklyMetrics
	err := s.cached(ctx, op, &out, func(ctx context.Context) (any, error) {
		current, err := s.repo.WindowTotals(ctx, weekAgo, now)
		if err != nil {
			return nil, err
		}
		previous, err := s.repo.WindowTotals(ctx, twoWeeksAgo, weekAgo)
		if err != nil {
			return nil, err
		}
		return CompareWindows(current, previous), nil
	}, "analytics", "weekly", now.Format(time.DateOnly))
	return out, err
}

// CompareWindows builds the weekly comparison from two window aggregates.
func CompareWindows(current, previous WindowTotals) WeeklyMetrics {
	return WeeklyMetrics{
		Earnings: MetricDelta{
			Difference: PercentChange(current.TotalCost, previous.TotalCost),
			Amount:     roundHalfUp(current.TotalCost),
		},
		Invoices: MetricDelta{
			Difference: PercentChange(float64(current.InvoiceCount), float64(previous.InvoiceCount)),
			Amount:     current.InvoiceCount,
		},
		Overdue: MetricDelta{
			Difference: PercentChange(float64(current.OverdueCount), float64(previous.OverdueCount)),
			Amount:     current.OverdueCount,
		},
	}
}

func (s *Service) cached(ctx context.Context, op string, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		// Redis trouble degrades to an uncached read.
		value, lerr := loader(ctx)
		if lerr != nil {
			return storageFailure(op, lerr)
		}
		return roundTrip(value, dest)
	}
	if err := s.cache.FetchJSON(ctx, key, dest, loader); err != nil {
		return storageFailure(op, err)
	}
	return nil
}

func storageFailure(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if shared.KindOf(err) != "" {
		return err
	}
	return shared.E(shared.KindStorageFailure, op, err)
}

func nonNil(points []ChartPoint) []ChartPoint {
	if points == nil {
		return []ChartPoint{}
	}
	return points
}
