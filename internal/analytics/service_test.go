package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/invoice-insights/internal/shared"
)

type window struct{ from, to time.Time }

// mockRepo stands in for the SQL repository. The grouping itself (one point per
// distinct status with the summed cost, one per month, one per due date) lives
// in repository.go and needs a PostgreSQL instance; these tests cover labelling,
// caching and error mapping on top of it.
type mockRepo struct {
	mu sync.Mutex

	status   []ChartPoint
	overdue  []DatedCount
	monthly  []MonthTotal
	supplier []ChartPoint
	windows  map[time.Time]WindowTotals
	err      error

	statusCalls  int
	monthlyCalls int
	filters      []Filter
	windowArgs   []window
}

func (m *mockRepo) AmountsByStatus(ctx context.Context, f Filter) ([]ChartPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	m.filters = append(m.filters, f)
	return m.status, m.err
}

func (m *mockRepo) OverdueByDueDate(ctx context.Context, f Filter) ([]DatedCount, error) {
	return m.overdue, m.err
}

func (m *mockRepo) MonthlyTotals(ctx context.Context, f Filter) ([]MonthTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monthlyCalls++
	return m.monthly, m.err
}

func (m *mockRepo) SupplierTotals(ctx context.Context, f Filter) ([]ChartPoint, error) {
	return m.supplier, m.err
}

func (m *mockRepo) WindowTotals(ctx context.Context, from, to time.Time) (WindowTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windowArgs = append(m.windowArgs, window{from, to})
	return m.windows[from], m.err
}

func newTestService(t *testing.T, repo Repository, opts ...Option) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute), opts...), mr
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func TestMonthlyTotalsLabelsMonths(t *testing.T) {
	repo := &mockRepo{monthly: []MonthTotal{
		{Month: day(2024, time.March, 1), Total: 150},
		{Month: day(2024, time.April, 1), Total: 20.5},
	}}
	svc, _ := newTestService(t, repo)

	points, err := svc.MonthlyTotals(context.Background(), Filter{})
	require.NoError(t, err)
	require.Equal(t, []ChartPoint{{Name: "March 2024", Value: 150}, {Name: "April 2024", Value: 20.5}}, points)
}

func TestOverdueTrendLabelsDays(t *testing.T) {
	repo := &mockRepo{overdue: []DatedCount{
		{Day: day(2024, time.March, 5), Count: 2},
		{Day: day(2024, time.March, 12), Count: 1},
	}}
	svc, _ := newTestService(t, repo)

	points, err := svc.OverdueTrend(context.Background(), Filter{})
	require.NoError(t, err)
	require.Equal(t, []ChartPoint{{Name: "05/03/2024", Value: 2}, {Name: "12/03/2024", Value: 1}}, points)
}

func TestEmptyChartIsEmptySlice(t *testing.T) {
	svc, _ := newTestService(t, &mockRepo{})

	points, err := svc.SupplierTotals(context.Background(), Filter{})
	require.NoError(t, err)
	require.NotNil(t, points)
	require.Empty(t, points)
}

func TestChartsAreCachedUntilInvalidated(t *testing.T) {
	repo := &mockRepo{status: []ChartPoint{{Name: "PAID", Value: 100}}}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.AmountsByStatus(ctx, Filter{})
	require.NoError(t, err)
	points, err := svc.AmountsByStatus(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, repo.statusCalls)
	require.Equal(t, []ChartPoint{{Name: "PAID", Value: 100}}, points)

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.AmountsByStatus(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, 2, repo.statusCalls)
}

func TestFiltersUseDistinctCacheEntries(t *testing.T) {
	repo := &mockRepo{}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.AmountsByStatus(ctx, Filter{SupplierIDs: []string{"S2", "S1"}})
	require.NoError(t, err)
	_, err = svc.AmountsByStatus(ctx, Filter{SupplierIDs: []string{"S1", "S2"}})
	require.NoError(t, err)
	require.Equal(t, 1, repo.statusCalls, "supplier order must not change the key")

	_, err = svc.AmountsByStatus(ctx, Filter{StatusID: ptr(int64(2))})
	require.NoError(t, err)
	_, err = svc.AmountsByStatus(ctx, Filter{
		StartDate: ptr(day(2024, time.March, 1)),
		EndDate:   ptr(day(2024, time.March, 31)),
	})
	require.NoError(t, err)
	require.Equal(t, 3, repo.statusCalls)
	require.Equal(t, int64(2), *repo.filters[1].StatusID)
}

func TestHalfOpenDateRangeRejected(t *testing.T) {
	repo := &mockRepo{}
	svc, _ := newTestService(t, repo)

	_, err := svc.AmountsByStatus(context.Background(), Filter{StartDate: ptr(day(2024, time.March, 1))})
	require.ErrorIs(t, err, shared.ErrValidationFailed)
	require.Zero(t, repo.statusCalls)
}

func TestRepositoryFailureIsStorageFailure(t *testing.T) {
	svc, _ := newTestService(t, &mockRepo{err: errors.New("connection reset")})

	_, err := svc.MonthlyTotals(context.Background(), Filter{})
	require.ErrorIs(t, err, shared.ErrStorageFailure)

	_, err = svc.WeeklyMetrics(context.Background())
	require.ErrorIs(t, err, shared.ErrStorageFailure)
}

func TestRedisOutageFallsBackToRepository(t *testing.T) {
	repo := &mockRepo{monthly: []MonthTotal{{Month: day(2024, time.March, 1), Total: 150}}}
	svc, mr := newTestService(t, repo)
	mr.Close()

	points, err := svc.MonthlyTotals(context.Background(), Filter{})
	require.NoError(t, err)
	require.Equal(t, "March 2024", points[0].Name)
}

func TestServiceWithoutRedis(t *testing.T) {
	repo := &mockRepo{status: []ChartPoint{{Name: "PENDING", Value: 5}}}
	svc := NewService(repo, NewCache(nil, time.Minute))

	points, err := svc.AmountsByStatus(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.NoError(t, svc.Invalidate(context.Background()))
}

func TestWeeklyMetricsWindows(t *testing.T) {
	now := time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)
	repo := &mockRepo{windows: map[time.Time]WindowTotals{
		weekAgo:     {TotalCost: 300.4, InvoiceCount: 3, OverdueCount: 0},
		twoWeeksAgo: {TotalCost: 400, InvoiceCount: 0, OverdueCount: 0},
	}}
	svc, _ := newTestService(t, repo, WithClock(func() time.Time { return now }))

	metrics, err := svc.WeeklyMetrics(context.Background())
	require.NoError(t, err)
	require.Equal(t, WeeklyMetrics{
		Earnings: MetricDelta{Difference: -25, Amount: 300},
		Invoices: MetricDelta{Difference: 100, Amount: 3},
		Overdue:  MetricDelta{Difference: 0, Amount: 0},
	}, metrics)
	require.Equal(t, []window{{weekAgo, now}, {twoWeeksAgo, weekAgo}}, repo.windowArgs)

	_, err = svc.WeeklyMetrics(context.Background())
	require.NoError(t, err)
	require.Len(t, repo.windowArgs, 2, "second call served from cache")
}

func TestPercentChange(t *testing.T) {
	cases := []struct {
		name              string
		current, previous float64
		want              int64
	}{
		{"both zero", 0, 0, 0},
		{"from zero", 5, 0, 100},
		{"decrease", 300, 400, -25},
		{"increase", 150, 100, 50},
		{"to zero", 0, 80, -100},
		{"negative half rounds up", 7, 8, -12},
		{"positive half rounds up", 9, 8, 13},
		{"fraction", 1, 3, -67},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, PercentChange(tc.current, tc.previous))
		})
	}
}

func TestCompareWindowsRoundsEarnings(t *testing.T) {
	got := CompareWindows(WindowTotals{TotalCost: 99.5, InvoiceCount: 2, OverdueCount: 1}, WindowTotals{TotalCost: 99.5, InvoiceCount: 4, OverdueCount: 1})
	require.Equal(t, MetricDelta{Difference: 0, Amount: 100}, got.Earnings)
	require.Equal(t, MetricDelta{Difference: -50, Amount: 2}, got.Invoices)
	require.Equal(t, MetricDelta{Difference: 0, Amount: 1}, got.Overdue)
}

func TestFilterValidate(t *testing.T) {
	require.NoError(t, Filter{}.Validate())
	require.NoError(t, Filter{StartDate: ptr(day(2024, 1, 1)), EndDate: ptr(day(2024, 2, 1))}.Validate())
	err := Filter{EndDate: ptr(day(2024, 2, 1))}.Validate()
	require.ErrorIs(t, err, shared.ErrValidationFailed)
}
