package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/invoice-insights/internal/analytics"
	jobmetrics "github.com/odyssey-erp/invoice-insights/internal/jobs"
)

// AnalyticsWarmer is the subset of the analytics service touched by warmup.
type AnalyticsWarmer interface {
	AmountsByStatus(ctx context.Context, f analytics.Filter) ([]analytics.ChartPoint, error)
	OverdueTrend(ctx context.Context, f analytics.Filter) ([]analytics.ChartPoint, error)
	MonthlyTotals(ctx context.Context, f analytics.Filter) ([]analytics.ChartPoint, error)
	SupplierTotals(ctx context.Context, f analytics.Filter) ([]analytics.ChartPoint, error)
	WeeklyMetrics(ctx context.Context) (analytics.WeeklyMetrics, error)
}

// AnalyticsWarmupJob pre-populates the unfiltered chart caches.
type AnalyticsWarmupJob struct {
	Analytics AnalyticsWarmer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Timeout   time.Duration
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler.
func NewAnalyticsWarmupJob(svc AnalyticsWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{Analytics: svc, Logger: logger, Metrics: metrics, Timeout: 30 * time.Second}
}

// Handle processes analytics warmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Analytics == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload AnalyticsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskAnalyticsWarmup)
	defer func() { err = tracker.End(err) }()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	start := time.Now()
	if err := j.Warm(ctx); err != nil {
		logger.Error("analytics warmup failed", slog.Any("error", err))
		return err
	}
	logger.Info("analytics warmup completed", slog.Duration("duration", time.Since(start)))
	return nil
}

// Warm loads every chart with an empty filter plus the weekly metrics.
func (j *AnalyticsWarmupJob) Warm(ctx context.Context) error {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	var all analytics.Filter
	loaders := []func(context.Context, analytics.Filter) ([]analytics.ChartPoint, error){
		j.Analytics.AmountsByStatus,
		j.Analytics.OverdueTrend,
		j.Analytics.MonthlyTotals,
		j.Analytics.SupplierTotals,
	}
	for _, load := range loaders {
		if _, err := load(ctx, all); err != nil {
			return err
		}
	}
	_, err := j.Analytics.WeeklyMetrics(ctx)
	return err
}

func (j *AnalyticsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnalyticsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAnalyticsWarmup))
}

func (j *AnalyticsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
