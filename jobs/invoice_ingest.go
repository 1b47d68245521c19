package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/invoice-insights/internal/ingest"
	jobmetrics "github.com/odyssey-erp/invoice-insights/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// StagedIngester runs ingestion for an upload already written to disk.
type StagedIngester interface {
	IngestStaged(ctx context.Context, staged ingest.StagedUpload) (ingest.Result, error)
}

// InvoiceIngestJob processes TaskInvoiceIngest tasks.
type InvoiceIngestJob struct {
	Ingester StagedIngester
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewInvoiceIngestJob wires dependencies for the ingest handler.
func NewInvoiceIngestJob(ingester StagedIngester, logger *slog.Logger, metrics *jobmetrics.Metrics) *InvoiceIngestJob {
	return &InvoiceIngestJob{Ingester: ingester, Logger: logger, Metrics: metrics}
}

// Handle ingests the staged file. The file is consumed by the first attempt,
// so failures are never retried.
func (j *InvoiceIngestJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Ingester == nil {
		return errors.New("invoice ingest: handler not configured")
	}
	var staged ingest.StagedUpload
	if err := json.Unmarshal(t.Payload(), &staged); err != nil {
		return fmt.Errorf("invoice ingest: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskInvoiceIngest)
	defer func() { err = tracker.End(err) }()

	logger := j.logger().With(slog.String("file", staged.Filename))
	result, err := j.Ingester.IngestStaged(ctx, staged)
	if err != nil {
		logger.Error("async ingestion failed", slog.Any("error", err))
		return fmt.Errorf("invoice ingest: %v: %w", err, asynq.SkipRetry)
	}
	logger.Info("async ingestion completed",
		slog.String("run_id", result.RunID),
		slog.Int("invoices", result.InvoicesSaved),
	)
	return nil
}

func (j *InvoiceIngestJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInvoiceIngest))
	}
	return slog.Default().With(slog.String("job", TaskInvoiceIngest))
}

func (j *InvoiceIngestJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
