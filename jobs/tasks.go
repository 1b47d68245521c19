package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/invoice-insights/internal/ingest"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueIngest carries staged CSV uploads.
	QueueIngest = "ingest"

	// TaskInvoiceIngest ingests a staged upload.
	TaskInvoiceIngest = "invoices:ingest"
	// TaskAnalyticsWarmup repopulates the analytics cache.
	TaskAnalyticsWarmup = "analytics:warmup"
)

// NewInvoiceIngestTask constructs an Asynq task for a staged upload.
func NewInvoiceIngestTask(staged ingest.StagedUpload) (*asynq.Task, error) {
	data, err := json.Marshal(staged)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceIngest, data, asynq.Queue(QueueIngest)), nil
}

// AnalyticsWarmupPayload configures a warmup run.
type AnalyticsWarmupPayload struct {
	Reason string `json:"reason"`
}

// NewAnalyticsWarmupTask builds the warmup task.
func NewAnalyticsWarmupTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(AnalyticsWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsWarmup, data), nil
}
