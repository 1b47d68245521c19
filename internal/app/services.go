package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/invoice-insights/internal/analytics"
	"github.com/odyssey-erp/invoice-insights/internal/ingest"
	"github.com/odyssey-erp/invoice-insights/internal/observability"
	"github.com/odyssey-erp/invoice-insights/internal/reference"
	"github.com/odyssey-erp/invoice-insights/internal/shared"
	"github.com/odyssey-erp/invoice-insights/internal/suppliers"
)

// Services is the domain graph shared by the server, the worker and the CLI.
type Services struct {
	References *reference.Registry
	Seeder     *reference.Seeder
	Suppliers  *suppliers.Service
	Ingest     *ingest.Service
	Analytics  *analytics.Service
}

// NewServices wires repositories and services over the given connections. A nil
// redis client disables the analytics cache and makes the ingestion lock
// process-local.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *slog.Logger, metrics *observability.Metrics) *Services {
	refRepo := reference.NewRepository(pool)
	registry := reference.NewRegistry(refRepo)

	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsService := analytics.NewService(analytics.NewRepository(pool), analyticsCache)

	lock := shared.NewLock(redisClient, shared.IngestionLockKey, cfg.IngestLockTTL)
	opts := []ingest.Option{ingest.WithInvalidator(analyticsCache)}
	if metrics != nil {
		opts = append(opts, ingest.WithRecorder(metrics))
	}
	ingestService := ingest.NewService(ingest.NewStore(pool), registry, lock, ingest.Config{
		UploadDir:           cfg.IngestUploadDir,
		ChunkSize:           cfg.IngestChunkSize,
		SupplierConcurrency: cfg.IngestSupplierConcurrency,
		Timeout:             cfg.IngestTimeout,
	}, logger, opts...)

	return &Services{
		References: registry,
		Seeder:     reference.NewSeeder(refRepo, logger),
		Suppliers:  suppliers.NewService(suppliers.NewRepository(pool)),
		Ingest:     ingestService,
		Analytics:  analyticsService,
	}
}
