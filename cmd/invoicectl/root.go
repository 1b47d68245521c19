package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/invoice-insights/internal/app"
	"github.com/odyssey-erp/invoice-insights/internal/platform/cache"
	"github.com/odyssey-erp/invoice-insights/internal/platform/db"
)

var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "invoicectl",
		Short: "Operate the invoice ingestion and analytics service",
		Long: `invoicectl runs ingestion and maintenance tasks against the same
database and Redis the server uses. Connection settings come from the
environment (PG_DSN, REDIS_ADDR, ...) or a .env file.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")

	root.AddCommand(
		newSeedCmd(),
		newIngestCmd(),
		newEnqueueCmd(),
		newResetCmd(),
		newRunsCmd(),
		newWeeklyCmd(),
		newQueuesCmd(),
	)
	return root
}

// env carries the connections opened for one command.
type env struct {
	cfg      *app.Config
	logger   *slog.Logger
	redis    *redis.Client
	services *app.Services
}

// withEnv loads config, connects to Postgres and (best effort) Redis, then runs fn.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, continuing without cache and shared lock", slog.Any("error", err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	return fn(ctx, &env{
		cfg:      cfg,
		logger:   logger,
		redis:    redisClient,
		services: app.NewServices(cfg, pool, redisClient, logger, nil),
	})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
