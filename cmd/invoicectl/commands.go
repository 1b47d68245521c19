package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/invoice-insights/internal/app"
	"github.com/odyssey-erp/invoice-insights/internal/ingest"
	"github.com/odyssey-erp/invoice-insights/jobs"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the fixed currencies and invoice statuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				if err := e.services.Seeder.Seed(ctx); err != nil {
					return err
				}
				cache, err := e.services.References.Refresh(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{
					"currencies":       cache.Currencies(),
					"invoice_statuses": cache.Statuses(),
				})
			})
		},
	}
}

func openUpload(path string, reset bool) (ingest.Upload, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return ingest.Upload{}, nil, err
	}
	return ingest.Upload{
		Filename:  filepath.Base(path),
		MediaType: app.MediaTypeFor(path),
		Body:      f,
		Reset:     reset,
	}, func() { _ = f.Close() }, nil
}

func newIngestCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "ingest <file.csv>",
		Short: "Ingest a CSV file synchronously",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				up, closeFn, err := openUpload(args[0], reset)
				if err != nil {
					return err
				}
				defer closeFn()
				result, err := e.services.Ingest.Ingest(ctx, up)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Delete all invoices and suppliers before inserting")
	return cmd
}

func newEnqueueCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "enqueue <file.csv>",
		Short: "Stage a CSV file and hand it to the worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				if e.redis == nil {
					return errors.New("enqueue requires redis")
				}
				up, closeFn, err := openUpload(args[0], reset)
				if err != nil {
					return err
				}
				defer closeFn()

				staged, err := e.services.Ingest.Stage(up)
				if err != nil {
					return err
				}
				client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: e.cfg.RedisAddr})
				if err != nil {
					e.services.Ingest.Discard(staged)
					return err
				}
				defer client.Close()
				taskID, err := client.EnqueueIngest(ctx, staged)
				if err != nil {
					e.services.Ingest.Discard(staged)
					return err
				}
				return printJSON(cmd, map[string]string{"task_id": taskID, "staged": staged.Path})
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Delete all invoices and suppliers before inserting")
	return cmd
}

func newResetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every invoice and supplier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				result, err := e.services.Ingest.Reset(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

func newRunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent ingestion runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				runs, err := e.services.Ingest.RecentRuns(ctx, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd, runs)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	return cmd
}

func newWeeklyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weekly",
		Short: "Print the week-over-week metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				metrics, err := e.services.Analytics.WeeklyMetrics(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, metrics)
			})
		},
	}
}

func newQueuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queues",
		Short: "Show background queue statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			defer inspector.Close()

			for _, queue := range []string{jobs.QueueIngest, jobs.QueueDefault} {
				info, err := inspector.GetQueueInfo(queue)
				if errors.Is(err, asynq.ErrQueueNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "%-8s empty\n", queue)
					continue
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s pending=%d active=%d scheduled=%d retry=%d failed=%d\n",
					info.Queue, info.Pending, info.Active, info.Scheduled, info.Retry, info.Failed)
			}
			return nil
		},
	}
}
