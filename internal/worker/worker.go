// Package worker runs queued checks on River.
package worker

import (
	"context"
	"fmt"
	"sitecheck/internal/checker"
	"sitecheck/internal/config"
	"sitecheck/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

// Options configure the River client and the check worker.
type Options struct {
	// MaxWorkers is the number of jobs processed concurrently.
	MaxWorkers int
	// RatePerSecond caps outbound site fetches across all workers. Zero or
	// less disables the limit.
	RatePerSecond float64
	// Burst is the number of fetches allowed above the steady rate.
	Burst int
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxWorkers:    cfg.Worker.MaxWorkers,
		RatePerSecond: cfg.Worker.RatePerSecond,
		Burst:         cfg.Worker.Burst,
	}
}

// Start registers the check worker and starts a River client on dbPool. The
// caller stops the returned client on shutdown.
func Start(ctx context.Context,
	dbPool *pgxpool.Pool,
	checker checker.Checker,
	opts Options) (*river.Client[pgx.Tx], error) {
	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewCheckWorker(checker, opts.RatePerSecond, opts.Burst))

	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
		Logger:  logger.Slog(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("could not start river queue client: %w", err)
	}

	return riverClient, nil
}
