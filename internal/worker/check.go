package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sitecheck/internal/checker"
	"sitecheck/pkg/domain"
	"sitecheck/pkg/logger"
	"sitecheck/pkg/serrors"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CheckWorker is a River worker that completes queued checks. Outbound fetches
// of all jobs share one token bucket.
type CheckWorker struct {
	river.WorkerDefaults[checker.JobArgs]

	checker checker.Checker
	limiter *rate.Limiter
}

// NewCheckWorker constructs a CheckWorker allowing ratePerSecond checks with
// the given burst. A non-positive rate disables limiting.
func NewCheckWorker(checker checker.Checker, ratePerSecond float64, burst int) *CheckWorker {
	limit := rate.Limit(ratePerSecond)
	if ratePerSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = int(math.Max(1, math.Ceil(ratePerSecond)))
	}

	return &CheckWorker{
		checker: checker,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Work waits for a rate-limit token, processes the check and maps errors to
// River actions: a vanished check cancels the job, anything else is retried.
func (w *CheckWorker) Work(ctx context.Context, job *river.Job[checker.JobArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID), zap.Stringer("checkID", job.Args.CheckID))

	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("could not wait for rate limit: %w", err)
	}

	if err := w.checker.Process(ctx, domain.CheckID(job.Args.CheckID)); err != nil {
		if errors.Is(err, serrors.ErrConflict) {
			logger.Info(ctx, "check is gone, cancelling job", zap.Error(err))

			return river.JobCancel(err) //nolint: wrapcheck
		}

		logger.Warn(ctx, "could not process check", zap.Error(err), zap.Int("attempt", job.Attempt))

		return fmt.Errorf("could not process check: %w", err)
	}

	logger.Info(ctx, "check processed")

	return nil
}
