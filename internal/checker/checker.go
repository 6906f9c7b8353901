// Package checker persists site analyses: synchronous single checks, queued
// batches and the job processing that completes them.
package checker

import (
	"context"
	"errors"
	"fmt"
	"sitecheck/internal/analyzer"
	"sitecheck/internal/config"
	"sitecheck/pkg/domain"
	"sitecheck/pkg/logger"
	"sitecheck/pkg/serrors"
	"sitecheck/pkg/storage"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxBatchItems bounds a batch when no limit is configured.
const DefaultMaxBatchItems = 200

// Options configure how check jobs are enqueued and retried.
type Options struct {
	// MaxAttempts is the number of times a queued check is analyzed before it
	// is marked failed.
	MaxAttempts int
	// MaxBatchItems is the largest number of inputs accepted by EnqueueBatch.
	MaxBatchItems int
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxAttempts:   cfg.Worker.MaxAttempts,
		MaxBatchItems: cfg.Bulk.MaxItems,
	}
}

type checker struct {
	options  Options
	storage  storage.Storage
	analyzer analyzer.Analyzer
}

// Check analyzes input right away and stores the outcome. Unreachable sites
// are stored as failed checks; malformed input is rejected and not stored.
func (c checker) Check(ctx context.Context, userID domain.UserID, input string) (*domain.Check, error) {
	input = strings.TrimSpace(input)
	report, err := c.analyzer.Analyze(ctx, input)
	if isBadInput(err) {
		return nil, err
	}

	check := domain.Check{
		UserID:   userID,
		Input:    input,
		Status:   domain.CheckStatusCompleted,
		Attempts: 1,
	}
	if report != nil {
		check.Report = *report
	}
	if err != nil {
		check.Status = domain.CheckStatusFailed
		check.LastError = err.Error()
		if report == nil {
			check.Report = domain.Report{Input: input}
		}
	}

	stored, err := c.storage.StoreChecks(ctx, check)
	if err != nil {
		return nil, fmt.Errorf("could not store check: %w", err)
	}

	return &stored[0], nil
}

// EnqueueBatch stores one pending check per non-blank input under a new batch
// and queues a job for each, all in a single transaction.
func (c checker) EnqueueBatch(ctx context.Context,
	userID domain.UserID,
	inputs []string) (domain.BatchID, []domain.Check, error) {
	batchID := domain.BatchID(uuid.New())

	checks := make([]domain.Check, 0, len(inputs))
	for _, in := range inputs {
		in = strings.TrimSpace(in)
		if in == "" {
			continue
		}
		checks = append(checks, domain.Check{
			UserID:  userID,
			BatchID: &batchID,
			Input:   in,
			Status:  domain.CheckStatusPending,
		})
	}

	if len(checks) == 0 {
		return domain.BatchID{}, nil, serrors.With(serrors.ErrBadRequest, "no URLs provided")
	}
	if maxItems := c.maxBatchItems(); len(checks) > maxItems {
		return domain.BatchID{}, nil, serrors.With(serrors.ErrBadRequest,
			"too many URLs: %d given, at most %d allowed", len(checks), maxItems)
	}

	var stored []domain.Check
	if err := c.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		var err error
		stored, err = tx.StoreChecks(ctx, checks...)
		if err != nil {
			return fmt.Errorf("could not store checks: %w", err)
		}

		for _, check := range stored {
			if _, err := tx.AddJob(ctx, JobArgs{
				CheckID:     uuid.UUID(check.ID),
				maxAttempts: c.options.MaxAttempts,
			}, nil); err != nil {
				return fmt.Errorf("could not add job: %w", err)
			}
		}

		return nil
	}); err != nil {
		return domain.BatchID{}, nil, fmt.Errorf("could not enqueue batch: %w", err)
	}

	logger.Info(ctx, "batch enqueued",
		zap.Stringer("batchID", batchID),
		zap.Int("items", len(stored)))

	return batchID, stored, nil
}

// Process analyzes a queued check and records the outcome. It returns
// ErrConflict when the check no longer exists, so the job can be cancelled,
// and a plain error when the analysis should be retried.
func (c checker) Process(ctx context.Context, checkID domain.CheckID) error {
	check, err := c.storage.CheckByID(ctx, checkID)
	if err != nil {
		return fmt.Errorf("could not get check: %w", err)
	}
	if check == nil {
		return serrors.With(serrors.ErrConflict, "check no longer exists")
	}
	if check.Status != domain.CheckStatusPending {
		logger.Debug(ctx, "check already processed", zap.String("status", string(check.Status)))

		return nil
	}

	report, analyzeErr := c.analyzer.Analyze(ctx, check.Input)
	if report == nil {
		report = &domain.Report{Input: check.Input}
	}

	updates := storage.CheckUpdates{
		Status: domain.CheckStatusCompleted,
		Report: report,
	}
	var lastError string
	switch {
	case analyzeErr == nil:
	case isBadInput(analyzeErr):
		// retrying cannot fix malformed input
		updates.Status = domain.CheckStatusFailed
		lastError = analyzeErr.Error()
	default:
		updates.Status = domain.CheckStatusFailed
		updates.MaxAttempts = c.options.MaxAttempts
		lastError = analyzeErr.Error()
	}
	updates.LastError = &lastError

	updated, err := c.storage.UpdatePendingCheck(ctx, checkID, updates)
	if err != nil {
		return fmt.Errorf("could not update check: %w", err)
	}
	if updated == nil {
		return serrors.With(serrors.ErrConflict, "check was deleted or processed concurrently")
	}

	if updated.Status == domain.CheckStatusPending {
		return fmt.Errorf("could not analyze site, will retry: %w", analyzeErr)
	}

	return nil
}

// UserChecks returns a page of checks for the given user filtered by status.
// The cursor is the RFC3339 created_at of the last check of the previous page.
func (c checker) UserChecks(ctx context.Context,
	userID domain.UserID,
	status domain.CheckStatus,
	cursor string,
	limit uint) ([]domain.Check, string, error) {
	var cursorTime time.Time
	if cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return nil, "", serrors.Wrap(serrors.ErrBadRequest, err, "invalid cursor")
		}
		cursorTime = t
	}

	page, err := c.storage.UserChecks(ctx, userID, status, cursorTime, limit)
	if err != nil {
		return nil, "", fmt.Errorf("could not get user checks: %w", err)
	}

	var next string
	if page.NextCursor != nil {
		next = page.NextCursor.UTC().Format(time.RFC3339Nano)
	}

	return page.Checks, next, nil
}

// BatchChecks returns the checks of a batch. An unknown batch, or one owned by
// another user, is reported as not found.
func (c checker) BatchChecks(ctx context.Context, userID domain.UserID, batchID domain.BatchID) ([]domain.Check, error) {
	checks, err := c.storage.BatchChecks(ctx, userID, batchID)
	if err != nil {
		return nil, fmt.Errorf("could not get batch checks: %w", err)
	}
	if len(checks) == 0 {
		return nil, serrors.With(serrors.ErrNotFound, "batch not found")
	}

	return checks, nil
}

// Result fetches a single check by ID for the given user.
func (c checker) Result(ctx context.Context, userID domain.UserID, checkID domain.CheckID) (*domain.Check, error) {
	res, err := c.storage.UserCheckByID(ctx, userID, checkID)
	if err != nil {
		return nil, fmt.Errorf("could not get check: %w", err)
	}
	if res == nil {
		return nil, serrors.With(serrors.ErrNotFound, "check not found")
	}

	return res, nil
}

// Delete soft-deletes a check belonging to the given user. A queued job for a
// deleted check is cancelled when it runs.
func (c checker) Delete(ctx context.Context, userID domain.UserID, checkID domain.CheckID) error {
	res, err := c.storage.DeleteCheck(ctx, userID, checkID)
	if err != nil {
		return fmt.Errorf("could not delete check: %w", err)
	}
	if res == nil {
		return serrors.With(serrors.ErrNotFound, "check not found")
	}

	return nil
}

func (c checker) maxBatchItems() int {
	if c.options.MaxBatchItems > 0 {
		return c.options.MaxBatchItems
	}

	return DefaultMaxBatchItems
}

func isBadInput(err error) bool {
	return err != nil && errors.Is(err, serrors.ErrBadRequest)
}

// New creates a Checker backed by the provided storage and analyzer.
func New(storage storage.Storage, analyzer analyzer.Analyzer, options Options) Checker {
	return &checker{
		options:  options,
		storage:  storage,
		analyzer: analyzer,
	}
}
