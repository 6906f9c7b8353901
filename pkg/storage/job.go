package storage

import (
	"context"

	"github.com/riverqueue/river"
)

// JobStorage enqueues background jobs next to the rows they refer to, so a
// check and its job are committed or rolled back together.
//
// Example:
//
//	added, err := tx.AddJob(ctx, checker.JobArgs{CheckID: id}, nil)
//	if err != nil { /* handle error */ }
type JobStorage interface {
	// AddJob enqueues a new job with the given arguments and reports whether it
	// was inserted rather than skipped as a duplicate. It is atomic with respect
	// to any surrounding transaction.
	AddJob(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error)
}
