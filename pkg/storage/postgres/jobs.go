package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sitecheck/pkg/storage"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverdatabasesql"
)

// newJobClient returns a river client that can only insert jobs within a
// caller supplied transaction.
func newJobClient() (*river.Client[*sql.Tx], error) {
	client, err := river.NewClient(riverdatabasesql.New(nil), &river.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", err)
	}

	return client, nil
}

// AddJob enqueues a river job. Inside a transaction the job becomes visible
// only on commit; outside one it is inserted in a transaction of its own.
// It reports false when a unique job with the same arguments already exists.
func (p *PgSQL) AddJob(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error) {
	tx, ok := p.DB.(*sql.Tx)
	if !ok {
		var inserted bool
		err := p.WithTx(ctx, func(s storage.AllStorage) error {
			var err error
			inserted, err = s.AddJob(ctx, args, opts)

			return err //nolint: wrapcheck
		})

		return inserted, err
	}

	if p.jobs == nil {
		client, err := newJobClient()
		if err != nil {
			return false, err
		}
		p.jobs = client
	}

	res, err := p.jobs.InsertTx(ctx, tx, args, opts)
	if err != nil {
		return false, fmt.Errorf("could not insert job: %w", err)
	}

	return !res.UniqueSkippedAsDuplicate, nil
}
