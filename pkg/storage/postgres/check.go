package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sitecheck/pkg/domain"
	"sitecheck/pkg/storage"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const (
	checksTable = "checks"
)

func (p *PgSQL) StoreChecks(ctx context.Context, checks ...domain.Check) ([]domain.Check, error) {
	if len(checks) == 0 {
		return nil, nil
	}

	pgChecks, err := domainChecksToPg(checks)
	if err != nil {
		return nil, err
	}

	var result []PgCheck
	if err := p.Builder.Insert(checksTable).
		Rows(pgChecks).
		Returning(&PgCheck{}).
		Executor().ScanStructsContext(ctx, &result); err != nil {
		return nil, fmt.Errorf("could not store checks into pg: %w", err)
	}

	return pgChecksToDomain(result)
}

// CheckByID returns a check by its ID for any user, excluding soft-deleted rows.
func (p *PgSQL) CheckByID(ctx context.Context, id domain.CheckID) (*domain.Check, error) {
	return p.checkWhere(ctx,
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("deleted_at").IsNull(),
	)
}

// UserCheckByID returns a check by its ID and owner, excluding soft-deleted rows.
func (p *PgSQL) UserCheckByID(ctx context.Context, userID domain.UserID, id domain.CheckID) (*domain.Check, error) {
	return p.checkWhere(ctx,
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("user_id").Eq(uuid.UUID(userID)),
		goqu.I("deleted_at").IsNull(),
	)
}

func (p *PgSQL) checkWhere(ctx context.Context, where ...goqu.Expression) (*domain.Check, error) {
	var row PgCheck
	found, err := p.Builder.From(checksTable).
		Where(where...).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch check by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// UpdatePendingCheck updates a pending check with the provided fields.
// Attempts is incremented by 1 and updated_at is set. When updates asks for a
// Failed status with MaxAttempts > 0, the row stays Pending until the attempts
// after increment reach MaxAttempts.
func (p *PgSQL) UpdatePendingCheck(ctx context.Context,
	id domain.CheckID,
	updates storage.CheckUpdates) (*domain.Check, error) {
	rec := goqu.Record{
		"updated_at": goqu.L("CURRENT_TIMESTAMP"),
		"attempts":   goqu.L("attempts + 1"),
		"status":     string(updates.Status),
	}
	if updates.Status == domain.CheckStatusFailed && updates.MaxAttempts > 0 {
		rec["status"] = goqu.Case().
			When(goqu.L("attempts + 1 >= ?", updates.MaxAttempts), string(domain.CheckStatusFailed)).
			Else(goqu.I("status"))
	}
	if updates.Report != nil {
		b, err := json.Marshal(updates.Report)
		if err != nil {
			return nil, fmt.Errorf("could not marshal report: %w", err)
		}

		rec["report"] = b
	}
	if updates.LastError != nil {
		if *updates.LastError == "" {
			// set to NULL when empty string provided
			rec["last_error"] = goqu.L("NULL")
		} else {
			rec["last_error"] = *updates.LastError
		}
	}

	var row PgCheck
	found, err := p.Builder.Update(checksTable).
		Set(rec).Where(
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("status").Eq(string(domain.CheckStatusPending)),
		goqu.I("deleted_at").IsNull(),
	).Returning(&PgCheck{}).Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update pending check in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// DeleteCheck performs a soft delete by setting deleted_at timestamp
// for a given check id and user, returning the deleted record.
func (p *PgSQL) DeleteCheck(ctx context.Context, userID domain.UserID, id domain.CheckID) (*domain.Check, error) {
	var row PgCheck
	found, err := p.Builder.Update(checksTable).
		Set(goqu.Record{
			"deleted_at": goqu.L("CURRENT_TIMESTAMP"),
		}).Where(
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("user_id").Eq(uuid.UUID(userID)),
		goqu.I("deleted_at").IsNull(),
	).Returning(&PgCheck{}).Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not delete check in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// UserChecks returns a list of checks for a user filtered by optional status
// and cursor and limited by limit. Results are ordered by created_at DESC, id DESC.
func (p *PgSQL) UserChecks(ctx context.Context,
	userID domain.UserID,
	status domain.CheckStatus,
	cursor time.Time,
	limit uint) (storage.UserChecks, error) {
	w := []goqu.Expression{
		goqu.I("user_id").Eq(uuid.UUID(userID)),
		goqu.I("deleted_at").IsNull(),
	}
	if status != "" {
		w = append(w, goqu.I("status").Eq(string(status)))
	}
	if !cursor.IsZero() {
		w = append(w, goqu.I("created_at").Lt(cursor))
	}

	// fetch one extra to determine if there is a next page
	fetch := limit + 1
	ds := p.Builder.From(checksTable).
		Where(w...).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(fetch)

	var rows []PgCheck
	if err := ds.Executor().ScanStructsContext(ctx, &rows); err != nil {
		return storage.UserChecks{}, fmt.Errorf("could not fetch user checks from pg: %w", err)
	}

	var nextCursor *time.Time
	if uint(len(rows)) > limit {
		trimmed := rows[:limit]
		nextCursor = &trimmed[len(trimmed)-1].CreatedAt
		rows = trimmed
	}

	domainRows, err := pgChecksToDomain(rows)
	if err != nil {
		return storage.UserChecks{}, err
	}

	return storage.UserChecks{
		Checks:     domainRows,
		NextCursor: nextCursor,
	}, nil
}

// BatchChecks returns the checks of a batch in submission order.
func (p *PgSQL) BatchChecks(ctx context.Context, userID domain.UserID, batchID domain.BatchID) ([]domain.Check, error) {
	var rows []PgCheck
	if err := p.Builder.From(checksTable).
		Where(
			goqu.I("batch_id").Eq(uuid.UUID(batchID)),
			goqu.I("user_id").Eq(uuid.UUID(userID)),
			goqu.I("deleted_at").IsNull(),
		).
		Order(goqu.I("created_at").Asc(), goqu.I("id").Asc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch batch checks from pg: %w", err)
	}

	return pgChecksToDomain(rows)
}
