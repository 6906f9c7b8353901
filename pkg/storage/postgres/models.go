package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sitecheck/pkg/domain"
	"time"

	"github.com/google/uuid"
)

// PgCheck is the row layout of the checks table.
type PgCheck struct {
	ID      uuid.UUID     `db:"id"       goqu:"skipinsert"`
	UserID  uuid.UUID     `db:"user_id"`
	BatchID uuid.NullUUID `db:"batch_id"`

	Input  string          `db:"input"`
	Status string          `db:"status"`
	Report json.RawMessage `db:"report"`

	Attempts  uint           `db:"attempts"`
	LastError sql.NullString `db:"last_error"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
	DeletedAt sql.NullTime `db:"deleted_at" goqu:"skipinsert"`
}

func (p *PgCheck) ToDomain() (*domain.Check, error) {
	var report domain.Report
	if len(p.Report) > 0 {
		if err := json.Unmarshal(p.Report, &report); err != nil {
			return nil, fmt.Errorf("could not unmarshal check report: %w", err)
		}
	}

	var batchID *domain.BatchID
	if p.BatchID.Valid {
		id := domain.BatchID(p.BatchID.UUID)
		batchID = &id
	}

	return &domain.Check{
		ID:        domain.CheckID(p.ID),
		UserID:    domain.UserID(p.UserID),
		BatchID:   batchID,
		Input:     p.Input,
		Status:    domain.CheckStatus(p.Status),
		Report:    report,
		Attempts:  p.Attempts,
		LastError: p.LastError.String,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt.Time,
		DeletedAt: p.DeletedAt.Time,
	}, nil
}

func (p *PgCheck) FromDomain(check domain.Check) error {
	report, err := json.Marshal(check.Report)
	if err != nil {
		return fmt.Errorf("could not marshal check report: %w", err)
	}

	var batchID uuid.NullUUID
	if check.BatchID != nil {
		batchID = uuid.NullUUID{UUID: uuid.UUID(*check.BatchID), Valid: true}
	}

	*p = PgCheck{
		ID:       uuid.UUID(check.ID),
		UserID:   uuid.UUID(check.UserID),
		BatchID:  batchID,
		Input:    check.Input,
		Status:   string(check.Status),
		Report:   report,
		Attempts: check.Attempts,
		LastError: sql.NullString{
			String: check.LastError,
			Valid:  check.LastError != "",
		},
		CreatedAt: check.CreatedAt,
		UpdatedAt: sql.NullTime{
			Time:  check.UpdatedAt,
			Valid: !check.UpdatedAt.IsZero(),
		},
		DeletedAt: sql.NullTime{
			Time:  check.DeletedAt,
			Valid: !check.DeletedAt.IsZero(),
		},
	}

	return nil
}

func domainChecksToPg(checks []domain.Check) ([]PgCheck, error) {
	out := make([]PgCheck, len(checks))
	for i := range out {
		if err := out[i].FromDomain(checks[i]); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func pgChecksToDomain(checks []PgCheck) ([]domain.Check, error) {
	out := make([]domain.Check, 0, len(checks))
	for _, check := range checks {
		d, err := check.ToDomain()
		if err != nil {
			return nil, err
		}

		out = append(out, *d)
	}

	return out, nil
}
