package checker

import (
	"context"
	"sitecheck/pkg/domain"
)

//go:generate mockgen -package mockchecker -source=interface.go -destination=mock/mockchecker.go *
type Checker interface {
	Check(ctx context.Context, userID domain.UserID, input string) (*domain.Check, error)
	EnqueueBatch(ctx context.Context, userID domain.UserID, inputs []string) (domain.BatchID, []domain.Check, error)
	Process(ctx context.Context, checkID domain.CheckID) error
	UserChecks(ctx context.Context,
		userID domain.UserID,
		status domain.CheckStatus,
		cursor string,
		limit uint) ([]domain.Check, string, error)
	BatchChecks(ctx context.Context, userID domain.UserID, batchID domain.BatchID) ([]domain.Check, error)
	Result(ctx context.Context, userID domain.UserID, checkID domain.CheckID) (*domain.Check, error)
	Delete(ctx context.Context, userID domain.UserID, checkID domain.CheckID) error
}
