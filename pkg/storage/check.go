package storage

import (
	"context"
	"sitecheck/pkg/domain"
	"time"
)

// CheckUpdates describes the fields applied to a pending check once a worker
// has processed it.
type CheckUpdates struct {
	// Status is the new status to set for the check.
	Status domain.CheckStatus
	// Report, when provided, replaces the stored report.
	Report *domain.Report
	// LastError, when provided, sets the last error text. An empty string value
	// indicates the error should be cleared (set to NULL).
	LastError *string
	// MaxAttempts, when provided alongside a Failed status, ensures that status
	// is only updated to Failed once the attempts after increment reach this
	// threshold. A value <= 0 disables this guard.
	MaxAttempts int
}

// UserChecks groups a page of checks returned for a user together with an
// optional NextCursor used for pagination.
type UserChecks struct {
	// Checks contains the current page of check records.
	Checks []domain.Check
	// NextCursor points to the timestamp to be used as the cursor for fetching
	// the next page. It is nil when there is no next page.
	NextCursor *time.Time
}

// CheckStorage defines CRUD and query operations related to checks. Soft-deleted
// rows are invisible to every read and update.
type CheckStorage interface {
	// StoreChecks inserts one or more checks and returns the stored rows as they
	// exist in the database (including generated fields).
	StoreChecks(ctx context.Context, checks ...domain.Check) ([]domain.Check, error)
	// CheckByID fetches a check by ID regardless of its owner. Returns nil when
	// not found.
	CheckByID(ctx context.Context, ID domain.CheckID) (*domain.Check, error)
	// UpdatePendingCheck applies updates to a check that is still pending and
	// returns the updated row, or nil when the check is gone or no longer pending.
	// Attempts is incremented by 1 and updated_at is set automatically.
	UpdatePendingCheck(ctx context.Context, ID domain.CheckID, updates CheckUpdates) (*domain.Check, error)
	// DeleteCheck performs a soft delete for the given check ID and user ID and
	// returns the deleted check, or nil if it was not found.
	DeleteCheck(ctx context.Context, userID domain.UserID, ID domain.CheckID) (*domain.Check, error)
	// UserChecks returns a page of checks for a user created before the optional
	// cursor time, limited by the given limit. If status is non-empty, results are
	// filtered to records with the given status.
	UserChecks(ctx context.Context,
		userID domain.UserID,
		status domain.CheckStatus,
		cursor time.Time,
		limit uint) (UserChecks, error)
	// UserCheckByID fetches a check by its ID for the given user. Returns nil
	// when not found.
	UserCheckByID(ctx context.Context, userID domain.UserID, ID domain.CheckID) (*domain.Check, error)
	// BatchChecks returns every check of a batch owned by userID, oldest first.
	BatchChecks(ctx context.Context, userID domain.UserID, batchID domain.BatchID) ([]domain.Check, error)
}
