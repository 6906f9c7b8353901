package checker_test

import (
	"context"
	"errors"
	mockanalyzer "sitecheck/internal/analyzer/mock"
	"sitecheck/internal/checker"
	"sitecheck/pkg/domain"
	"sitecheck/pkg/serrors"
	"sitecheck/pkg/storage"
	mockstorage "sitecheck/pkg/storage/mock"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	ctrl     *gomock.Controller
	storage  *mockstorage.MockStorage
	analyzer *mockanalyzer.MockAnalyzer
	checker  checker.Checker
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	st := mockstorage.NewMockStorage(ctrl)
	an := mockanalyzer.NewMockAnalyzer(ctrl)

	return fixture{
		ctrl:     ctrl,
		storage:  st,
		analyzer: an,
		checker:  checker.New(st, an, checker.Options{MaxAttempts: 3, MaxBatchItems: 3}),
	}
}

// expectWithTx wires Storage.WithTx to execute the callback with a MockAllStorage.
func (f fixture) expectWithTx(t *testing.T, fn func(tx *mockstorage.MockAllStorage)) {
	t.Helper()

	f.storage.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cb func(storage.AllStorage) error) error {
			tx := mockstorage.NewMockAllStorage(f.ctrl)
			if fn != nil {
				fn(tx)
			}

			return cb(tx)
		},
	)
}

func echoStore(_ context.Context, checks ...domain.Check) ([]domain.Check, error) {
	for i := range checks {
		checks[i].ID = domain.CheckID(uuid.New())
	}

	return checks, nil
}

func TestChecker_Check_Completed(t *testing.T) {
	f := newFixture(t)
	userID := domain.UserID(uuid.New())
	report := &domain.Report{Input: "bit.ly/x", Host: "bit.ly", Trusted: true, Score: 90, Label: domain.LabelGoodSafe}

	f.analyzer.EXPECT().Analyze(gomock.Any(), "bit.ly/x").Return(report, nil)
	f.storage.EXPECT().StoreChecks(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, checks ...domain.Check) ([]domain.Check, error) {
			require.Len(t, checks, 1)
			require.Equal(t, userID, checks[0].UserID)
			require.Equal(t, domain.CheckStatusCompleted, checks[0].Status)
			require.Equal(t, *report, checks[0].Report)
			require.EqualValues(t, 1, checks[0].Attempts)
			require.Nil(t, checks[0].BatchID)

			return echoStore(ctx, checks...)
		})

	check, err := f.checker.Check(context.Background(), userID, "  bit.ly/x ")
	require.NoError(t, err)
	require.Equal(t, "bit.ly/x", check.Input)
	require.Equal(t, domain.CheckStatusCompleted, check.Status)
}

func TestChecker_Check_UnreachableStoredAsFailed(t *testing.T) {
	f := newFixture(t)

	partial := &domain.Report{Input: "down.example", Host: "down.example", BaseDomain: "down.example"}
	f.analyzer.EXPECT().Analyze(gomock.Any(), "down.example").
		Return(partial, serrors.With(serrors.ErrUnavailable, "cannot access website (HTTP 503)"))
	f.storage.EXPECT().StoreChecks(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, checks ...domain.Check) ([]domain.Check, error) {
			require.Equal(t, domain.CheckStatusFailed, checks[0].Status)
			require.Equal(t, "cannot access website (HTTP 503)", checks[0].LastError)
			require.Equal(t, "down.example", checks[0].Report.Host)

			return echoStore(ctx, checks...)
		})

	check, err := f.checker.Check(context.Background(), domain.UserID(uuid.New()), "down.example")
	require.NoError(t, err)
	require.Equal(t, domain.CheckStatusFailed, check.Status)
}

func TestChecker_Check_BadInputNotStored(t *testing.T) {
	f := newFixture(t)

	f.analyzer.EXPECT().Analyze(gomock.Any(), "exa mple").Return(nil, serrors.With(serrors.ErrBadRequest, "invalid URL"))

	_, err := f.checker.Check(context.Background(), domain.UserID(uuid.New()), "exa mple")
	require.ErrorIs(t, err, serrors.ErrBadRequest)
}

func TestChecker_Check_StoreError(t *testing.T) {
	f := newFixture(t)

	f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).Return(&domain.Report{}, nil)
	f.storage.EXPECT().StoreChecks(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	_, err := f.checker.Check(context.Background(), domain.UserID(uuid.New()), "example.com")
	require.Error(t, err)
	require.Contains(t, err.Error(), "could not store check")
}

func TestChecker_EnqueueBatch(t *testing.T) {
	f := newFixture(t)
	userID := domain.UserID(uuid.New())

	var jobs []checker.JobArgs
	f.expectWithTx(t, func(tx *mockstorage.MockAllStorage) {
		tx.EXPECT().StoreChecks(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(echoStore)
		tx.EXPECT().AddJob(gomock.Any(), gomock.Any(), gomock.Nil()).Times(2).DoAndReturn(
			func(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (bool, error) {
				jobs = append(jobs, args.(checker.JobArgs))

				return true, nil
			})
	})

	batchID, checks, err := f.checker.EnqueueBatch(context.Background(), userID, []string{" a.example ", "", "   ", "b.example"})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, uuid.UUID(batchID))
	require.Len(t, checks, 2)
	for i, c := range checks {
		require.Equal(t, domain.CheckStatusPending, c.Status)
		require.Equal(t, batchID, *c.BatchID)
		require.Equal(t, uuid.UUID(c.ID), jobs[i].CheckID)
		require.Equal(t, 3, jobs[i].InsertOpts().MaxAttempts)
	}
	require.Equal(t, "a.example", checks[0].Input)
	require.Equal(t, "b.example", checks[1].Input)
}

func TestChecker_EnqueueBatch_Limits(t *testing.T) {
	f := newFixture(t)
	userID := domain.UserID(uuid.New())

	_, _, err := f.checker.EnqueueBatch(context.Background(), userID, []string{"", "  "})
	require.ErrorIs(t, err, serrors.ErrBadRequest)

	_, _, err = f.checker.EnqueueBatch(context.Background(), userID, []string{"a", "b", "c", "d"})
	require.ErrorIs(t, err, serrors.ErrBadRequest)
	require.Equal(t, "too many URLs: 4 given, at most 3 allowed", err.Error())
}

func TestChecker_EnqueueBatch_DefaultLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := checker.New(mockstorage.NewMockStorage(ctrl), mockanalyzer.NewMockAnalyzer(ctrl), checker.Options{})

	inputs := make([]string, checker.DefaultMaxBatchItems+1)
	for i := range inputs {
		inputs[i] = "site" + strconv.Itoa(i) + ".example"
	}

	_, _, err := c.EnqueueBatch(context.Background(), domain.UserID(uuid.New()), inputs)
	require.ErrorIs(t, err, serrors.ErrBadRequest)
}

func TestChecker_EnqueueBatch_AddJobFails(t *testing.T) {
	f := newFixture(t)

	f.expectWithTx(t, func(tx *mockstorage.MockAllStorage) {
		tx.EXPECT().StoreChecks(gomock.Any(), gomock.Any()).DoAndReturn(echoStore)
		tx.EXPECT().AddJob(gomock.Any(), gomock.Any(), gomock.Nil()).Return(false, errors.New("queue down"))
	})

	_, _, err := f.checker.EnqueueBatch(context.Background(), domain.UserID(uuid.New()), []string{"a.example"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "could not add job")
}

func TestChecker_Process(t *testing.T) {
	id := domain.CheckID(uuid.New())
	pending := &domain.Check{ID: id, Input: "shop.example", Status: domain.CheckStatusPending}

	t.Run("missing check conflicts", func(t *testing.T) {
		f := newFixture(t)
		f.storage.EXPECT().CheckByID(gomock.Any(), id).Return(nil, nil)

		require.ErrorIs(t, f.checker.Process(context.Background(), id), serrors.ErrConflict)
	})

	t.Run("processed check is a no-op", func(t *testing.T) {
		f := newFixture(t)
		f.storage.EXPECT().CheckByID(gomock.Any(), id).Return(&domain.Check{ID: id, Status: domain.CheckStatusCompleted}, nil)

		require.NoError(t, f.checker.Process(context.Background(), id))
	})

	t.Run("success completes check", func(t *testing.T) {
		f := newFixture(t)
		report := &domain.Report{Input: "shop.example", Score: 80, Label: domain.LabelGoodSafe}
		f.storage.EXPECT().CheckByID(gomock.Any(), id).Return(pending, nil)
		f.analyzer.EXPECT().Analyze(gomock.Any(), "shop.example").Return(report, nil)
		f.storage.EXPECT().UpdatePendingCheck(gomock.Any(), id, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ domain.CheckID, u storage.CheckUpdates) (*domain.Check, error) {
				require.Equal(t, domain.CheckStatusCompleted, u.Status)
				require.Equal(t, report, u.Report)
				require.NotNil(t, u.LastError)
				require.Empty(t, *u.LastError)

				return &domain.Check{ID: id, Status: u.Status, Report: *u.Report}, nil
			})

		require.NoError(t, f.checker.Process(context.Background(), id))
	})

	t.Run("fetch failure retries until max attempts", func(t *testing.T) {
		f := newFixture(t)
		f.storage.EXPECT().CheckByID(gomock.Any(), id).Return(pending, nil)
		f.analyzer.EXPECT().Analyze(gomock.Any(), "shop.example").
			Return(&domain.Report{Input: "shop.example"}, serrors.With(serrors.ErrUnavailable, "cannot access website (timeout)"))
		f.storage.EXPECT().UpdatePendingCheck(gomock.Any(), id, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ domain.CheckID, u storage.CheckUpdates) (*domain.Check, error) {
				require.Equal(t, domain.CheckStatusFailed, u.Status)
				require.Equal(t, 3, u.MaxAttempts)
				require.Equal(t, "cannot access website (timeout)", *u.LastError)

				return &domain.Check{ID: id, Status: domain.CheckStatusPending}, nil
			})

		err := f.checker.Process(context.Background(), id)
		require.ErrorIs(t, err, serrors.ErrUnavailable)
	})

	t.Run("final failure is recorded", func(t *testing.T) {
		f := newFixture(t)
		f.storage.EXPECT().CheckByID(gomock.Any(), id).Return(pending, nil)
		f.analyzer.EXPECT().Analyze(gomock.Any(), "shop.example").
			Return(nil, serrors.With(serrors.ErrUnavailable, "cannot access website (timeout)"))
		f.storage.EXPECT().UpdatePendingCheck(gomock.Any(), id, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ domain.CheckID, u storage.CheckUpdates) (*domain.Check, error) {
				require.Equal(t, "shop.example", u.Report.Input)

				return &domain.Check{ID: id, Status: domain.CheckStatusFailed}, nil
			})

		require.NoError(t, f.checker.Process(context.Background(), id))
	})

	t.Run("bad input fails without retry guard", func(t *testing.T) {
		f := newFixture(t)
		f.storage.EXPECT().CheckByID(gomock.Any(), id).Return(&domain.Check{ID: id, Input: "a..b", Status: domain.CheckStatusPending}, nil)
		f.analyzer.EXPECT().Analyze(gomock.Any(), "a..b").Return(nil, serrors.With(serrors.ErrBadRequest, "invalid URL"))
		f.storage.EXPECT().UpdatePendingCheck(gomock.Any(), id, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ domain.CheckID, u storage.CheckUpdates) (*domain.Check, error) {
				require.Equal(t, domain.CheckStatusFailed, u.Status)
				require.Zero(t, u.MaxAttempts)

				return &domain.Check{ID: id, Status: domain.CheckStatusFailed}, nil
			})

		require.NoError(t, f.checker.Process(context.Background(), id))
	})

	t.Run("deleted while analyzing conflicts", func(t *testing.T) {
		f := newFixture(t)
		f.storage.EXPECT().CheckByID(gomock.Any(), id).Return(pending, nil)
		f.analyzer.EXPECT().Analyze(gomock.Any(), "shop.example").Return(&domain.Report{}, nil)
		f.storage.EXPECT().UpdatePendingCheck(gomock.Any(), id, gomock.Any()).Return(nil, nil)

		require.ErrorIs(t, f.checker.Process(context.Background(), id), serrors.ErrConflict)
	})

	t.Run("storage error", func(t *testing.T) {
		f := newFixture(t)
		f.storage.EXPECT().CheckByID(gomock.Any(), id).Return(nil, errors.New("db down"))

		err := f.checker.Process(context.Background(), id)
		require.Error(t, err)
		require.NotErrorIs(t, err, serrors.ErrConflict)
	})
}

func TestChecker_UserChecks(t *testing.T) {
	f := newFixture(t)
	userID := domain.UserID(uuid.New())
	next := time.Date(2026, 3, 1, 10, 0, 0, 123000000, time.UTC)

	cursor := "2026-03-02T10:00:00Z"
	f.storage.EXPECT().UserChecks(gomock.Any(), userID, domain.CheckStatusFailed,
		time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), uint(5)).
		Return(storage.UserChecks{Checks: []domain.Check{{Input: "a"}}, NextCursor: &next}, nil)

	checks, nextCursor, err := f.checker.UserChecks(context.Background(), userID, domain.CheckStatusFailed, cursor, 5)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	require.Equal(t, "2026-03-01T10:00:00.123Z", nextCursor)

	_, _, err = f.checker.UserChecks(context.Background(), userID, "", "yesterday", 5)
	require.ErrorIs(t, err, serrors.ErrBadRequest)
}

func TestChecker_BatchChecks(t *testing.T) {
	f := newFixture(t)
	userID := domain.UserID(uuid.New())
	batchID := domain.BatchID(uuid.New())

	f.storage.EXPECT().BatchChecks(gomock.Any(), userID, batchID).Return([]domain.Check{{Input: "a"}}, nil)
	checks, err := f.checker.BatchChecks(context.Background(), userID, batchID)
	require.NoError(t, err)
	require.Len(t, checks, 1)

	f.storage.EXPECT().BatchChecks(gomock.Any(), userID, batchID).Return(nil, nil)
	_, err = f.checker.BatchChecks(context.Background(), userID, batchID)
	require.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestChecker_ResultAndDelete(t *testing.T) {
	f := newFixture(t)
	userID := domain.UserID(uuid.New())
	id := domain.CheckID(uuid.New())

	f.storage.EXPECT().UserCheckByID(gomock.Any(), userID, id).Return(&domain.Check{ID: id}, nil)
	got, err := f.checker.Result(context.Background(), userID, id)
	require.NoError(t, err)
	require.Equal(t, id, got.ID)

	f.storage.EXPECT().UserCheckByID(gomock.Any(), userID, id).Return(nil, nil)
	_, err = f.checker.Result(context.Background(), userID, id)
	require.ErrorIs(t, err, serrors.ErrNotFound)

	f.storage.EXPECT().DeleteCheck(gomock.Any(), userID, id).Return(&domain.Check{ID: id}, nil)
	require.NoError(t, f.checker.Delete(context.Background(), userID, id))

	f.storage.EXPECT().DeleteCheck(gomock.Any(), userID, id).Return(nil, nil)
	require.ErrorIs(t, f.checker.Delete(context.Background(), userID, id), serrors.ErrNotFound)
}
