package serrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"sitecheck/pkg/serrors"
	"testing"

	"github.com/stretchr/testify/require"
)

type customError struct{ msg string }

func (e customError) Error() string { return e.msg }

func TestDefaultKindsDistinct(t *testing.T) {
	kinds := []serrors.Kind{
		serrors.ErrNotFound,
		serrors.ErrUnauthorized,
		serrors.ErrForbidden,
		serrors.ErrBadRequest,
		serrors.ErrConflict,
		serrors.ErrInternal,
		serrors.ErrTimeout,
		serrors.ErrUnavailable,
		serrors.ErrRateLimited,
	}
	seen := map[serrors.Kind]bool{}
	for i, k := range kinds {
		require.NotNil(t, k, "kind at index %d is nil", i)
		require.False(t, seen[k], "kind at index %d is duplicate: %v", i, k)
		seen[k] = true
	}

	// Ensure some expected inequalities
	require.NotEqual(t, serrors.ErrNotFound, serrors.ErrUnauthorized, "NotFound should not equal Unauthorized")
}

func TestErrorFormatting(t *testing.T) {
	base := errors.New("db down")

	e1 := serrors.With(serrors.ErrNotFound, "check %d not found", 42)
	require.Equal(t, "check 42 not found", e1.Error(), "With() Error() mismatch")

	e2 := serrors.Wrap(serrors.ErrNotFound, base, "getting check")
	require.Equal(t, "getting check: db down", e2.Error(), "Wrap() Error() mismatch")

	e3 := serrors.KindOnly(serrors.ErrNotFound)
	require.Equal(t, "NOT_FOUND", e3.Error(), "KindOnly Error() mismatch")
}

func TestIsMatchesKindAndWrapped(t *testing.T) {
	base := customError{"root cause"}
	e := serrors.Wrap(serrors.ErrNotFound, base, "reading")

	require.ErrorIs(t, e, serrors.ErrNotFound)
	require.ErrorIs(t, e, base)
	require.NotErrorIs(t, e, serrors.ErrUnauthorized, "errors.Is should not match a different kind")
}

func TestAsMatchesKindAndWrapped(t *testing.T) {
	base := &customError{"root cause"}
	e := serrors.Wrap(serrors.ErrNotFound, base, "reading")

	var k serrors.Kind
	require.ErrorAs(t, e, &k, "errors.As should extract Kind")
	require.Equal(t, serrors.ErrNotFound, k)

	var ce *customError
	require.ErrorAs(t, e, &ce, "errors.As should extract wrapped error type")
	require.Equal(t, base, ce, "extracted cause pointer mismatch")
}

func TestAccessors(t *testing.T) {
	base := errors.New("boom")
	e := serrors.Wrap(serrors.ErrUnauthorized, base, "no token")
	require.Equal(t, serrors.ErrUnauthorized, e.Kind())
	require.Equal(t, "no token", e.Message())
	require.Equal(t, base, e.Cause())
}

func TestKindOf(t *testing.T) {
	require.Equal(t, serrors.ErrInternal, serrors.KindOf(errors.New("plain")))
	require.Equal(t, serrors.ErrNotFound, serrors.KindOf(serrors.ErrNotFound))

	wrapped := fmt.Errorf("outer: %w", serrors.With(serrors.ErrUnavailable, "cannot access website"))
	require.Equal(t, serrors.ErrUnavailable, serrors.KindOf(wrapped))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New("boom"), http.StatusInternalServerError},
		{serrors.KindOnly(serrors.ErrBadRequest), http.StatusBadRequest},
		{serrors.With(serrors.ErrNotFound, "check not found"), http.StatusNotFound},
		{serrors.Wrap(serrors.ErrUnavailable, errors.New("dial tcp"), "cannot access website"), http.StatusBadGateway},
		{serrors.KindOnly(serrors.ErrTimeout), http.StatusGatewayTimeout},
		{serrors.KindOnly(serrors.ErrRateLimited), http.StatusTooManyRequests},
		{serrors.KindOnly(serrors.NewKind("CUSTOM")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, serrors.HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestPublicMessage(t *testing.T) {
	require.Equal(t, "fallback", serrors.PublicMessage(errors.New("secret"), "fallback"))
	require.Equal(t, "invalid url", serrors.PublicMessage(
		fmt.Errorf("handler: %w", serrors.Wrap(serrors.ErrBadRequest, errors.New("parse"), "invalid url")), "fallback"))
	require.Equal(t, "fallback", serrors.PublicMessage(serrors.With(serrors.ErrInternal, "db password wrong"), "fallback"))
	require.Equal(t, "fallback", serrors.PublicMessage(serrors.KindOnly(serrors.ErrNotFound), "fallback"))
}
