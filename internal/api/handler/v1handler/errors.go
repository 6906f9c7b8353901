package v1handler

import (
	"context"
	"net/http"
	"sitecheck/pkg/logger"
	"sitecheck/pkg/serrors"

	"github.com/go-chi/render"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed v1 request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorStatusCode pairs an ErrorResponse with its HTTP status.
type ErrorStatusCode struct {
	StatusCode int
	Response   ErrorResponse
}

var defaultMessages = map[serrors.Kind]string{ //nolint: gochecknoglobals
	serrors.ErrNotFound:     "resource not found",
	serrors.ErrUnauthorized: "unauthorized",
	serrors.ErrForbidden:    "forbidden",
	serrors.ErrBadRequest:   "invalid request",
	serrors.ErrConflict:     "conflict",
	serrors.ErrTimeout:      "request timed out",
	serrors.ErrUnavailable:  "site unavailable",
	serrors.ErrRateLimited:  "too many requests",
}

// NewError maps err to a status code and a public message. Causes wrapped in
// err are logged but never returned to the client.
func NewError(ctx context.Context, err error) *ErrorStatusCode {
	kind := serrors.KindOf(err)
	status := serrors.HTTPStatus(err)

	def, ok := defaultMessages[kind]
	if !ok {
		kind = serrors.ErrInternal
		def = "internal error"
	}

	if status >= http.StatusInternalServerError && kind == serrors.ErrInternal {
		logger.Error(ctx, "request failed", zap.Error(err))
	} else {
		logger.Debug(ctx, "request rejected", zap.Error(err), zap.Int("status", status))
	}

	return &ErrorStatusCode{
		StatusCode: status,
		Response: ErrorResponse{
			Code:    kind.Error(),
			Message: serrors.PublicMessage(err, def),
		},
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	res := NewError(r.Context(), err)
	render.Status(r, res.StatusCode)
	render.JSON(w, r, res.Response)
}
