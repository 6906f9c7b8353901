package v1handler

import (
	"net/http"
	"sitecheck/pkg/domain"
	"sitecheck/pkg/serrors"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// CreateCheckRequest is the body of POST /v1/checks.
type CreateCheckRequest struct {
	URL string `json:"url"`
}

// Check is the v1 representation of a persisted check.
type Check struct {
	ID        uuid.UUID          `json:"id"`
	BatchID   *uuid.UUID         `json:"batchId,omitempty"`
	Input     string             `json:"input"`
	Status    domain.CheckStatus `json:"status"`
	Verdict   string             `json:"verdict,omitempty"`
	Report    domain.Report      `json:"report"`
	Attempts  int                `json:"attempts"`
	LastError string             `json:"lastError,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt *time.Time         `json:"updatedAt,omitempty"`
}

// CheckList is a page of checks.
type CheckList struct {
	Items      []Check `json:"items"`
	NextCursor *string `json:"nextCursor"`
}

func DomainCheckToV1(in *domain.Check) Check {
	out := Check{
		ID:        uuid.UUID(in.ID),
		Input:     in.Input,
		Status:    in.Status,
		Report:    in.Report,
		Attempts:  int(in.Attempts), //nolint: gosec
		LastError: in.LastError,
		CreatedAt: in.CreatedAt,
	}
	if in.BatchID != nil {
		id := uuid.UUID(*in.BatchID)
		out.BatchID = &id
	}
	if in.Status == domain.CheckStatusCompleted {
		out.Verdict = in.Report.Verdict()
	}
	if !in.UpdatedAt.IsZero() {
		updatedAt := in.UpdatedAt
		out.UpdatedAt = &updatedAt
	}

	return out
}

func domainChecksToV1(in []domain.Check) []Check {
	out := make([]Check, 0, len(in))
	for i := range in {
		out = append(out, DomainCheckToV1(&in[i]))
	}

	return out
}

// CreateCheck analyzes a URL synchronously and stores the result.
func (h Handler) CreateCheck(w http.ResponseWriter, r *http.Request) {
	var req CreateCheckRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, "invalid JSON body"))

		return
	}

	check, err := h.deps.Checker.Check(r.Context(), GetUserIDFromContext(r.Context()), req.URL)
	if err != nil {
		writeError(w, r, err)

		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, DomainCheckToV1(check))
}

// ListChecks returns a page of the user's checks, newest first.
func (h Handler) ListChecks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status := domain.CheckStatus(q.Get("status"))
	switch status {
	case "", domain.CheckStatusPending, domain.CheckStatusCompleted, domain.CheckStatusFailed:
	default:
		writeError(w, r, serrors.With(serrors.ErrBadRequest, "invalid status %q", status))

		return
	}

	limit := uint(DefaultLimit)
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || n == 0 || n > MaxLimit {
			writeError(w, r, serrors.With(serrors.ErrBadRequest, "limit must be between 1 and %d", MaxLimit))

			return
		}
		limit = uint(n)
	}

	checks, next, err := h.deps.Checker.UserChecks(r.Context(),
		GetUserIDFromContext(r.Context()),
		status,
		q.Get("cursor"),
		limit)
	if err != nil {
		writeError(w, r, err)

		return
	}

	res := CheckList{Items: domainChecksToV1(checks)}
	if next != "" {
		res.NextCursor = &next
	}

	render.JSON(w, r, res)
}

// GetCheck returns a single check.
func (h Handler) GetCheck(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)

		return
	}

	check, err := h.deps.Checker.Result(r.Context(), GetUserIDFromContext(r.Context()), domain.CheckID(id))
	if err != nil {
		writeError(w, r, err)

		return
	}

	render.JSON(w, r, DomainCheckToV1(check))
}

// DeleteCheck soft-deletes a check.
func (h Handler) DeleteCheck(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)

		return
	}

	if err := h.deps.Checker.Delete(r.Context(), GetUserIDFromContext(r.Context()), domain.CheckID(id)); err != nil {
		writeError(w, r, err)

		return
	}

	render.NoContent(w, r)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, serrors.Wrap(serrors.ErrBadRequest, err, "invalid id")
	}

	return id, nil
}
