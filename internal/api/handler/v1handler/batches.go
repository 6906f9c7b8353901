package v1handler

import (
	"net/http"
	"sitecheck/pkg/domain"
	"sitecheck/pkg/serrors"

	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// CreateBatchRequest is the body of POST /v1/batches.
type CreateBatchRequest struct {
	URLs []string `json:"urls"`
}

// Batch lists the checks submitted together.
type Batch struct {
	BatchID uuid.UUID `json:"batchId"`
	Items   []Check   `json:"items"`
}

// CreateBatch queues one check per URL; workers complete them in the background.
func (h Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateBatchRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, "invalid JSON body"))

		return
	}

	batchID, checks, err := h.deps.Checker.EnqueueBatch(r.Context(), GetUserIDFromContext(r.Context()), req.URLs)
	if err != nil {
		writeError(w, r, err)

		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, Batch{BatchID: uuid.UUID(batchID), Items: domainChecksToV1(checks)})
}

// GetBatch returns the current state of every check in a batch.
func (h Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)

		return
	}

	checks, err := h.deps.Checker.BatchChecks(r.Context(), GetUserIDFromContext(r.Context()), domain.BatchID(id))
	if err != nil {
		writeError(w, r, err)

		return
	}

	render.JSON(w, r, Batch{BatchID: id, Items: domainChecksToV1(checks)})
}
