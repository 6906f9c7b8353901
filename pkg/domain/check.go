package domain

import (
	"time"

	"github.com/google/uuid"
)

// CheckID uniquely identifies a persisted check.
type CheckID uuid.UUID

// BatchID groups checks that were submitted together.
type BatchID uuid.UUID

// CheckStatus is the lifecycle state of a check.
type CheckStatus string

const (
	// CheckStatusPending means the check is queued for a background worker.
	CheckStatusPending CheckStatus = "PENDING"
	// CheckStatusCompleted means the site was reached and a verdict is available.
	CheckStatusCompleted CheckStatus = "COMPLETED"
	// CheckStatusFailed means the site could not be reached; see LastError.
	CheckStatusFailed CheckStatus = "FAILED"
)

// Check is a persisted analysis request and its latest report.
type Check struct {
	ID      CheckID  `json:"id"`
	UserID  UserID   `json:"userId"`
	BatchID *BatchID `json:"batchId,omitempty"`

	// Input is the raw URL or domain the user submitted.
	Input  string      `json:"input"`
	Status CheckStatus `json:"status"`
	Report Report      `json:"report"`

	// Attempts counts how many times a worker processed the check.
	Attempts uint `json:"attempts"`
	// LastError holds the failure message of a FAILED check.
	LastError string `json:"lastError,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	DeletedAt time.Time `json:"-"`
}

func (c CheckID) String() string { return uuid.UUID(c).String() }

func (b BatchID) String() string { return uuid.UUID(b).String() }
