package domain

import "github.com/google/uuid"

// UserID identifies the owner of checks. It is the subject of the bearer token.
type UserID uuid.UUID

func (u UserID) String() string { return uuid.UUID(u).String() }
