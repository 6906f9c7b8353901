// Package storage defines the persistence interfaces the checker relies on.
// Backends such as pkg/storage/postgres provide the implementations.
//
//go:generate mockgen -package mockstorage -source=interface.go -destination=mock/mockstorage.go *
package storage

import "context"

// AllStorage groups every domain-specific capability of a storage handle.
type AllStorage interface {
	CheckStorage
	JobStorage
}

// TxStorage is a storage handle bound to a database transaction. It becomes
// unusable after Commit or Rollback.
type TxStorage interface {
	AllStorage

	// Commit finalizes the transaction, persisting all changes.
	Commit() error
	// Rollback aborts the transaction, discarding all uncommitted changes.
	Rollback() error
}

// Storage is a non-transactional storage handle able to start transactions.
type Storage interface {
	AllStorage

	// Close releases the underlying connection pool.
	Close() error

	// Begin starts a new transaction.
	Begin(ctx context.Context) (TxStorage, error)
	// WithTx runs cb inside a transaction, committing when cb returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, cb func(storage AllStorage) error) error
}
