// Package storage defines the key-value persistence contract consumed by the
// ledger core.
//
// The store is a black box with last-writer-wins put semantics. Reads come in
// two modes: confirmed reads go against the durable committed state, and
// snapshot reads observe a consistent prefix of it, so a query never sees a
// half-applied transition.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates a requested key is absent.
var ErrNotFound = errors.New("key not found")

// Reader reads state keys. Get returns ErrNotFound for absent keys.
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Snapshot is a consistent read-only view of the store. It must be closed
// when no longer needed.
type Snapshot interface {
	Reader
	Close() error
}

// Store is the mutable key-value store backing a replica. Put is an
// idempotent overwrite. Get performs a confirmed read.
type Store interface {
	Reader
	Put(ctx context.Context, key string, value []byte) error
	Snapshot(ctx context.Context) (Snapshot, error)
	Close() error
}
