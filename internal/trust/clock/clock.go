// Package clock provides the one-shot deterministic clock gate.
//
// Replicated transitions must never consult a local wall clock. The gate is
// the sole writer of the currentTime state key: the first externally
// supplied value wins and the key is frozen forever after, so replaying the
// same log can never observe a different time.
package clock

import (
	"context"

	"github.com/intercomtrust/trustledger/internal/storage"
	"github.com/intercomtrust/trustledger/internal/trust/state"
)

// Store is the subset of the key-value store the gate needs.
type Store interface {
	storage.Reader
	state.Writer
}

// Gate guards the currentTime state key.
type Gate struct {
	store Store
}

// NewGate returns a gate over the given store.
func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// SetIfAbsent records value as the network-agreed time iff no value has been
// recorded yet. It reports whether the write was applied.
func (g *Gate) SetIfAbsent(ctx context.Context, value int64) (bool, error) {
	existing, err := state.LoadCurrentTime(ctx, g.store)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	if err := state.SaveCurrentTime(ctx, g.store, value); err != nil {
		return false, err
	}
	return true, nil
}

// Read returns the recorded time, or nil when the gate has never fired.
func (g *Gate) Read(ctx context.Context) (*int64, error) {
	return state.LoadCurrentTime(ctx, g.store)
}
