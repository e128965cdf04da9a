package state

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownBuilding is returned when an operation names a building the
	// registry has never seen.
	ErrUnknownBuilding = errors.New("unknown building")

	// ErrFoundation is returned when an exchange operation targets a
	// building that is still under construction. Foundations have no
	// functioning market.
	ErrFoundation = errors.New("building is a foundation")

	// ErrInvalidConfiguration is returned for out-of-range fee settings.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// MaxFeeBps is the exclusive upper bound for the owner fee. A fee of 100%
// or more would leave the seller with nothing (or less).
const MaxFeeBps = 10_000

// Building is the market-relevant slice of a building's state. Owner is
// empty for ancient buildings that no player controls; their owner fee is
// burned instead of paid out.
type Building struct {
	ID         uint64
	Owner      string
	FeeBps     int64
	Foundation bool
}

// Registry tracks all buildings known to the exchange. It is mutated only by
// the engine's single writer thread.
type Registry struct {
	buildings map[uint64]Building
}

func NewRegistry() *Registry {
	return &Registry{
		buildings: make(map[uint64]Building),
	}
}

// Get looks up a building by id.
func (r *Registry) Get(id uint64) (Building, bool) {
	b, ok := r.buildings[id]
	return b, ok
}

// Upsert inserts or replaces a building record. It returns the previous
// record and whether one existed, so the caller can record an undo step.
func (r *Registry) Upsert(b Building) (Building, bool) {
	prev, existed := r.buildings[b.ID]
	r.buildings[b.ID] = b
	return prev, existed
}

// Delete removes a building record. Used only by undo.
func (r *Registry) Delete(id uint64) {
	delete(r.buildings, id)
}

// SetFee updates the owner fee of a building and returns the previous value.
// Fees are validated to [0, MaxFeeBps).
func (r *Registry) SetFee(id uint64, bps int64) (int64, error) {
	b, ok := r.buildings[id]
	if !ok {
		return 0, fmt.Errorf("building %d: %w", id, ErrUnknownBuilding)
	}
	if bps < 0 || bps >= MaxFeeBps {
		return 0, fmt.Errorf("fee %d bps for building %d: %w", bps, id, ErrInvalidConfiguration)
	}
	old := b.FeeBps
	b.FeeBps = bps
	r.buildings[id] = b
	return old, nil
}

// SortedIDs returns all building ids in ascending order, for the state
// digest and query listings.
func (r *Registry) SortedIDs() []uint64 {
	ids := make([]uint64, 0, len(r.buildings))
	for id := range r.buildings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot returns a copy of all building records.
func (r *Registry) Snapshot() []Building {
	out := make([]Building, 0, len(r.buildings))
	for _, id := range r.SortedIDs() {
		out = append(out, r.buildings[id])
	}
	return out
}
