package core

import (
	"BuildingDex/internal/dex"
	"BuildingDex/internal/ledger"
	"BuildingDex/internal/state"
)

// registryChange records one building registry mutation for undo.
type registryChange struct {
	id      uint64
	prev    state.Building
	existed bool
}

// Frame captures everything needed to detach one applied block. Mutations
// are recorded in apply order; undo walks each list backwards. Frames are
// kept for the most recent blocks only, bounding memory while covering any
// realistic chain reorganisation.
type Frame struct {
	Height uint64
	Hash   string
	Parent string

	entries  []ledger.Entry
	bookOps  []dex.BookOp
	registry []registryChange

	idBefore      uint64
	historyBefore int
	prevStateHash [32]byte

	// StateHash is the chained state hash after this block.
	StateHash [32]byte

	// Trades executed by this block, in order. Shares backing with the
	// trade history; used for archiving and outbound publishing.
	Trades []dex.Trade
}

// Frame implements dex.Recorder: the market funnels every mutation of a
// block through the frame being built.

func (f *Frame) OnLedger(e ledger.Entry) {
	f.entries = append(f.entries, e)
}

func (f *Frame) OnBook(op dex.BookOp) {
	f.bookOps = append(f.bookOps, op)
}

func (f *Frame) OnTrade(t dex.Trade) {
	f.Trades = append(f.Trades, t)
}

func (f *Frame) onRegistry(c registryChange) {
	f.registry = append(f.registry, c)
}
