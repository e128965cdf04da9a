package core

import (
	"fmt"

	"BuildingDex/internal/dex"
	"BuildingDex/internal/ledger"
	"BuildingDex/internal/state"
)

// SnapshotBalance is one balance row in a snapshot.
type SnapshotBalance struct {
	Account   string `json:"account"`
	AssetKind uint8  `json:"asset_kind"`
	Building  uint64 `json:"building,omitempty"`
	Item      string `json:"item,omitempty"`
	Available int64  `json:"available"`
	Reserved  int64  `json:"reserved"`
}

// Snapshot is the full engine state at one block, in a shape that
// serializes cleanly. Trade history is not embedded: trades live in the
// archive and are reloaded separately on restore.
type Snapshot struct {
	Height      uint64            `json:"height"`
	TipHash     string            `json:"tip_hash"`
	StateHash   []byte            `json:"state_hash"`
	NextOrderID uint64            `json:"next_order_id"`
	TradeCount  int               `json:"trade_count"`
	Balances    []SnapshotBalance `json:"balances"`
	Orders      []dex.Order       `json:"orders"`
	Buildings   []state.Building  `json:"buildings"`
}

// ExportSnapshot captures the current state. Must be called from the
// writer goroutine between blocks.
func (e *Engine) ExportSnapshot() *Snapshot {
	stateHash := e.hasher.GetPrevHash()
	snap := &Snapshot{
		Height:      e.tipHeight,
		TipHash:     e.tipHash,
		StateHash:   stateHash[:],
		NextOrderID: e.ids.Peek(),
		TradeCount:  e.history.Len(),
		Buildings:   e.buildings.Snapshot(),
	}

	for _, k := range e.ledger.SortedKeys() {
		b := e.ledger.Get(k.Account, k.Asset)
		snap.Balances = append(snap.Balances, SnapshotBalance{
			Account:   k.Account,
			AssetKind: uint8(k.Asset.Kind),
			Building:  k.Asset.Building,
			Item:      k.Asset.Item,
			Available: b.Available,
			Reserved:  b.Reserved,
		})
	}

	for _, key := range e.books.SortedKeys() {
		book := e.books.Book(key.Building, key.Item)
		snap.Orders = append(snap.Orders, book.Orders(dex.Bid)...)
		snap.Orders = append(snap.Orders, book.Orders(dex.Ask)...)
	}

	return snap
}

// RestoreSnapshot replaces the engine state with a snapshot. The undo
// horizon starts empty: blocks below the snapshot can never be detached,
// a deeper reorg requires a resync.
func (e *Engine) RestoreSnapshot(snap *Snapshot, trades []dex.Trade) error {
	if len(snap.StateHash) != 32 {
		return fmt.Errorf("snapshot state hash has %d bytes, want 32", len(snap.StateHash))
	}
	if len(trades) != snap.TradeCount {
		return fmt.Errorf("snapshot expects %d trades, archive returned %d",
			snap.TradeCount, len(trades))
	}

	led := ledger.New()
	for _, b := range snap.Balances {
		key := ledger.Key{
			Account: b.Account,
			Asset: ledger.Asset{
				Kind:     ledger.AssetKind(b.AssetKind),
				Building: b.Building,
				Item:     b.Item,
			},
		}
		led.Apply(ledger.Entry{Key: key, AvailableDelta: b.Available, ReservedDelta: b.Reserved})
	}
	if err := led.CheckInvariants(); err != nil {
		return fmt.Errorf("snapshot balances: %w", err)
	}

	books := dex.NewBooks()
	for _, o := range snap.Orders {
		if err := books.Insert(o); err != nil {
			return fmt.Errorf("snapshot orders: %w", err)
		}
	}

	buildings := state.NewRegistry()
	for _, b := range snap.Buildings {
		buildings.Upsert(b)
	}

	history := dex.NewTradeHistory()
	for _, t := range trades {
		history.Append(t)
	}

	e.ledger = led
	e.books = books
	e.buildings = buildings
	e.history = history
	e.ids = state.NewSequence(snap.NextOrderID)
	e.market.Ledger = led
	e.market.Books = books
	e.market.Buildings = buildings
	e.market.History = history
	e.market.IDs = e.ids

	var stateHash [32]byte
	copy(stateHash[:], snap.StateHash)
	e.hasher.Restore(stateHash)

	e.frames = nil
	e.tipHeight = snap.Height
	e.tipHash = snap.TipHash
	e.view.Store(e.buildView())
	return nil
}
