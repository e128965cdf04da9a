package dex

import "BuildingDex/internal/ledger"

// BookOpKind enumerates the structural book mutations.
type BookOpKind uint8

const (
	// BookInsert placed a new resting order.
	BookInsert BookOpKind = iota + 1

	// BookRemove took an order off its book, either by full fill or by
	// cancel. Order carries the remaining quantity at removal time so undo
	// can reinsert it exactly.
	BookRemove

	// BookReduce shrank a resting order's remaining quantity by a partial
	// fill. Order.Quantity carries the amount removed, not the result.
	BookReduce
)

// BookOp is one recorded book mutation. Replaying the inverse operations in
// reverse order restores the books bit for bit.
type BookOp struct {
	Kind  BookOpKind
	Order Order
}

// Recorder collects the mutations an operation makes, in the order they are
// applied. The engine implements it with its per-block undo frame; tests
// use a plain in-memory collector.
type Recorder interface {
	OnLedger(e ledger.Entry)
	OnBook(op BookOp)
	OnTrade(t Trade)
}

// NopRecorder discards everything. Useful for bootstrap paths that never
// roll back.
type NopRecorder struct{}

func (NopRecorder) OnLedger(ledger.Entry) {}
func (NopRecorder) OnBook(BookOp)         {}
func (NopRecorder) OnTrade(Trade)         {}
