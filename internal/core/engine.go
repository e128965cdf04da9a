package core

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"BuildingDex/internal/dex"
	"BuildingDex/internal/event"
	"BuildingDex/internal/ledger"
	"BuildingDex/internal/observability"
	"BuildingDex/internal/state"
)

var (
	// ErrOrphanBlock is returned when an attached block's parent is not the
	// current tip. The feed must deliver blocks strictly in chain order.
	ErrOrphanBlock = errors.New("block does not extend the current tip")

	// ErrNothingToDetach is returned when a detach arrives but no undo
	// frame is left. Recovery requires a resync from a snapshot.
	ErrNothingToDetach = errors.New("no undo frame available")

	// ErrDetachMismatch is returned when the detach names a different block
	// than the one at the tip.
	ErrDetachMismatch = errors.New("detach does not match tip block")
)

// DefaultMaxUndoDepth bounds how many blocks can be rolled back. Reorgs
// deeper than this are far beyond anything the chain produces.
const DefaultMaxUndoDepth = 1_000

// BlockOutput is what the engine emits after each state transition, for
// archiving and outbound publishing. Detach outputs carry the height and
// hash of the block that was removed.
type BlockOutput struct {
	Detach    bool
	Height    uint64
	Hash      string
	Parent    string
	Time      int64
	StateHash [32]byte
	Trades    []dex.Trade
}

// Config configures a new engine.
type Config struct {
	// BaseFeeBps is the exchange-wide burned fee added to every trade on
	// top of the building owner's cut.
	BaseFeeBps int64

	// Items is the catalog of tradable item types.
	Items []string

	// MaxUndoDepth caps retained undo frames; zero means
	// DefaultMaxUndoDepth.
	MaxUndoDepth int

	// OutputChan receives a BlockOutput per attach and detach. Nil
	// disables emission (tests).
	OutputChan chan<- BlockOutput

	Logger zerolog.Logger
}

// Engine is the single-threaded block processor. Exactly one goroutine
// calls AttachBlock and DetachBlock; everyone else reads through View().
//
// Every piece of state the engine owns is either rebuilt from blocks or
// recorded in undo frames, so attach followed by detach restores the prior
// state bit for bit, and any replay of the same blocks produces the same
// state hashes.
type Engine struct {
	log zerolog.Logger

	ledger    *ledger.Ledger
	books     *dex.Books
	buildings *state.Registry
	items     *state.Catalog
	history   *dex.TradeHistory
	ids       *state.Sequence
	market    *dex.Market
	hasher    *StateHasher

	frames       []*Frame
	maxUndoDepth int
	tipHeight    uint64
	tipHash      string

	outputChan chan<- BlockOutput

	view atomic.Pointer[View]
}

func New(cfg Config) *Engine {
	maxUndo := cfg.MaxUndoDepth
	if maxUndo <= 0 {
		maxUndo = DefaultMaxUndoDepth
	}

	led := ledger.New()
	books := dex.NewBooks()
	buildings := state.NewRegistry()
	items := state.NewCatalog(cfg.Items...)
	history := dex.NewTradeHistory()
	ids := state.NewSequence(1)

	e := &Engine{
		log:       cfg.Logger,
		ledger:    led,
		books:     books,
		buildings: buildings,
		items:     items,
		history:   history,
		ids:       ids,
		market: &dex.Market{
			Ledger:     led,
			Books:      books,
			Buildings:  buildings,
			Items:      items,
			History:    history,
			IDs:        ids,
			BaseFeeBps: cfg.BaseFeeBps,
		},
		hasher:       NewStateHasher(),
		maxUndoDepth: maxUndo,
		outputChan:   cfg.OutputChan,
	}
	e.view.Store(e.buildView())
	return e
}

// BootstrapBuilding seeds a building before the first block. Bootstrap
// state is below the undo horizon and can never be rolled back.
func (e *Engine) BootstrapBuilding(b state.Building) {
	e.buildings.Upsert(b)
	e.view.Store(e.buildView())
}

// BootstrapCredit seeds a balance before the first block.
func (e *Engine) BootstrapCredit(account string, asset ledger.Asset, amount int64) {
	e.ledger.Credit(account, asset, amount)
	e.view.Store(e.buildView())
}

// TipHeight returns the height of the last attached block.
func (e *Engine) TipHeight() uint64 { return e.tipHeight }

// TipHash returns the chain hash of the last attached block.
func (e *Engine) TipHash() string { return e.tipHash }

// StateHash returns the current chained state hash.
func (e *Engine) StateHash() [32]byte { return e.hasher.GetPrevHash() }

// UndoDepth returns how many blocks can currently be detached.
func (e *Engine) UndoDepth() int { return len(e.frames) }

// View returns the committed state snapshot. Safe from any goroutine.
func (e *Engine) View() *View { return e.view.Load() }

// AttachBlock applies one confirmed block on top of the tip. Individual
// commands that fail validation are skipped; the block itself always
// commits. Redelivery of the tip block is ignored.
func (e *Engine) AttachBlock(blk *event.Block) error {
	start := time.Now()

	if blk.Hash == e.tipHash && blk.Hash != "" {
		e.log.Debug().Uint64("height", blk.Height).Str("hash", blk.Hash).
			Msg("duplicate block attach ignored")
		return nil
	}
	if e.tipHash != "" && blk.Parent != e.tipHash {
		return fmt.Errorf("attach %d (%s on %s, tip %s): %w",
			blk.Height, blk.Hash, blk.Parent, e.tipHash, ErrOrphanBlock)
	}

	frame := &Frame{
		Height:        blk.Height,
		Hash:          blk.Hash,
		Parent:        blk.Parent,
		idBefore:      e.ids.Peek(),
		historyBefore: e.history.Len(),
		prevStateHash: e.hasher.GetPrevHash(),
	}

	bc := dex.BlockContext{Height: blk.Height, Time: blk.Time}
	for i, cmd := range blk.Commands {
		if err := e.applyCommand(frame, bc, cmd); err != nil {
			e.log.Warn().
				Uint64("height", blk.Height).
				Int("index", i).
				Str("command", cmd.CommandType().String()).
				Str("reason", observability.RejectReason(err)).
				Err(err).
				Msg("command skipped")
			observability.CommandsRejected.WithLabelValues(
				cmd.CommandType().String(), observability.RejectReason(err)).Inc()
			continue
		}
		observability.CommandsApplied.WithLabelValues(cmd.CommandType().String()).Inc()
	}

	frame.StateHash = e.hasher.ComputeHash(blk.Height, e.computeStateDigest())

	e.frames = append(e.frames, frame)
	if len(e.frames) > e.maxUndoDepth {
		// drop the oldest frame; that block can no longer be detached
		copy(e.frames, e.frames[1:])
		e.frames = e.frames[:len(e.frames)-1]
	}
	e.tipHeight = blk.Height
	e.tipHash = blk.Hash
	e.view.Store(e.buildView())

	observability.BlocksAttached.Inc()
	observability.TipHeight.Set(float64(blk.Height))
	observability.OpenOrders.Set(float64(e.books.OpenOrders()))
	observability.TradesExecuted.Add(float64(len(frame.Trades)))
	observability.BlockApplySeconds.Observe(time.Since(start).Seconds())

	e.emit(BlockOutput{
		Height:    blk.Height,
		Hash:      blk.Hash,
		Parent:    blk.Parent,
		Time:      blk.Time,
		StateHash: frame.StateHash,
		Trades:    frame.Trades,
	})
	return nil
}

// DetachBlock rolls back the tip block. hash may be empty to skip the
// sanity check.
func (e *Engine) DetachBlock(hash string) error {
	if len(e.frames) == 0 {
		return ErrNothingToDetach
	}
	f := e.frames[len(e.frames)-1]
	if hash != "" && f.Hash != hash {
		return fmt.Errorf("detach %s but tip is %s at height %d: %w",
			hash, f.Hash, f.Height, ErrDetachMismatch)
	}

	// Undo in strict reverse order of application.
	for i := len(f.registry) - 1; i >= 0; i-- {
		c := f.registry[i]
		if c.existed {
			e.buildings.Upsert(c.prev)
		} else {
			e.buildings.Delete(c.id)
		}
	}
	for i := len(f.bookOps) - 1; i >= 0; i-- {
		if err := e.undoBookOp(f.bookOps[i]); err != nil {
			return fmt.Errorf("undo block %d: %w", f.Height, err)
		}
	}
	for i := len(f.entries) - 1; i >= 0; i-- {
		e.ledger.Apply(f.entries[i].Inverse())
	}
	e.history.Truncate(f.historyBefore)
	e.ids.Restore(f.idBefore)
	e.hasher.Restore(f.prevStateHash)

	e.frames = e.frames[:len(e.frames)-1]
	e.tipHeight = f.Height - 1
	e.tipHash = f.Parent
	e.view.Store(e.buildView())

	observability.BlocksDetached.Inc()
	observability.TipHeight.Set(float64(e.tipHeight))
	observability.OpenOrders.Set(float64(e.books.OpenOrders()))

	e.log.Info().Uint64("height", f.Height).Str("hash", f.Hash).
		Msg("block detached")

	e.emit(BlockOutput{
		Detach: true,
		Height: f.Height,
		Hash:   f.Hash,
		Parent: f.Parent,
	})
	return nil
}

func (e *Engine) emit(out BlockOutput) {
	if e.outputChan != nil {
		e.outputChan <- out
	}
}

func (e *Engine) applyCommand(frame *Frame, bc dex.BlockContext, cmd event.Command) error {
	switch c := cmd.(type) {
	case *event.PlaceOrder:
		return e.market.PlaceOrder(frame, bc, dex.NewOrder{
			Account:  c.Account,
			Building: c.Building,
			Item:     c.Item,
			Side:     c.Side,
			Quantity: c.Quantity,
			Price:    c.Price,
		})

	case *event.CancelOrder:
		return e.market.CancelOrder(frame, c.Account, c.OrderID)

	case *event.TransferItem:
		return e.market.TransferItem(frame, c.Account, c.Building, c.Item, c.Quantity, c.Recipient)

	case *event.SetFee:
		prevBld, ok := e.buildings.Get(c.Building)
		_, err := e.buildings.SetFee(c.Building, c.FeeBps)
		if err != nil {
			return err
		}
		frame.onRegistry(registryChange{id: c.Building, prev: prevBld, existed: ok})
		return nil

	case *event.UpsertBuilding:
		if c.FeeBps < 0 || c.FeeBps >= state.MaxFeeBps {
			return fmt.Errorf("building %d fee %d bps: %w",
				c.Building, c.FeeBps, state.ErrInvalidConfiguration)
		}
		prev, existed := e.buildings.Upsert(state.Building{
			ID:         c.Building,
			Owner:      c.Owner,
			FeeBps:     c.FeeBps,
			Foundation: c.Foundation,
		})
		frame.onRegistry(registryChange{id: c.Building, prev: prev, existed: existed})
		return nil

	default:
		return fmt.Errorf("unhandled command type %s", cmd.CommandType())
	}
}

func (e *Engine) undoBookOp(op dex.BookOp) error {
	switch op.Kind {
	case dex.BookInsert:
		_, err := e.books.Remove(op.Order.ID)
		return err
	case dex.BookRemove:
		return e.books.Insert(op.Order)
	case dex.BookReduce:
		_, book, ok := e.books.Find(op.Order.ID)
		if !ok {
			return fmt.Errorf("undo reduce: order %d: %w", op.Order.ID, dex.ErrOrderNotFound)
		}
		return book.Restore(op.Order.ID, op.Order.Quantity)
	default:
		return fmt.Errorf("unhandled book op kind %d", op.Kind)
	}
}

// computeStateDigest serializes the complete state canonically: balances,
// books, buildings, the id counter and the trade count, all in sorted
// order. Two states with equal digests are behaviourally identical.
func (e *Engine) computeStateDigest() []byte {
	h := newDigestWriter()

	for _, k := range e.ledger.SortedKeys() {
		b := e.ledger.Get(k.Account, k.Asset)
		h.writeString(k.Path())
		h.writeInt64(b.Available)
		h.writeInt64(b.Reserved)
	}

	for _, key := range e.books.SortedKeys() {
		book := e.books.Book(key.Building, key.Item)
		// A drained book is not state: a restore rebuilds books from
		// resting orders only, and a detach can leave behind a book the
		// detached block created. Digesting it would make equivalent
		// states hash differently.
		if book.Len() == 0 {
			continue
		}
		h.writeUint64(key.Building)
		h.writeString(key.Item)
		for _, side := range []dex.Side{dex.Bid, dex.Ask} {
			orders := book.Orders(side)
			h.writeUint64(uint64(len(orders)))
			for _, o := range orders {
				h.writeUint64(o.ID)
				h.writeString(o.Account)
				h.writeInt64(o.Price)
				h.writeInt64(o.Quantity)
			}
		}
	}

	for _, id := range e.buildings.SortedIDs() {
		b, _ := e.buildings.Get(id)
		h.writeUint64(b.ID)
		h.writeString(b.Owner)
		h.writeInt64(b.FeeBps)
		if b.Foundation {
			h.writeUint64(1)
		} else {
			h.writeUint64(0)
		}
	}

	h.writeUint64(e.ids.Peek())
	h.writeUint64(uint64(e.history.Len()))

	return h.sum()
}

// digestWriter wraps a hash with length-prefixed primitive encoders so no
// two distinct states can serialize to the same byte stream.
type digestWriter struct {
	h hash.Hash
}

func newDigestWriter() *digestWriter {
	return &digestWriter{h: sha256.New()}
}

func (d *digestWriter) writeUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	d.h.Write(buf[:])
}

func (d *digestWriter) writeInt64(v int64) {
	d.writeUint64(uint64(v))
}

func (d *digestWriter) writeString(s string) {
	d.writeUint64(uint64(len(s)))
	d.h.Write([]byte(s))
}

func (d *digestWriter) sum() []byte {
	return d.h.Sum(nil)
}

func (e *Engine) buildView() *View {
	books := make(map[dex.BookKey]BookView, len(e.books.SortedKeys()))
	for _, key := range e.books.SortedKeys() {
		book := e.books.Book(key.Building, key.Item)
		if book.Len() == 0 {
			continue
		}
		books[key] = BookView{
			Bids: book.Orders(dex.Bid),
			Asks: book.Orders(dex.Ask),
		}
	}

	return &View{
		Height:    e.tipHeight,
		BlockHash: e.tipHash,
		StateHash: e.hasher.GetPrevHash(),
		balances:  e.ledger.Snapshot(),
		books:     books,
		buildings: e.buildings.Snapshot(),
		trades:    e.history.All(),
		nextID:    e.ids.Peek(),
	}
}
