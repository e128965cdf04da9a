package dex

import (
	"fmt"

	"BuildingDex/internal/ledger"
	"BuildingDex/internal/state"
)

// Market executes exchange operations against the shared ledger, books and
// trade history. It performs all validation up front and only then mutates,
// so a failed operation leaves no trace and records nothing.
//
// Market is driven exclusively by the engine's single writer thread.
type Market struct {
	Ledger    *ledger.Ledger
	Books     *Books
	Buildings *state.Registry
	Items     *state.Catalog
	History   *TradeHistory
	IDs       *state.Sequence

	// BaseFeeBps is the exchange-wide fee that is burned on every trade,
	// in addition to the building owner's cut.
	BaseFeeBps int64
}

// BlockContext carries the block coordinates stamped onto trades.
type BlockContext struct {
	Height uint64
	Time   int64
}

// NewOrder describes an order request before it has an id. Ids are assigned
// only if a remainder actually rests on the book.
type NewOrder struct {
	Account  string
	Building uint64
	Item     string
	Side     Side
	Quantity int64
	Price    int64
}

// market validates that a building can trade the given item and returns its
// record.
func (m *Market) market(building uint64, item string) (state.Building, error) {
	b, ok := m.Buildings.Get(building)
	if !ok {
		return state.Building{}, fmt.Errorf("building %d: %w", building, state.ErrUnknownBuilding)
	}
	if b.Foundation {
		return state.Building{}, fmt.Errorf("building %d: %w", building, state.ErrFoundation)
	}
	if !m.Items.Known(item) {
		return state.Building{}, fmt.Errorf("item %q: %w", item, state.ErrUnknownItem)
	}
	return b, nil
}

// apply funnels a ledger entry through the recorder, dropping no-op entries
// (e.g. the zero coin legs of a zero-price trade).
func (m *Market) apply(rec Recorder, e ledger.Entry) {
	if e.IsZero() {
		return
	}
	rec.OnLedger(e)
}

// crosses reports whether a taker at limit price meets a maker at
// makerPrice.
func crosses(takerSide Side, limit, makerPrice int64) bool {
	if takerSide == Bid {
		return makerPrice <= limit
	}
	return makerPrice >= limit
}

// PlaceOrder validates and executes a limit order: it matches against the
// opposite side at maker prices while the prices cross, then reserves funds
// for and rests any remainder. The full limit cost (or item count) must be
// available up front, even for the portion that matches at a better price.
func (m *Market) PlaceOrder(rec Recorder, bc BlockContext, ord NewOrder) error {
	bld, err := m.market(ord.Building, ord.Item)
	if err != nil {
		return err
	}
	if !ValidQuantity(ord.Quantity) {
		return fmt.Errorf("quantity %d: %w", ord.Quantity, ErrInvalidQuantity)
	}
	if !ValidPrice(ord.Price) {
		return fmt.Errorf("price %d: %w", ord.Price, ErrInvalidPrice)
	}

	asset := ledger.Item(ord.Building, ord.Item)
	switch ord.Side {
	case Ask:
		if m.Ledger.Get(ord.Account, asset).Available < ord.Quantity {
			return fmt.Errorf("ask %d %s in building %d by %s: %w",
				ord.Quantity, ord.Item, ord.Building, ord.Account, ledger.ErrInsufficientBalance)
		}
	case Bid:
		limitCost, ok := Cost(ord.Price, ord.Quantity)
		if !ok || m.Ledger.Get(ord.Account, ledger.Coin()).Available < limitCost {
			return fmt.Errorf("bid %d %s at %d in building %d by %s: %w",
				ord.Quantity, ord.Item, ord.Price, ord.Building, ord.Account, ledger.ErrInsufficientBalance)
		}
	default:
		return fmt.Errorf("invalid order side %d", ord.Side)
	}

	book := m.Books.Book(ord.Building, ord.Item)
	remaining := ord.Quantity
	for remaining > 0 {
		maker, ok := book.Best(ord.Side.Opposite())
		if !ok || !crosses(ord.Side, ord.Price, maker.Price) {
			break
		}

		fill := min(remaining, maker.Quantity)
		cost, ok := Cost(maker.Price, fill)
		if !ok {
			// Unreachable: both legs were bounded by balance checks.
			return fmt.Errorf("trade cost overflow: price %d x quantity %d", maker.Price, fill)
		}
		if err := m.settle(rec, bc, bld, maker, ord.Account, ord.Side, fill, cost); err != nil {
			return err
		}

		if fill == maker.Quantity {
			removed, err := m.Books.Remove(maker.ID)
			if err != nil {
				return err
			}
			rec.OnBook(BookOp{Kind: BookRemove, Order: removed})
		} else {
			if err := book.Reduce(maker.ID, fill); err != nil {
				return err
			}
			reduced := maker
			reduced.Quantity = fill
			rec.OnBook(BookOp{Kind: BookReduce, Order: reduced})
		}
		remaining -= fill
	}

	if remaining == 0 {
		return nil
	}

	// Rest the remainder. The id is allocated here and nowhere else, so a
	// fully matched order consumes none.
	if ord.Side == Bid {
		restCost, _ := Cost(ord.Price, remaining)
		e, err := m.Ledger.Reserve(ord.Account, ledger.Coin(), restCost)
		if err != nil {
			return err
		}
		m.apply(rec, e)
	} else {
		e, err := m.Ledger.Reserve(ord.Account, asset, remaining)
		if err != nil {
			return err
		}
		m.apply(rec, e)
	}

	resting := Order{
		ID:       m.IDs.Next(),
		Building: ord.Building,
		Item:     ord.Item,
		Account:  ord.Account,
		Side:     ord.Side,
		Price:    ord.Price,
		Quantity: remaining,
	}
	if err := m.Books.Insert(resting); err != nil {
		return err
	}
	rec.OnBook(BookOp{Kind: BookInsert, Order: resting})
	return nil
}

// settle moves items and coin for one fill and records the trade. The trade
// always executes at the maker's price. Accounts may trade with themselves;
// they still pay the fees.
func (m *Market) settle(rec Recorder, bc BlockContext, bld state.Building,
	maker Order, taker string, takerSide Side, fill, cost int64) error {

	var buyer, seller string
	if takerSide == Bid {
		buyer, seller = taker, maker.Account
	} else {
		buyer, seller = maker.Account, taker
	}
	asset := ledger.Item(maker.Building, maker.Item)

	// Items leave the seller. A maker ask holds them reserved; a taker ask
	// spends them from available.
	if takerSide == Bid {
		e, err := m.Ledger.DebitReserved(seller, asset, fill)
		if err != nil {
			return err
		}
		m.apply(rec, e)
	} else {
		e, err := m.Ledger.Debit(seller, asset, fill)
		if err != nil {
			return err
		}
		m.apply(rec, e)
	}
	m.apply(rec, m.Ledger.Credit(buyer, asset, fill))

	// Coin leaves the buyer. A maker bid holds the cost reserved at its own
	// price; a taker bid pays from available. Fees are deducted before the
	// seller is paid; burned coin is simply never credited anywhere.
	if cost > 0 {
		if takerSide == Bid {
			e, err := m.Ledger.Debit(buyer, ledger.Coin(), cost)
			if err != nil {
				return err
			}
			m.apply(rec, e)
		} else {
			e, err := m.Ledger.DebitReserved(buyer, ledger.Coin(), cost)
			if err != nil {
				return err
			}
			m.apply(rec, e)
		}

		split := SplitCost(cost, bld.FeeBps, m.BaseFeeBps, bld.Owner == "")
		if split.Seller > 0 {
			m.apply(rec, m.Ledger.Credit(seller, ledger.Coin(), split.Seller))
		}
		if split.Owner > 0 {
			m.apply(rec, m.Ledger.Credit(bld.Owner, ledger.Coin(), split.Owner))
		}
	}

	t := Trade{
		Height:   bc.Height,
		Time:     bc.Time,
		Building: maker.Building,
		Item:     maker.Item,
		Price:    maker.Price,
		Quantity: fill,
		Cost:     cost,
		Seller:   seller,
		Buyer:    buyer,
	}
	m.History.Append(t)
	rec.OnTrade(t)
	return nil
}

// CancelOrder removes a resting order and releases its locked funds. Only
// the order's creator may cancel it.
func (m *Market) CancelOrder(rec Recorder, account string, id uint64) error {
	o, _, ok := m.Books.Find(id)
	if !ok {
		return fmt.Errorf("cancel %d by %s: %w", id, account, ErrOrderNotFound)
	}
	if o.Account != account {
		return fmt.Errorf("cancel %d by %s: %w", id, account, ErrNotOwner)
	}

	removed, err := m.Books.Remove(id)
	if err != nil {
		return err
	}
	rec.OnBook(BookOp{Kind: BookRemove, Order: removed})

	if o.Side == Bid {
		locked, _ := Cost(o.Price, o.Quantity)
		e, err := m.Ledger.Release(account, ledger.Coin(), locked)
		if err != nil {
			return err
		}
		m.apply(rec, e)
	} else {
		e, err := m.Ledger.Release(account, ledger.Item(o.Building, o.Item), o.Quantity)
		if err != nil {
			return err
		}
		m.apply(rec, e)
	}
	return nil
}

// TransferItem moves items between accounts inside one building. The
// recipient needs no prior balance row; crediting creates it.
func (m *Market) TransferItem(rec Recorder, from string, building uint64, item string, quantity int64, to string) error {
	if _, err := m.market(building, item); err != nil {
		return err
	}
	if !ValidQuantity(quantity) {
		return fmt.Errorf("transfer quantity %d: %w", quantity, ErrInvalidQuantity)
	}
	if to == "" {
		return fmt.Errorf("transfer from %s: empty recipient: %w", from, ErrInvalidQuantity)
	}
	if to == from {
		return nil
	}

	asset := ledger.Item(building, item)
	e, err := m.Ledger.Debit(from, asset, quantity)
	if err != nil {
		return err
	}
	m.apply(rec, e)
	m.apply(rec, m.Ledger.Credit(to, asset, quantity))
	return nil
}
