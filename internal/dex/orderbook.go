package dex

import (
	"fmt"
	"sort"

	"github.com/tidwall/btree"
)

// OrderBook holds the resting orders for one (building, item) market.
// Both sides are kept in match priority order: the minimum element of each
// tree is the order that matches first.
//
//	asks: ascending price, ties by ascending id (oldest first)
//	bids: descending price, ties by ascending id
type OrderBook struct {
	Building uint64
	Item     string

	bids *btree.BTreeG[*Order]
	asks *btree.BTreeG[*Order]
	byID map[uint64]*Order
}

func NewOrderBook(building uint64, item string) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *Order) bool {
		if a.Price != b.Price {
			return a.Price > b.Price
		}
		return a.ID < b.ID
	})
	asks := btree.NewBTreeG(func(a, b *Order) bool {
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		return a.ID < b.ID
	})
	return &OrderBook{
		Building: building,
		Item:     item,
		bids:     bids,
		asks:     asks,
		byID:     make(map[uint64]*Order),
	}
}

func (b *OrderBook) side(s Side) *btree.BTreeG[*Order] {
	if s == Bid {
		return b.bids
	}
	return b.asks
}

// Insert adds a resting order. The book stores its own copy.
func (b *OrderBook) Insert(o Order) error {
	if _, ok := b.byID[o.ID]; ok {
		return fmt.Errorf("order %d: %w", o.ID, ErrDuplicateOrder)
	}
	stored := o
	b.side(o.Side).Set(&stored)
	b.byID[o.ID] = &stored
	return nil
}

// Remove deletes an order by id and returns its last state.
func (b *OrderBook) Remove(id uint64) (Order, error) {
	o, ok := b.byID[id]
	if !ok {
		return Order{}, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
	}
	b.side(o.Side).Delete(o)
	delete(b.byID, id)
	return *o, nil
}

// Get returns a copy of the order with the given id.
func (b *OrderBook) Get(id uint64) (Order, bool) {
	o, ok := b.byID[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Reduce shrinks an order's remaining quantity in place. Quantity is not
// part of the tree comparators, so mutating it does not disturb ordering.
func (b *OrderBook) Reduce(id uint64, by int64) error {
	o, ok := b.byID[id]
	if !ok {
		return fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
	}
	if by <= 0 || by > o.Quantity {
		return fmt.Errorf("reduce order %d by %d (remaining %d): %w",
			id, by, o.Quantity, ErrInvalidQuantity)
	}
	o.Quantity -= by
	return nil
}

// Restore grows an order's remaining quantity. Used only by undo.
func (b *OrderBook) Restore(id uint64, by int64) error {
	o, ok := b.byID[id]
	if !ok {
		return fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
	}
	o.Quantity += by
	return nil
}

// Best returns the order that matches first on the given side.
func (b *OrderBook) Best(s Side) (Order, bool) {
	o, ok := b.side(s).Min()
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Orders returns all resting orders on a side in match priority order.
func (b *OrderBook) Orders(s Side) []Order {
	out := make([]Order, 0, b.side(s).Len())
	b.side(s).Scan(func(o *Order) bool {
		out = append(out, *o)
		return true
	})
	return out
}

// Len returns the total number of resting orders on both sides.
func (b *OrderBook) Len() int {
	return b.bids.Len() + b.asks.Len()
}

// BookKey identifies one market.
type BookKey struct {
	Building uint64
	Item     string
}

// Books is the collection of all order books, with a global index from
// order id to the book holding it (cancels name only the id).
type Books struct {
	books map[BookKey]*OrderBook
	index map[uint64]BookKey
}

func NewBooks() *Books {
	return &Books{
		books: make(map[BookKey]*OrderBook),
		index: make(map[uint64]BookKey),
	}
}

// Book returns the order book for a market, creating it on first use.
func (bs *Books) Book(building uint64, item string) *OrderBook {
	key := BookKey{Building: building, Item: item}
	b, ok := bs.books[key]
	if !ok {
		b = NewOrderBook(building, item)
		bs.books[key] = b
	}
	return b
}

// Insert places a resting order on its market's book and records it in the
// global id index.
func (bs *Books) Insert(o Order) error {
	b := bs.Book(o.Building, o.Item)
	if err := b.Insert(o); err != nil {
		return err
	}
	bs.index[o.ID] = BookKey{Building: o.Building, Item: o.Item}
	return nil
}

// Remove deletes an order by id, wherever it rests.
func (bs *Books) Remove(id uint64) (Order, error) {
	key, ok := bs.index[id]
	if !ok {
		return Order{}, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
	}
	o, err := bs.books[key].Remove(id)
	if err != nil {
		return Order{}, err
	}
	delete(bs.index, id)
	return o, nil
}

// Find returns the order with the given id and the book it rests on.
func (bs *Books) Find(id uint64) (Order, *OrderBook, bool) {
	key, ok := bs.index[id]
	if !ok {
		return Order{}, nil, false
	}
	b := bs.books[key]
	o, ok := b.Get(id)
	return o, b, ok
}

// OpenOrders returns the total number of resting orders across all books.
func (bs *Books) OpenOrders() int {
	n := 0
	for _, b := range bs.books {
		n += b.Len()
	}
	return n
}

// SortedKeys returns all market keys that currently have a book, ordered by
// building then item. Empty books are included; callers that care about
// live markets only must filter on Len.
func (bs *Books) SortedKeys() []BookKey {
	keys := make([]BookKey, 0, len(bs.books))
	for k := range bs.books {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Building != keys[j].Building {
			return keys[i].Building < keys[j].Building
		}
		return keys[i].Item < keys[j].Item
	})
	return keys
}

// BuildingItems returns the item types with a book in the given building,
// sorted ascending.
func (bs *Books) BuildingItems(building uint64) []string {
	var items []string
	for k := range bs.books {
		if k.Building == building {
			items = append(items, k.Item)
		}
	}
	sort.Strings(items)
	return items
}
