package dex

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuantity is returned for order or transfer quantities
	// outside [1, MaxQuantity].
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidPrice is returned for limit prices outside [0, MaxPrice].
	ErrInvalidPrice = errors.New("invalid price")

	// ErrOrderNotFound is returned when a cancel names an id that is not
	// resting on any book.
	ErrOrderNotFound = errors.New("order not found")

	// ErrNotOwner is returned when an account tries to cancel someone
	// else's order.
	ErrNotOwner = errors.New("order belongs to another account")

	// ErrDuplicateOrder is returned when an id already rests on a book.
	// Ids come from a shared monotone sequence, so this only fires on a
	// corrupted snapshot or a broken undo replay.
	ErrDuplicateOrder = errors.New("duplicate order id")
)

const (
	// MaxQuantity bounds order and transfer quantities.
	MaxQuantity = 1_000_000_000

	// MaxPrice bounds limit prices. Zero is a valid price: items can be
	// given away through the exchange.
	MaxPrice = 100_000_000_000
)

// Side is the direction of an order.
type Side uint8

const (
	Bid Side = 1
	Ask Side = 2
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// Order is a limit order resting on a book. Quantity is the remaining
// (unfilled) amount; partially filled orders keep their id and priority.
type Order struct {
	ID       uint64
	Building uint64
	Item     string
	Account  string
	Side     Side
	Price    int64
	Quantity int64
}

// ValidQuantity reports whether n is an acceptable order or transfer
// quantity.
func ValidQuantity(n int64) bool {
	return n >= 1 && n <= MaxQuantity
}

// ValidPrice reports whether p is an acceptable limit price.
func ValidPrice(p int64) bool {
	return p >= 0 && p <= MaxPrice
}

// Cost computes price*quantity, reporting overflow instead of wrapping.
// Prices and quantities are individually bounded but their product can
// exceed int64.
func Cost(price, quantity int64) (int64, bool) {
	if price == 0 || quantity == 0 {
		return 0, true
	}
	c := price * quantity
	if c/price != quantity {
		return 0, false
	}
	return c, true
}
