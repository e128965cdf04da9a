package core

import (
	"sort"

	"BuildingDex/internal/dex"
	"BuildingDex/internal/ledger"
	"BuildingDex/internal/state"
)

// BookView is one market's resting orders in match priority order.
type BookView struct {
	Bids []dex.Order
	Asks []dex.Order
}

// BalanceRow pairs an asset with its balance for account listings.
type BalanceRow struct {
	Asset   ledger.Asset
	Balance ledger.Balance
}

// View is an immutable snapshot of the committed state after one block.
// The engine publishes a fresh view at every commit; queries read whichever
// view they grabbed without any locking, and a reorg can never mutate a
// view that has already been handed out.
type View struct {
	Height    uint64
	BlockHash string
	StateHash [32]byte

	balances  map[ledger.Key]ledger.Balance
	books     map[dex.BookKey]BookView
	buildings []state.Building
	trades    []dex.Trade
	nextID    uint64
}

// Balance returns one account's holding of one asset.
func (v *View) Balance(account string, asset ledger.Asset) ledger.Balance {
	return v.balances[ledger.Key{Account: account, Asset: asset}]
}

// AccountBalances returns all non-zero holdings of an account in canonical
// order.
func (v *View) AccountBalances(account string) []BalanceRow {
	var rows []BalanceRow
	for k, b := range v.balances {
		if k.Account == account {
			rows = append(rows, BalanceRow{Asset: k.Asset, Balance: b})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return ledger.CompareKeys(
			ledger.Key{Account: account, Asset: rows[i].Asset},
			ledger.Key{Account: account, Asset: rows[j].Asset}) < 0
	})
	return rows
}

// BuildingItems returns the items with a market in the given building.
func (v *View) BuildingItems(building uint64) []string {
	var items []string
	for k := range v.books {
		if k.Building == building {
			items = append(items, k.Item)
		}
	}
	sort.Strings(items)
	return items
}

// OrderBook returns one market's book.
func (v *View) OrderBook(building uint64, item string) (BookView, bool) {
	b, ok := v.books[dex.BookKey{Building: building, Item: item}]
	return b, ok
}

// Trades returns one market's executions oldest first.
func (v *View) Trades(building uint64, item string) []dex.Trade {
	var out []dex.Trade
	for _, t := range v.trades {
		if t.Building == building && t.Item == item {
			out = append(out, t)
		}
	}
	return out
}

// TradeCount returns the total number of trades ever executed up to this
// view's block.
func (v *View) TradeCount() int {
	return len(v.trades)
}

// Buildings returns all known buildings sorted by id.
func (v *View) Buildings() []state.Building {
	return v.buildings
}

// Building returns one building's record.
func (v *View) Building(id uint64) (state.Building, bool) {
	i := sort.Search(len(v.buildings), func(i int) bool {
		return v.buildings[i].ID >= id
	})
	if i < len(v.buildings) && v.buildings[i].ID == id {
		return v.buildings[i], true
	}
	return state.Building{}, false
}

// NextOrderID returns the id the next resting order will receive.
func (v *View) NextOrderID() uint64 {
	return v.nextID
}
