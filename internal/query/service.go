package query

import (
	"BuildingDex/internal/core"
	"BuildingDex/internal/dex"
	"BuildingDex/internal/state"
)

// ViewProvider returns the engine's latest committed view. The engine swaps
// the view atomically at each commit, so every call observes a complete
// block boundary and no call ever blocks on in-flight block application.
type ViewProvider func() *core.View

// Service answers read-only queries from committed views. It never touches
// the engine's mutable state, so a reorg in progress cannot affect a
// response already being built.
type Service struct {
	view ViewProvider
}

func NewService(view ViewProvider) *Service {
	return &Service{view: view}
}

// GetOrderBook returns every item book of one building, each side in match
// priority order. Unknown buildings yield an empty item map rather than an
// error: an empty book and a nonexistent book are indistinguishable to
// traders.
func (s *Service) GetOrderBook(building uint64) OrderBookResponse {
	v := s.view()
	resp := OrderBookResponse{
		Building:  building,
		Height:    v.Height,
		BlockHash: v.BlockHash,
		Items:     make(map[string]ItemBook),
	}

	for _, item := range v.BuildingItems(building) {
		book, ok := v.OrderBook(building, item)
		if !ok {
			continue
		}
		resp.Items[item] = ItemBook{
			Item: item,
			Bids: orderEntries(book.Bids),
			Asks: orderEntries(book.Asks),
		}
	}
	return resp
}

// GetTradeHistory returns all executed trades of one (building, item)
// market, oldest first.
func (s *Service) GetTradeHistory(building uint64, item string) TradeHistoryResponse {
	v := s.view()
	trades := v.Trades(building, item)

	resp := TradeHistoryResponse{
		Building:  building,
		Item:      item,
		Height:    v.Height,
		BlockHash: v.BlockHash,
		Trades:    make([]TradeEntry, 0, len(trades)),
	}
	for _, t := range trades {
		resp.Trades = append(resp.Trades, TradeEntry{
			Height:     t.Height,
			Timestamp:  t.Time,
			BuildingID: t.Building,
			Item:       t.Item,
			Price:      t.Price,
			Quantity:   t.Quantity,
			Cost:       t.Cost,
			Seller:     t.Seller,
			Buyer:      t.Buyer,
		})
	}
	return resp
}

// GetBalance returns all non-zero holdings of an account in canonical asset
// order.
func (s *Service) GetBalance(account string) BalanceResponse {
	v := s.view()
	rows := v.AccountBalances(account)

	resp := BalanceResponse{
		Account:   account,
		Height:    v.Height,
		BlockHash: v.BlockHash,
		Balances:  make([]AssetBalance, 0, len(rows)),
	}
	for _, r := range rows {
		resp.Balances = append(resp.Balances, AssetBalance{
			Asset:     r.Asset.Path(),
			Available: r.Balance.Available,
			Reserved:  r.Balance.Reserved,
			Total:     r.Balance.Total(),
		})
	}
	return resp
}

// GetBuildings returns the fee configuration of every known building.
func (s *Service) GetBuildings() BuildingsResponse {
	v := s.view()
	buildings := v.Buildings()

	resp := BuildingsResponse{
		Height:    v.Height,
		BlockHash: v.BlockHash,
		Buildings: make([]BuildingEntry, 0, len(buildings)),
	}
	for _, b := range buildings {
		resp.Buildings = append(resp.Buildings, buildingEntry(b))
	}
	return resp
}

// GetBuilding returns one building's fee configuration.
func (s *Service) GetBuilding(id uint64) (BuildingEntry, bool) {
	b, ok := s.view().Building(id)
	if !ok {
		return BuildingEntry{}, false
	}
	return buildingEntry(b), true
}

func buildingEntry(b state.Building) BuildingEntry {
	return BuildingEntry{
		ID:         b.ID,
		Owner:      b.Owner,
		FeeBps:     b.FeeBps,
		Foundation: b.Foundation,
	}
}

func orderEntries(orders []dex.Order) []OrderEntry {
	entries := make([]OrderEntry, 0, len(orders))
	for _, o := range orders {
		entries = append(entries, OrderEntry{
			ID:       o.ID,
			Account:  o.Account,
			Price:    o.Price,
			Quantity: o.Quantity,
		})
	}
	return entries
}
