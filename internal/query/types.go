package query

// OrderEntry is one resting order in an order book response.
type OrderEntry struct {
	ID       uint64 `json:"id"`
	Account  string `json:"account"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

// ItemBook is one item's bids and asks inside a building, each side in
// match priority order.
type ItemBook struct {
	Item string       `json:"item"`
	Bids []OrderEntry `json:"bids"`
	Asks []OrderEntry `json:"asks"`
}

// OrderBookResponse is the full order book of one building, keyed by item.
// Height and BlockHash identify the committed block the response reflects.
type OrderBookResponse struct {
	Building  uint64              `json:"building"`
	Height    uint64              `json:"height"`
	BlockHash string              `json:"blockhash"`
	Items     map[string]ItemBook `json:"items"`
}

// TradeEntry is one executed trade, oldest-first in history responses.
type TradeEntry struct {
	Height     uint64 `json:"height"`
	Timestamp  int64  `json:"timestamp"`
	BuildingID uint64 `json:"buildingid"`
	Item       string `json:"item"`
	Price      int64  `json:"price"`
	Quantity   int64  `json:"quantity"`
	Cost       int64  `json:"cost"`
	Seller     string `json:"seller"`
	Buyer      string `json:"buyer"`
}

// TradeHistoryResponse lists all trades of one (building, item) market.
type TradeHistoryResponse struct {
	Building  uint64       `json:"building"`
	Item      string       `json:"item"`
	Height    uint64       `json:"height"`
	BlockHash string       `json:"blockhash"`
	Trades    []TradeEntry `json:"trades"`
}

// AssetBalance is one asset's balance split for an account.
type AssetBalance struct {
	Asset     string `json:"asset"`
	Available int64  `json:"available"`
	Reserved  int64  `json:"reserved"`
	Total     int64  `json:"total"`
}

// BalanceResponse lists all non-zero holdings of one account.
type BalanceResponse struct {
	Account   string         `json:"account"`
	Height    uint64         `json:"height"`
	BlockHash string         `json:"blockhash"`
	Balances  []AssetBalance `json:"balances"`
}

// BuildingEntry is one building's fee configuration.
type BuildingEntry struct {
	ID         uint64 `json:"id"`
	Owner      string `json:"owner,omitempty"`
	FeeBps     int64  `json:"feebps"`
	Foundation bool   `json:"foundation"`
}

// BuildingsResponse lists all buildings known to the exchange.
type BuildingsResponse struct {
	Height    uint64          `json:"height"`
	BlockHash string          `json:"blockhash"`
	Buildings []BuildingEntry `json:"buildings"`
}
