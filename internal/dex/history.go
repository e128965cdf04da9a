package dex

// Trade records one execution. Trades are append-only in block order and
// removed only when the block that produced them is rolled back.
type Trade struct {
	Height   uint64
	Time     int64
	Building uint64
	Item     string
	Price    int64
	Quantity int64
	Cost     int64
	Seller   string
	Buyer    string
}

// TradeHistory is the ordered log of all executions. Truncation copies the
// surviving prefix into a fresh slice, so views handed out before a reorg
// keep seeing the trades they were built from.
type TradeHistory struct {
	trades []Trade
}

func NewTradeHistory() *TradeHistory {
	return &TradeHistory{}
}

// Append records a trade at the end of the log.
func (h *TradeHistory) Append(t Trade) {
	h.trades = append(h.trades, t)
}

// Len returns the number of recorded trades.
func (h *TradeHistory) Len() int {
	return len(h.trades)
}

// Truncate drops all trades at index n and beyond.
func (h *TradeHistory) Truncate(n int) {
	if n >= len(h.trades) {
		return
	}
	kept := make([]Trade, n)
	copy(kept, h.trades[:n])
	h.trades = kept
}

// All returns the current log. The returned slice must be treated as
// read-only; it may be shared with live views.
func (h *TradeHistory) All() []Trade {
	return h.trades
}

// ForMarket returns all trades of one (building, item) market in execution
// order.
func (h *TradeHistory) ForMarket(building uint64, item string) []Trade {
	var out []Trade
	for _, t := range h.trades {
		if t.Building == building && t.Item == item {
			out = append(out, t)
		}
	}
	return out
}
