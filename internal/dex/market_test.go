package dex_test

import (
	"errors"
	"testing"

	"BuildingDex/internal/dex"
	"BuildingDex/internal/ledger"
	"BuildingDex/internal/state"
)

// recording is a Recorder that keeps everything for inspection.
type recording struct {
	entries []ledger.Entry
	books   []dex.BookOp
	trades  []dex.Trade
}

func (r *recording) OnLedger(e ledger.Entry) { r.entries = append(r.entries, e) }
func (r *recording) OnBook(op dex.BookOp)    { r.books = append(r.books, op) }
func (r *recording) OnTrade(t dex.Trade)     { r.trades = append(r.trades, t) }

const (
	testBuilding = uint64(100)
	ancientBld   = uint64(200)
	foundation   = uint64(300)
	firstID      = uint64(101)
)

type fixture struct {
	t   *testing.T
	m   *dex.Market
	rec *recording
	bc  dex.BlockContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	buildings := state.NewRegistry()
	buildings.Upsert(state.Building{ID: testBuilding, Owner: "building owner"})
	buildings.Upsert(state.Building{ID: ancientBld, Owner: ""})
	buildings.Upsert(state.Building{ID: foundation, Owner: "building owner", Foundation: true})

	m := &dex.Market{
		Ledger:    ledger.New(),
		Books:     dex.NewBooks(),
		Buildings: buildings,
		Items:     state.NewCatalog("foo", "bar", "zerospace"),
		History:   dex.NewTradeHistory(),
		IDs:       state.NewSequence(firstID),
	}
	return &fixture{
		t:   t,
		m:   m,
		rec: &recording{},
		bc:  dex.BlockContext{Height: 10, Time: 1_000},
	}
}

func (f *fixture) fund(acct string, coin int64) {
	f.m.Ledger.Credit(acct, ledger.Coin(), coin)
}

func (f *fixture) give(acct string, building uint64, item string, n int64) {
	f.m.Ledger.Credit(acct, ledger.Item(building, item), n)
}

func (f *fixture) order(acct string, building uint64, item string, side dex.Side, qty, price int64) error {
	return f.m.PlaceOrder(f.rec, f.bc, dex.NewOrder{
		Account:  acct,
		Building: building,
		Item:     item,
		Side:     side,
		Quantity: qty,
		Price:    price,
	})
}

func (f *fixture) mustOrder(acct string, building uint64, item string, side dex.Side, qty, price int64) {
	f.t.Helper()
	if err := f.order(acct, building, item, side, qty, price); err != nil {
		f.t.Fatalf("%s %s order failed: %v", acct, side, err)
	}
}

func (f *fixture) coin(acct string) ledger.Balance {
	return f.m.Ledger.Get(acct, ledger.Coin())
}

func (f *fixture) items(acct string, building uint64, item string) ledger.Balance {
	return f.m.Ledger.Get(acct, ledger.Item(building, item))
}

func (f *fixture) checkBalance(acct string, asset ledger.Asset, available, reserved int64) {
	f.t.Helper()
	b := f.m.Ledger.Get(acct, asset)
	if b.Available != available || b.Reserved != reserved {
		f.t.Errorf("%s %s balance = %+v, want {%d %d}", acct, asset.Path(), b, available, reserved)
	}
}

// ============================================================================
// Test: resting orders
// ============================================================================

func TestMarket_NewBidRests(t *testing.T) {
	f := newFixture(t)
	f.fund("buyer", 100)

	f.mustOrder("buyer", testBuilding, "foo", dex.Bid, 10, 3)

	f.checkBalance("buyer", ledger.Coin(), 70, 30)
	bids := f.m.Books.Book(testBuilding, "foo").Orders(dex.Bid)
	if len(bids) != 1 {
		t.Fatalf("got %d bids", len(bids))
	}
	if bids[0].ID != firstID || bids[0].Quantity != 10 || bids[0].Price != 3 {
		t.Errorf("resting bid: %+v", bids[0])
	}
	if got := f.m.IDs.Peek(); got != firstID+1 {
		t.Errorf("next id = %d, want %d", got, firstID+1)
	}
	if len(f.rec.trades) != 0 {
		t.Errorf("unexpected trades: %v", f.rec.trades)
	}
}

func TestMarket_NewAskRests(t *testing.T) {
	f := newFixture(t)
	f.give("seller", testBuilding, "foo", 10)

	f.mustOrder("seller", testBuilding, "foo", dex.Ask, 7, 6)

	f.checkBalance("seller", ledger.Item(testBuilding, "foo"), 3, 7)
	asks := f.m.Books.Book(testBuilding, "foo").Orders(dex.Ask)
	if len(asks) != 1 || asks[0].ID != firstID || asks[0].Quantity != 7 {
		t.Fatalf("asks: %+v", asks)
	}
}

func TestMarket_ZeroPriceBidReservesNothing(t *testing.T) {
	f := newFixture(t)

	// no coin at all: a zero-price bid still needs 0
	f.mustOrder("buyer", testBuilding, "foo", dex.Bid, 5, 0)

	f.checkBalance("buyer", ledger.Coin(), 0, 0)
	if f.m.Books.Book(testBuilding, "foo").Len() != 1 {
		t.Error("zero-price bid did not rest")
	}
}

// ============================================================================
// Test: validation
// ============================================================================

func TestMarket_Validation(t *testing.T) {
	f := newFixture(t)
	f.fund("buyer", 1_000_000)
	f.give("seller", testBuilding, "foo", 100)

	cases := []struct {
		name string
		run  func() error
		want error
	}{
		{"zero quantity", func() error {
			return f.order("buyer", testBuilding, "foo", dex.Bid, 0, 1)
		}, dex.ErrInvalidQuantity},
		{"negative quantity", func() error {
			return f.order("buyer", testBuilding, "foo", dex.Bid, -5, 1)
		}, dex.ErrInvalidQuantity},
		{"quantity above cap", func() error {
			return f.order("buyer", testBuilding, "foo", dex.Bid, dex.MaxQuantity+1, 0)
		}, dex.ErrInvalidQuantity},
		{"negative price", func() error {
			return f.order("buyer", testBuilding, "foo", dex.Bid, 1, -1)
		}, dex.ErrInvalidPrice},
		{"price above cap", func() error {
			return f.order("seller", testBuilding, "foo", dex.Ask, 1, dex.MaxPrice+1)
		}, dex.ErrInvalidPrice},
		{"unknown building", func() error {
			return f.order("buyer", 999, "foo", dex.Bid, 1, 1)
		}, state.ErrUnknownBuilding},
		{"foundation", func() error {
			return f.order("buyer", foundation, "foo", dex.Bid, 1, 1)
		}, state.ErrFoundation},
		{"unknown item", func() error {
			return f.order("buyer", testBuilding, "gold", dex.Bid, 1, 1)
		}, state.ErrUnknownItem},
		{"bid without coin", func() error {
			return f.order("pauper", testBuilding, "foo", dex.Bid, 10, 5)
		}, ledger.ErrInsufficientBalance},
		{"ask without items", func() error {
			return f.order("pauper", testBuilding, "foo", dex.Ask, 1, 5)
		}, ledger.ErrInsufficientBalance},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.run(); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}

	if len(f.rec.entries)+len(f.rec.books)+len(f.rec.trades) != 0 {
		t.Error("rejected orders recorded mutations")
	}
	if got := f.m.IDs.Peek(); got != firstID {
		t.Errorf("rejected orders consumed ids: next = %d", got)
	}
}

func TestMarket_MaxPriceAskAccepted(t *testing.T) {
	f := newFixture(t)
	f.give("seller", testBuilding, "foo", 10)

	f.mustOrder("seller", testBuilding, "foo", dex.Ask, 10, dex.MaxPrice)

	if f.m.Books.Book(testBuilding, "foo").Len() != 1 {
		t.Error("max-price ask did not rest")
	}
}

func TestMarket_BidNeedsFullLimitCost(t *testing.T) {
	f := newFixture(t)
	f.give("seller", testBuilding, "foo", 10)
	f.mustOrder("seller", testBuilding, "foo", dex.Ask, 10, 1)

	// The taker could afford the matched part at the ask price of 1, but
	// the full limit cost 10x5=50 is required up front.
	f.fund("buyer", 49)
	err := f.order("buyer", testBuilding, "foo", dex.Bid, 10, 5)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	if len(f.rec.trades) != 0 {
		t.Error("rejected bid traded")
	}
}

// ============================================================================
// Test: matching
// ============================================================================

func TestMarket_FilledBid(t *testing.T) {
	f := newFixture(t)
	f.give("seller", testBuilding, "foo", 10)
	f.fund("buyer", 100)
	f.mustOrder("seller", testBuilding, "foo", dex.Ask, 10, 2)

	f.mustOrder("buyer", testBuilding, "foo", dex.Bid, 10, 3)

	// executes fully at the maker's ask price of 2
	if len(f.rec.trades) != 1 {
		t.Fatalf("got %d trades", len(f.rec.trades))
	}
	tr := f.rec.trades[0]
	if tr.Price != 2 || tr.Quantity != 10 || tr.Cost != 20 {
		t.Errorf("trade: %+v", tr)
	}
	if tr.Seller != "seller" || tr.Buyer != "buyer" {
		t.Errorf("trade parties: %+v", tr)
	}
	if tr.Height != 10 || tr.Time != 1_000 {
		t.Errorf("trade block stamp: %+v", tr)
	}

	f.checkBalance("buyer", ledger.Coin(), 80, 0)
	f.checkBalance("buyer", ledger.Item(testBuilding, "foo"), 10, 0)
	f.checkBalance("seller", ledger.Coin(), 20, 0)
	f.checkBalance("seller", ledger.Item(testBuilding, "foo"), 0, 0)

	if f.m.Books.Book(testBuilding, "foo").Len() != 0 {
		t.Error("book not empty after full fill")
	}
	// a fully matched order takes no id
	if got := f.m.IDs.Peek(); got != firstID+1 {
		t.Errorf("next id = %d, want %d", got, firstID+1)
	}
}

func TestMarket_FilledAsk(t *testing.T) {
	f := newFixture(t)
	f.fund("buyer", 100)
	f.give("seller", testBuilding, "foo", 10)
	f.mustOrder("buyer", testBuilding, "foo", dex.Bid, 10, 3)

	f.mustOrder("seller", testBuilding, "foo", dex.Ask, 10, 1)

	// executes at the resting bid's price of 3, not the ask's 1
	if len(f.rec.trades) != 1 {
		t.Fatalf("got %d trades", len(f.rec.trades))
	}
	tr := f.rec.trades[0]
	if tr.Price != 3 || tr.Quantity != 10 || tr.Cost != 30 {
		t.Errorf("trade: %+v", tr)
	}

	f.checkBalance("buyer", ledger.Coin(), 70, 0)
	f.checkBalance("buyer", ledger.Item(testBuilding, "foo"), 10, 0)
	f.checkBalance("seller", ledger.Coin(), 30, 0)
	f.checkBalance("seller", ledger.Item(testBuilding, "foo"), 0, 0)
}

func TestMarket_PartialBid(t *testing.T) {
	f := newFixture(t)
	f.give("seller", testBuilding, "foo", 5)
	f.fund("buyer", 100)
	f.mustOrder("seller", testBuilding, "foo", dex.Ask, 5, 2)

	f.mustOrder("buyer", testBuilding, "foo", dex.Bid, 10, 3)

	// 5 trade at 2, the remaining 5 rest at the limit of 3
	if len(f.rec.trades) != 1 || f.rec.trades[0].Quantity != 5 || f.rec.trades[0].Cost != 10 {
		t.Fatalf("trades: %+v", f.rec.trades)
	}

	f.checkBalance("buyer", ledger.Coin(), 75, 15)
	f.checkBalance("buyer", ledger.Item(testBuilding, "foo"), 5, 0)

	bids := f.m.Books.Book(testBuilding, "foo").Orders(dex.Bid)
	if len(bids) != 1 || bids[0].ID != firstID+1 || bids[0].Quantity != 5 || bids[0].Price != 3 {
		t.Fatalf("resting bid: %+v", bids)
	}
}

func TestMarket_PartialAsk(t *testing.T) {
	f := newFixture(t)
	f.fund("buyer", 100)
	f.give("seller", testBuilding, "foo", 10)
	f.mustOrder("buyer", testBuilding, "foo", dex.Bid, 5, 3)

	f.mustOrder("seller", testBuilding, "foo", dex.Ask, 10, 2)

	if len(f.rec.trades) != 1 || f.rec.trades[0].Quantity != 5 || f.rec.trades[0].Price != 3 {
		t.Fatalf("trades: %+v", f.rec.trades)
	}

	f.checkBalance("seller", ledger.Coin(), 15, 0)
	f.checkBalance("seller", ledger.Item(testBuilding, "foo"), 0, 5)

	asks := f.m.Books.Book(testBuilding, "foo").Orders(dex.Ask)
	if len(asks) != 1 || asks[0].ID != firstID+1 || asks[0].Quantity != 5 || asks[0].Price != 2 {
		t.Fatalf("resting ask: %+v", asks)
	}
}

func TestMarket_SweepsMultipleMakers(t *testing.T) {
	f := newFixture(t)
	f.give("s1", testBuilding, "foo", 3)
	f.give("s2", testBuilding, "foo", 4)
	f.fund("buyer", 100)
	f.mustOrder("s2", testBuilding, "foo", dex.Ask, 4, 2)
	f.mustOrder("s1", testBuilding, "foo", dex.Ask, 3, 1)

	f.mustOrder("buyer", testBuilding, "foo", dex.Bid, 6, 2)

	// cheapest maker first: 3@1 from s1, then 3@2 from s2
	if len(f.rec.trades) != 2 {
		t.Fatalf("got %d trades", len(f.rec.trades))
	}
	if f.rec.trades[0].Seller != "s1" || f.rec.trades[0].Quantity != 3 || f.rec.trades[0].Price != 1 {
		t.Errorf("first trade: %+v", f.rec.trades[0])
	}
	if f.rec.trades[1].Seller != "s2" || f.rec.trades[1].Quantity != 3 || f.rec.trades[1].Price != 2 {
		t.Errorf("second trade: %+v", f.rec.trades[1])
	}

	f.checkBalance("buyer", ledger.Item(testBuilding, "foo"), 6, 0)
	f.checkBalance("buyer", ledger.Coin(), 91, 0)

	// s2 keeps a partially filled ask of 1
	asks := f.m.Books.Book(testBuilding, "foo").Orders(dex.Ask)
	if len(asks) != 1 || asks[0].Account != "s2" || asks[0].Quantity != 1 {
		t.Fatalf("remaining asks: %+v", asks)
	}
}

func TestMarket_NonCrossingPricesRest(t *testing.T) {
	f := newFixture(t)
	f.give("seller", testBuilding, "foo", 10)
	f.fund("buyer", 100)
	f.mustOrder("seller", testBuilding, "foo", dex.Ask, 10, 5)

	f.mustOrder("buyer", testBuilding, "foo", dex.Bid, 10, 4)

	if len(f.rec.trades) != 0 {
		t.Fatalf("trades across a spread: %+v", f.rec.trades)
	}
	book := f.m.Books.Book(testBuilding, "foo")
	if book.Len() != 2 {
		t.Errorf("book has %d orders, want 2", book.Len())
	}
}

func TestMarket_FillingOwnOrder(t *testing.T) {
	f := newFixture(t)
	f.fund("andy", 100)
	f.give("andy", testBuilding, "foo", 10)
	f.mustOrder("andy", testBuilding, "foo", dex.Ask, 10, 2)

	f.mustOrder("andy", testBuilding, "foo", dex.Bid, 10, 2)

	// self-matching is allowed; with no fees the account ends where it began
	if len(f.rec.trades) != 1 {
		t.Fatalf("got %d trades", len(f.rec.trades))
	}
	if f.rec.trades[0].Seller != "andy" || f.rec.trades[0].Buyer != "andy" {
		t.Errorf("trade: %+v", f.rec.trades[0])
	}
	f.checkBalance("andy", ledger.Coin(), 100, 0)
	f.checkBalance("andy", ledger.Item(testBuilding, "foo"), 10, 0)
}

func TestMarket_MarketsAreIndependent(t *testing.T) {
	f := newFixture(t)
	f.give("seller", testBuilding, "foo", 10)
	f.fund("buyer", 100)
	f.mustOrder("seller", testBuilding, "foo", dex.Ask, 10, 1)

	// same item, different building: no cross-building matching
	f.mustOrder("buyer", ancientBld, "foo", dex.Bid, 10, 5)

	if len(f.rec.trades) != 0 {
		t.Fatalf("cross-building trade: %+v", f.rec.trades)
	}
	if f.m.Books.Book(ancientBld, "foo").Len() != 1 {
		t.Error("bid did not rest in its own building")
	}

	// same building, different item
	f.mustOrder("buyer", testBuilding, "bar", dex.Bid, 10, 5)
	if len(f.rec.trades) != 0 {
		t.Fatalf("cross-item trade: %+v", f.rec.trades)
	}
}

// ============================================================================
// Test: fees
// ============================================================================

func TestMarket_FeeDistribution(t *testing.T) {
	f := newFixture(t)
	f.m.BaseFeeBps = 1_000 // 10% burned
	if _, err := f.m.Buildings.SetFee(testBuilding, 2_000); err != nil {
		t.Fatal(err)
	}

	f.give("seller", testBuilding, "foo", 10)
	f.fund("buyer", 100)
	f.mustOrder("seller", testBuilding, "foo", dex.Ask, 10, 10)
	f.mustOrder("buyer", testBuilding, "foo", dex.Bid, 10, 10)

	// cost 100: owner 20, burn 10, seller 70
	f.checkBalance("seller", ledger.Coin(), 70, 0)
	f.checkBalance("building owner", ledger.Coin(), 20, 0)
	f.checkBalance("buyer", ledger.Coin(), 0, 0)
}

func TestMarket_FeeRounding(t *testing.T) {
	f := newFixture(t)
	if _, err := f.m.Buildings.SetFee(testBuilding, 1_000); err != nil {
		t.Fatal(err)
	}

	f.give("seller", testBuilding, "foo", 1)
	f.fund("buyer", 9)
	f.mustOrder("seller", testBuilding, "foo", dex.Ask, 1, 9)
	f.mustOrder("buyer", testBuilding, "foo", dex.Bid, 1, 9)

	// floor(9 * 10%) = 0: the seller keeps the dust
	f.checkBalance("seller", ledger.Coin(), 9, 0)
	f.checkBalance("building owner", ledger.Coin(), 0, 0)
}

func TestMarket_AncientBuildingBurnsOwnerFee(t *testing.T) {
	f := newFixture(t)
	if _, err := f.m.Buildings.SetFee(ancientBld, 2_000); err != nil {
		t.Fatal(err)
	}

	f.give("seller", ancientBld, "foo", 10)
	f.fund("buyer", 100)
	f.mustOrder("seller", ancientBld, "foo", dex.Ask, 10, 10)
	f.mustOrder("buyer", ancientBld, "foo", dex.Bid, 10, 10)

	// the 20% owner cut has nowhere to go and is burned
	f.checkBalance("seller", ledger.Coin(), 80, 0)
	f.checkBalance("buyer", ledger.Coin(), 0, 0)
}

func TestMarket_BuildingOwnerSells(t *testing.T) {
	f := newFixture(t)
	if _, err := f.m.Buildings.SetFee(testBuilding, 2_000); err != nil {
		t.Fatal(err)
	}

	f.give("building owner", testBuilding, "foo", 10)
	f.fund("buyer", 100)
	f.mustOrder("building owner", testBuilding, "foo", dex.Ask, 10, 10)
	f.mustOrder("buyer", testBuilding, "foo", dex.Bid, 10, 10)

	// the owner collects both the proceeds and their own fee
	f.checkBalance("building owner", ledger.Coin(), 100, 0)
}

func TestMarket_ZeroCostTradeHasNoFees(t *testing.T) {
	f := newFixture(t)
	f.m.BaseFeeBps = 1_000
	if _, err := f.m.Buildings.SetFee(testBuilding, 2_000); err != nil {
		t.Fatal(err)
	}

	f.give("seller", testBuilding, "foo", 5)
	f.mustOrder("seller", testBuilding, "foo", dex.Ask, 5, 0)
	f.mustOrder("buyer", testBuilding, "foo", dex.Bid, 5, 0)

	if len(f.rec.trades) != 1 || f.rec.trades[0].Cost != 0 {
		t.Fatalf("trades: %+v", f.rec.trades)
	}
	f.checkBalance("buyer", ledger.Item(testBuilding, "foo"), 5, 0)
	f.checkBalance("seller", ledger.Coin(), 0, 0)
	f.checkBalance("building owner", ledger.Coin(), 0, 0)
}

// ============================================================================
// Test: cancel
// ============================================================================

func TestMarket_CancelBid(t *testing.T) {
	f := newFixture(t)
	f.fund("buyer", 100)
	f.mustOrder("buyer", testBuilding, "foo", dex.Bid, 10, 3)

	if err := f.m.CancelOrder(f.rec, "buyer", firstID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	f.checkBalance("buyer", ledger.Coin(), 100, 0)
	if f.m.Books.Book(testBuilding, "foo").Len() != 0 {
		t.Error("order still resting after cancel")
	}
}

func TestMarket_CancelPartiallyFilledAsk(t *testing.T) {
	f := newFixture(t)
	f.give("seller", testBuilding, "foo", 10)
	f.fund("buyer", 100)
	f.mustOrder("seller", testBuilding, "foo", dex.Ask, 10, 2)
	f.mustOrder("buyer", testBuilding, "foo", dex.Bid, 4, 2)

	if err := f.m.CancelOrder(f.rec, "seller", firstID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// only the unfilled 6 come back
	f.checkBalance("seller", ledger.Item(testBuilding, "foo"), 6, 0)
	f.checkBalance("seller", ledger.Coin(), 8, 0)
}

func TestMarket_CancelWrongOwner(t *testing.T) {
	f := newFixture(t)
	f.fund("buyer", 100)
	f.mustOrder("buyer", testBuilding, "foo", dex.Bid, 10, 3)

	err := f.m.CancelOrder(f.rec, "mallory", firstID)
	if !errors.Is(err, dex.ErrNotOwner) {
		t.Fatalf("got %v, want ErrNotOwner", err)
	}
	f.checkBalance("buyer", ledger.Coin(), 70, 30)
	if f.m.Books.Book(testBuilding, "foo").Len() != 1 {
		t.Error("foreign cancel removed the order")
	}
}

func TestMarket_CancelUnknownOrder(t *testing.T) {
	f := newFixture(t)
	err := f.m.CancelOrder(f.rec, "buyer", 12_345)
	if !errors.Is(err, dex.ErrOrderNotFound) {
		t.Fatalf("got %v, want ErrOrderNotFound", err)
	}
}

// ============================================================================
// Test: transfers
// ============================================================================

func TestMarket_TransferItem(t *testing.T) {
	f := newFixture(t)
	f.give("andy", testBuilding, "foo", 10)

	if err := f.m.TransferItem(f.rec, "andy", testBuilding, "foo", 4, "bob"); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	f.checkBalance("andy", ledger.Item(testBuilding, "foo"), 6, 0)
	// the recipient account is created on first credit
	f.checkBalance("bob", ledger.Item(testBuilding, "foo"), 4, 0)
}

func TestMarket_TransferInsufficient(t *testing.T) {
	f := newFixture(t)
	f.give("andy", testBuilding, "foo", 3)

	err := f.m.TransferItem(f.rec, "andy", testBuilding, "foo", 4, "bob")
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	f.checkBalance("andy", ledger.Item(testBuilding, "foo"), 3, 0)
}

func TestMarket_TransferReservedNotSpendable(t *testing.T) {
	f := newFixture(t)
	f.give("andy", testBuilding, "foo", 10)
	f.mustOrder("andy", testBuilding, "foo", dex.Ask, 8, 5)

	err := f.m.TransferItem(f.rec, "andy", testBuilding, "foo", 3, "bob")
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
}

func TestMarket_TransferToSelfIsNoop(t *testing.T) {
	f := newFixture(t)
	f.give("andy", testBuilding, "foo", 10)

	before := len(f.rec.entries)
	if err := f.m.TransferItem(f.rec, "andy", testBuilding, "foo", 4, "andy"); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	if len(f.rec.entries) != before {
		t.Error("self transfer recorded entries")
	}
	f.checkBalance("andy", ledger.Item(testBuilding, "foo"), 10, 0)
}

func TestMarket_TransferValidation(t *testing.T) {
	f := newFixture(t)
	f.give("andy", foundation, "foo", 10)

	if err := f.m.TransferItem(f.rec, "andy", foundation, "foo", 1, "bob"); !errors.Is(err, state.ErrFoundation) {
		t.Errorf("foundation transfer: %v", err)
	}
	if err := f.m.TransferItem(f.rec, "andy", testBuilding, "foo", 0, "bob"); !errors.Is(err, dex.ErrInvalidQuantity) {
		t.Errorf("zero quantity transfer: %v", err)
	}
}

// ============================================================================
// Test: trade history
// ============================================================================

func TestTradeHistory_TruncateKeepsOldViews(t *testing.T) {
	h := dex.NewTradeHistory()
	h.Append(dex.Trade{Height: 1, Quantity: 1})
	h.Append(dex.Trade{Height: 2, Quantity: 2})
	h.Append(dex.Trade{Height: 3, Quantity: 3})

	view := h.All()
	h.Truncate(1)

	if h.Len() != 1 {
		t.Fatalf("len = %d, want 1", h.Len())
	}
	// the pre-truncation view still sees all three trades
	if len(view) != 3 || view[2].Height != 3 {
		t.Errorf("old view damaged: %+v", view)
	}

	h.Append(dex.Trade{Height: 9, Quantity: 9})
	if view[1].Height != 2 {
		t.Errorf("append after truncate overwrote old view: %+v", view[1])
	}
}
