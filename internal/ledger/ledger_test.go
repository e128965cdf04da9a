package ledger_test

import (
	"errors"
	"testing"

	"BuildingDex/internal/ledger"
)

// ============================================================================
// Test: Asset and Key paths
// ============================================================================

func TestAsset_CoinPath(t *testing.T) {
	if got := ledger.Coin().Path(); got != "coin" {
		t.Errorf("got %q, want %q", got, "coin")
	}
}

func TestAsset_ItemPath(t *testing.T) {
	a := ledger.Item(42, "foo")
	if got := a.Path(); got != "item:42:foo" {
		t.Errorf("got %q, want %q", got, "item:42:foo")
	}
}

func TestCompareKeys_Ordering(t *testing.T) {
	keys := []ledger.Key{
		{Account: "andy", Asset: ledger.Item(5, "zerospace")},
		{Account: "andy", Asset: ledger.Coin()},
		{Account: "andy", Asset: ledger.Item(5, "foo")},
		{Account: "andy", Asset: ledger.Item(2, "foo")},
		{Account: "bob", Asset: ledger.Coin()},
	}

	// coin sorts before items, items by building then name, accounts first
	want := []string{
		"andy|coin",
		"andy|item:2:foo",
		"andy|item:5:foo",
		"andy|item:5:zerospace",
		"bob|coin",
	}

	l := ledger.New()
	for _, k := range keys {
		l.Credit(k.Account, k.Asset, 1)
	}
	sorted := l.SortedKeys()
	if len(sorted) != len(want) {
		t.Fatalf("got %d keys, want %d", len(sorted), len(want))
	}
	for i, k := range sorted {
		if k.Path() != want[i] {
			t.Errorf("position %d: got %q, want %q", i, k.Path(), want[i])
		}
	}
}

// ============================================================================
// Test: balance operations
// ============================================================================

func TestLedger_CreditDebit(t *testing.T) {
	l := ledger.New()
	l.Credit("andy", ledger.Coin(), 100)

	if got := l.Get("andy", ledger.Coin()).Available; got != 100 {
		t.Fatalf("available = %d, want 100", got)
	}

	if _, err := l.Debit("andy", ledger.Coin(), 60); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if got := l.Get("andy", ledger.Coin()).Available; got != 40 {
		t.Errorf("available = %d, want 40", got)
	}
}

func TestLedger_DebitInsufficient(t *testing.T) {
	l := ledger.New()
	l.Credit("andy", ledger.Coin(), 10)

	_, err := l.Debit("andy", ledger.Coin(), 11)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	if got := l.Get("andy", ledger.Coin()).Available; got != 10 {
		t.Errorf("failed debit mutated balance: %d", got)
	}
}

func TestLedger_ReserveRelease(t *testing.T) {
	l := ledger.New()
	l.Credit("andy", ledger.Item(7, "foo"), 50)

	if _, err := l.Reserve("andy", ledger.Item(7, "foo"), 30); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	b := l.Get("andy", ledger.Item(7, "foo"))
	if b.Available != 20 || b.Reserved != 30 {
		t.Fatalf("after reserve: %+v", b)
	}
	if b.Total() != 50 {
		t.Errorf("total = %d, want 50", b.Total())
	}

	if _, err := l.Release("andy", ledger.Item(7, "foo"), 30); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	b = l.Get("andy", ledger.Item(7, "foo"))
	if b.Available != 50 || b.Reserved != 0 {
		t.Errorf("after release: %+v", b)
	}
}

func TestLedger_ReserveInsufficient(t *testing.T) {
	l := ledger.New()
	l.Credit("andy", ledger.Coin(), 5)

	_, err := l.Reserve("andy", ledger.Coin(), 6)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
}

func TestLedger_ReleaseMoreThanReserved(t *testing.T) {
	l := ledger.New()
	l.Credit("andy", ledger.Coin(), 100)
	if _, err := l.Reserve("andy", ledger.Coin(), 40); err != nil {
		t.Fatal(err)
	}

	_, err := l.Release("andy", ledger.Coin(), 41)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
}

func TestLedger_DebitReserved(t *testing.T) {
	l := ledger.New()
	l.Credit("andy", ledger.Coin(), 100)
	if _, err := l.Reserve("andy", ledger.Coin(), 100); err != nil {
		t.Fatal(err)
	}

	if _, err := l.DebitReserved("andy", ledger.Coin(), 60); err != nil {
		t.Fatalf("debit reserved failed: %v", err)
	}
	b := l.Get("andy", ledger.Coin())
	if b.Available != 0 || b.Reserved != 40 {
		t.Errorf("after debit reserved: %+v", b)
	}
}

// ============================================================================
// Test: zero rows are deleted so state stays canonical
// ============================================================================

func TestLedger_ZeroRowDeleted(t *testing.T) {
	l := ledger.New()
	l.Credit("andy", ledger.Coin(), 25)
	if _, err := l.Debit("andy", ledger.Coin(), 25); err != nil {
		t.Fatal(err)
	}

	if l.Len() != 0 {
		t.Errorf("ledger has %d rows, want 0", l.Len())
	}
	if len(l.SortedKeys()) != 0 {
		t.Errorf("SortedKeys returned a zero row")
	}
}

// ============================================================================
// Test: entry inversion round-trips
// ============================================================================

func TestEntry_InverseRestoresState(t *testing.T) {
	l := ledger.New()
	l.Credit("andy", ledger.Coin(), 100)
	l.Credit("bob", ledger.Item(3, "ore"), 8)

	before := l.Snapshot()

	var entries []ledger.Entry
	e, err := l.Reserve("andy", ledger.Coin(), 70)
	if err != nil {
		t.Fatal(err)
	}
	entries = append(entries, e)
	e, err = l.DebitReserved("andy", ledger.Coin(), 30)
	if err != nil {
		t.Fatal(err)
	}
	entries = append(entries, e)
	entries = append(entries, l.Credit("bob", ledger.Coin(), 30))
	e, err = l.Debit("bob", ledger.Item(3, "ore"), 8)
	if err != nil {
		t.Fatal(err)
	}
	entries = append(entries, e)

	// undo replays inverses in reverse order
	for i := len(entries) - 1; i >= 0; i-- {
		l.Apply(entries[i].Inverse())
	}

	after := l.Snapshot()
	if len(after) != len(before) {
		t.Fatalf("row count changed: %d -> %d", len(before), len(after))
	}
	for k, v := range before {
		if after[k] != v {
			t.Errorf("row %s: got %+v, want %+v", k.Path(), after[k], v)
		}
	}
	if err := l.CheckInvariants(); err != nil {
		t.Errorf("invariants violated after undo: %v", err)
	}
}

func TestLedger_CheckInvariants(t *testing.T) {
	l := ledger.New()
	l.Credit("andy", ledger.Coin(), 10)
	if err := l.CheckInvariants(); err != nil {
		t.Fatalf("unexpected invariant failure: %v", err)
	}

	// Apply is unconditional; drive a row negative directly.
	l.Apply(ledger.Entry{
		Key:            ledger.Key{Account: "andy", Asset: ledger.Coin()},
		AvailableDelta: -20,
	})
	if err := l.CheckInvariants(); err == nil {
		t.Error("negative balance not detected")
	}
}
