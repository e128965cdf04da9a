package ledger

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInsufficientBalance is returned when a debit, reserve or release would
// take a balance component below zero.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Balance is one account's holding of one asset, split into the spendable
// part and the part locked behind open orders.
type Balance struct {
	Available int64
	Reserved  int64
}

// Total returns available + reserved.
func (b Balance) Total() int64 {
	return b.Available + b.Reserved
}

// Ledger maintains in-memory balances for every (account, asset) pair.
// Rows that reach zero in both components are deleted, so two ledgers that
// went through equivalent histories compare equal and hash identically.
//
// Ledger is not safe for concurrent mutation; the engine is the single
// writer, and queries run against immutable snapshots.
type Ledger struct {
	balances map[Key]Balance
}

func New() *Ledger {
	return &Ledger{
		balances: make(map[Key]Balance),
	}
}

// Get returns the balance row for the given account and asset. Missing rows
// read as zero.
func (l *Ledger) Get(account string, asset Asset) Balance {
	return l.balances[Key{Account: account, Asset: asset}]
}

// Apply mutates a balance row unconditionally. It is the only write path:
// every high-level operation below funnels through it, and undo replays
// inverse entries through it. Callers are responsible for validating that
// the result stays non-negative; Apply itself never fails.
func (l *Ledger) Apply(e Entry) {
	b := l.balances[e.Key]
	b.Available += e.AvailableDelta
	b.Reserved += e.ReservedDelta
	if b == (Balance{}) {
		delete(l.balances, e.Key)
		return
	}
	l.balances[e.Key] = b
}

// Credit adds amount to the available balance and returns the applied entry.
func (l *Ledger) Credit(account string, asset Asset, amount int64) Entry {
	e := Entry{Key: Key{Account: account, Asset: asset}, AvailableDelta: amount}
	l.Apply(e)
	return e
}

// Debit removes amount from the available balance. It fails without mutating
// anything if the available balance is too small.
func (l *Ledger) Debit(account string, asset Asset, amount int64) (Entry, error) {
	if l.Get(account, asset).Available < amount {
		return Entry{}, fmt.Errorf("debit %d %s from %s: %w",
			amount, asset.Path(), account, ErrInsufficientBalance)
	}
	e := Entry{Key: Key{Account: account, Asset: asset}, AvailableDelta: -amount}
	l.Apply(e)
	return e, nil
}

// Reserve moves amount from available to reserved, locking it behind an open
// order.
func (l *Ledger) Reserve(account string, asset Asset, amount int64) (Entry, error) {
	if l.Get(account, asset).Available < amount {
		return Entry{}, fmt.Errorf("reserve %d %s for %s: %w",
			amount, asset.Path(), account, ErrInsufficientBalance)
	}
	e := Entry{
		Key:            Key{Account: account, Asset: asset},
		AvailableDelta: -amount,
		ReservedDelta:  amount,
	}
	l.Apply(e)
	return e, nil
}

// Release moves amount from reserved back to available, e.g. when an order
// is cancelled.
func (l *Ledger) Release(account string, asset Asset, amount int64) (Entry, error) {
	if l.Get(account, asset).Reserved < amount {
		return Entry{}, fmt.Errorf("release %d %s for %s: %w",
			amount, asset.Path(), account, ErrInsufficientBalance)
	}
	e := Entry{
		Key:            Key{Account: account, Asset: asset},
		AvailableDelta: amount,
		ReservedDelta:  -amount,
	}
	l.Apply(e)
	return e, nil
}

// DebitReserved removes amount directly from the reserved balance. Used when
// a resting order fills: the locked funds leave the account without ever
// returning to available.
func (l *Ledger) DebitReserved(account string, asset Asset, amount int64) (Entry, error) {
	if l.Get(account, asset).Reserved < amount {
		return Entry{}, fmt.Errorf("debit reserved %d %s from %s: %w",
			amount, asset.Path(), account, ErrInsufficientBalance)
	}
	e := Entry{Key: Key{Account: account, Asset: asset}, ReservedDelta: -amount}
	l.Apply(e)
	return e, nil
}

// CheckInvariants verifies that no balance component is negative. The engine
// runs this after every block in debug paths and tests.
func (l *Ledger) CheckInvariants() error {
	for k, b := range l.balances {
		if b.Available < 0 {
			return fmt.Errorf("%s has negative available balance: %d", k.Path(), b.Available)
		}
		if b.Reserved < 0 {
			return fmt.Errorf("%s has negative reserved balance: %d", k.Path(), b.Reserved)
		}
	}
	return nil
}

// SortedKeys returns every non-zero balance row in canonical order.
func (l *Ledger) SortedKeys() []Key {
	keys := make([]Key, 0, len(l.balances))
	for k := range l.balances {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return CompareKeys(keys[i], keys[j]) < 0
	})
	return keys
}

// Snapshot returns a copy of all balances for query views and persistence.
func (l *Ledger) Snapshot() map[Key]Balance {
	snapshot := make(map[Key]Balance, len(l.balances))
	for k, v := range l.balances {
		snapshot[k] = v
	}
	return snapshot
}

// Len returns the number of non-zero balance rows.
func (l *Ledger) Len() int {
	return len(l.balances)
}
