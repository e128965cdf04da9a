package ledger

import "fmt"

// Entry is a single signed mutation of one balance row. Entries are the unit
// of undo: applying an entry and then its inverse restores the row exactly,
// so a block's effects can be reverted by replaying its entries backwards.
type Entry struct {
	Key            Key
	AvailableDelta int64
	ReservedDelta  int64
}

// Inverse returns the entry that undoes e.
func (e Entry) Inverse() Entry {
	return Entry{
		Key:            e.Key,
		AvailableDelta: -e.AvailableDelta,
		ReservedDelta:  -e.ReservedDelta,
	}
}

// IsZero reports whether the entry changes nothing.
func (e Entry) IsZero() bool {
	return e.AvailableDelta == 0 && e.ReservedDelta == 0
}

func (e Entry) String() string {
	return fmt.Sprintf("%s avail%+d reserved%+d", e.Key.Path(), e.AvailableDelta, e.ReservedDelta)
}
