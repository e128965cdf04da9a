package state

import (
	"errors"
	"sort"
)

// ErrUnknownItem is returned when an operation names an item type that is
// not part of the game's item catalog.
var ErrUnknownItem = errors.New("unknown item type")

// Catalog is the set of tradable item types. The catalog is fixed game
// configuration: it is loaded once at startup and never changes during
// block processing, so it needs no undo tracking.
type Catalog struct {
	items map[string]struct{}
}

func NewCatalog(items ...string) *Catalog {
	c := &Catalog{items: make(map[string]struct{}, len(items))}
	for _, it := range items {
		c.items[it] = struct{}{}
	}
	return c
}

// Register adds an item type. Only used during startup configuration.
func (c *Catalog) Register(item string) {
	c.items[item] = struct{}{}
}

// Known reports whether the item type is tradable.
func (c *Catalog) Known(item string) bool {
	_, ok := c.items[item]
	return ok
}

// Sorted returns all item types in ascending order.
func (c *Catalog) Sorted() []string {
	out := make([]string, 0, len(c.items))
	for it := range c.items {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}
