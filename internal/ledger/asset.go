package ledger

import (
	"fmt"
	"strings"
)

// AssetKind distinguishes the global currency from per-building item holdings.
type AssetKind uint8

const (
	// KindCoin is the chain currency. Coin balances are global: they are not
	// tied to any particular building.
	KindCoin AssetKind = iota

	// KindItem is a fungible item type stored inside one building. The same
	// item name held in two buildings is two independent assets.
	KindItem
)

// Asset identifies one fungible thing an account can hold.
type Asset struct {
	Kind     AssetKind
	Building uint64 // zero for coin
	Item     string // empty for coin
}

// Coin returns the global currency asset.
func Coin() Asset {
	return Asset{Kind: KindCoin}
}

// Item returns the asset for the given item type held in the given building.
func Item(building uint64, item string) Asset {
	return Asset{Kind: KindItem, Building: building, Item: item}
}

// Path returns a canonical string form, unique per asset. Used for balance
// sorting in the state digest and for diagnostics.
func (a Asset) Path() string {
	if a.Kind == KindCoin {
		return "coin"
	}
	return fmt.Sprintf("item:%d:%s", a.Building, a.Item)
}

// Key identifies one balance row: an account's holding of one asset.
type Key struct {
	Account string
	Asset   Asset
}

// Path returns a canonical string form of the balance row.
func (k Key) Path() string {
	return k.Account + "|" + k.Asset.Path()
}

// CompareKeys orders balance rows canonically: by account name, then coin
// before items, then by building and item name.
func CompareKeys(a, b Key) int {
	if c := strings.Compare(a.Account, b.Account); c != 0 {
		return c
	}
	if a.Asset.Kind != b.Asset.Kind {
		if a.Asset.Kind < b.Asset.Kind {
			return -1
		}
		return 1
	}
	if a.Asset.Building != b.Asset.Building {
		if a.Asset.Building < b.Asset.Building {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Asset.Item, b.Asset.Item)
}
