package event

import (
	"fmt"

	"BuildingDex/internal/dex"
)

// CommandType discriminator for the operations a block can carry.
type CommandType int32

const (
	CommandTypeUnknown CommandType = iota
	CommandTypePlaceOrder
	CommandTypeCancelOrder
	CommandTypeTransferItem
	CommandTypeSetFee
	CommandTypeUpsertBuilding
)

func (t CommandType) String() string {
	switch t {
	case CommandTypePlaceOrder:
		return "place_order"
	case CommandTypeCancelOrder:
		return "cancel_order"
	case CommandTypeTransferItem:
		return "transfer_item"
	case CommandTypeSetFee:
		return "set_fee"
	case CommandTypeUpsertBuilding:
		return "upsert_building"
	default:
		return fmt.Sprintf("command(%d)", int32(t))
	}
}

// Command is one operation extracted from a block. Commands are applied in
// block order; a command that fails validation is skipped without touching
// state.
type Command interface {
	CommandType() CommandType
}

// PlaceOrder submits a limit order on a building's market.
type PlaceOrder struct {
	Account  string
	Building uint64
	Item     string
	Side     dex.Side
	Quantity int64
	Price    int64
}

func (c *PlaceOrder) CommandType() CommandType { return CommandTypePlaceOrder }

// CancelOrder removes an open order. Only the id is named on the wire; the
// engine resolves the market and checks ownership.
type CancelOrder struct {
	Account string
	OrderID uint64
}

func (c *CancelOrder) CommandType() CommandType { return CommandTypeCancelOrder }

// TransferItem hands items to another account within the same building.
type TransferItem struct {
	Account   string
	Building  uint64
	Item      string
	Quantity  int64
	Recipient string
}

func (c *TransferItem) CommandType() CommandType { return CommandTypeTransferItem }

// SetFee updates a building owner's exchange fee. Ownership is enforced
// upstream by the game's building logic; the feed only carries updates that
// were accepted there.
type SetFee struct {
	Building uint64
	FeeBps   int64
}

func (c *SetFee) CommandType() CommandType { return CommandTypeSetFee }

// UpsertBuilding announces a new or changed building: constructions,
// ownership transfers and foundation completions all arrive this way.
type UpsertBuilding struct {
	Building   uint64
	Owner      string
	FeeBps     int64
	Foundation bool
}

func (c *UpsertBuilding) CommandType() CommandType { return CommandTypeUpsertBuilding }
