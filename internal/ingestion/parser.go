package ingestion

import (
	"encoding/json"
	"fmt"

	"BuildingDex/internal/dex"
	"BuildingDex/internal/event"
	"BuildingDex/internal/observability"
)

// --- JSON wire formats ---
// The chain daemon publishes one envelope per block. Moves carry the raw
// per-account exchange operations exactly as they appeared on chain; a
// malformed operation is dropped without invalidating the rest of the
// block, matching how the chain itself ignores bad moves.

type blockJSON struct {
	Height     uint64            `json:"height"`
	Hash       string            `json:"hash"`
	Parent     string            `json:"parent"`
	Timestamp  int64             `json:"timestamp"`
	Buildings  []buildingJSON    `json:"buildings"`
	FeeUpdates []feeUpdateJSON   `json:"feeupdates"`
	Moves      []moveJSON        `json:"moves"`
}

type buildingJSON struct {
	ID         uint64 `json:"id"`
	Owner      string `json:"owner"`
	FeeBps     int64  `json:"feebps"`
	Foundation bool   `json:"foundation"`
}

type feeUpdateJSON struct {
	Building uint64 `json:"building"`
	FeeBps   int64  `json:"feebps"`
}

type moveJSON struct {
	Account string            `json:"account"`
	Ops     []json.RawMessage `json:"dex"`
}

type detachJSON struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

// ParseBlock decodes one attach envelope into an engine block. Building
// updates and fee updates take effect before the block's moves. A corrupt
// envelope is an error; a corrupt individual operation is dropped.
func ParseBlock(data []byte) (*event.Block, error) {
	var j blockJSON
	if err := json.Unmarshal(data, &j); err != nil {
		observability.ParseErrors.Inc()
		return nil, fmt.Errorf("parse block envelope: %w", err)
	}
	if j.Hash == "" {
		observability.ParseErrors.Inc()
		return nil, fmt.Errorf("parse block envelope: missing hash")
	}

	blk := &event.Block{
		Height: j.Height,
		Hash:   j.Hash,
		Parent: j.Parent,
		Time:   j.Timestamp,
	}

	for _, b := range j.Buildings {
		blk.Commands = append(blk.Commands, &event.UpsertBuilding{
			Building:   b.ID,
			Owner:      b.Owner,
			FeeBps:     b.FeeBps,
			Foundation: b.Foundation,
		})
	}
	for _, f := range j.FeeUpdates {
		blk.Commands = append(blk.Commands, &event.SetFee{
			Building: f.Building,
			FeeBps:   f.FeeBps,
		})
	}
	for _, m := range j.Moves {
		if m.Account == "" {
			observability.MovesDiscarded.Inc()
			continue
		}
		for _, raw := range m.Ops {
			cmd, err := parseOp(m.Account, raw)
			if err != nil {
				observability.MovesDiscarded.Inc()
				continue
			}
			blk.Commands = append(blk.Commands, cmd)
		}
	}

	return blk, nil
}

// ParseDetach decodes a detach notification.
func ParseDetach(data []byte) (height uint64, hash string, err error) {
	var j detachJSON
	if err := json.Unmarshal(data, &j); err != nil {
		observability.ParseErrors.Inc()
		return 0, "", fmt.Errorf("parse detach: %w", err)
	}
	if j.Hash == "" {
		observability.ParseErrors.Inc()
		return 0, "", fmt.Errorf("parse detach: missing hash")
	}
	return j.Height, j.Hash, nil
}

// parseOp decodes one exchange operation. The on-chain format is keyed by
// single letters and strict about shape: an operation must have exactly the
// keys of its kind, numbers must be integers, anything else is invalid.
//
//	{"b": building, "i": item, "n": quantity, "bp": price}  bid
//	{"b": building, "i": item, "n": quantity, "ap": price}  ask
//	{"b": building, "i": item, "n": quantity, "t": account} transfer
//	{"c": order id}                                         cancel
func parseOp(account string, raw json.RawMessage) (event.Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("operation is not an object: %w", err)
	}

	if c, ok := fields["c"]; ok {
		if len(fields) != 1 {
			return nil, fmt.Errorf("cancel has %d keys, want 1", len(fields))
		}
		var id uint64
		if err := json.Unmarshal(c, &id); err != nil {
			return nil, fmt.Errorf("cancel id: %w", err)
		}
		return &event.CancelOrder{Account: account, OrderID: id}, nil
	}

	if len(fields) != 4 {
		return nil, fmt.Errorf("operation has %d keys, want 4", len(fields))
	}

	var building uint64
	if err := json.Unmarshal(fields["b"], &building); err != nil {
		return nil, fmt.Errorf("building: %w", err)
	}
	var item string
	if err := json.Unmarshal(fields["i"], &item); err != nil {
		return nil, fmt.Errorf("item: %w", err)
	}
	if item == "" {
		return nil, fmt.Errorf("empty item")
	}
	var quantity int64
	if err := json.Unmarshal(fields["n"], &quantity); err != nil {
		return nil, fmt.Errorf("quantity: %w", err)
	}

	if t, ok := fields["t"]; ok {
		var recipient string
		if err := json.Unmarshal(t, &recipient); err != nil {
			return nil, fmt.Errorf("recipient: %w", err)
		}
		if recipient == "" {
			return nil, fmt.Errorf("empty recipient")
		}
		return &event.TransferItem{
			Account:   account,
			Building:  building,
			Item:      item,
			Quantity:  quantity,
			Recipient: recipient,
		}, nil
	}

	var side dex.Side
	var priceRaw json.RawMessage
	if bp, ok := fields["bp"]; ok {
		side, priceRaw = dex.Bid, bp
	} else if ap, ok := fields["ap"]; ok {
		side, priceRaw = dex.Ask, ap
	} else {
		return nil, fmt.Errorf("operation has no price key")
	}

	var price int64
	if err := json.Unmarshal(priceRaw, &price); err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}

	return &event.PlaceOrder{
		Account:  account,
		Building: building,
		Item:     item,
		Side:     side,
		Quantity: quantity,
		Price:    price,
	}, nil
}
