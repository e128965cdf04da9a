package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ArchiveWriter writes committed blocks and trades to Postgres using
// multi-row INSERTs. Writes are idempotent (ON CONFLICT DO NOTHING), so a
// restart that replays recent blocks cannot duplicate rows.
type ArchiveWriter struct {
	db *sql.DB
}

// BlockRow represents a row in dex.blocks.
type BlockRow struct {
	Height    uint64
	Hash      string
	Parent    string
	Timestamp int64
	StateHash []byte
}

// TradeRow represents a row in dex.trades. TradeIndex is the trade's
// position within its block, which makes (height, trade_index) a stable key.
type TradeRow struct {
	Height     uint64
	TradeIndex int
	BlockHash  string
	Timestamp  int64
	BuildingID uint64
	Item       string
	Price      int64
	Quantity   int64
	Cost       int64
	Seller     string
	Buyer      string
}

func NewArchiveWriter(db *sql.DB) *ArchiveWriter {
	return &ArchiveWriter{db: db}
}

// DB returns the underlying connection, used for transactions that span
// multiple batch writes.
func (w *ArchiveWriter) DB() *sql.DB { return w.db }

// WriteBlockBatch inserts a batch of block rows within tx.
func (w *ArchiveWriter) WriteBlockBatch(ctx context.Context, tx *sql.Tx, blocks []BlockRow) error {
	if len(blocks) == 0 {
		return nil
	}

	query := `INSERT INTO dex.blocks
		(height, hash, parent, timestamp, state_hash)
		VALUES `

	values := make([]string, 0, len(blocks))
	args := make([]interface{}, 0, len(blocks)*5)

	for i, b := range blocks {
		base := i * 5
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5,
		))
		args = append(args, b.Height, b.Hash, b.Parent, b.Timestamp, b.StateHash)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (height) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// WriteTradeBatch inserts a batch of trade rows within tx.
func (w *ArchiveWriter) WriteTradeBatch(ctx context.Context, tx *sql.Tx, trades []TradeRow) error {
	if len(trades) == 0 {
		return nil
	}

	query := `INSERT INTO dex.trades
		(height, trade_index, block_hash, timestamp, building_id, item, price, quantity, cost, seller, buyer)
		VALUES `

	values := make([]string, 0, len(trades))
	args := make([]interface{}, 0, len(trades)*11)

	for i, t := range trades {
		base := i * 11
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
			base+7, base+8, base+9, base+10, base+11,
		))
		args = append(args,
			t.Height, t.TradeIndex, t.BlockHash, t.Timestamp,
			t.BuildingID, t.Item, t.Price, t.Quantity, t.Cost,
			t.Seller, t.Buyer,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (height, trade_index) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// DeleteFromHeight removes all blocks and trades at or above height within tx.
// Called when the chain reorganizes away from a previously archived branch.
func (w *ArchiveWriter) DeleteFromHeight(ctx context.Context, tx *sql.Tx, height uint64) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM dex.trades WHERE height >= $1`, height); err != nil {
		return fmt.Errorf("delete trades from height %d: %w", height, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM dex.blocks WHERE height >= $1`, height); err != nil {
		return fmt.Errorf("delete blocks from height %d: %w", height, err)
	}
	return nil
}

// MaxArchivedHeight returns the highest archived block height, or ok=false
// when the archive is empty.
func (w *ArchiveWriter) MaxArchivedHeight(ctx context.Context) (uint64, bool, error) {
	var height sql.NullInt64
	err := w.db.QueryRowContext(ctx,
		`SELECT MAX(height) FROM dex.blocks`).Scan(&height)
	if err != nil {
		return 0, false, err
	}
	if !height.Valid {
		return 0, false, nil
	}
	return uint64(height.Int64), true, nil
}
