package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"BuildingDex/internal/core"
	"BuildingDex/internal/dex"
	"BuildingDex/internal/observability"
)

// SnapshotManager stores and loads engine snapshots for warm restarts.
// A snapshot captures the committed state at a block boundary: balances,
// resting orders, building registry, id counter and the state hash chain.
// Trade history is not embedded; it is rebuilt from dex.trades on restore.
type SnapshotManager struct {
	db *sql.DB
}

func NewSnapshotManager(db *sql.DB) *SnapshotManager {
	return &SnapshotManager{db: db}
}

// SaveSnapshot persists an exported snapshot to Postgres. A re-snapshot at
// the same height replaces the stored row.
func (sm *SnapshotManager) SaveSnapshot(ctx context.Context, snap *core.Snapshot) error {
	start := time.Now()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	snapshotID := uuid.New()
	_, err = sm.db.ExecContext(ctx, `
		INSERT INTO dex.snapshots
			(snapshot_id, height, tip_hash, state_hash, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (height) DO UPDATE SET
			snapshot_id = $1, tip_hash = $3, state_hash = $4, data = $5, created_at = $6
	`, snapshotID, snap.Height, snap.TipHash, snap.StateHash, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	observability.SnapshotsTaken.Inc()
	observability.SnapshotSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// LoadLatestSnapshot loads the most recent snapshot, or nil when none exists
// (cold start).
func (sm *SnapshotManager) LoadLatestSnapshot(ctx context.Context) (*core.Snapshot, error) {
	row := sm.db.QueryRowContext(ctx, `
		SELECT data FROM dex.snapshots
		ORDER BY height DESC
		LIMIT 1
	`)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// LoadTrades loads all archived trades up to and including height, in block
// order. Used on restore to rebuild the in-memory trade history so the
// snapshot's trade count and the history agree.
func (sm *SnapshotManager) LoadTrades(ctx context.Context, height uint64) ([]dex.Trade, error) {
	rows, err := sm.db.QueryContext(ctx, `
		SELECT height, timestamp, building_id, item, price, quantity, cost, seller, buyer
		FROM dex.trades
		WHERE height <= $1
		ORDER BY height ASC, trade_index ASC
	`, height)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []dex.Trade
	for rows.Next() {
		var t dex.Trade
		if err := rows.Scan(
			&t.Height, &t.Time, &t.Building, &t.Item,
			&t.Price, &t.Quantity, &t.Cost, &t.Seller, &t.Buyer,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// PruneBelow deletes snapshots older than height, keeping storage bounded.
func (sm *SnapshotManager) PruneBelow(ctx context.Context, height uint64) error {
	_, err := sm.db.ExecContext(ctx, `
		DELETE FROM dex.snapshots WHERE height < $1
	`, height)
	return err
}
