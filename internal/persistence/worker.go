package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"BuildingDex/internal/core"
	"BuildingDex/internal/observability"
)

// ArchiveWorker drains the engine's output channel and batch-writes committed
// blocks and trades to Postgres. It runs independently from the deterministic
// engine loop; the output channel uses blocking sends, so if this worker falls
// behind, block processing stalls rather than losing archive rows.
type ArchiveWorker struct {
	writer       *ArchiveWriter
	inputChan    <-chan core.BlockOutput
	batchSize    int
	flushTimeout time.Duration

	// highest attach height whose rows have committed; snapshots gate on
	// this so a snapshot at H never outruns H's trade rows
	flushedHeight atomic.Uint64
}

func NewArchiveWorker(
	db *sql.DB,
	inputChan <-chan core.BlockOutput,
	batchSize int,
	flushTimeout time.Duration,
) *ArchiveWorker {
	return &ArchiveWorker{
		writer:       NewArchiveWriter(db),
		inputChan:    inputChan,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
	}
}

// Run starts the archive worker loop. Attach outputs are batched and flushed
// either when the batch is full or the flush timeout expires. A detach output
// forces a flush of everything before it, then deletes the detached height
// from the archive, so the tables never mix rows from competing branches.
// Blocks until ctx is cancelled or the input channel closes.
func (aw *ArchiveWorker) Run(ctx context.Context) error {
	blockBatch := make([]BlockRow, 0, aw.batchSize)
	tradeBatch := make([]TradeRow, 0, aw.batchSize*4)

	timer := time.NewTimer(aw.flushTimeout)
	defer timer.Stop()

	flushAll := func(flushCtx context.Context) error {
		if len(blockBatch) == 0 && len(tradeBatch) == 0 {
			return nil
		}
		err := aw.flushWithRetry(flushCtx, blockBatch, tradeBatch)
		blockBatch = blockBatch[:0]
		tradeBatch = tradeBatch[:0]
		return err
	}

	for {
		select {
		case <-ctx.Done():
			if err := flushAll(context.Background()); err != nil {
				log.Printf("ERROR: final archive flush failed: %v", err)
			}
			return ctx.Err()

		case output, ok := <-aw.inputChan:
			if !ok {
				if err := flushAll(context.Background()); err != nil {
					log.Printf("ERROR: final archive flush failed: %v", err)
				}
				return nil
			}

			if output.Detach {
				// Order matters: pending attaches for lower heights must land
				// before the delete, or the delete could remove nothing and
				// the late flush would resurrect the dead branch.
				if err := flushAll(ctx); err != nil {
					log.Printf("ERROR: pre-detach flush failed: %v", err)
				}
				if err := aw.deleteWithRetry(ctx, output.Height); err != nil {
					log.Printf("ERROR: archive detach at height %d failed: %v",
						output.Height, err)
				} else if aw.flushedHeight.Load() >= output.Height {
					aw.flushedHeight.Store(output.Height - 1)
				}
				timer.Reset(aw.flushTimeout)
				continue
			}

			blockBatch = append(blockBatch, blockRowFrom(output))
			tradeBatch = append(tradeBatch, tradeRowsFrom(output)...)

			if len(blockBatch) >= aw.batchSize {
				if err := flushAll(ctx); err != nil {
					log.Printf("ERROR: batch flush failed after retries: %v", err)
				}
				timer.Reset(aw.flushTimeout)
			}

		case <-timer.C:
			if err := flushAll(ctx); err != nil {
				log.Printf("ERROR: timeout flush failed after retries: %v", err)
			}
			timer.Reset(aw.flushTimeout)
		}
	}
}

func blockRowFrom(output core.BlockOutput) BlockRow {
	stateHash := make([]byte, len(output.StateHash))
	copy(stateHash, output.StateHash[:])
	return BlockRow{
		Height:    output.Height,
		Hash:      output.Hash,
		Parent:    output.Parent,
		Timestamp: output.Time,
		StateHash: stateHash,
	}
}

func tradeRowsFrom(output core.BlockOutput) []TradeRow {
	rows := make([]TradeRow, 0, len(output.Trades))
	for i, t := range output.Trades {
		rows = append(rows, TradeRow{
			Height:     output.Height,
			TradeIndex: i,
			BlockHash:  output.Hash,
			Timestamp:  t.Time,
			BuildingID: t.Building,
			Item:       t.Item,
			Price:      t.Price,
			Quantity:   t.Quantity,
			Cost:       t.Cost,
			Seller:     t.Seller,
			Buyer:      t.Buyer,
		})
	}
	return rows
}

// flushWithRetry attempts to flush with exponential backoff. The worker never
// drops rows: it retries until the write succeeds or the context is
// cancelled, in which case it makes one final attempt with a background
// context so a graceful shutdown does not lose the batch.
func (aw *ArchiveWorker) flushWithRetry(ctx context.Context, blocks []BlockRow, trades []TradeRow) error {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			observability.PersistRetries.Inc()
			log.Printf("WARN: archive retry attempt %d (backoff=%v, blocks=%d)",
				attempt, backoff, len(blocks))
			select {
			case <-ctx.Done():
				if finalErr := aw.flush(context.Background(), blocks, trades); finalErr != nil {
					observability.PersistErrors.Inc()
					return fmt.Errorf("final flush on shutdown failed: %w", finalErr)
				}
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		err := aw.flush(ctx, blocks, trades)
		if err == nil {
			if attempt > 0 {
				log.Printf("INFO: archive flush succeeded after %d retries", attempt)
			}
			return nil
		}
	}
}

func (aw *ArchiveWorker) deleteWithRetry(ctx context.Context, height uint64) error {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			observability.PersistRetries.Inc()
			select {
			case <-ctx.Done():
				observability.PersistErrors.Inc()
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		tx, err := aw.writer.db.BeginTx(ctx, nil)
		if err != nil {
			continue
		}
		if err := aw.writer.DeleteFromHeight(ctx, tx, height); err != nil {
			tx.Rollback()
			continue
		}
		if err := tx.Commit(); err != nil {
			continue
		}
		return nil
	}
}

// flush writes blocks and trades in a single transaction.
func (aw *ArchiveWorker) flush(ctx context.Context, blocks []BlockRow, trades []TradeRow) error {
	start := time.Now()

	tx, err := aw.writer.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := aw.writer.WriteBlockBatch(ctx, tx, blocks); err != nil {
		return err
	}
	if err := aw.writer.WriteTradeBatch(ctx, tx, trades); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	observability.PersistBatchSeconds.Observe(time.Since(start).Seconds())
	observability.PersistRowsWritten.WithLabelValues("blocks").Add(float64(len(blocks)))
	observability.PersistRowsWritten.WithLabelValues("trades").Add(float64(len(trades)))

	if len(blocks) > 0 {
		// attaches arrive in chain order; the last row is the batch tip
		aw.flushedHeight.Store(blocks[len(blocks)-1].Height)
	}
	return nil
}

// FlushedHeight returns the highest attach height whose archive rows have
// committed.
func (aw *ArchiveWorker) FlushedHeight() uint64 {
	return aw.flushedHeight.Load()
}

// WaitForFlush blocks until the archive has committed rows through height,
// or ctx is cancelled.
func (aw *ArchiveWorker) WaitForFlush(ctx context.Context, height uint64) error {
	if aw.flushedHeight.Load() >= height {
		return nil
	}
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if aw.flushedHeight.Load() >= height {
				return nil
			}
		}
	}
}

// GetWriter returns the underlying writer, used at startup to query the
// archived tip.
func (aw *ArchiveWorker) GetWriter() *ArchiveWriter {
	return aw.writer
}
