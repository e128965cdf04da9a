package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"BuildingDex/internal/dex"
	"BuildingDex/internal/ledger"
	"BuildingDex/internal/state"
)

// Package-level metrics registered once on the default registry. The engine
// and the worker goroutines update them directly.
var (
	// --- Block processing ---
	BlocksAttached = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dex_blocks_attached_total",
		Help: "Blocks applied to the state",
	})
	BlocksDetached = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dex_blocks_detached_total",
		Help: "Blocks rolled back during chain reorganisations",
	})
	BlockApplySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dex_block_apply_duration_seconds",
		Help:    "Time to apply a single block",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05},
	})
	TipHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dex_tip_height",
		Help: "Height of the last attached block",
	})

	// --- Commands ---
	CommandsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dex_commands_applied_total",
		Help: "Commands successfully applied",
	}, []string{"command"})
	CommandsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dex_commands_rejected_total",
		Help: "Commands skipped (validation, funds, ownership)",
	}, []string{"command", "reason"})

	// --- Trading ---
	TradesExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dex_trades_executed_total",
		Help: "Trades executed by the matching engine",
	})
	OpenOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dex_open_orders",
		Help: "Orders currently resting across all books",
	})

	// --- Ingestion ---
	BlocksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dex_blocks_received_total",
		Help: "Raw block messages pulled from NATS",
	}, []string{"subject"})
	ParseErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dex_block_parse_errors_total",
		Help: "Block envelopes that failed to parse",
	})
	MovesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dex_moves_discarded_total",
		Help: "Malformed move entries dropped during parsing",
	})
	TradesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dex_trades_published_total",
		Help: "Trades published to the outbound subject",
	})
	PublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dex_publish_errors_total",
		Help: "Outbound publish failures",
	})

	// --- Persistence ---
	PersistRowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dex_persist_rows_written_total",
		Help: "Rows written to Postgres",
	}, []string{"table"})
	PersistBatchSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dex_persist_batch_duration_seconds",
		Help:    "Postgres batch write duration",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})
	PersistErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dex_persist_errors_total",
		Help: "Persistence errors after retries",
	})
	PersistRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dex_persist_retries_total",
		Help: "Persistence batch retries",
	})
	SnapshotsTaken = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dex_snapshots_taken_total",
		Help: "State snapshots written",
	})
	SnapshotSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dex_snapshot_duration_seconds",
		Help:    "Snapshot creation time",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	})

	// --- Query API ---
	QueryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dex_query_requests_total",
		Help: "Query requests",
	}, []string{"endpoint", "status"})
	QuerySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dex_query_duration_seconds",
		Help:    "Query latency",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{"endpoint"})
)

// RejectReason maps a command error to a bounded label value.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, dex.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, dex.ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, dex.ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, dex.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, state.ErrUnknownBuilding):
		return "unknown_building"
	case errors.Is(err, state.ErrFoundation):
		return "foundation"
	case errors.Is(err, state.ErrUnknownItem):
		return "unknown_item"
	case errors.Is(err, state.ErrInvalidConfiguration):
		return "invalid_configuration"
	default:
		return "other"
	}
}
