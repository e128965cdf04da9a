package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"BuildingDex/internal/observability"
)

const (
	// TradeStream carries executed trades for downstream consumers
	// (market data, game frontends).
	TradeStream = "DEX_TRADES"

	SubjectTrades = "dex.trades"
)

// PublishableTrade is an executed trade ready for outbound publishing.
type PublishableTrade struct {
	Height    uint64 `json:"height"`
	BlockHash string `json:"block_hash"`
	Timestamp int64  `json:"timestamp"`
	Building  uint64 `json:"building"`
	Item      string `json:"item"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	Cost      int64  `json:"cost"`
	Seller    string `json:"seller"`
	Buyer     string `json:"buyer"`
}

// OutboundPublisher publishes executed trades to NATS after the engine has
// committed the block that produced them.
type OutboundPublisher struct {
	js        jetstream.JetStream
	inputChan <-chan PublishableTrade
}

func NewOutboundPublisher(js jetstream.JetStream, inputChan <-chan PublishableTrade) *OutboundPublisher {
	return &OutboundPublisher{
		js:        js,
		inputChan: inputChan,
	}
}

// Run starts the outbound publisher loop.
func (op *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case trade, ok := <-op.inputChan:
			if !ok {
				return nil
			}

			if err := op.publish(ctx, trade); err != nil {
				observability.PublishErrors.Inc()
				log.Printf("WARN: trade publish failed height=%d: %v", trade.Height, err)
				// Non-fatal: consumers can read the archive tables instead
				continue
			}
			observability.TradesPublished.Inc()
		}
	}
}

func (op *OutboundPublisher) publish(ctx context.Context, trade PublishableTrade) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}

	// Subject: dex.trades.{building}.{item}
	subject := fmt.Sprintf("%s.%d.%s", SubjectTrades, trade.Building, trade.Item)
	_, err = op.js.Publish(ctx, subject, data)
	return err
}

// EnsureOutboundStream creates the outbound trades stream.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      TradeStream,
		Subjects:  []string{SubjectTrades + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	log.Printf("INFO: ensured outbound stream %s", TradeStream)
	return nil
}
