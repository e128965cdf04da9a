package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"BuildingDex/internal/observability"
)

const (
	// BlockStream carries the chain feed. Attach and detach share one
	// stream and one consumer: JetStream then delivers them in publish
	// order, which the engine depends on.
	BlockStream = "DEX_BLOCKS"

	SubjectBlocksAttach = "dex.blocks.attach"
	SubjectBlocksDetach = "dex.blocks.detach"

	blockConsumerName = "dex-engine"
)

// RawBlock is an unparsed chain feed message, ready for the processing loop
// to decode and hand to the engine.
type RawBlock struct {
	Subject  string
	Data     []byte
	Received time.Time
	AckFunc  func() // ACK after the engine committed the transition
	NakFunc  func() // NAK on failure (will be redelivered)
}

// NATSSubscriber subscribes to the chain feed and forwards messages into
// blockChan in stream order.
type NATSSubscriber struct {
	js        jetstream.JetStream
	blockChan chan<- RawBlock
	consumer  jetstream.ConsumeContext
}

func NewNATSSubscriber(js jetstream.JetStream, blockChan chan<- RawBlock) *NATSSubscriber {
	return &NATSSubscriber{
		js:        js,
		blockChan: blockChan,
	}
}

// Subscribe creates the single durable consumer over both block subjects.
// Explicit ACK, max_deliver=5, ack_wait=30s.
func (ns *NATSSubscriber) Subscribe(ctx context.Context) error {
	consumer, err := ns.js.CreateOrUpdateConsumer(ctx, BlockStream, jetstream.ConsumerConfig{
		Durable:       blockConsumerName,
		FilterSubject: "dex.blocks.>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", blockConsumerName, err)
	}

	consumerContext, err := consumer.Consume(func(msg jetstream.Msg) {
		observability.BlocksReceived.WithLabelValues(msg.Subject()).Inc()
		raw := RawBlock{
			Subject:  msg.Subject(),
			Data:     msg.Data(),
			Received: time.Now(),
			AckFunc:  func() { msg.Ack() },
			NakFunc:  func() { msg.Nak() },
		}

		select {
		case ns.blockChan <- raw:
			// queued for processing
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", blockConsumerName, err)
	}

	ns.consumer = consumerContext
	log.Printf("INFO: subscribed to dex.blocks.> (consumer=%s)", blockConsumerName)
	return nil
}

// EnsureStreams creates the required JetStream streams if they don't exist.
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      BlockStream,
			Subjects:  []string{"dex.blocks.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		log.Printf("INFO: ensured stream %s", cfg.Name)
	}

	return nil
}

// Stop gracefully stops the consumer.
func (ns *NATSSubscriber) Stop() {
	if ns.consumer != nil {
		ns.consumer.Stop()
	}
	log.Println("INFO: NATS subscriber stopped")
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("WARN: NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println("INFO: NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
