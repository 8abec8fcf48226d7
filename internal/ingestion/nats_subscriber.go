package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSSubscriber subscribes to NATS JetStream subjects and feeds events
// into the deterministic core via the eventChan.
// NATS JetStream is the primary high-throughput ingestion surface. Each
// subject maps to an event type.
type NATSSubscriber struct {
	js        jetstream.JetStream
	eventChan chan<- RawEvent
	consumers []jetstream.ConsumeContext
}

// RawEvent is the parsed-but-untyped event from NATS, ready for the shell
// to validate and convert into a typed event.Event before sending to the core.
type RawEvent struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	AckFunc   func() // Call to ACK the NATS message after successful processing
	NakFunc   func() // Call to NAK on failure (will be redelivered)
}

// SubjectConfig maps NATS subjects to event types.
// Each event type has its own subject for independent scaling.
type SubjectConfig struct {
	Subject      string
	EventType    string
	ConsumerName string
	StreamName   string
}

// DefaultSubjects returns the standard subject configuration.
func DefaultSubjects() []SubjectConfig {
	return []SubjectConfig{
		{Subject: "hyperdrive.ops.initialize.>", EventType: "Initialize", ConsumerName: "core-initialize", StreamName: "HYPERDRIVE_OPS"},
		{Subject: "hyperdrive.ops.open_long.>", EventType: "OpenLong", ConsumerName: "core-open-long", StreamName: "HYPERDRIVE_OPS"},
		{Subject: "hyperdrive.ops.close_long.>", EventType: "CloseLong", ConsumerName: "core-close-long", StreamName: "HYPERDRIVE_OPS"},
		{Subject: "hyperdrive.ops.open_short.>", EventType: "OpenShort", ConsumerName: "core-open-short", StreamName: "HYPERDRIVE_OPS"},
		{Subject: "hyperdrive.ops.close_short.>", EventType: "CloseShort", ConsumerName: "core-close-short", StreamName: "HYPERDRIVE_OPS"},
		{Subject: "hyperdrive.ops.add_liquidity.>", EventType: "AddLiquidity", ConsumerName: "core-add-liquidity", StreamName: "HYPERDRIVE_OPS"},
		{Subject: "hyperdrive.ops.remove_liquidity.>", EventType: "RemoveLiquidity", ConsumerName: "core-remove-liquidity", StreamName: "HYPERDRIVE_OPS"},
		{Subject: "hyperdrive.ops.redeem_withdrawal.>", EventType: "RedeemWithdrawalShares", ConsumerName: "core-redeem-withdrawal", StreamName: "HYPERDRIVE_OPS"},
		{Subject: "hyperdrive.ops.checkpoint.>", EventType: "CheckpointMint", ConsumerName: "core-checkpoint", StreamName: "HYPERDRIVE_OPS"},
		{Subject: "hyperdrive.prices.>", EventType: "SharePriceUpdate", ConsumerName: "core-prices", StreamName: "HYPERDRIVE_PRICES"},
		{Subject: "hyperdrive.admin.pause.>", EventType: "PauseToggle", ConsumerName: "core-pause", StreamName: "HYPERDRIVE_ADMIN"},
		{Subject: "hyperdrive.admin.fees.>", EventType: "FeeParamUpdate", ConsumerName: "core-fees", StreamName: "HYPERDRIVE_ADMIN"},
		{Subject: "hyperdrive.admin.collect.>", EventType: "CollectGovernanceFee", ConsumerName: "core-collect", StreamName: "HYPERDRIVE_ADMIN"},
		{Subject: "hyperdrive.admin.sweep.>", EventType: "Sweep", ConsumerName: "core-sweep", StreamName: "HYPERDRIVE_ADMIN"},
	}
}

func NewNATSSubscriber(js jetstream.JetStream, eventChan chan<- RawEvent) *NATSSubscriber {
	return &NATSSubscriber{
		js:        js,
		eventChan: eventChan,
	}
}

// Subscribe creates JetStream consumers for all configured subjects.
// Consumers use explicit ACK, max_deliver=5, ack_wait=30s.
func (ns *NATSSubscriber) Subscribe(ctx context.Context, subjects []SubjectConfig) error {
	for _, cfg := range subjects {
		consumer, err := ns.js.CreateOrUpdateConsumer(ctx, cfg.StreamName, jetstream.ConsumerConfig{
			Durable:       cfg.ConsumerName,
			FilterSubject: cfg.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			DeliverPolicy: jetstream.DeliverAllPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s: %w", cfg.ConsumerName, err)
		}

		consumerContext, err := consumer.Consume(func(msg jetstream.Msg) {
			raw := RawEvent{
				Subject:   msg.Subject(),
				Data:      msg.Data(),
				Timestamp: time.Now(),
				AckFunc:   func() { msg.Ack() },
				NakFunc:   func() { msg.Nak() },
			}

			select {
			case ns.eventChan <- raw:
				// Successfully queued for processing
			case <-ctx.Done():
				msg.Nak()
			}
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.ConsumerName, err)
		}

		ns.consumers = append(ns.consumers, consumerContext)
		log.Printf("INFO: subscribed to %s (consumer=%s)", cfg.Subject, cfg.ConsumerName)
	}

	return nil
}

// EnsureStreams creates the required JetStream streams if they don't exist.
// Streams use FileStorage, retention=Limits, max_age=72h.
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      "HYPERDRIVE_OPS",
			Subjects:  []string{"hyperdrive.ops.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      "HYPERDRIVE_PRICES",
			Subjects:  []string{"hyperdrive.prices.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      "HYPERDRIVE_ADMIN",
			Subjects:  []string{"hyperdrive.admin.>"},
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

// Stop gracefully stops all consumers.
func (ns *NATSSubscriber) Stop() {
	for _, cc := range ns.consumers {
		cc.Stop()
	}
	log.Println("INFO: NATS subscribers stopped")
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
