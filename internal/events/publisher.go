package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"concierge-backend/internal/model"
)

const outcomeTopic = "concierge.outcomes"

// Publisher emits per-message outcome events for downstream analytics.
// Publishing is fire-and-forget from the pipeline's perspective: a publish
// failure is logged by the caller and never changes the ack decision.
type Publisher struct {
	w *kafka.Writer
}

// NewPublisher constructs a Kafka producer using segmentio/kafka-go.
// kafka.Writer batches asynchronously so outcome publishing stays off the
// per-message critical path.
func NewPublisher(broker string) *Publisher {
	return &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(broker),   // segmentio/kafka-go: broker TCP address
			Topic:        outcomeTopic,        // target topic
			Balancer:     &kafka.LeastBytes{}, // segmentio/kafka-go: partition selection strategy
			RequiredAcks: kafka.RequireOne,    // wait for leader ack only
			Async:        true,                // non-blocking writes
		},
	}
}

// PublishOutcome sends one outcome event, keyed by message id so repeated
// attempts of the same message land on the same partition.
func (p *Publisher) PublishOutcome(ctx context.Context, evt model.OutcomeEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	// segmentio/kafka-go: WriteMessages publishes asynchronously (Async=true).
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.MessageID),
		Value: data,
		Time:  time.Now(),
	})
}

func (p *Publisher) Close() error {
	return p.w.Close()
}
