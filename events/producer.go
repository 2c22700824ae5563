// Package events streams audit activity to Kafka for downstream consumers
// (reporting, data warehouse). The stream is optional: with no brokers
// configured the producer is nil and emits are no-ops, matching how the rest
// of the service treats optional infrastructure.
package events

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	sdk "github.com/segmentio/kafka-go"
)

// Activity is the wire form of one audit event.
type Activity struct {
	ProjectID string    `json:"project_id"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	Op        string    `json:"op"`
	ActorID   string    `json:"actor_id"`
	At        time.Time `json:"at"`
}

// Producer writes activity events to a Kafka topic.
type Producer struct {
	writer *sdk.Writer
}

// NewProducer returns a Producer, or nil when brokers is empty.
func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 {
		return nil
	}
	return &Producer{
		writer: &sdk.Writer{
			Addr:         sdk.TCP(brokers...),
			Topic:        topic,
			Balancer:     &sdk.LeastBytes{},
			RequiredAcks: sdk.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Emit publishes one activity event, keyed by project so per-project ordering
// holds within a partition.
func (p *Producer) Emit(ctx context.Context, a Activity) error {
	if p == nil {
		return nil
	}
	value, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, sdk.Message{
		Key:   []byte(a.ProjectID),
		Value: value,
	})
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
