// Package events publishes ingestion results for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Kinds of ingestion events.
const (
	KindOddsSnapshot = "odds_snapshot"
	KindScrapedPick  = "scraped_pick"
)

// Event is the envelope written to the topic.
type Event struct {
	Kind       string          `json:"kind"`
	RunID      string          `json:"run_id"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher sends ingestion events.
type Publisher interface {
	Publish(ctx context.Context, evs ...Event) error
	Close() error
}

// New returns a Kafka publisher, or Nop when brokers is empty.
func New(brokers []string, topic string, log *zap.Logger) Publisher {
	if len(brokers) == 0 {
		return Nop{}
	}
	return NewKafka(brokers, topic, log)
}

// Kafka writes events to one topic, keyed by Event.Key.
type Kafka struct {
	writer *kafka.Writer
	log    *zap.Logger
}

// NewKafka builds the writer. It does not dial until the first write.
func NewKafka(brokers []string, topic string, log *zap.Logger) *Kafka {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}
	return &Kafka{writer: writer, log: log}
}

// Publish writes evs in a single batch.
func (p *Kafka) Publish(ctx context.Context, evs ...Event) error {
	if len(evs) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(evs))
	for _, e := range evs {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding %s event: %w", e.Kind, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Key),
			Value: value,
			Time:  e.OccurredAt,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.log.Error("failed to publish ingestion events", zap.Int("count", len(msgs)), zap.Error(err))
		return err
	}
	p.log.Debug("published ingestion events", zap.Int("count", len(msgs)))
	return nil
}

// Close flushes and closes the writer.
func (p *Kafka) Close() error {
	return p.writer.Close()
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }
func (Nop) Close() error                            { return nil }
