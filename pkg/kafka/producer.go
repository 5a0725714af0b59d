package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/config"
)

// ContentType is set as the content-type header of every published message.
const ContentType = "application/json"

// Event is one message to publish. Key picks the partition, so verdicts
// keyed by variant stay ordered per variant.
type Event struct {
	Key   string
	Value any
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON events to one topic.
type Producer struct {
	w      writer
	topic  string
	logger *slog.Logger
}

// NewProducer returns a synchronous producer for topic. An unknown
// compression name falls back to none; config validation rejects those.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	codec, ok := compressionCodec(cfg.Compression)
	logger := slog.Default().With("component", "kafka-producer", "topic", topic)
	if !ok {
		logger.Warn("unknown compression, publishing uncompressed", "compression", cfg.Compression)
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
		Compression:  codec,
	}
	return newProducer(w, topic, logger)
}

func newProducer(w writer, topic string, logger *slog.Logger) *Producer {
	return &Producer{w: w, topic: topic, logger: logger}
}

func compressionCodec(name string) (kafka.Compression, bool) {
	switch name {
	case "", "none":
		return 0, true
	case "gzip":
		return kafka.Gzip, true
	case "snappy":
		return kafka.Snappy, true
	case "lz4":
		return kafka.Lz4, true
	case "zstd":
		return kafka.Zstd, true
	default:
		return 0, false
	}
}

func encode(events []Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, len(events))
	for i, e := range events {
		value, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding event %q: %w", e.Key, err)
		}
		msgs[i] = kafka.Message{
			Key:     []byte(e.Key),
			Value:   value,
			Headers: []kafka.Header{{Key: "content-type", Value: []byte(ContentType)}},
		}
	}
	return msgs, nil
}

// Publish writes one event and waits for every in-sync replica.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	return p.PublishBatch(ctx, []Event{event})
}

// PublishBatch writes events in a single call. Nothing is written if any
// event fails to encode.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs, err := encode(events)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("publish failed", "count", len(msgs), "first_key", events[0].Key, "error", err)
		return fmt.Errorf("publishing to %s: %w", p.topic, err)
	}
	p.logger.Debug("published", "count", len(msgs))
	return nil
}

func (p *Producer) Close() error {
	return p.w.Close()
}
