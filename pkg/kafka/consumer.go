// Package kafka moves candidate variants and verdict events through Kafka
// with segmentio/kafka-go. Values are JSON.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/resilience"
)

// MessageHandler processes one message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a topic as part of the configured consumer group. Offsets
// are committed in order, so a message whose handler keeps failing is
// retried up to the configured attempts and then skipped.
type Consumer struct {
	r          reader
	handler    MessageHandler
	retry      resilience.RetryConfig
	fetchPause time.Duration
	logger     *slog.Logger
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	c := newConsumer(r, handler, cfg.HandleAttempts)
	c.logger = c.logger.With("topic", topic, "group", cfg.ConsumerGroup)
	return c
}

func newConsumer(r reader, handler MessageHandler, attempts int) *Consumer {
	return &Consumer{
		r:       r,
		handler: handler,
		retry: resilience.RetryConfig{
			MaxAttempts:  attempts,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
		fetchPause: time.Second,
		logger:     slog.Default().With("component", "kafka-consumer"),
	}
}

// Start consumes until ctx is cancelled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.r.Close()
	for {
		msg, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("fetch failed", "error", err)
			select {
			case <-time.After(c.fetchPause):
			case <-ctx.Done():
			}
			continue
		}
		if err := c.process(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("skipping message", "partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key), "error", err)
		}
		if err := c.r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	c.logger.Debug("message received", "partition", msg.Partition, "offset", msg.Offset, "value_size", len(msg.Value))
	name := fmt.Sprintf("handle %d/%d", msg.Partition, msg.Offset)
	return resilience.Retry(ctx, name, c.retry, func() error {
		return c.handler(ctx, msg.Key, msg.Value)
	})
}

func (c *Consumer) Close() error {
	return c.r.Close()
}

// ErrUndecodable marks a message value that is not the expected JSON.
var ErrUndecodable = errors.New("undecodable kafka message")

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return result, nil
}
