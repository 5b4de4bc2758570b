// Package kafka provides an eventstream.Publisher backed by a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/eventstream"
)

// DefaultTopic is the topic events are published to when none is configured.
const DefaultTopic = "stacks.events"

// Publisher implements eventstream.Publisher over a kafka-go writer.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic is the topic to publish to. Defaults to DefaultTopic if empty.
	Topic string
}

// NewPublisher creates a Kafka-backed event publisher.
func NewPublisher(c Config, logger *zap.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("%w: at least one kafka broker is required", eventstream.ErrPublish)
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(c.Brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}

	logger.Info("kafka event publisher initialized",
		zap.Strings("brokers", c.Brokers),
		zap.String("topic", topic),
	)

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// Publish delivers one event to the topic, keyed for partitioning.
func (p *Publisher) Publish(ctx context.Context, event eventstream.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: encoding event: %v", eventstream.ErrPublish, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", eventstream.ErrPublish, err)
	}

	p.logger.Debug("published event",
		zap.String("type", event.Type),
		zap.String("key", event.Key),
	)

	return nil
}

// Close flushes pending events and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Ensure Publisher implements eventstream.Publisher
var _ eventstream.Publisher = (*Publisher)(nil)
