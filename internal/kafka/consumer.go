package kafka

import (
	"context"
	"fmt"
	"log"
	"strings"

	"lifeshare/internal/config"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// MessageHandler processes a single consumed Kafka message. A nil return
// commits the offset; an error leaves it uncommitted for redelivery.
type MessageHandler func(ctx context.Context, msg *kafka.Message) error

// MessageConsumer defines the interface for a Kafka message consumer.
type MessageConsumer interface {
	Consume(ctx context.Context, topics []string, groupID string, handler MessageHandler) error
	Close()
}

// confluentKafkaConsumer implements MessageConsumer using confluent-kafka-go.
type confluentKafkaConsumer struct {
	consumer *kafka.Consumer
	cfg      config.KafkaConfig
	groupID  string
}

// NewConfluentKafkaConsumer creates a new Kafka consumer instance. The
// consumer itself is built lazily in Consume, once the group id is known.
func NewConfluentKafkaConsumer(cfg config.KafkaConfig) (MessageConsumer, error) {
	return &confluentKafkaConsumer{cfg: cfg}, nil
}

// Consume blocks, polling the given topics until the context is canceled or a
// fatal broker error occurs.
func (c *confluentKafkaConsumer) Consume(ctx context.Context, topics []string, groupID string, handler MessageHandler) error {
	if len(topics) == 0 {
		return fmt.Errorf("kafka consumer: no topics specified")
	}
	c.groupID = groupID

	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(c.cfg.Brokers, ","),
		"group.id":           c.groupID,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": "false", // commit manually after processing
	}
	if c.cfg.Protocol != "" {
		_ = configMap.SetKey("security.protocol", c.cfg.Protocol)
	}
	if c.cfg.ClientID != "" {
		_ = configMap.SetKey("client.id", c.cfg.ClientID)
	}

	consumer, err := kafka.NewConsumer(configMap)
	if err != nil {
		return fmt.Errorf("failed to create Kafka consumer for group %s: %w", groupID, err)
	}
	c.consumer = consumer

	if err := c.consumer.SubscribeTopics(topics, nil); err != nil {
		_ = c.consumer.Close()
		return fmt.Errorf("failed to subscribe to topics %v for group %s: %w", topics, groupID, err)
	}

	log.Printf("Kafka consumer started for group %s, topics %v", groupID, topics)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Context canceled for consumer group %s, shutting down.", groupID)
			return ctx.Err()
		default:
			ev := c.consumer.Poll(1000)
			if ev == nil {
				continue
			}

			switch e := ev.(type) {
			case *kafka.Message:
				if err := handler(ctx, e); err != nil {
					log.Printf("Error processing Kafka message for group %s (topic %s, offset %v): %v",
						groupID, *e.TopicPartition.Topic, e.TopicPartition.Offset, err)
				} else if _, err := c.consumer.CommitMessage(e); err != nil {
					log.Printf("Failed to commit offset for group %s (topic %s, offset %v): %v",
						groupID, *e.TopicPartition.Topic, e.TopicPartition.Offset, err)
				}
			case kafka.Error:
				if e.IsFatal() {
					log.Printf("Fatal Kafka error for group %s: %v, stopping consumer loop.", groupID, e)
					return e
				}
				log.Printf("Kafka consumer error for group %s: %v", groupID, e)
			default:
				// rebalance notices and other events need no handling here
			}
		}
	}
}

// Close shuts down the underlying consumer if it was started.
func (c *confluentKafkaConsumer) Close() {
	if c.consumer != nil {
		if err := c.consumer.Close(); err != nil {
			log.Printf("Error closing Kafka consumer for group %s: %v", c.groupID, err)
		}
	}
}
