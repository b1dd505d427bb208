package kafkahandlers

import (
	"context"
	"encoding/json"
	"log"

	"lifeshare/internal/config"
	"lifeshare/internal/events"
	"lifeshare/internal/websocket"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// EventConsumerLogic routes consumed pipeline events to the realtime hub.
// Message events become websocket frames for the conversation's subscribers;
// request lifecycle events are logged as an audit trail.
type EventConsumerLogic struct {
	hub      *websocket.Hub
	kafkaCfg config.KafkaConfig
}

// NewEventConsumerLogic creates a new EventConsumerLogic instance.
func NewEventConsumerLogic(hub *websocket.Hub, kafkaCfg config.KafkaConfig) *EventConsumerLogic {
	if hub == nil {
		log.Panic("EventConsumerLogic requires a hub")
	}
	return &EventConsumerLogic{hub: hub, kafkaCfg: kafkaCfg}
}

// HandleEvent is the MessageHandler passed to the Kafka consumer. Returning
// nil commits the offset; malformed payloads are skipped, not retried.
func (h *EventConsumerLogic) HandleEvent(ctx context.Context, msg *kafka.Message) error {
	if msg.TopicPartition.Topic == nil {
		return nil
	}

	switch *msg.TopicPartition.Topic {
	case h.kafkaCfg.MessagesTopic:
		return h.handleMessageEvent(msg)
	case h.kafkaCfg.RequestEventsTopic:
		return h.handleRequestEvent(msg)
	default:
		log.Printf("Ignoring event from unexpected topic %s", *msg.TopicPartition.Topic)
		return nil
	}
}

func (h *EventConsumerLogic) handleMessageEvent(msg *kafka.Message) error {
	var event events.MessageEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Printf("Error unmarshalling message event (value: %s): %v, skipping.", string(msg.Value), err)
		return nil
	}
	if event.ConversationID == 0 || event.Message == nil {
		log.Printf("Dropping malformed message event: %s", string(msg.Value))
		return nil
	}

	// The payload is forwarded as-is: it already is the websocket frame.
	h.hub.Publish(event.ConversationID, msg.Value)
	return nil
}

func (h *EventConsumerLogic) handleRequestEvent(msg *kafka.Message) error {
	var event events.RequestEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Printf("Error unmarshalling request event (value: %s): %v, skipping.", string(msg.Value), err)
		return nil
	}
	log.Printf("Request %d for resource %d (%d -> %d) is now %s",
		event.RequestID, event.ResourceID, event.RequesterID, event.DonorID, event.Status)
	return nil
}
