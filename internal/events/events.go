// Package events defines the payloads shared between the Kafka pipeline and
// the websocket layer. Producers marshal these, the consumer forwards them to
// the hub, and connected sessions receive them verbatim as JSON frames.
package events

import (
	"time"

	"lifeshare/internal/models"
)

// Frame type values pushed to websocket sessions.
const (
	TypeNewMessage = "newMessage"
)

// MessageEvent is published to the messages topic after a message has been
// persisted, keyed by conversation id so per-conversation order survives
// partitioning.
type MessageEvent struct {
	Type           string          `json:"type"`
	ConversationID uint            `json:"conversationId"`
	Message        *models.Message `json:"message"`
}

// NewMessageEvent builds the event for a freshly appended message.
func NewMessageEvent(message *models.Message) MessageEvent {
	return MessageEvent{
		Type:           TypeNewMessage,
		ConversationID: message.ConversationID,
		Message:        message,
	}
}

// RequestEvent records a request lifecycle transition (creation or a donor
// decision) on the request events topic.
type RequestEvent struct {
	RequestID   uint                 `json:"requestId"`
	RequesterID uint                 `json:"requesterId"`
	DonorID     uint                 `json:"donorId"`
	ResourceID  uint                 `json:"resourceId"`
	Status      models.RequestStatus `json:"status"`
	Timestamp   time.Time            `json:"timestamp"`
}
