package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"lifeshare/internal/config"
	"lifeshare/internal/events"
	"lifeshare/internal/kafka"
	"lifeshare/internal/models"
	"lifeshare/internal/storage"

	"gorm.io/gorm"
)

var (
	// ErrConversationNotFound covers both a conversation that does not exist
	// and one the caller is not a participant of. Readers cannot tell the two
	// apart, so conversation existence never leaks to outsiders.
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("not a participant of this conversation")
	ErrEmptyMessage         = errors.New("message text must not be empty")
)

// ConversationPreview is a conversation row for list views, carrying the most
// recent message and the other participant's public identity so clients can
// render a snippet and a display name without a second round trip.
type ConversationPreview struct {
	models.Conversation
	Counterpart *models.UserBasicInfo `json:"counterpart,omitempty"`
	LastMessage *models.Message       `json:"lastMessage,omitempty"`
}

type ConversationService interface {
	FindOrCreate(ctx context.Context, userA, userB uint) (*models.Conversation, bool, error)
	// AppendMessage persists the message, then publishes it for realtime
	// fan-out. Persistence failures fail the call; publish failures do not.
	AppendMessage(ctx context.Context, conversationID, senderID uint, text string) (*models.Message, error)
	GetForParticipant(ctx context.Context, conversationID, userID uint) (*models.Conversation, error)
	ListForParticipant(ctx context.Context, userID uint) ([]ConversationPreview, error)
	// IsParticipant reports whether userID belongs to the conversation. Used
	// to authorize realtime subscriptions.
	IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error)
}

type conversationService struct {
	convoRepo   storage.ConversationRepository
	messageRepo storage.MessageRepository
	producer    kafka.MessageProducer
	kafkaCfg    config.KafkaConfig
}

// NewConversationService creates a new ConversationService instance.
func NewConversationService(
	convoRepo storage.ConversationRepository,
	messageRepo storage.MessageRepository,
	producer kafka.MessageProducer,
	kafkaCfg config.KafkaConfig,
) ConversationService {
	return &conversationService{
		convoRepo:   convoRepo,
		messageRepo: messageRepo,
		producer:    producer,
		kafkaCfg:    kafkaCfg,
	}
}

func (s *conversationService) FindOrCreate(ctx context.Context, userA, userB uint) (*models.Conversation, bool, error) {
	return s.convoRepo.FindOrCreateByParticipants(ctx, userA, userB)
}

func (s *conversationService) AppendMessage(ctx context.Context, conversationID, senderID uint, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	conversation, err := s.convoRepo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to load conversation %d: %w", conversationID, err)
	}
	if !conversation.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}

	message := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	// Bump the conversation so list views sort it to the top.
	if err := s.convoRepo.Touch(ctx, conversationID); err != nil {
		log.Printf("Error touching conversation %d: %v", conversationID, err)
	}

	s.publishMessageEvent(ctx, message)
	return message, nil
}

func (s *conversationService) GetForParticipant(ctx context.Context, conversationID, userID uint) (*models.Conversation, error) {
	conversation, err := s.convoRepo.GetByIDWithMessages(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to load conversation %d: %w", conversationID, err)
	}
	if !conversation.HasParticipant(userID) {
		return nil, ErrConversationNotFound
	}
	return conversation, nil
}

func (s *conversationService) ListForParticipant(ctx context.Context, userID uint) ([]ConversationPreview, error) {
	conversations, err := s.convoRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations for user %d: %w", userID, err)
	}

	previews := make([]ConversationPreview, 0, len(conversations))
	for _, conversation := range conversations {
		last, err := s.messageRepo.GetLastByConversation(ctx, conversation.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load last message for conversation %d: %w", conversation.ID, err)
		}
		preview := ConversationPreview{Conversation: conversation, LastMessage: last}
		switch userID {
		case conversation.ParticipantLowID:
			preview.Counterpart = conversation.ParticipantHigh.BasicInfo()
		case conversation.ParticipantHighID:
			preview.Counterpart = conversation.ParticipantLow.BasicInfo()
		}
		previews = append(previews, preview)
	}
	return previews, nil
}

func (s *conversationService) IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error) {
	conversation, err := s.convoRepo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load conversation %d: %w", conversationID, err)
	}
	return conversation.HasParticipant(userID), nil
}

// publishMessageEvent hands the persisted message to Kafka keyed by
// conversation so per-conversation ordering survives partitioning.
func (s *conversationService) publishMessageEvent(ctx context.Context, message *models.Message) {
	if s.producer == nil {
		return
	}
	event := events.NewMessageEvent(message)
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshalling message event for conversation %d: %v", message.ConversationID, err)
		return
	}
	key := []byte(fmt.Sprintf("%d", message.ConversationID))
	if err := s.producer.SendMessage(ctx, s.kafkaCfg.MessagesTopic, key, payload); err != nil {
		log.Printf("Error publishing message event for conversation %d: %v", message.ConversationID, err)
	}
}
