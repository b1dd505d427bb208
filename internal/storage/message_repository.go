package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"lifeshare/internal/models"
)

// MessageRepository defines the interface for message data operations.
// Messages are append-only; there is no update or delete. Reading a
// conversation's history goes through the conversation repository's preload.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	// GetLastByConversation returns the most recent message, or nil if the
	// conversation has none yet.
	GetLastByConversation(ctx context.Context, conversationID uint) (*models.Message, error)
}

type gormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-backed MessageRepository.
func NewGormMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

func (r *gormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *gormMessageRepository) GetLastByConversation(ctx context.Context, conversationID uint) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Preload("Sender").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}
