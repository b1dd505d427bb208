package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lifeshare/internal/models"
)

// ConversationRepository defines the interface for conversation data operations.
type ConversationRepository interface {
	// FindOrCreateByParticipants returns the single conversation for the
	// unordered pair {a, b}, creating it if absent. Deterministic under
	// argument order; concurrent callers racing on the same pair converge to
	// one conversation. The bool reports whether the conversation was created.
	FindOrCreateByParticipants(ctx context.Context, a, b uint) (*models.Conversation, bool, error)
	GetByID(ctx context.Context, id uint) (*models.Conversation, error)
	// GetByIDWithMessages loads the conversation together with its full
	// message log in append order and both participants' identities.
	GetByIDWithMessages(ctx context.Context, id uint) (*models.Conversation, error)
	ListByParticipant(ctx context.Context, userID uint) ([]models.Conversation, error)
	// Touch bumps the conversation's updated_at, keeping the list ordering in
	// sync with message activity.
	Touch(ctx context.Context, id uint) error
}

type gormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GORM-backed ConversationRepository.
func NewGormConversationRepository(db *gorm.DB) ConversationRepository {
	return &gormConversationRepository{db: db}
}

func (r *gormConversationRepository) FindOrCreateByParticipants(ctx context.Context, a, b uint) (*models.Conversation, bool, error) {
	if a == b {
		return nil, false, fmt.Errorf("cannot create a conversation with a single participant")
	}

	pair := models.Conversation{ParticipantLowID: a, ParticipantHighID: b}
	pair.EnsureCanonicalOrder()

	var conversation models.Conversation
	created := false

	txErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("participant_low_id = ? AND participant_high_id = ?", pair.ParticipantLowID, pair.ParticipantHighID).
			First(&conversation).Error
		if err == nil {
			return nil // pair already has its conversation
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up conversation for pair (%d, %d): %w", pair.ParticipantLowID, pair.ParticipantHighID, err)
		}

		conversation = pair
		if err := tx.Create(&conversation).Error; err != nil {
			// A concurrent creator can beat us to the unique pair index; the
			// existing row is the conversation we want.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return tx.
					Where("participant_low_id = ? AND participant_high_id = ?", pair.ParticipantLowID, pair.ParticipantHighID).
					First(&conversation).Error
			}
			return fmt.Errorf("failed to create conversation for pair (%d, %d): %w", pair.ParticipantLowID, pair.ParticipantHighID, err)
		}
		created = true
		return nil
	})
	if txErr != nil {
		return nil, false, txErr
	}
	return &conversation, created, nil
}

func (r *gormConversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := r.db.WithContext(ctx).First(&conversation, id).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *gormConversationRepository) GetByIDWithMessages(ctx context.Context, id uint) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Preload("ParticipantLow").
		Preload("ParticipantHigh").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("messages.created_at ASC, messages.id ASC")
		}).
		Preload("Messages.Sender").
		First(&conversation, id).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// ListByParticipant returns all conversations containing the user, most
// recently active first.
func (r *gormConversationRepository) ListByParticipant(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.WithContext(ctx).
		Where("participant_low_id = ? OR participant_high_id = ?", userID, userID).
		Order("updated_at DESC").
		Preload("ParticipantLow").
		Preload("ParticipantHigh").
		Find(&conversations).Error
	return conversations, err
}

func (r *gormConversationRepository) Touch(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}
