package repository

import (
	"context"

	"murmur/internal/models"
	"murmur/internal/observability"

	"gorm.io/gorm"
)

var (
	messageLog     = observability.NewRepoLogger("messages")
	messageMetrics = observability.NewDatabaseMetrics("messages")
)

// MessageRepository defines the interface for message data operations.
// Messages are append-only; they are removed only with their conversation.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	// ListByConversation returns messages oldest first.
	ListByConversation(ctx context.Context, conversationID uint) ([]models.Message, error)
	DeleteByConversation(ctx context.Context, conversationID uint) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	defer messageMetrics.TrackQuery("create")()

	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		messageLog.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	messageLog.LogCreate(ctx, map[string]interface{}{"id": msg.ID, "conversation_id": msg.ConversationID})
	return nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID uint) ([]models.Message, error) {
	defer messageMetrics.TrackQuery("list_by_conversation")()

	messages := []models.Message{}
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

func (r *messageRepository) DeleteByConversation(ctx context.Context, conversationID uint) (int64, error) {
	defer messageMetrics.TrackQuery("delete_by_conversation")()

	result := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&models.Message{})
	if result.Error != nil {
		messageLog.LogError(ctx, result.Error, "delete_by_conversation")
		return 0, models.NewInternalError(result.Error)
	}
	messageLog.LogDelete(ctx, map[string]interface{}{"conversation_id": conversationID, "rows": result.RowsAffected})
	return result.RowsAffected, nil
}
