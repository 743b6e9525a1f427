package repository

import (
	"context"
	"errors"

	"murmur/internal/models"
	"murmur/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	conversationLog     = observability.NewRepoLogger("conversations")
	conversationMetrics = observability.NewDatabaseMetrics("conversations")
)

// ConversationRepository defines the interface for conversation data operations.
// Conversations are always returned with Participants loaded in join order.
type ConversationRepository interface {
	// Create inserts conv with participantIDs in the given order.
	Create(ctx context.Context, conv *models.Conversation, participantIDs ...uint) error
	GetByID(ctx context.Context, id uint) (*models.Conversation, error)
	// GetByIDForUpdate is GetByID holding a row lock on the conversation until
	// the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Conversation, error)
	// ListDMsByPair returns every dm between the two users.
	ListDMsByPair(ctx context.Context, userID, otherID uint) ([]models.Conversation, error)
	// AddParticipants appends the ids not already present and returns them.
	AddParticipants(ctx context.Context, conversationID uint, userIDs []uint) ([]uint, error)
	// RemoveParticipant removes userID and returns how many participants remain.
	RemoveParticipant(ctx context.Context, conversationID, userID uint) (int64, error)
	Update(ctx context.Context, id uint, columns map[string]interface{}) error
	// Delete removes the conversation and its participant rows.
	Delete(ctx context.Context, id uint) error
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func orderedParticipants(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *conversationRepository) Create(ctx context.Context, conv *models.Conversation, participantIDs ...uint) error {
	defer conversationMetrics.TrackQuery("create")()

	conv.Participants = make([]models.ConversationParticipant, 0, len(participantIDs))
	seen := make(map[uint]struct{}, len(participantIDs))
	for _, id := range participantIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		conv.Participants = append(conv.Participants, models.ConversationParticipant{
			UserID:   id,
			Position: len(conv.Participants),
		})
	}

	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		conversationLog.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	conversationLog.LogCreate(ctx, map[string]interface{}{
		"id":           conv.ID,
		"type":         conv.Type,
		"participants": len(conv.Participants),
	})
	return nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	defer conversationMetrics.TrackQuery("get_by_id")()

	var conv models.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Participants", orderedParticipants).
		First(&conv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Conversation", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &conv, nil
}

func (r *conversationRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Conversation, error) {
	defer conversationMetrics.TrackQuery("lock")()

	var locked models.Conversation
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&locked, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Conversation", id)
		}
		conversationLog.LogError(ctx, err, "lock")
		return nil, models.NewInternalError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	defer conversationMetrics.TrackQuery("list_for_user")()

	db := r.db.WithContext(ctx)
	member := db.Model(&models.ConversationParticipant{}).
		Select("conversation_id").
		Where("user_id = ?", userID)

	var convs []models.Conversation
	if err := db.
		Where("id IN (?)", member).
		Preload("Participants", orderedParticipants).
		Order("created_at ASC, id ASC").
		Find(&convs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return convs, nil
}

func (r *conversationRepository) ListDMsByPair(ctx context.Context, userID, otherID uint) ([]models.Conversation, error) {
	defer conversationMetrics.TrackQuery("list_dms_by_pair")()

	var convs []models.Conversation
	if err := r.db.WithContext(ctx).
		Where("type = ? AND dm_pair_key = ?", models.ConversationDM, models.DMPairKey(userID, otherID)).
		Preload("Participants", orderedParticipants).
		Order("id ASC").
		Find(&convs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return convs, nil
}

func (r *conversationRepository) AddParticipants(ctx context.Context, conversationID uint, userIDs []uint) ([]uint, error) {
	defer conversationMetrics.TrackQuery("add_participants")()

	db := r.db.WithContext(ctx)
	var existing []models.ConversationParticipant
	if err := db.Where("conversation_id = ?", conversationID).Find(&existing).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	present := make(map[uint]struct{}, len(existing)+len(userIDs))
	next := 0
	for _, p := range existing {
		present[p.UserID] = struct{}{}
		if p.Position >= next {
			next = p.Position + 1
		}
	}

	var rows []models.ConversationParticipant
	var added []uint
	for _, id := range userIDs {
		if _, ok := present[id]; ok {
			continue
		}
		present[id] = struct{}{}
		rows = append(rows, models.ConversationParticipant{
			ConversationID: conversationID,
			UserID:         id,
			Position:       next,
		})
		added = append(added, id)
		next++
	}
	if len(rows) == 0 {
		return nil, nil
	}

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		conversationLog.LogError(ctx, err, "add_participants")
		return nil, models.NewInternalError(err)
	}
	conversationLog.LogUpdate(ctx, map[string]interface{}{"id": conversationID, "added": len(added)})
	return added, nil
}

func (r *conversationRepository) RemoveParticipant(ctx context.Context, conversationID, userID uint) (int64, error) {
	defer conversationMetrics.TrackQuery("remove_participant")()

	db := r.db.WithContext(ctx)
	if err := db.
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&models.ConversationParticipant{}).Error; err != nil {
		conversationLog.LogError(ctx, err, "remove_participant")
		return 0, models.NewInternalError(err)
	}

	var remaining int64
	if err := db.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Count(&remaining).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return remaining, nil
}

func (r *conversationRepository) Update(ctx context.Context, id uint, columns map[string]interface{}) error {
	if len(columns) == 0 {
		return nil
	}
	defer conversationMetrics.TrackQuery("update")()

	if err := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(columns).Error; err != nil {
		conversationLog.LogError(ctx, err, "update")
		return models.NewInternalError(err)
	}
	conversationLog.LogUpdate(ctx, map[string]interface{}{"id": id, "columns": len(columns)})
	return nil
}

func (r *conversationRepository) Delete(ctx context.Context, id uint) error {
	defer conversationMetrics.TrackQuery("delete")()

	db := r.db.WithContext(ctx)
	if err := db.Where("conversation_id = ?", id).Delete(&models.ConversationParticipant{}).Error; err != nil {
		conversationLog.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}
	if err := db.Delete(&models.Conversation{}, id).Error; err != nil {
		conversationLog.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}
	conversationLog.LogDelete(ctx, map[string]interface{}{"id": id})
	return nil
}
