package repository

import (
	"context"
	"errors"

	"murmur/internal/models"
	"murmur/internal/observability"

	"gorm.io/gorm"
)

var (
	friendLog     = observability.NewRepoLogger("friend_requests")
	friendMetrics = observability.NewDatabaseMetrics("friend_requests")
)

// FriendRepository defines the interface for friend request data operations
type FriendRepository interface {
	Create(ctx context.Context, request *models.FriendRequest) error
	GetByID(ctx context.Context, id uint) (*models.FriendRequest, error)
	// GetByPair returns the request sent by senderID to recipientID, or nil.
	GetByPair(ctx context.Context, senderID, recipientID uint) (*models.FriendRequest, error)
	UpdateStatus(ctx context.Context, id uint, status models.FriendRequestStatus) error
	ListPending(ctx context.Context, recipientID uint) ([]models.FriendRequest, error)
	// ListAccepted returns accepted requests in either direction involving userID.
	ListAccepted(ctx context.Context, userID uint) ([]models.FriendRequest, error)
	// DeclineAccepted flips accepted requests between the two users, in both
	// directions, to declined. It returns the number of rows changed.
	DeclineAccepted(ctx context.Context, userID, otherID uint) (int64, error)
}

type friendRepository struct {
	db *gorm.DB
}

// NewFriendRepository creates a new friend repository
func NewFriendRepository(db *gorm.DB) FriendRepository {
	return &friendRepository{db: db}
}

func (r *friendRepository) Create(ctx context.Context, request *models.FriendRequest) error {
	defer friendMetrics.TrackQuery("create")()

	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		friendLog.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	friendLog.LogCreate(ctx, map[string]interface{}{
		"id":           request.ID,
		"sender_id":    request.SenderID,
		"recipient_id": request.RecipientID,
	})
	return nil
}

func (r *friendRepository) GetByID(ctx context.Context, id uint) (*models.FriendRequest, error) {
	defer friendMetrics.TrackQuery("get_by_id")()

	var request models.FriendRequest
	if err := r.db.WithContext(ctx).First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Friend request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &request, nil
}

func (r *friendRepository) GetByPair(ctx context.Context, senderID, recipientID uint) (*models.FriendRequest, error) {
	defer friendMetrics.TrackQuery("get_by_pair")()

	var request models.FriendRequest
	if err := r.db.WithContext(ctx).
		Where("sender_id = ? AND recipient_id = ?", senderID, recipientID).
		First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &request, nil
}

func (r *friendRepository) UpdateStatus(ctx context.Context, id uint, status models.FriendRequestStatus) error {
	defer friendMetrics.TrackQuery("update_status")()

	if err := r.db.WithContext(ctx).
		Model(&models.FriendRequest{}).
		Where("id = ?", id).
		Update("status", status).Error; err != nil {
		friendLog.LogError(ctx, err, "update_status")
		return models.NewInternalError(err)
	}
	friendLog.LogUpdate(ctx, map[string]interface{}{"id": id, "status": status})
	return nil
}

func (r *friendRepository) ListPending(ctx context.Context, recipientID uint) ([]models.FriendRequest, error) {
	defer friendMetrics.TrackQuery("list_pending")()

	var requests []models.FriendRequest
	if err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND status = ?", recipientID, models.FriendRequestPending).
		Order("created_at ASC, id ASC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *friendRepository) ListAccepted(ctx context.Context, userID uint) ([]models.FriendRequest, error) {
	defer friendMetrics.TrackQuery("list_accepted")()

	var requests []models.FriendRequest
	if err := r.db.WithContext(ctx).
		Where("status = ? AND (sender_id = ? OR recipient_id = ?)", models.FriendRequestAccepted, userID, userID).
		Order("id ASC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *friendRepository) DeclineAccepted(ctx context.Context, userID, otherID uint) (int64, error) {
	defer friendMetrics.TrackQuery("decline_accepted")()

	result := r.db.WithContext(ctx).
		Model(&models.FriendRequest{}).
		Where("status = ? AND ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))",
			models.FriendRequestAccepted, userID, otherID, otherID, userID).
		Update("status", models.FriendRequestDeclined)
	if result.Error != nil {
		friendLog.LogError(ctx, result.Error, "decline_accepted")
		return 0, models.NewInternalError(result.Error)
	}
	friendLog.LogUpdate(ctx, map[string]interface{}{"user_id": userID, "other_id": otherID, "rows": result.RowsAffected})
	return result.RowsAffected, nil
}
