package repository

import (
	"context"
	"errors"

	"murmur/internal/models"
	"murmur/internal/observability"

	"gorm.io/gorm"
)

var (
	profileLog     = observability.NewRepoLogger("profiles")
	profileMetrics = observability.NewDatabaseMetrics("profiles")
)

// ProfileRepository defines the interface for profile data operations.
// Lookups return (nil, nil) when no profile matches.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	ListByUserIDs(ctx context.Context, userIDs []uint) ([]models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	UpdateUsername(ctx context.Context, userID uint, username string) error
	Update(ctx context.Context, userID uint, columns map[string]interface{}) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	defer profileMetrics.TrackQuery("get_by_user_id")()

	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		profileLog.LogError(ctx, err, "get_by_user_id")
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}

func (r *profileRepository) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	defer profileMetrics.TrackQuery("get_by_username")()

	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		profileLog.LogError(ctx, err, "get_by_username")
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}

func (r *profileRepository) ListByUserIDs(ctx context.Context, userIDs []uint) ([]models.Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	defer profileMetrics.TrackQuery("list_by_user_ids")()

	var profiles []models.Profile
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		profileLog.LogError(ctx, err, "list_by_user_ids")
		return nil, models.NewInternalError(err)
	}
	return profiles, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	defer profileMetrics.TrackQuery("create")()

	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		profileLog.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	profileLog.LogCreate(ctx, map[string]interface{}{"user_id": profile.UserID, "username": profile.Username})
	return nil
}

func (r *profileRepository) UpdateUsername(ctx context.Context, userID uint, username string) error {
	return r.Update(ctx, userID, map[string]interface{}{"username": username})
}

func (r *profileRepository) Update(ctx context.Context, userID uint, columns map[string]interface{}) error {
	if len(columns) == 0 {
		return nil
	}
	defer profileMetrics.TrackQuery("update")()

	result := r.db.WithContext(ctx).Model(&models.Profile{}).Where("user_id = ?", userID).Updates(columns)
	if result.Error != nil {
		profileLog.LogError(ctx, result.Error, "update")
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", userID)
	}
	profileLog.LogUpdate(ctx, map[string]interface{}{"user_id": userID, "columns": len(columns)})
	return nil
}
