package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
)

// Repository exposes notification preference persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Get(ctx context.Context, userID uuid.UUID, category enums.NotificationCategory) (*models.NotificationPreference, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.NotificationPreference, error)
	Upsert(ctx context.Context, pref *models.NotificationPreference) error
	Delete(ctx context.Context, userID uuid.UUID, category enums.NotificationCategory) error
	MutedUserIDs(ctx context.Context, category enums.NotificationCategory, userIDs []uuid.UUID, now time.Time) ([]uuid.UUID, error)
	DeleteExpiredTimers(ctx context.Context, now time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a preference repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Get(ctx context.Context, userID uuid.UUID, category enums.NotificationCategory) (*models.NotificationPreference, error) {
	var pref models.NotificationPreference
	err := r.db.WithContext(ctx).
		First(&pref, "user_id = ? AND category = ?", userID, category).Error
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *repositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.NotificationPreference, error) {
	var prefs []models.NotificationPreference
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("category ASC").
		Find(&prefs).Error
	return prefs, err
}

func (r *repositoryImpl) Upsert(ctx context.Context, pref *models.NotificationPreference) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "category"}},
			DoUpdates: clause.AssignmentColumns([]string{"muted", "muted_until", "updated_at"}),
		}).
		Create(pref).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, userID uuid.UUID, category enums.NotificationCategory) error {
	return r.db.WithContext(ctx).
		Delete(&models.NotificationPreference{}, "user_id = ? AND category = ?", userID, category).Error
}

// MutedUserIDs narrows the given users to those muted for the category
// at the given instant.
func (r *repositoryImpl) MutedUserIDs(ctx context.Context, category enums.NotificationCategory, userIDs []uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var muted []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.NotificationPreference{}).
		Where("category = ? AND user_id IN ?", category, userIDs).
		Where("(muted_until IS NOT NULL AND muted_until >= ?) OR (muted_until IS NULL AND muted)", now).
		Pluck("user_id", &muted).Error
	return muted, err
}

// DeleteExpiredTimers removes rows whose mute window has elapsed and
// that carry no permanent mute.
func (r *repositoryImpl) DeleteExpiredTimers(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("muted_until IS NOT NULL AND muted_until < ? AND NOT muted", now).
		Delete(&models.NotificationPreference{})
	return result.RowsAffected, result.Error
}
