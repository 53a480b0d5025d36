package addresses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
)

// Repository exposes saved address persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.SavedAddress, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.SavedAddress, error)
	Create(ctx context.Context, address *models.SavedAddress) error
	Update(ctx context.Context, address *models.SavedAddress) error
	Delete(ctx context.Context, id uuid.UUID) error
	ClearDefault(ctx context.Context, userID uuid.UUID) error
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a saved address repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.SavedAddress, error) {
	var rows []models.SavedAddress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.SavedAddress, error) {
	var row models.SavedAddress
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) Create(ctx context.Context, address *models.SavedAddress) error {
	return r.db.WithContext(ctx).Create(address).Error
}

func (r *repositoryImpl) Update(ctx context.Context, address *models.SavedAddress) error {
	return r.db.WithContext(ctx).Save(address).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.SavedAddress{}, "id = ?", id).Error
}

func (r *repositoryImpl) ClearDefault(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.SavedAddress{}).
		Where("user_id = ? AND is_default", userID).
		UpdateColumn("is_default", false).Error
}

func (r *repositoryImpl) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SavedAddress{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
