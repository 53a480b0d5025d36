package regions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
)

// Repository exposes persistence helpers for delivery regions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, region *models.Region) error
	Update(ctx context.Context, region *models.Region) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Region, error)
	GetBySlug(ctx context.Context, slug string) (*models.Region, error)
	ListActive(ctx context.Context) ([]models.Region, error)
	ListAll(ctx context.Context) ([]models.Region, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a regions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, region *models.Region) error {
	return r.db.WithContext(ctx).Create(region).Error
}

func (r *repositoryImpl) Update(ctx context.Context, region *models.Region) error {
	return r.db.WithContext(ctx).Save(region).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Region, error) {
	var region models.Region
	if err := r.db.WithContext(ctx).First(&region, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &region, nil
}

func (r *repositoryImpl) GetBySlug(ctx context.Context, slug string) (*models.Region, error) {
	var region models.Region
	if err := r.db.WithContext(ctx).First(&region, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &region, nil
}

func (r *repositoryImpl) ListActive(ctx context.Context) ([]models.Region, error) {
	var rows []models.Region
	err := r.db.WithContext(ctx).
		Where("is_active").
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListAll(ctx context.Context) ([]models.Region, error) {
	var rows []models.Region
	err := r.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Region{}).
		Where("id = ?", id).
		UpdateColumn("is_active", active)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
