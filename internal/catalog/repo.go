package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ttkdelivery/ttk-backend/pkg/db/models"
	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	"github.com/ttkdelivery/ttk-backend/pkg/pagination"
)

// Repository exposes persistence for products, combos and fire sales.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListProducts(ctx context.Context, params listProductsParams) ([]models.Product, *pagination.Cursor, error)
	SetProductStock(ctx context.Context, id uuid.UUID, inStock bool) (bool, error)

	CreateCombo(ctx context.Context, combo *models.Combo) error
	UpdateCombo(ctx context.Context, combo *models.Combo) error
	GetCombo(ctx context.Context, id uuid.UUID) (*models.Combo, error)
	GetCombos(ctx context.Context, ids []uuid.UUID) ([]models.Combo, error)
	ListCombos(ctx context.Context, activeOnly bool) ([]models.Combo, error)

	CreateFireSale(ctx context.Context, sale *models.FireSale) error
	UpdateFireSale(ctx context.Context, sale *models.FireSale) error
	GetFireSale(ctx context.Context, id uuid.UUID) (*models.FireSale, error)
	ListFireSales(ctx context.Context, activeOnly bool) ([]models.FireSale, error)
	ListLiveFireSales(ctx context.Context, now time.Time) ([]models.FireSale, error)
	ExpireFireSales(ctx context.Context, now time.Time) ([]models.FireSale, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listProductsParams struct {
	Category      *enums.ProductCategory
	RegionID      *uuid.UUID
	IncludeHidden bool
	Limit         int
	Cursor        *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repositoryImpl) UpdateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *repositoryImpl) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repositoryImpl) GetProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListProducts(ctx context.Context, params listProductsParams) ([]models.Product, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("is_active")
	if !params.IncludeHidden {
		query = query.Where("category <> ?", enums.ProductCategoryHidden)
	}
	if params.Category != nil {
		query = query.Where("category = ?", *params.Category)
	}
	if params.RegionID != nil {
		query = query.Where("region_ids = ARRAY[]::uuid[] OR ? = ANY(region_ids)", *params.RegionID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var products []models.Product
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&products).Error; err != nil {
		return nil, nil, err
	}

	if len(products) > normalized {
		next := products[normalized]
		products = products[:normalized]
		return products, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return products, nil, nil
}

func (r *repositoryImpl) SetProductStock(ctx context.Context, id uuid.UUID, inStock bool) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND in_stock <> ?", id, inStock).
		UpdateColumn("in_stock", inStock)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CreateCombo(ctx context.Context, combo *models.Combo) error {
	return r.db.WithContext(ctx).Create(combo).Error
}

func (r *repositoryImpl) UpdateCombo(ctx context.Context, combo *models.Combo) error {
	return r.db.WithContext(ctx).Save(combo).Error
}

func (r *repositoryImpl) GetCombo(ctx context.Context, id uuid.UUID) (*models.Combo, error) {
	var combo models.Combo
	if err := r.db.WithContext(ctx).Preload("Slots").First(&combo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &combo, nil
}

func (r *repositoryImpl) GetCombos(ctx context.Context, ids []uuid.UUID) ([]models.Combo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Combo
	err := r.db.WithContext(ctx).Preload("Slots").Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListCombos(ctx context.Context, activeOnly bool) ([]models.Combo, error) {
	query := r.db.WithContext(ctx).Preload("Slots")
	if activeOnly {
		query = query.Where("is_active")
	}
	var rows []models.Combo
	err := query.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) CreateFireSale(ctx context.Context, sale *models.FireSale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repositoryImpl) UpdateFireSale(ctx context.Context, sale *models.FireSale) error {
	return r.db.WithContext(ctx).Save(sale).Error
}

func (r *repositoryImpl) GetFireSale(ctx context.Context, id uuid.UUID) (*models.FireSale, error) {
	var sale models.FireSale
	if err := r.db.WithContext(ctx).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repositoryImpl) ListFireSales(ctx context.Context, activeOnly bool) ([]models.FireSale, error) {
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("is_active")
	}
	var rows []models.FireSale
	err := query.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListLiveFireSales(ctx context.Context, now time.Time) ([]models.FireSale, error) {
	var rows []models.FireSale
	err := r.db.WithContext(ctx).
		Where("is_active").
		Where("starts_at IS NULL OR starts_at <= ?", now).
		Where("ends_at IS NULL OR ends_at > ?", now).
		Find(&rows).Error
	return rows, err
}

// ExpireFireSales deactivates sales whose window has closed and
// returns the rows it flipped.
func (r *repositoryImpl) ExpireFireSales(ctx context.Context, now time.Time) ([]models.FireSale, error) {
	var expired []models.FireSale
	err := r.db.WithContext(ctx).
		Where("is_active AND ends_at IS NOT NULL AND ends_at <= ?", now).
		Find(&expired).Error
	if err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(expired))
	for _, sale := range expired {
		ids = append(ids, sale.ID)
	}
	err = r.db.WithContext(ctx).
		Model(&models.FireSale{}).
		Where("id IN ?", ids).
		UpdateColumn("is_active", false).Error
	if err != nil {
		return nil, err
	}
	return expired, nil
}
