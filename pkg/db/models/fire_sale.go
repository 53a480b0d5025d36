package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/pkg/enums"
)

// FireSale is a time-boxed percentage discount scoped to either one
// product or one whole category, never both.
type FireSale struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string                 `gorm:"column:name;not null"`
	ProductID       *uuid.UUID             `gorm:"column:product_id;type:uuid"`
	Category        *enums.ProductCategory `gorm:"column:category;type:product_category"`
	DiscountPercent int                    `gorm:"column:discount_percent;not null"`
	StartsAt        *time.Time             `gorm:"column:starts_at"`
	EndsAt          *time.Time             `gorm:"column:ends_at"`
	IsActive        bool                   `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// LiveAt reports whether the sale applies at the given instant.
func (f FireSale) LiveAt(now time.Time) bool {
	if !f.IsActive {
		return false
	}
	if f.StartsAt != nil && now.Before(*f.StartsAt) {
		return false
	}
	if f.EndsAt != nil && !now.Before(*f.EndsAt) {
		return false
	}
	return true
}

// Matches reports whether the sale covers the given product.
func (f FireSale) Matches(product Product) bool {
	if f.ProductID != nil {
		return *f.ProductID == product.ID
	}
	if f.Category != nil {
		return *f.Category == product.Category
	}
	return false
}

// MatchesCombo reports whether the sale covers combo lines. Combos are
// reached only through sales scoped to the combo category; sales on
// individual component products never discount a combo's fixed price.
func (f FireSale) MatchesCombo() bool {
	return f.ProductID == nil && f.Category != nil && *f.Category == enums.ProductCategoryCombo
}
