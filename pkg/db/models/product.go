package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	"github.com/ttkdelivery/ttk-backend/pkg/types"
)

// Product represents a single orderable listing. When RequiresRating
// is set, PriceTable keys buyer star ratings to per-unit prices and
// PriceCents is ignored for pricing.
type Product struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string                `gorm:"column:name;not null"`
	Description    *string               `gorm:"column:description"`
	Category       enums.ProductCategory `gorm:"column:category;type:product_category;not null"`
	PriceCents     int64                 `gorm:"column:price_cents;not null;default:0"`
	PriceTable     types.PriceTable      `gorm:"column:price_table;type:jsonb"`
	RequiresRating bool                  `gorm:"column:requires_rating;not null;default:false"`
	RegionIDs      pq.StringArray        `gorm:"column:region_ids;type:uuid[];not null;default:ARRAY[]::uuid[]"`
	InStock        bool                  `gorm:"column:in_stock;not null;default:true"`
	IsActive       bool                  `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// AvailableInRegion reports whether the product is sold in the region.
// Products with an empty RegionIDs list are available everywhere.
func (p Product) AvailableInRegion(regionID uuid.UUID) bool {
	if len(p.RegionIDs) == 0 {
		return true
	}
	want := regionID.String()
	for _, id := range p.RegionIDs {
		if id == want {
			return true
		}
	}
	return false
}
