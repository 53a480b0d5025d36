package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/pkg/enums"
)

// Cart holds a user's pending selections for one region. Lines store
// catalog identities only; prices resolve at quote or checkout time.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	RegionID  *uuid.UUID `gorm:"column:region_id;type:uuid"`
	Lines     []CartLine `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// CartLine references exactly one product or one combo. StarRating is
// the tier selected when the line was added and is part of the line's
// identity: the same product at two ratings stays two lines.
type CartLine struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID     uuid.UUID         `gorm:"column:cart_id;type:uuid;not null"`
	ProductID  *uuid.UUID        `gorm:"column:product_id;type:uuid"`
	ComboID    *uuid.UUID        `gorm:"column:combo_id;type:uuid"`
	StarRating *enums.StarRating `gorm:"column:star_rating;type:smallint"`
	Quantity   int               `gorm:"column:quantity;not null;default:1"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
