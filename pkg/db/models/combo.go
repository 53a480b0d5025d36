package models

import (
	"time"

	"github.com/google/uuid"
)

// Combo bundles component products under a single fixed price.
type Combo struct {
	ID         uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string      `gorm:"column:name;not null"`
	PriceCents int64       `gorm:"column:price_cents;not null"`
	IsActive   bool        `gorm:"column:is_active;not null;default:true"`
	Slots      []ComboSlot `gorm:"foreignKey:ComboID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// ComboSlot names one component product and how many units of it the
// combo includes.
type ComboSlot struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ComboID   uuid.UUID `gorm:"column:combo_id;type:uuid;not null"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Quantity  int       `gorm:"column:quantity;not null;default:1"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
