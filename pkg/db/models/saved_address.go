package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/pkg/types"
)

// SavedAddress is a user's stored drop-off location.
type SavedAddress struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID     `gorm:"column:user_id;type:uuid;not null;index"`
	Address   types.Address `gorm:"column:address;type:jsonb;not null"`
	IsDefault bool          `gorm:"column:is_default;not null;default:false"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
