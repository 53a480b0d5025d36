package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ttkdelivery/ttk-backend/pkg/types"
)

// Region is a named delivery zone bounded by a single polygon ring.
type Region struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug      string            `gorm:"column:slug;not null;uniqueIndex"`
	Name      string            `gorm:"column:name;not null"`
	Boundary  types.PolygonRing `gorm:"column:boundary;type:jsonb;not null"`
	Areas     pq.StringArray    `gorm:"column:areas;type:text[];not null;default:ARRAY[]::text[]"`
	IsActive  bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
