package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/pkg/enums"
)

// NotificationPreference stores one user's opt-out state for one
// notification category. Absence of a row means the user receives the
// category.
type NotificationPreference struct {
	ID         uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_notification_prefs_user_category"`
	Category   enums.NotificationCategory `gorm:"column:category;type:notification_category;not null;uniqueIndex:idx_notification_prefs_user_category"`
	Muted      bool                       `gorm:"column:muted;not null;default:false"`
	MutedUntil *time.Time                 `gorm:"column:muted_until"`
	CreatedAt  time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

// MutedAt reports whether the preference suppresses delivery at the
// given instant. A muted_until timer suppresses through its deadline
// inclusive; once elapsed it no longer suppresses.
func (n NotificationPreference) MutedAt(now time.Time) bool {
	if n.MutedUntil != nil {
		return !now.After(*n.MutedUntil)
	}
	return n.Muted
}
