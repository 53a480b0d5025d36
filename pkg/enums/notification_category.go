package enums

import "fmt"

// NotificationCategory maps to the notification_category enum in Postgres.
type NotificationCategory string

const (
	NotificationCategoryOrderStatus     NotificationCategory = "order_status"
	NotificationCategoryFireSale        NotificationCategory = "fire_sale"
	NotificationCategoryRegionBroadcast NotificationCategory = "region_broadcast"
	NotificationCategoryRestock         NotificationCategory = "restock"
	NotificationCategoryNewProducts     NotificationCategory = "new_products"
	NotificationCategoryPromotions      NotificationCategory = "promotions"
)

var validNotificationCategories = []NotificationCategory{
	NotificationCategoryOrderStatus,
	NotificationCategoryFireSale,
	NotificationCategoryRegionBroadcast,
	NotificationCategoryRestock,
	NotificationCategoryNewProducts,
	NotificationCategoryPromotions,
}

// String implements fmt.Stringer.
func (n NotificationCategory) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationCategory.
func (n NotificationCategory) IsValid() bool {
	for _, candidate := range validNotificationCategories {
		if candidate == n {
			return true
		}
	}
	return false
}

// NotificationCategories returns every recognized category. Callers
// must not mutate the returned slice.
func NotificationCategories() []NotificationCategory {
	return validNotificationCategories
}

// ParseNotificationCategory converts raw input into a NotificationCategory.
func ParseNotificationCategory(value string) (NotificationCategory, error) {
	for _, candidate := range validNotificationCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification category %q", value)
}
