package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ttkdelivery/ttk-backend/pkg/enums"
	"github.com/ttkdelivery/ttk-backend/pkg/types"
)

// Order is a priced, frozen snapshot of a cart at submission time.
// Line prices and totals never change after creation.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	RegionID        uuid.UUID         `gorm:"column:region_id;type:uuid;not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Currency        enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	SubtotalCents   int64             `gorm:"column:subtotal_cents;not null"`
	DiscountCents   int64             `gorm:"column:discount_cents;not null;default:0"`
	TotalCents      int64             `gorm:"column:total_cents;not null"`
	DeliveryAddress types.Address     `gorm:"column:delivery_address;type:jsonb;not null"`
	DriverID        *uuid.UUID        `gorm:"column:driver_id;type:uuid"`
	Notes           *string           `gorm:"column:notes"`
	Lines           []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Transitions     []OrderTransition `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CompletedAt     *time.Time        `gorm:"column:completed_at"`
	CancelledAt     *time.Time        `gorm:"column:cancelled_at"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLine is one frozen priced line. Exactly one of ProductID or
// ComboID is set. FireSaleID and FireSalePercent record the discount
// as applied, so the audit trail survives later edits to the sale row.
type OrderLine struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	ProductID       *uuid.UUID `gorm:"column:product_id;type:uuid"`
	ComboID         *uuid.UUID `gorm:"column:combo_id;type:uuid"`
	Name            string     `gorm:"column:name;not null"`
	Quantity        int        `gorm:"column:quantity;not null"`
	UnitPriceCents  int64      `gorm:"column:unit_price_cents;not null"`
	DiscountCents   int64      `gorm:"column:discount_cents;not null;default:0"`
	TotalCents      int64      `gorm:"column:total_cents;not null"`
	FireSaleID      *uuid.UUID `gorm:"column:fire_sale_id;type:uuid"`
	FireSalePercent *int       `gorm:"column:fire_sale_percent"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// OrderTransition is one append-only entry in an order's state history.
type OrderTransition struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus *enums.OrderStatus `gorm:"column:from_status;type:order_status"`
	ToStatus   enums.OrderStatus  `gorm:"column:to_status;type:order_status;not null"`
	ActorID    uuid.UUID          `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole  enums.UserRole     `gorm:"column:actor_role;type:text;not null"`
	Note       *string            `gorm:"column:note"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}
