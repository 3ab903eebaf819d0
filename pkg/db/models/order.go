package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/canteenx/canteenx-backend/pkg/enums"
)

// Order represents one purchase transaction placed against a vendor stall.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CanteenID       uuid.UUID         `gorm:"column:canteen_id;type:uuid;not null"`
	VendorID        uuid.UUID         `gorm:"column:vendor_id;type:uuid;not null"`
	CustomerID      uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending_payment'"`
	OrderType       enums.OrderType   `gorm:"column:order_type;type:order_type;not null;default:'self_service'"`
	TotalCents      int               `gorm:"column:total_cents;not null"`
	TaxCents        int               `gorm:"column:tax_cents;not null;default:0"`
	CommissionCents int               `gorm:"column:commission_cents;not null;default:0"`
	VendorTakeCents int               `gorm:"column:vendor_take_cents;not null;default:0"`
	FeeRateBps      int               `gorm:"column:fee_rate_bps;not null;default:0"`
	IdempotencyKey  string            `gorm:"column:idempotency_key;type:text;not null;uniqueIndex:ux_orders_idempotency_key"`
	Notes           *string           `gorm:"column:notes"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment         *Payment          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PlacedAt        time.Time         `gorm:"column:placed_at;not null"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
