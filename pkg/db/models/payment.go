package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/canteenx/canteenx-backend/pkg/enums"
)

// Payment tracks gateway payment state for an order; at most one per order.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_payments_order_id"`
	Status          enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Provider        string              `gorm:"column:provider;type:text;not null"`
	GatewayOrderRef *string             `gorm:"column:gateway_order_ref;type:text"`
	AmountCents     int                 `gorm:"column:amount_cents;not null"`
	RefundedCents   int                 `gorm:"column:refunded_cents;not null;default:0"`
	FailureReason   *string             `gorm:"column:failure_reason"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
