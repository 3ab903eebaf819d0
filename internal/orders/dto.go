package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/canteenx/canteenx-backend/pkg/enums"
)

// OrderItemInput is one line of a new order.
type OrderItemInput struct {
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int    `json:"unit_price_cents"`
}

// CreateOrderInput carries everything needed to place an order. TaxCents is
// quoted by the menu layer; fee and vendor take are snapshotted here from the
// platform fee rate so later rate changes never touch recorded orders.
type CreateOrderInput struct {
	CanteenID      uuid.UUID        `json:"canteen_id"`
	VendorID       uuid.UUID        `json:"vendor_id"`
	CustomerID     uuid.UUID        `json:"customer_id"`
	OrderType      enums.OrderType  `json:"order_type"`
	Items          []OrderItemInput `json:"items"`
	TaxCents       int              `json:"tax_cents"`
	IdempotencyKey string           `json:"idempotency_key"`
	Notes          *string          `json:"notes,omitempty"`
}

// ConfirmPaymentInput reports a successful gateway capture for an order.
type ConfirmPaymentInput struct {
	OrderID         uuid.UUID `json:"order_id"`
	GatewayOrderRef string    `json:"gateway_order_ref"`
}

// FailPaymentInput reports a gateway failure for a pending payment.
type FailPaymentInput struct {
	OrderID uuid.UUID `json:"order_id"`
	Reason  string    `json:"reason"`
}

// ListFilters narrows order list queries.
type ListFilters struct {
	Status     *enums.OrderStatus
	OrderType  *enums.OrderType
	PlacedFrom *time.Time
	PlacedTo   *time.Time
	Limit      int
}
