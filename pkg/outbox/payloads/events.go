package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/canteenx/canteenx-backend/pkg/enums"
)

// OrderCreatedEvent signals that a customer placed a new order.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	CanteenID  uuid.UUID       `json:"canteen_id"`
	VendorID   uuid.UUID       `json:"vendor_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	OrderType  enums.OrderType `json:"order_type"`
	TotalCents int             `json:"total_cents"`
}

// OrderPaidEvent is emitted when the gateway confirms payment capture.
type OrderPaidEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	PaymentID   uuid.UUID `json:"payment_id"`
	AmountCents int       `json:"amount_cents"`
	PaidAt      time.Time `json:"paid_at"`
}

// OrderAcceptedEvent is emitted when a vendor accepts a pre-order.
type OrderAcceptedEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	VendorID uuid.UUID `json:"vendor_id"`
}

// OrderCompletedEvent is emitted when the vendor hands over the order.
type OrderCompletedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// OrderCancelledEvent is emitted whenever an order is cancelled before completion.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// PaymentFailedEvent reports a gateway failure for a pending payment.
type PaymentFailedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	PaymentID uuid.UUID `json:"payment_id"`
	Reason    string    `json:"reason,omitempty"`
}

// SaleRecordedEvent mirrors the ledger SALE entry written for an order.
type SaleRecordedEvent struct {
	EntryID          uuid.UUID `json:"entry_id"`
	OrderID          uuid.UUID `json:"order_id"`
	VendorID         uuid.UUID `json:"vendor_id"`
	GrossCents       int       `json:"gross_cents"`
	TaxCents         int       `json:"tax_cents"`
	PlatformFeeCents int       `json:"platform_fee_cents"`
	NetCents         int       `json:"net_cents"`
}

// RefundRecordedEvent mirrors the ledger REFUND entry written for an order.
type RefundRecordedEvent struct {
	EntryID     uuid.UUID `json:"entry_id"`
	OrderID     uuid.UUID `json:"order_id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	RefundCents int       `json:"refund_cents"`
	NetCents    int       `json:"net_cents"`
	Ratio       string    `json:"ratio,omitempty"`
}

// SettlementGeneratedEvent is emitted when a settlement batch freezes a period.
type SettlementGeneratedEvent struct {
	BatchID            uuid.UUID `json:"batch_id"`
	VendorID           uuid.UUID `json:"vendor_id"`
	PeriodStart        time.Time `json:"period_start"`
	PeriodEnd          time.Time `json:"period_end"`
	VendorPayableCents int       `json:"vendor_payable_cents"`
	OrderCount         int       `json:"order_count"`
}

// SettlementExportedEvent marks a batch as handed to finance.
type SettlementExportedEvent struct {
	BatchID    uuid.UUID `json:"batch_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	ExportedAt time.Time `json:"exported_at"`
}

// ReconciliationDriftEvent reports a mismatch between captured payments and
// ledger gross totals for a period.
type ReconciliationDriftEvent struct {
	VendorID         *uuid.UUID `json:"vendor_id,omitempty"`
	PeriodStart      time.Time  `json:"period_start"`
	PeriodEnd        time.Time  `json:"period_end"`
	CapturedCents    int        `json:"captured_cents"`
	LedgerGrossCents int        `json:"ledger_gross_cents"`
	DriftCents       int        `json:"drift_cents"`
}

// VendorNotificationQueuedEvent tells the notification worker to alert a vendor.
type VendorNotificationQueuedEvent struct {
	VendorID uuid.UUID              `json:"vendor_id"`
	Type     enums.NotificationType `json:"type"`
	Title    string                 `json:"title"`
	Message  string                 `json:"message"`
	Link     string                 `json:"link,omitempty"`
}
