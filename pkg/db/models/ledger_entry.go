package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/canteenx/canteenx-backend/pkg/enums"
)

// LedgerEntry records an immutable financial fact for a vendor. Rows are
// append-only; the only permitted update is the settlement sweep setting
// SettlementStatus and SettlementBatchID. A partial unique index on
// (order_id) WHERE type = 'sale' makes sale recording exactly-once.
type LedgerEntry struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID          uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null"`
	OrderID           *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	Type              enums.LedgerEntryType  `gorm:"column:type;type:ledger_entry_type;not null"`
	GrossCents        int                    `gorm:"column:gross_cents;not null"`
	TaxCents          int                    `gorm:"column:tax_cents;not null"`
	PlatformFeeCents  int                    `gorm:"column:platform_fee_cents;not null"`
	NetCents          int                    `gorm:"column:net_cents;not null"`
	OrderType         enums.OrderType        `gorm:"column:order_type;type:order_type;not null"`
	FeeRateBps        int                    `gorm:"column:fee_rate_bps;not null"`
	SettlementStatus  enums.SettlementStatus `gorm:"column:settlement_status;type:settlement_status;not null;default:'unsettled'"`
	SettlementBatchID *uuid.UUID             `gorm:"column:settlement_batch_id;type:uuid"`
	OccurredAt        time.Time              `gorm:"column:occurred_at;not null"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
}
