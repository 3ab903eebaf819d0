package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/canteenx/canteenx-backend/pkg/enums"
)

// SettlementBatch freezes one vendor's unsettled ledger entries over a
// half-open period [PeriodStart, PeriodEnd). The unique index over
// (vendor_id, period_start, period_end) is the authoritative gate against
// concurrent generation; a gist exclusion constraint over the period range
// rejects overlapping windows.
type SettlementBatch struct {
	ID                 uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID           uuid.UUID                   `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:ux_settlement_batches_vendor_period"`
	PeriodStart        time.Time                   `gorm:"column:period_start;not null;uniqueIndex:ux_settlement_batches_vendor_period"`
	PeriodEnd          time.Time                   `gorm:"column:period_end;not null;uniqueIndex:ux_settlement_batches_vendor_period"`
	FoodCents          int                         `gorm:"column:food_cents;not null"`
	TaxCents           int                         `gorm:"column:tax_cents;not null"`
	PlatformFeeCents   int                         `gorm:"column:platform_fee_cents;not null"`
	VendorPayableCents int                         `gorm:"column:vendor_payable_cents;not null"`
	OrderCount         int                         `gorm:"column:order_count;not null"`
	Status             enums.SettlementBatchStatus `gorm:"column:status;type:settlement_batch_status;not null;default:'created'"`
	GeneratedBy        uuid.UUID                   `gorm:"column:generated_by;type:uuid;not null"`
	ExportedAt         *time.Time                  `gorm:"column:exported_at"`
	Entries            []LedgerEntry               `gorm:"foreignKey:SettlementBatchID"`
	CreatedAt          time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
