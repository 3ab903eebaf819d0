package reports

import (
	"time"

	"github.com/google/uuid"

	"github.com/canteenx/canteenx-backend/pkg/enums"
)

// Range is the half-open reporting window [Start, End). The remaining fields
// are optional filters; nil leaves the dimension unfiltered. SettlementStatus
// only applies to the money reports, reconciliation compares whole windows.
type Range struct {
	Start            time.Time               `json:"start"`
	End              time.Time               `json:"end"`
	VendorID         *uuid.UUID              `json:"vendor_id,omitempty"`
	OrderType        *enums.OrderType        `json:"order_type,omitempty"`
	SettlementStatus *enums.SettlementStatus `json:"settlement_status,omitempty"`
}

// RevenueReport summarizes what the platform itself earned in a period.
// Fees are GST-inclusive; GSTOnFeesCents is the tax portion carved out of
// them, not added on top.
type RevenueReport struct {
	PeriodStart             time.Time `json:"period_start"`
	PeriodEnd               time.Time `json:"period_end"`
	PlatformFeeCents        int       `json:"platform_fee_cents"`
	GSTOnFeesCents          int       `json:"gst_on_fees_cents"`
	NetPlatformRevenueCents int       `json:"net_platform_revenue_cents"`
	DistinctOrders          int       `json:"distinct_orders"`
	AvgFeePerOrderCents     int       `json:"avg_fee_per_order_cents"`
}

// LiabilityReport summarizes what the platform owes others.
type LiabilityReport struct {
	PeriodStart       time.Time `json:"period_start"`
	PeriodEnd         time.Time `json:"period_end"`
	TaxCollectedCents int       `json:"tax_collected_cents"`
	VendorOwedCents   int       `json:"vendor_owed_cents"`
}

// ReconciliationStatus is the overall verdict of a reconciliation run.
type ReconciliationStatus string

const (
	ReconciliationPass ReconciliationStatus = "pass"
	ReconciliationFail ReconciliationStatus = "fail"
)

// ReconciliationReport compares the orders table against the ledger for a
// period. Delta is eligible orders minus sale entries; a nonzero delta or
// any orphan fails the run.
type ReconciliationReport struct {
	PeriodStart        time.Time            `json:"period_start"`
	PeriodEnd          time.Time            `json:"period_end"`
	EligibleOrderCount int                  `json:"eligible_order_count"`
	SaleEntryCount     int                  `json:"sale_entry_count"`
	Delta              int                  `json:"delta"`
	Status             ReconciliationStatus `json:"status"`
	OrphanOrderIDs     []uuid.UUID          `json:"orphan_order_ids,omitempty"`
	OrphanEntryIDs     []uuid.UUID          `json:"orphan_entry_ids,omitempty"`
	CapturedCents      int                  `json:"captured_cents"`
	LedgerGrossCents   int                  `json:"ledger_gross_cents"`
	DriftCents         int                  `json:"drift_cents"`
}
