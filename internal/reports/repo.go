package reports

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/canteenx/canteenx-backend/internal/ledger"
)

// Repository runs the read-side aggregate queries for reporting and
// reconciliation. All period arguments are half-open [Start, End); the
// optional Range filters narrow each query to one vendor, order type, or
// settlement status.
type Repository interface {
	FeeTotals(ctx context.Context, r Range) (feeCents int, distinctOrders int, err error)
	TaxCollected(ctx context.Context, r Range) (int, error)
	VendorOwed(ctx context.Context, vendorID *uuid.UUID) (int, error)
	CountEligibleOrders(ctx context.Context, r Range) (int, error)
	CountSaleEntries(ctx context.Context, r Range) (int, error)
	ListOrphanOrders(ctx context.Context, r Range, limit int) ([]uuid.UUID, error)
	ListOrphanEntries(ctx context.Context, r Range, limit int) ([]uuid.UUID, error)
	CapturedTotal(ctx context.Context, r Range) (int, error)
	LedgerGrossTotal(ctx context.Context, r Range) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reports repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FeeTotals(ctx context.Context, rng Range) (int, int, error) {
	filter, filterArgs := entryFilter(rng)
	args := append([]any{rng.Start, rng.End}, filterArgs...)

	var row struct {
		FeeCents int
		Orders   int
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(platform_fee_cents), 0) AS fee_cents,
		       COUNT(DISTINCT order_id) AS orders
		FROM ledger_entries
		WHERE occurred_at >= ? AND occurred_at < ?`+filter, args...).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.FeeCents, row.Orders, nil
}

func (r *repository) TaxCollected(ctx context.Context, rng Range) (int, error) {
	filter, filterArgs := entryFilter(rng)
	args := append([]any{rng.Start, rng.End}, filterArgs...)

	var total int
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(tax_cents), 0)
		FROM ledger_entries
		WHERE occurred_at >= ? AND occurred_at < ?`+filter, args...).
		Scan(&total).Error
	return total, err
}

func (r *repository) VendorOwed(ctx context.Context, vendorID *uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(SUM(net_cents), 0)
		FROM ledger_entries
		WHERE settlement_status = 'unsettled'`
	var args []any
	if vendorID != nil {
		query += " AND vendor_id = ?"
		args = append(args, *vendorID)
	}

	var total int
	err := r.db.WithContext(ctx).Raw(query, args...).Scan(&total).Error
	return total, err
}

func (r *repository) CountEligibleOrders(ctx context.Context, rng Range) (int, error) {
	clause, clauseArgs := ledger.EligibilityClause()
	filter, filterArgs := vendorTypeFilter(rng)
	args := append([]any{rng.Start, rng.End}, clauseArgs...)
	args = append(args, filterArgs...)

	var count int
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM orders
		WHERE placed_at >= ? AND placed_at < ? AND `+clause+filter, args...).
		Scan(&count).Error
	return count, err
}

// CountSaleEntries counts SALE rows for orders placed in the window. Keying
// both sides on placed_at keeps pre-orders accepted after the window end out
// of the comparison. Entries snapshot vendor_id and order_type, so the
// filters apply to them directly.
func (r *repository) CountSaleEntries(ctx context.Context, rng Range) (int, error) {
	filter, filterArgs := vendorTypeFilter(rng)
	args := append(filterArgs, rng.Start, rng.End)

	var count int
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM ledger_entries
		WHERE type = 'sale'`+filter+`
		  AND order_id IN (SELECT id FROM orders WHERE placed_at >= ? AND placed_at < ?)`,
		args...).
		Scan(&count).Error
	return count, err
}

func (r *repository) ListOrphanOrders(ctx context.Context, rng Range, limit int) ([]uuid.UUID, error) {
	clause, clauseArgs := ledger.EligibilityClause()
	filter, filterArgs := vendorTypeFilter(rng)
	args := append([]any{rng.Start, rng.End}, clauseArgs...)
	args = append(args, filterArgs...)
	args = append(args, reportLimit(limit))

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
		SELECT id FROM orders
		WHERE placed_at >= ? AND placed_at < ? AND `+clause+filter+`
		  AND id NOT IN (
			SELECT order_id FROM ledger_entries WHERE type = 'sale' AND order_id IS NOT NULL
		  )
		ORDER BY placed_at ASC
		LIMIT ?`, args...).
		Scan(&ids).Error
	return ids, err
}

func (r *repository) ListOrphanEntries(ctx context.Context, rng Range, limit int) ([]uuid.UUID, error) {
	clause, clauseArgs := ledger.EligibilityClause()
	filter, filterArgs := vendorTypeFilter(rng)
	args := append([]any{rng.Start, rng.End}, filterArgs...)
	args = append(args, clauseArgs...)
	args = append(args, reportLimit(limit))

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
		SELECT id FROM ledger_entries
		WHERE type = 'sale'
		  AND occurred_at >= ? AND occurred_at < ?`+filter+`
		  AND (order_id IS NULL OR order_id NOT IN (SELECT id FROM orders WHERE `+clause+`))
		ORDER BY occurred_at ASC
		LIMIT ?`, args...).
		Scan(&ids).Error
	return ids, err
}

func (r *repository) CapturedTotal(ctx context.Context, rng Range) (int, error) {
	filter, filterArgs := vendorTypeFilter(rng)
	args := append([]any{rng.Start, rng.End}, filterArgs...)

	var total int
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(amount_cents - refunded_cents), 0)
		FROM payments
		WHERE status IN ('paid', 'refunded', 'partially_refunded')
		  AND order_id IN (SELECT id FROM orders WHERE placed_at >= ? AND placed_at < ?`+filter+`)`,
		args...).
		Scan(&total).Error
	return total, err
}

func (r *repository) LedgerGrossTotal(ctx context.Context, rng Range) (int, error) {
	filter, filterArgs := vendorTypeFilter(rng)
	args := append([]any{rng.Start, rng.End}, filterArgs...)

	var total int
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(gross_cents), 0)
		FROM ledger_entries
		WHERE order_id IN (SELECT id FROM orders WHERE placed_at >= ? AND placed_at < ?`+filter+`)`,
		args...).
		Scan(&total).Error
	return total, err
}

// vendorTypeFilter renders the optional vendor and order-type filters. The
// column names are shared by orders and ledger_entries, so the fragment works
// against either table. The fragment is empty or starts with " AND".
func vendorTypeFilter(r Range) (string, []any) {
	var sql string
	var args []any
	if r.VendorID != nil {
		sql += " AND vendor_id = ?"
		args = append(args, *r.VendorID)
	}
	if r.OrderType != nil {
		sql += " AND order_type = ?"
		args = append(args, *r.OrderType)
	}
	return sql, args
}

// entryFilter adds the settlement-status filter on top of vendorTypeFilter
// for queries that run against ledger_entries alone.
func entryFilter(r Range) (string, []any) {
	sql, args := vendorTypeFilter(r)
	if r.SettlementStatus != nil {
		sql += " AND settlement_status = ?"
		args = append(args, *r.SettlementStatus)
	}
	return sql, args
}

func reportLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}
