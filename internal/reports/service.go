package reports

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/canteenx/canteenx-backend/pkg/config"
	apperrors "github.com/canteenx/canteenx-backend/pkg/errors"
	"github.com/canteenx/canteenx-backend/pkg/logger"
)

// Service exposes the financial read models over the ledger. It never writes;
// drift follow-up (outbox events for operators) belongs to the callers that
// schedule reconciliation.
type Service interface {
	Revenue(ctx context.Context, r Range) (*RevenueReport, error)
	Liabilities(ctx context.Context, r Range) (*LiabilityReport, error)
	Reconcile(ctx context.Context, r Range) (*ReconciliationReport, error)
}

type service struct {
	repo Repository
	fees config.FeesConfig
	logg *logger.Logger
}

// NewService wires the reports service. Logger may be nil.
func NewService(repo Repository, fees config.FeesConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	return &service{repo: repo, fees: fees, logg: logg}, nil
}

// Revenue reports the platform's own earnings for the period. Collected fees
// are GST-inclusive, so the GST portion is fee * r / (10000 + r) with r in
// basis points, rounded half up.
func (s *service) Revenue(ctx context.Context, r Range) (*RevenueReport, error) {
	if err := validateRange(r); err != nil {
		return nil, err
	}

	feeCents, distinctOrders, err := s.repo.FeeTotals(ctx, r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "summing platform fees")
	}

	gst := gstPortion(feeCents, s.fees.GSTRateBps)
	avg := 0
	if distinctOrders > 0 {
		avg = int(decimal.NewFromInt(int64(feeCents)).
			Div(decimal.NewFromInt(int64(distinctOrders))).
			Round(0).IntPart())
	}

	return &RevenueReport{
		PeriodStart:             r.Start,
		PeriodEnd:               r.End,
		PlatformFeeCents:        feeCents,
		GSTOnFeesCents:          gst,
		NetPlatformRevenueCents: feeCents - gst,
		DistinctOrders:          distinctOrders,
		AvgFeePerOrderCents:     avg,
	}, nil
}

func (s *service) Liabilities(ctx context.Context, r Range) (*LiabilityReport, error) {
	if err := validateRange(r); err != nil {
		return nil, err
	}

	tax, err := s.repo.TaxCollected(ctx, r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "summing collected tax")
	}
	owed, err := s.repo.VendorOwed(ctx, r.VendorID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "summing vendor liability")
	}

	return &LiabilityReport{
		PeriodStart:       r.Start,
		PeriodEnd:         r.End,
		TaxCollectedCents: tax,
		VendorOwedCents:   owed,
	}, nil
}

// Reconcile cross-checks the orders table against the ledger. The eligible
// order count and the SALE entry count must agree exactly; any delta or
// orphan fails the run.
func (s *service) Reconcile(ctx context.Context, r Range) (*ReconciliationReport, error) {
	if err := validateRange(r); err != nil {
		return nil, err
	}

	eligible, err := s.repo.CountEligibleOrders(ctx, r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "counting eligible orders")
	}
	sales, err := s.repo.CountSaleEntries(ctx, r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "counting sale entries")
	}
	orphanOrders, err := s.repo.ListOrphanOrders(ctx, r, 100)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "listing orphan orders")
	}
	orphanEntries, err := s.repo.ListOrphanEntries(ctx, r, 100)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "listing orphan entries")
	}
	captured, err := s.repo.CapturedTotal(ctx, r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "summing captured payments")
	}
	ledgerGross, err := s.repo.LedgerGrossTotal(ctx, r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "summing ledger gross")
	}

	report := &ReconciliationReport{
		PeriodStart:        r.Start,
		PeriodEnd:          r.End,
		EligibleOrderCount: eligible,
		SaleEntryCount:     sales,
		Delta:              eligible - sales,
		Status:             ReconciliationPass,
		OrphanOrderIDs:     orphanOrders,
		OrphanEntryIDs:     orphanEntries,
		CapturedCents:      captured,
		LedgerGrossCents:   ledgerGross,
		DriftCents:         captured - ledgerGross,
	}
	if report.Delta != 0 || len(orphanOrders) > 0 || len(orphanEntries) > 0 {
		report.Status = ReconciliationFail
	}

	if report.Status == ReconciliationFail && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"delta":          report.Delta,
			"orphan_orders":  len(orphanOrders),
			"orphan_entries": len(orphanEntries),
			"drift_cents":    report.DriftCents,
		})
		s.logg.Warn(logCtx, "reconciliation failed")
	}
	return report, nil
}

// gstPortion extracts the tax share from a GST-inclusive fee, half-up.
func gstPortion(feeCents, rateBps int) int {
	if feeCents == 0 || rateBps <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(feeCents)).
		Mul(decimal.NewFromInt(int64(rateBps))).
		Div(decimal.NewFromInt(int64(10000 + rateBps))).
		Round(0).IntPart())
}

func validateRange(r Range) error {
	if r.Start.IsZero() || r.End.IsZero() {
		return apperrors.New(apperrors.CodeValidation, "period start and end are required")
	}
	if !r.Start.Before(r.End) {
		return apperrors.New(apperrors.CodeValidation, "period start must be before period end")
	}
	if r.OrderType != nil && !r.OrderType.IsValid() {
		return apperrors.New(apperrors.CodeValidation, "unknown order type filter")
	}
	if r.SettlementStatus != nil && !r.SettlementStatus.IsValid() {
		return apperrors.New(apperrors.CodeValidation, "unknown settlement status filter")
	}
	return nil
}
