package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/canteenx/canteenx-backend/pkg/config"
	"github.com/canteenx/canteenx-backend/pkg/enums"
	apperrors "github.com/canteenx/canteenx-backend/pkg/errors"
)

type fakeRepository struct {
	feeCents       int
	distinctOrders int
	taxCents       int
	vendorOwed     int
	eligible       int
	sales          int
	orphanOrders   []uuid.UUID
	orphanEntries  []uuid.UUID
	captured       int
	ledgerGross    int

	lastRange    Range
	lastVendorID *uuid.UUID
}

func (f *fakeRepository) FeeTotals(ctx context.Context, r Range) (int, int, error) {
	f.lastRange = r
	return f.feeCents, f.distinctOrders, nil
}

func (f *fakeRepository) TaxCollected(ctx context.Context, r Range) (int, error) {
	f.lastRange = r
	return f.taxCents, nil
}

func (f *fakeRepository) VendorOwed(ctx context.Context, vendorID *uuid.UUID) (int, error) {
	f.lastVendorID = vendorID
	return f.vendorOwed, nil
}

func (f *fakeRepository) CountEligibleOrders(ctx context.Context, r Range) (int, error) {
	f.lastRange = r
	return f.eligible, nil
}

func (f *fakeRepository) CountSaleEntries(ctx context.Context, r Range) (int, error) {
	return f.sales, nil
}

func (f *fakeRepository) ListOrphanOrders(ctx context.Context, r Range, limit int) ([]uuid.UUID, error) {
	return f.orphanOrders, nil
}

func (f *fakeRepository) ListOrphanEntries(ctx context.Context, r Range, limit int) ([]uuid.UUID, error) {
	return f.orphanEntries, nil
}

func (f *fakeRepository) CapturedTotal(ctx context.Context, r Range) (int, error) {
	return f.captured, nil
}

func (f *fakeRepository) LedgerGrossTotal(ctx context.Context, r Range) (int, error) {
	return f.ledgerGross, nil
}

func newTestService(t *testing.T, repo *fakeRepository) Service {
	t.Helper()
	svc, err := NewService(repo, config.FeesConfig{PlatformFeeBps: 500, GSTRateBps: 1800}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func testRange() Range {
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	return Range{Start: start, End: start.AddDate(0, 1, 0)}
}

func TestRevenueCarvesGSTOutOfFees(t *testing.T) {
	repo := &fakeRepository{feeCents: 11800, distinctOrders: 4}
	svc := newTestService(t, repo)

	report, err := svc.Revenue(context.Background(), testRange())
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	// 11800 inclusive of 18% GST is exactly 1800 tax + 10000 net.
	if report.GSTOnFeesCents != 1800 {
		t.Fatalf("expected GST 1800, got %d", report.GSTOnFeesCents)
	}
	if report.NetPlatformRevenueCents != 10000 {
		t.Fatalf("expected net 10000, got %d", report.NetPlatformRevenueCents)
	}
	if report.AvgFeePerOrderCents != 2950 {
		t.Fatalf("expected avg 2950, got %d", report.AvgFeePerOrderCents)
	}
}

func TestRevenueRoundsGSTHalfUp(t *testing.T) {
	repo := &fakeRepository{feeCents: 10000, distinctOrders: 3}
	svc := newTestService(t, repo)

	report, err := svc.Revenue(context.Background(), testRange())
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	// 10000 * 1800 / 11800 = 1525.42..., rounds to 1525.
	if report.GSTOnFeesCents != 1525 {
		t.Fatalf("expected GST 1525, got %d", report.GSTOnFeesCents)
	}
	if report.GSTOnFeesCents+report.NetPlatformRevenueCents != 10000 {
		t.Fatal("GST and net must partition the fee exactly")
	}
	// 10000 / 3 = 3333.33..., rounds to 3333.
	if report.AvgFeePerOrderCents != 3333 {
		t.Fatalf("expected avg 3333, got %d", report.AvgFeePerOrderCents)
	}
}

func TestRevenueEmptyPeriod(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	report, err := svc.Revenue(context.Background(), testRange())
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	if report.PlatformFeeCents != 0 || report.GSTOnFeesCents != 0 || report.AvgFeePerOrderCents != 0 {
		t.Fatalf("empty period must report zeros: %+v", report)
	}
}

func TestRevenuePassesFiltersThrough(t *testing.T) {
	repo := &fakeRepository{feeCents: 11800, distinctOrders: 4}
	svc := newTestService(t, repo)

	vendorID := uuid.New()
	orderType := enums.OrderTypePreOrder
	status := enums.SettlementStatusUnsettled
	r := testRange()
	r.VendorID = &vendorID
	r.OrderType = &orderType
	r.SettlementStatus = &status

	if _, err := svc.Revenue(context.Background(), r); err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	if repo.lastRange.VendorID == nil || *repo.lastRange.VendorID != vendorID {
		t.Fatalf("vendor filter not forwarded: %+v", repo.lastRange)
	}
	if repo.lastRange.OrderType == nil || *repo.lastRange.OrderType != orderType {
		t.Fatalf("order-type filter not forwarded: %+v", repo.lastRange)
	}
	if repo.lastRange.SettlementStatus == nil || *repo.lastRange.SettlementStatus != status {
		t.Fatalf("settlement-status filter not forwarded: %+v", repo.lastRange)
	}
}

func TestLiabilities(t *testing.T) {
	repo := &fakeRepository{taxCents: 4200, vendorOwed: 88000}
	svc := newTestService(t, repo)

	report, err := svc.Liabilities(context.Background(), testRange())
	if err != nil {
		t.Fatalf("Liabilities: %v", err)
	}
	if report.TaxCollectedCents != 4200 || report.VendorOwedCents != 88000 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if repo.lastVendorID != nil {
		t.Fatal("unfiltered liabilities must query all vendors")
	}
}

func TestLiabilitiesScopedToVendor(t *testing.T) {
	repo := &fakeRepository{vendorOwed: 5000}
	svc := newTestService(t, repo)

	vendorID := uuid.New()
	r := testRange()
	r.VendorID = &vendorID

	if _, err := svc.Liabilities(context.Background(), r); err != nil {
		t.Fatalf("Liabilities: %v", err)
	}
	if repo.lastVendorID == nil || *repo.lastVendorID != vendorID {
		t.Fatal("vendor filter must reach the owed query")
	}
}

func TestReconcilePass(t *testing.T) {
	repo := &fakeRepository{eligible: 12, sales: 12, captured: 120000, ledgerGross: 120000}
	svc := newTestService(t, repo)

	report, err := svc.Reconcile(context.Background(), testRange())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.Status != ReconciliationPass {
		t.Fatalf("expected pass, got %s", report.Status)
	}
	if report.Delta != 0 {
		t.Fatalf("expected zero delta, got %d", report.Delta)
	}
}

func TestReconcileFailOnDelta(t *testing.T) {
	repo := &fakeRepository{
		eligible:     12,
		sales:        10,
		orphanOrders: []uuid.UUID{uuid.New(), uuid.New()},
		captured:     120000,
		ledgerGross:  100000,
	}
	svc := newTestService(t, repo)

	report, err := svc.Reconcile(context.Background(), testRange())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.Status != ReconciliationFail {
		t.Fatalf("expected fail, got %s", report.Status)
	}
	if report.Delta != 2 {
		t.Fatalf("expected delta 2, got %d", report.Delta)
	}
	if report.DriftCents != 20000 {
		t.Fatalf("expected drift 20000, got %d", report.DriftCents)
	}
}

func TestReconcileFailOnOrphanEntriesOnly(t *testing.T) {
	// Counts agree but an ineligible order has a sale entry; still a fail.
	repo := &fakeRepository{
		eligible:      5,
		sales:         5,
		orphanEntries: []uuid.UUID{uuid.New()},
	}
	svc := newTestService(t, repo)

	report, err := svc.Reconcile(context.Background(), testRange())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.Status != ReconciliationFail {
		t.Fatalf("orphan entries must fail the run, got %s", report.Status)
	}
}

func TestRangeValidation(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	r := testRange()
	r.Start, r.End = r.End, r.Start
	_, err := svc.Revenue(context.Background(), r)
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeValidation {
		t.Fatalf("inverted range must be a validation error, got %v", err)
	}

	_, err = svc.Reconcile(context.Background(), Range{})
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeValidation {
		t.Fatalf("zero range must be a validation error, got %v", err)
	}

	r = testRange()
	bogus := enums.OrderType("dine_in")
	r.OrderType = &bogus
	_, err = svc.Revenue(context.Background(), r)
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeValidation {
		t.Fatalf("unknown order type must be a validation error, got %v", err)
	}
}
