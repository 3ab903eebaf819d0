package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/canteenx/canteenx-backend/pkg/db/models"
	"github.com/canteenx/canteenx-backend/pkg/enums"
	apperrors "github.com/canteenx/canteenx-backend/pkg/errors"
	"github.com/canteenx/canteenx-backend/pkg/outbox"
)

type fakeRepository struct {
	createFn     func(ctx context.Context, entry *models.LedgerEntry) error
	sales        map[uuid.UUID]*models.LedgerEntry
	settled      map[uuid.UUID]bool
	entries      []models.LedgerEntry
	createdCount int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		sales:   make(map[uuid.UUID]*models.LedgerEntry),
		settled: make(map[uuid.UUID]bool),
	}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, entry); err != nil {
			return err
		}
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	f.createdCount++
	f.entries = append(f.entries, *entry)
	if entry.Type == enums.LedgerEntryTypeSale && entry.OrderID != nil {
		copied := *entry
		f.sales[*entry.OrderID] = &copied
	}
	return nil
}

func (f *fakeRepository) FindSaleByOrderID(ctx context.Context, orderID uuid.UUID) (*models.LedgerEntry, error) {
	if sale, ok := f.sales[orderID]; ok {
		return sale, nil
	}
	return nil, nil
}

func (f *fakeRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, e := range f.entries {
		if e.OrderID != nil && *e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepository) HasSettledForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return f.settled[orderID], nil
}

type fakeOrderSource struct {
	orders map[uuid.UUID]*models.Order
}

func (f *fakeOrderSource) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return f.orders[id], nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func newTestService(t *testing.T, repo *fakeRepository, orders *fakeOrderSource, emitter *fakeEmitter) Service {
	t.Helper()
	svc, err := NewService(repo, orders, fakeTxRunner{}, emitter, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func eligibleOrder() *models.Order {
	return &models.Order{
		ID:              uuid.New(),
		CanteenID:       uuid.New(),
		VendorID:        uuid.New(),
		CustomerID:      uuid.New(),
		Status:          enums.OrderStatusPaid,
		OrderType:       enums.OrderTypeSelfService,
		TotalCents:      10000,
		TaxCents:        500,
		CommissionCents: 500,
		FeeRateBps:      500,
	}
}

func TestRecordSaleBreakdown(t *testing.T) {
	repo := newFakeRepository()
	order := eligibleOrder()
	orders := &fakeOrderSource{orders: map[uuid.UUID]*models.Order{order.ID: order}}
	emitter := &fakeEmitter{}
	svc := newTestService(t, repo, orders, emitter)

	entry, err := svc.RecordSale(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
	if entry.GrossCents != 10000 || entry.TaxCents != 500 || entry.PlatformFeeCents != 500 {
		t.Fatalf("unexpected breakdown: %+v", entry)
	}
	if entry.NetCents != 9000 {
		t.Fatalf("expected net 9000, got %d", entry.NetCents)
	}
	if entry.GrossCents != entry.NetCents+entry.TaxCents+entry.PlatformFeeCents {
		t.Fatalf("gross != net+tax+fee: %+v", entry)
	}
	if entry.SettlementStatus != enums.SettlementStatusUnsettled {
		t.Fatalf("new entries must be unsettled, got %s", entry.SettlementStatus)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventSaleRecorded {
		t.Fatalf("expected one sale_recorded event, got %+v", emitter.events)
	}
}

func TestRecordSaleExactlyOnce(t *testing.T) {
	repo := newFakeRepository()
	order := eligibleOrder()
	orders := &fakeOrderSource{orders: map[uuid.UUID]*models.Order{order.ID: order}}
	emitter := &fakeEmitter{}
	svc := newTestService(t, repo, orders, emitter)

	first, err := svc.RecordSale(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("first RecordSale: %v", err)
	}
	second, err := svc.RecordSale(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("duplicate RecordSale should succeed quietly: %v", err)
	}
	if repo.createdCount != 1 {
		t.Fatalf("expected exactly one insert, got %d", repo.createdCount)
	}
	if second.ID != first.ID {
		t.Fatalf("duplicate call should surface the original entry")
	}
	if len(emitter.events) != 1 {
		t.Fatalf("duplicate call must not emit a second event, got %d", len(emitter.events))
	}
}

func TestRecordSaleRaceLoserReturnsWinner(t *testing.T) {
	repo := newFakeRepository()
	order := eligibleOrder()
	orders := &fakeOrderSource{orders: map[uuid.UUID]*models.Order{order.ID: order}}
	emitter := &fakeEmitter{}
	svc := newTestService(t, repo, orders, emitter)

	winner := &models.LedgerEntry{ID: uuid.New(), OrderID: &order.ID, Type: enums.LedgerEntryTypeSale, GrossCents: 10000}
	calls := 0
	repo.createFn = func(ctx context.Context, entry *models.LedgerEntry) error {
		calls++
		// Simulate another transaction committing between check and insert.
		repo.sales[order.ID] = winner
		return errUniqueSale{}
	}

	entry, err := svc.RecordSale(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("race loser should not error: %v", err)
	}
	if entry.ID != winner.ID {
		t.Fatalf("expected winner entry, got %+v", entry)
	}
	if calls != 1 {
		t.Fatalf("expected one insert attempt, got %d", calls)
	}
}

type errUniqueSale struct{}

func (errUniqueSale) Error() string {
	return `duplicate key value violates unique constraint "ux_ledger_entries_sale_order"`
}

func TestRecordSaleIneligiblePreOrder(t *testing.T) {
	repo := newFakeRepository()
	order := eligibleOrder()
	order.OrderType = enums.OrderTypePreOrder
	order.Status = enums.OrderStatusPaid
	orders := &fakeOrderSource{orders: map[uuid.UUID]*models.Order{order.ID: order}}
	svc := newTestService(t, repo, orders, &fakeEmitter{})

	_, err := svc.RecordSale(context.Background(), order.ID)
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected state conflict for paid-but-unaccepted pre-order, got %v", err)
	}

	order.Status = enums.OrderStatusAccepted
	if _, err := svc.RecordSale(context.Background(), order.ID); err != nil {
		t.Fatalf("accepted pre-order should be eligible: %v", err)
	}
}

func TestRecordRefundProportionalBreakdown(t *testing.T) {
	repo := newFakeRepository()
	order := eligibleOrder()
	orders := &fakeOrderSource{orders: map[uuid.UUID]*models.Order{order.ID: order}}
	emitter := &fakeEmitter{}
	svc := newTestService(t, repo, orders, emitter)

	if _, err := svc.RecordSale(context.Background(), order.ID); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}

	breakdown, err := svc.RecordRefund(context.Background(), order.ID, 5000, "half spoiled")
	if err != nil {
		t.Fatalf("RecordRefund: %v", err)
	}
	if breakdown.Ratio.String() != "0.5" {
		t.Fatalf("expected ratio 0.5, got %s", breakdown.Ratio)
	}
	if breakdown.TaxCents != 250 || breakdown.PlatformFeeCents != 250 || breakdown.NetCents != 4500 {
		t.Fatalf("unexpected breakdown: %+v", breakdown)
	}

	entry := breakdown.Entry
	if entry.GrossCents != -5000 || entry.TaxCents != -250 || entry.PlatformFeeCents != -250 || entry.NetCents != -4500 {
		t.Fatalf("entry must carry negated amounts: %+v", entry)
	}
	if entry.NetCents+entry.TaxCents+entry.PlatformFeeCents != -5000 {
		t.Fatalf("negated breakdown must sum to -refund: %+v", entry)
	}
}

func TestRecordRefundValidatesBounds(t *testing.T) {
	repo := newFakeRepository()
	order := eligibleOrder()
	orders := &fakeOrderSource{orders: map[uuid.UUID]*models.Order{order.ID: order}}
	svc := newTestService(t, repo, orders, &fakeEmitter{})

	if _, err := svc.RecordSale(context.Background(), order.ID); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}

	if _, err := svc.RecordRefund(context.Background(), order.ID, 0, ""); err == nil {
		t.Fatal("zero refund must be rejected")
	}
	if _, err := svc.RecordRefund(context.Background(), order.ID, -100, ""); err == nil {
		t.Fatal("negative refund must be rejected")
	}
	_, err := svc.RecordRefund(context.Background(), order.ID, 10001, "")
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeValidation {
		t.Fatalf("over-gross refund must be a validation error, got %v", err)
	}
	if _, err := svc.RecordRefund(context.Background(), order.ID, 10000, "full"); err != nil {
		t.Fatalf("full refund equal to gross must pass: %v", err)
	}
}

func TestRecordRefundBlockedWhenSettled(t *testing.T) {
	repo := newFakeRepository()
	order := eligibleOrder()
	orders := &fakeOrderSource{orders: map[uuid.UUID]*models.Order{order.ID: order}}
	svc := newTestService(t, repo, orders, &fakeEmitter{})

	if _, err := svc.RecordSale(context.Background(), order.ID); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
	repo.settled[order.ID] = true

	_, err := svc.RecordRefund(context.Background(), order.ID, 1000, "late complaint")
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected state conflict on settled order, got %v", err)
	}
	if repo.createdCount != 1 {
		t.Fatalf("refund entry must not be written, inserts=%d", repo.createdCount)
	}
}

func TestRecordRefundWithoutSale(t *testing.T) {
	repo := newFakeRepository()
	order := eligibleOrder()
	orders := &fakeOrderSource{orders: map[uuid.UUID]*models.Order{order.ID: order}}
	svc := newTestService(t, repo, orders, &fakeEmitter{})

	_, err := svc.RecordRefund(context.Background(), order.ID, 1000, "")
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeNotFound {
		t.Fatalf("expected not found without a sale, got %v", err)
	}
}

func TestRecordRefundRoundsOddAmounts(t *testing.T) {
	repo := newFakeRepository()
	order := eligibleOrder()
	order.TotalCents = 9999
	order.TaxCents = 333
	order.CommissionCents = 333
	orders := &fakeOrderSource{orders: map[uuid.UUID]*models.Order{order.ID: order}}
	svc := newTestService(t, repo, orders, &fakeEmitter{})

	if _, err := svc.RecordSale(context.Background(), order.ID); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}

	breakdown, err := svc.RecordRefund(context.Background(), order.ID, 3333, "third")
	if err != nil {
		t.Fatalf("RecordRefund: %v", err)
	}
	// Whatever the rounding, net must absorb it so the total is exact.
	if breakdown.NetCents+breakdown.TaxCents+breakdown.PlatformFeeCents != 3333 {
		t.Fatalf("breakdown must sum to refund amount: %+v", breakdown)
	}
	entry := breakdown.Entry
	if entry.GrossCents != -3333 {
		t.Fatalf("entry gross must be the negated amount: %+v", entry)
	}
}
