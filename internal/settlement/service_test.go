package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/canteenx/canteenx-backend/pkg/db/models"
	"github.com/canteenx/canteenx-backend/pkg/enums"
	apperrors "github.com/canteenx/canteenx-backend/pkg/errors"
	"github.com/canteenx/canteenx-backend/pkg/outbox"
)

type fakeRepository struct {
	createBatchFn func(ctx context.Context, batch *models.SettlementBatch) error
	batches       []*models.SettlementBatch
	entries       []*models.LedgerEntry
	settledWith   map[uuid.UUID]uuid.UUID
	batchUpdates  map[uuid.UUID]map[string]any
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		settledWith:  make(map[uuid.UUID]uuid.UUID),
		batchUpdates: make(map[uuid.UUID]map[string]any),
	}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) FindOverlapping(ctx context.Context, vendorID uuid.UUID, start, end time.Time) (*models.SettlementBatch, error) {
	for _, b := range f.batches {
		if b.VendorID == vendorID && b.PeriodStart.Before(end) && b.PeriodEnd.After(start) {
			return b, nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) ListUnsettledInWindow(ctx context.Context, vendorID uuid.UUID, start, end time.Time) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, e := range f.entries {
		if e.VendorID != vendorID || e.SettlementStatus != enums.SettlementStatusUnsettled {
			continue
		}
		if e.OccurredAt.Before(start) || !e.OccurredAt.Before(end) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeRepository) CreateBatch(ctx context.Context, batch *models.SettlementBatch) error {
	if f.createBatchFn != nil {
		if err := f.createBatchFn(ctx, batch); err != nil {
			return err
		}
	}
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeRepository) MarkEntriesSettled(ctx context.Context, entryIDs []uuid.UUID, batchID uuid.UUID) error {
	ids := make(map[uuid.UUID]struct{}, len(entryIDs))
	for _, id := range entryIDs {
		ids[id] = struct{}{}
	}
	for _, e := range f.entries {
		if _, ok := ids[e.ID]; ok {
			e.SettlementStatus = enums.SettlementStatusSettled
			id := batchID
			e.SettlementBatchID = &id
			f.settledWith[e.ID] = batchID
		}
	}
	return nil
}

func (f *fakeRepository) FindBatchByID(ctx context.Context, id uuid.UUID) (*models.SettlementBatch, error) {
	for _, b := range f.batches {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) UpdateBatch(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	f.batchUpdates[id] = updates
	return nil
}

func (f *fakeRepository) ListBatchesByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.SettlementBatch, error) {
	var out []models.SettlementBatch
	for _, b := range f.batches {
		if b.VendorID == vendorID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListVendorsWithUnsettled(ctx context.Context, start, end time.Time) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, e := range f.entries {
		if e.SettlementStatus != enums.SettlementStatusUnsettled {
			continue
		}
		if e.OccurredAt.Before(start) || !e.OccurredAt.Before(end) {
			continue
		}
		if _, ok := seen[e.VendorID]; !ok {
			seen[e.VendorID] = struct{}{}
			out = append(out, e.VendorID)
		}
	}
	return out, nil
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

func newTestService(t *testing.T, repo *fakeRepository, emitter *fakeEmitter) Service {
	t.Helper()
	svc, err := NewService(repo, fakeTxRunner{}, emitter, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

var (
	dayStart = time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC)
	dayEnd   = dayStart.Add(24 * time.Hour)
)

func seedEntry(repo *fakeRepository, vendorID uuid.UUID, occurredAt time.Time, gross, tax, fee int) *models.LedgerEntry {
	orderID := uuid.New()
	entry := &models.LedgerEntry{
		ID:               uuid.New(),
		VendorID:         vendorID,
		OrderID:          &orderID,
		Type:             enums.LedgerEntryTypeSale,
		GrossCents:       gross,
		TaxCents:         tax,
		PlatformFeeCents: fee,
		NetCents:         gross - tax - fee,
		OrderType:        enums.OrderTypeSelfService,
		FeeRateBps:       500,
		SettlementStatus: enums.SettlementStatusUnsettled,
		OccurredAt:       occurredAt,
	}
	repo.entries = append(repo.entries, entry)
	return entry
}

func generateInput(vendorID uuid.UUID) GenerateInput {
	return GenerateInput{
		VendorID:    vendorID,
		PeriodStart: dayStart,
		PeriodEnd:   dayEnd,
		GeneratedBy: uuid.New(),
	}
}

func TestGenerateAggregatesPeriod(t *testing.T) {
	repo := newFakeRepository()
	emitter := &fakeEmitter{}
	svc := newTestService(t, repo, emitter)

	vendorID := uuid.New()
	first := seedEntry(repo, vendorID, dayStart.Add(2*time.Hour), 10000, 500, 500)
	second := seedEntry(repo, vendorID, dayStart.Add(5*time.Hour), 6000, 300, 300)
	// Outside the half-open window; boundary end must be excluded.
	seedEntry(repo, vendorID, dayEnd, 9999, 1, 1)
	// Other vendor, same window.
	seedEntry(repo, uuid.New(), dayStart.Add(time.Hour), 7777, 1, 1)

	batch, err := svc.Generate(context.Background(), generateInput(vendorID))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if batch.FoodCents != 9000+5400 {
		t.Fatalf("unexpected food total: %d", batch.FoodCents)
	}
	if batch.TaxCents != 800 || batch.PlatformFeeCents != 800 {
		t.Fatalf("unexpected tax/fee: %d/%d", batch.TaxCents, batch.PlatformFeeCents)
	}
	if batch.VendorPayableCents != 9000+5400 {
		t.Fatalf("unexpected payable: %d", batch.VendorPayableCents)
	}
	if batch.OrderCount != 2 {
		t.Fatalf("expected 2 distinct orders, got %d", batch.OrderCount)
	}
	if batch.Status != enums.SettlementBatchStatusCreated {
		t.Fatalf("expected created, got %s", batch.Status)
	}

	if repo.settledWith[first.ID] != batch.ID || repo.settledWith[second.ID] != batch.ID {
		t.Fatal("swept entries must be linked to the batch")
	}
	if len(repo.settledWith) != 2 {
		t.Fatalf("only in-window entries may be settled, got %d", len(repo.settledWith))
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventSettlementGenerated {
		t.Fatalf("expected one settlement_generated event, got %+v", emitter.events)
	}
}

func TestGenerateNetsRefundsAgainstSales(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, &fakeEmitter{})

	vendorID := uuid.New()
	sale := seedEntry(repo, vendorID, dayStart.Add(time.Hour), 10000, 500, 500)
	refund := &models.LedgerEntry{
		ID:               uuid.New(),
		VendorID:         vendorID,
		OrderID:          sale.OrderID,
		Type:             enums.LedgerEntryTypeRefund,
		GrossCents:       -5000,
		TaxCents:         -250,
		PlatformFeeCents: -250,
		NetCents:         -4500,
		OrderType:        enums.OrderTypeSelfService,
		FeeRateBps:       500,
		SettlementStatus: enums.SettlementStatusUnsettled,
		OccurredAt:       dayStart.Add(3 * time.Hour),
	}
	repo.entries = append(repo.entries, refund)

	batch, err := svc.Generate(context.Background(), generateInput(vendorID))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if batch.VendorPayableCents != 4500 {
		t.Fatalf("refund must net against the sale, payable=%d", batch.VendorPayableCents)
	}
	if batch.OrderCount != 1 {
		t.Fatalf("sale and refund share one order, got %d", batch.OrderCount)
	}
}

func TestGenerateRejectsOverlap(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, &fakeEmitter{})

	vendorID := uuid.New()
	seedEntry(repo, vendorID, dayStart.Add(time.Hour), 10000, 500, 500)
	if _, err := svc.Generate(context.Background(), generateInput(vendorID)); err != nil {
		t.Fatalf("first Generate: %v", err)
	}

	// Exact replay and a half-overlapping window both conflict.
	_, err := svc.Generate(context.Background(), generateInput(vendorID))
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeConflict {
		t.Fatalf("expected conflict on replay, got %v", err)
	}

	shifted := generateInput(vendorID)
	shifted.PeriodStart = dayStart.Add(12 * time.Hour)
	shifted.PeriodEnd = dayEnd.Add(12 * time.Hour)
	_, err = svc.Generate(context.Background(), shifted)
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeConflict {
		t.Fatalf("expected conflict on overlap, got %v", err)
	}

	// Adjacent window sharing only the boundary instant is fine once it has
	// entries of its own.
	adjacent := generateInput(vendorID)
	adjacent.PeriodStart = dayEnd
	adjacent.PeriodEnd = dayEnd.Add(24 * time.Hour)
	seedEntry(repo, vendorID, dayEnd.Add(time.Hour), 2000, 100, 100)
	if _, err := svc.Generate(context.Background(), adjacent); err != nil {
		t.Fatalf("adjacent window must not conflict: %v", err)
	}
}

func TestGenerateRaceLoserGetsConflict(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, &fakeEmitter{})

	vendorID := uuid.New()
	seedEntry(repo, vendorID, dayStart.Add(time.Hour), 10000, 500, 500)
	repo.createBatchFn = func(ctx context.Context, batch *models.SettlementBatch) error {
		return errUniquePeriod{}
	}

	_, err := svc.Generate(context.Background(), generateInput(vendorID))
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeConflict {
		t.Fatalf("constraint violation must surface as conflict, got %v", err)
	}
	if len(repo.settledWith) != 0 {
		t.Fatal("losing generation must not settle entries")
	}
}

type errUniquePeriod struct{}

func (errUniquePeriod) Error() string {
	return `duplicate key value violates unique constraint "ux_settlement_batches_vendor_period"`
}

func TestGenerateEmptyPeriod(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, &fakeEmitter{})

	_, err := svc.Generate(context.Background(), generateInput(uuid.New()))
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("empty period must be a state conflict, got %v", err)
	}
}

func TestGenerateValidatesPeriod(t *testing.T) {
	svc := newTestService(t, newFakeRepository(), &fakeEmitter{})

	input := generateInput(uuid.New())
	input.PeriodStart, input.PeriodEnd = input.PeriodEnd, input.PeriodStart
	_, err := svc.Generate(context.Background(), input)
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeValidation {
		t.Fatalf("inverted period must be a validation error, got %v", err)
	}

	input = generateInput(uuid.New())
	input.PeriodEnd = input.PeriodStart
	_, err = svc.Generate(context.Background(), input)
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeValidation {
		t.Fatalf("zero-width period must be a validation error, got %v", err)
	}
}

func TestMarkExportedIdempotent(t *testing.T) {
	repo := newFakeRepository()
	emitter := &fakeEmitter{}
	svc := newTestService(t, repo, emitter)

	vendorID := uuid.New()
	seedEntry(repo, vendorID, dayStart.Add(time.Hour), 10000, 500, 500)
	batch, err := svc.Generate(context.Background(), generateInput(vendorID))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	exported, err := svc.MarkExported(context.Background(), batch.ID)
	if err != nil {
		t.Fatalf("MarkExported: %v", err)
	}
	if exported.Status != enums.SettlementBatchStatusExported {
		t.Fatalf("expected exported, got %s", exported.Status)
	}
	if exported.ExportedAt == nil {
		t.Fatal("exported_at must be set")
	}
	eventsAfterFirst := len(emitter.events)

	replay, err := svc.MarkExported(context.Background(), batch.ID)
	if err != nil {
		t.Fatalf("replay must succeed: %v", err)
	}
	if replay.Status != enums.SettlementBatchStatusExported {
		t.Fatalf("replay must return the exported batch, got %s", replay.Status)
	}
	if len(emitter.events) != eventsAfterFirst {
		t.Fatal("replay must not emit a second event")
	}
}

func TestMarkExportedUnknownBatch(t *testing.T) {
	svc := newTestService(t, newFakeRepository(), &fakeEmitter{})

	_, err := svc.MarkExported(context.Background(), uuid.New())
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
