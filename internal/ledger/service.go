package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/canteenx/canteenx-backend/pkg/db"
	"github.com/canteenx/canteenx-backend/pkg/db/models"
	"github.com/canteenx/canteenx-backend/pkg/enums"
	apperrors "github.com/canteenx/canteenx-backend/pkg/errors"
	"github.com/canteenx/canteenx-backend/pkg/logger"
	"github.com/canteenx/canteenx-backend/pkg/metrics"
	"github.com/canteenx/canteenx-backend/pkg/outbox"
	"github.com/canteenx/canteenx-backend/pkg/outbox/payloads"
)

// Service records immutable financial facts for vendors.
type Service interface {
	RecordSale(ctx context.Context, orderID uuid.UUID) (*models.LedgerEntry, error)
	RecordSaleTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.LedgerEntry, bool, error)
	RecordRefund(ctx context.Context, orderID uuid.UUID, amountCents int, reason string) (*RefundBreakdown, error)
	RecordRefundTx(ctx context.Context, tx *gorm.DB, order *models.Order, amountCents int, reason string) (*RefundBreakdown, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEntry, error)
}

// OrderSource is the slice of the orders repository the ledger needs.
type OrderSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventEmitter appends domain events to the transactional outbox.
type EventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RefundBreakdown reports how a refund was split across tax, fee and net.
// The stored entry carries the negated amounts; the breakdown is positive.
type RefundBreakdown struct {
	Entry            *models.LedgerEntry
	AmountCents      int
	Ratio            decimal.Decimal
	TaxCents         int
	PlatformFeeCents int
	NetCents         int
}

type service struct {
	repo    Repository
	orders  OrderSource
	tx      TxRunner
	emitter EventEmitter
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
}

// NewService wires a ledger service with its collaborators. Metrics and
// logger may be nil.
func NewService(repo Repository, orders OrderSource, tx TxRunner, emitter EventEmitter, m *metrics.LedgerMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order source required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{repo: repo, orders: orders, tx: tx, emitter: emitter, metrics: m, logg: logg}, nil
}

func (s *service) RecordSale(ctx context.Context, orderID uuid.UUID) (*models.LedgerEntry, error) {
	if orderID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "order id is required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
	}

	var entry *models.LedgerEntry
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, _, txErr := s.RecordSaleTx(ctx, tx, order)
		if txErr != nil {
			return txErr
		}
		entry = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordSaleTx writes the SALE entry for the order inside the caller's
// transaction. The partial unique index on (order_id) WHERE type='sale' is
// the authoritative exactly-once gate; a duplicate insert returns the
// existing entry with created=false.
func (s *service) RecordSaleTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.LedgerEntry, bool, error) {
	if tx == nil {
		return nil, false, fmt.Errorf("transaction required")
	}
	if order == nil {
		return nil, false, apperrors.New(apperrors.CodeNotFound, "order not found")
	}
	if !EligibleForSale(order.OrderType, order.Status) {
		return nil, false, apperrors.New(apperrors.CodeStateConflict,
			fmt.Sprintf("order %s in status %s is not sale-eligible", order.ID, order.Status))
	}

	repo := s.repo.WithTx(tx)

	if existing, err := repo.FindSaleByOrderID(ctx, order.ID); err != nil {
		return nil, false, apperrors.Wrap(apperrors.CodeDependency, err, "checking existing sale")
	} else if existing != nil {
		s.metrics.IncSaleDuplicate()
		return existing, false, nil
	}

	gross := order.TotalCents
	tax := order.TaxCents
	fee := order.CommissionCents
	net := gross - tax - fee

	orderID := order.ID
	entry := &models.LedgerEntry{
		VendorID:         order.VendorID,
		OrderID:          &orderID,
		Type:             enums.LedgerEntryTypeSale,
		GrossCents:       gross,
		TaxCents:         tax,
		PlatformFeeCents: fee,
		NetCents:         net,
		OrderType:        order.OrderType,
		FeeRateBps:       order.FeeRateBps,
		SettlementStatus: enums.SettlementStatusUnsettled,
		OccurredAt:       time.Now().UTC(),
	}

	if err := repo.Create(ctx, entry); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_ledger_entries_sale_order") {
			// Lost the race to a concurrent recorder; surface its row.
			s.metrics.IncSaleDuplicate()
			existing, findErr := repo.FindSaleByOrderID(ctx, order.ID)
			if findErr != nil {
				return nil, false, apperrors.Wrap(apperrors.CodeDependency, findErr, "loading winning sale")
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, apperrors.Wrap(apperrors.CodeDependency, err, "inserting sale entry")
	}

	if err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSaleRecorded,
		AggregateType: enums.AggregateLedgerEntry,
		AggregateID:   entry.ID,
		Version:       1,
		Data: payloads.SaleRecordedEvent{
			EntryID:          entry.ID,
			OrderID:          order.ID,
			VendorID:         order.VendorID,
			GrossCents:       gross,
			TaxCents:         tax,
			PlatformFeeCents: fee,
			NetCents:         net,
		},
	}); err != nil {
		return nil, false, err
	}

	s.metrics.IncEntry(string(enums.LedgerEntryTypeSale))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":  order.ID.String(),
			"vendor_id": order.VendorID.String(),
			"net_cents": net,
		})
		s.logg.Info(logCtx, "sale recorded")
	}
	return entry, true, nil
}

func (s *service) RecordRefund(ctx context.Context, orderID uuid.UUID, amountCents int, reason string) (*RefundBreakdown, error) {
	if orderID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "order id is required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
	}

	var breakdown *RefundBreakdown
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		result, txErr := s.RecordRefundTx(ctx, tx, order, amountCents, reason)
		if txErr != nil {
			return txErr
		}
		breakdown = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return breakdown, nil
}

// RecordRefundTx writes a REFUND entry inside the caller's transaction. The
// refund is split proportionally against the original sale, and the entry
// stores the negated breakdown so sale + refund sums cancel exactly.
func (s *service) RecordRefundTx(ctx context.Context, tx *gorm.DB, order *models.Order, amountCents int, reason string) (*RefundBreakdown, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if order == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
	}
	if amountCents <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "refund amount must be positive")
	}

	repo := s.repo.WithTx(tx)

	sale, err := repo.FindSaleByOrderID(ctx, order.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading sale entry")
	}
	if sale == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "no sale recorded for order")
	}
	if amountCents > sale.GrossCents {
		return nil, apperrors.New(apperrors.CodeValidation,
			fmt.Sprintf("refund amount %d exceeds original gross %d", amountCents, sale.GrossCents))
	}

	settled, err := repo.HasSettledForOrder(ctx, order.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "checking settlement status")
	}
	if settled {
		return nil, apperrors.New(apperrors.CodeStateConflict,
			"order has settled ledger entries; refunds past the settlement boundary need a manual adjustment")
	}

	ratio := decimal.NewFromInt(int64(amountCents)).
		Div(decimal.NewFromInt(int64(sale.GrossCents)))
	tax := roundCents(decimal.NewFromInt(int64(sale.TaxCents)).Mul(ratio))
	fee := roundCents(decimal.NewFromInt(int64(sale.PlatformFeeCents)).Mul(ratio))
	net := amountCents - tax - fee

	orderID := order.ID
	entry := &models.LedgerEntry{
		VendorID:         sale.VendorID,
		OrderID:          &orderID,
		Type:             enums.LedgerEntryTypeRefund,
		GrossCents:       -amountCents,
		TaxCents:         -tax,
		PlatformFeeCents: -fee,
		NetCents:         -net,
		OrderType:        sale.OrderType,
		FeeRateBps:       sale.FeeRateBps,
		SettlementStatus: enums.SettlementStatusUnsettled,
		OccurredAt:       time.Now().UTC(),
	}

	if err := repo.Create(ctx, entry); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "inserting refund entry")
	}

	if err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRefundRecorded,
		AggregateType: enums.AggregateLedgerEntry,
		AggregateID:   entry.ID,
		Version:       1,
		Data: payloads.RefundRecordedEvent{
			EntryID:     entry.ID,
			OrderID:     order.ID,
			VendorID:    sale.VendorID,
			RefundCents: amountCents,
			NetCents:    -net,
			Ratio:       ratio.String(),
		},
	}); err != nil {
		return nil, err
	}

	s.metrics.IncEntry(string(enums.LedgerEntryTypeRefund))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":     order.ID.String(),
			"vendor_id":    sale.VendorID.String(),
			"refund_cents": amountCents,
			"reason":       reason,
		})
		s.logg.Info(logCtx, "refund recorded")
	}

	return &RefundBreakdown{
		Entry:            entry,
		AmountCents:      amountCents,
		Ratio:            ratio,
		TaxCents:         tax,
		PlatformFeeCents: fee,
		NetCents:         net,
	}, nil
}

func (s *service) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerEntry, error) {
	if orderID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}

// roundCents rounds half away from zero to the nearest minor unit.
func roundCents(d decimal.Decimal) int {
	return int(d.Round(0).IntPart())
}
