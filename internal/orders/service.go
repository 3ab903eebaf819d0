package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/canteenx/canteenx-backend/pkg/config"
	dbpkg "github.com/canteenx/canteenx-backend/pkg/db"
	"github.com/canteenx/canteenx-backend/pkg/db/models"
	"github.com/canteenx/canteenx-backend/pkg/enums"
	apperrors "github.com/canteenx/canteenx-backend/pkg/errors"
	"github.com/canteenx/canteenx-backend/pkg/logger"
	"github.com/canteenx/canteenx-backend/pkg/outbox"
	"github.com/canteenx/canteenx-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// saleRecorder is the slice of the ledger service the order lifecycle needs.
type saleRecorder interface {
	RecordSaleTx(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.LedgerEntry, bool, error)
}

// Service drives the order lifecycle from placement through completion.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*models.Order, error)
	FailPayment(ctx context.Context, input FailPaymentInput) error
	Accept(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Complete(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListVendorOrders(ctx context.Context, vendorID uuid.UUID, filters ListFilters) ([]models.Order, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, filters ListFilters) ([]models.Order, error)
}

type service struct {
	repo     Repository
	ledger   saleRecorder
	tx       txRunner
	outbox   outboxPublisher
	fees     config.FeesConfig
	provider string
	logg     *logger.Logger
}

// NewService wires the order service. Logger may be nil.
func NewService(repo Repository, ledger saleRecorder, tx txRunner, outbox outboxPublisher, fees config.FeesConfig, gateway config.GatewayConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		ledger:   ledger,
		tx:       tx,
		outbox:   outbox,
		fees:     fees,
		provider: gateway.Provider,
		logg:     logg,
	}, nil
}

// orderTransitions is the authoritative state machine. A status missing from
// the map is terminal.
var orderTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPendingPayment: {enums.OrderStatusPaid, enums.OrderStatusFailed, enums.OrderStatusCancelled},
	enums.OrderStatusPaid:           {enums.OrderStatusAccepted, enums.OrderStatusCompleted, enums.OrderStatusCancelled, enums.OrderStatusRefunded, enums.OrderStatusPartiallyRefunded},
	enums.OrderStatusAccepted:       {enums.OrderStatusCompleted, enums.OrderStatusRefunded, enums.OrderStatusPartiallyRefunded},
	enums.OrderStatusPartiallyRefunded: {
		enums.OrderStatusCompleted,
		enums.OrderStatusRefunded,
	},
}

// CanTransition reports whether an order may move between the two statuses.
// Legacy synonyms are canonicalized before the lookup.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range orderTransitions[from.Canonical()] {
		if next == to.Canonical() {
			return true
		}
	}
	return false
}

// CreateOrder inserts a new order. The client idempotency key is unique per
// order; reusing one is a conflict, never a silent replay.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreateOrder(input); err != nil {
		return nil, err
	}

	if existing, err := s.repo.FindByIdempotencyKey(ctx, input.IdempotencyKey); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "checking idempotency key")
	} else if existing != nil {
		return nil, duplicateKeyError(existing)
	}

	subtotal := 0
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, it := range input.Items {
		lineTotal := it.Qty * it.UnitPriceCents
		subtotal += lineTotal
		items = append(items, models.OrderItem{
			Name:           it.Name,
			Qty:            it.Qty,
			UnitPriceCents: it.UnitPriceCents,
			TotalCents:     lineTotal,
		})
	}

	total := subtotal + input.TaxCents
	commission := feeFor(total, s.fees.PlatformFeeBps)
	order := &models.Order{
		CanteenID:       input.CanteenID,
		VendorID:        input.VendorID,
		CustomerID:      input.CustomerID,
		Status:          enums.OrderStatusPendingPayment,
		OrderType:       input.OrderType,
		TotalCents:      total,
		TaxCents:        input.TaxCents,
		CommissionCents: commission,
		VendorTakeCents: total - input.TaxCents - commission,
		FeeRateBps:      s.fees.PlatformFeeBps,
		IdempotencyKey:  input.IdempotencyKey,
		Notes:           input.Notes,
		Items:           items,
		Payment: &models.Payment{
			Status:      enums.PaymentStatusPending,
			Provider:    s.provider,
			AmountCents: total,
		},
		PlacedAt: time.Now().UTC(),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			// A concurrent request won the insert between the pre-check
			// and ours. The unique index is the arbiter; the loser gets
			// the same conflict as a sequential reuse.
			if dbpkg.IsUniqueViolation(err, "ux_orders_idempotency_key") {
				winner, findErr := s.repo.FindByIdempotencyKey(ctx, input.IdempotencyKey)
				if findErr != nil {
					return apperrors.Wrap(apperrors.CodeDependency, findErr, "loading conflicting order")
				}
				return duplicateKeyError(winner)
			}
			return apperrors.Wrap(apperrors.CodeDependency, err, "inserting order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				CanteenID:  order.CanteenID,
				VendorID:   order.VendorID,
				CustomerID: order.CustomerID,
				OrderType:  order.OrderType,
				TotalCents: order.TotalCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(s.logg.WithVendorID(ctx, order.VendorID.String()), order.ID.String())
		s.logg.Info(logCtx, "order created")
	}
	return order, nil
}

func duplicateKeyError(existing *models.Order) error {
	err := apperrors.New(apperrors.CodeIdempotency, "idempotency key already used")
	if existing != nil {
		return err.WithDetails(map[string]any{"order_id": existing.ID})
	}
	return err
}

// ConfirmPayment marks the order paid and, for self-service orders, records
// the SALE entry in the same transaction. Replays after the first success
// return the order unchanged with no side effects.
func (s *service) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "order id is required")
	}

	var confirmed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "loading order")
		}
		if order == nil {
			return apperrors.New(apperrors.CodeNotFound, "order not found")
		}

		if enums.IsMoneyIn(order.Status) {
			confirmed = order
			return nil
		}
		if !CanTransition(order.Status, enums.OrderStatusPaid) {
			return apperrors.New(apperrors.CodeStateConflict,
				fmt.Sprintf("order %s in status %s cannot be confirmed", order.ID, order.Status))
		}
		if order.Payment == nil {
			return apperrors.New(apperrors.CodeInternal, "order has no payment row")
		}

		paidAt := time.Now().UTC()
		updates := map[string]any{
			"status":  enums.PaymentStatusPaid,
			"paid_at": paidAt,
		}
		if input.GatewayOrderRef != "" {
			updates["gateway_order_ref"] = input.GatewayOrderRef
		}
		if err := repo.UpdatePayment(ctx, order.ID, updates); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "updating payment")
		}
		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPaid); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "updating order status")
		}
		order.Status = enums.OrderStatusPaid
		order.Payment.Status = enums.PaymentStatusPaid
		order.Payment.PaidAt = &paidAt

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderPaidEvent{
				OrderID:     order.ID,
				VendorID:    order.VendorID,
				PaymentID:   order.Payment.ID,
				AmountCents: order.Payment.AmountCents,
				PaidAt:      paidAt,
			},
		}); err != nil {
			return err
		}

		// Self-service orders become sales the moment money is in.
		// Pre-orders wait for vendor acceptance.
		if order.OrderType == enums.OrderTypeSelfService {
			if _, _, err := s.ledger.RecordSaleTx(ctx, tx, order); err != nil {
				return err
			}
		}

		confirmed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, confirmed.ID.String())
		s.logg.Info(logCtx, "payment confirmed")
	}
	return confirmed, nil
}

func (s *service) FailPayment(ctx context.Context, input FailPaymentInput) error {
	if input.OrderID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "order id is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "loading order")
		}
		if order == nil {
			return apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		if order.Status == enums.OrderStatusFailed {
			return nil
		}
		if !CanTransition(order.Status, enums.OrderStatusFailed) {
			return apperrors.New(apperrors.CodeStateConflict,
				fmt.Sprintf("order %s in status %s cannot fail payment", order.ID, order.Status))
		}

		updates := map[string]any{"status": enums.PaymentStatusFailed}
		if input.Reason != "" {
			updates["failure_reason"] = input.Reason
		}
		if err := repo.UpdatePayment(ctx, order.ID, updates); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "updating payment")
		}
		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusFailed); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "updating order status")
		}

		var paymentID uuid.UUID
		if order.Payment != nil {
			paymentID = order.Payment.ID
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.PaymentFailedEvent{
				OrderID:   order.ID,
				PaymentID: paymentID,
				Reason:    input.Reason,
			},
		})
	})
}

// Accept moves a paid pre-order into the vendor's queue. Acceptance is the
// point where a pre-order earns its SALE entry.
func (s *service) Accept(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "order id is required")
	}

	var accepted *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "loading order")
		}
		if order == nil {
			return apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		if order.OrderType != enums.OrderTypePreOrder {
			return apperrors.New(apperrors.CodeStateConflict, "only pre-orders are accepted by vendors")
		}
		if order.Status.Canonical() == enums.OrderStatusAccepted {
			accepted = order
			return nil
		}
		if !CanTransition(order.Status, enums.OrderStatusAccepted) {
			return apperrors.New(apperrors.CodeStateConflict,
				fmt.Sprintf("order %s in status %s cannot be accepted", order.ID, order.Status))
		}

		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusAccepted); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "updating order status")
		}
		order.Status = enums.OrderStatusAccepted

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAccepted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderAcceptedEvent{
				OrderID:  order.ID,
				VendorID: order.VendorID,
			},
		}); err != nil {
			return err
		}

		if _, _, err := s.ledger.RecordSaleTx(ctx, tx, order); err != nil {
			return err
		}
		accepted = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

func (s *service) Complete(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "order id is required")
	}

	var completed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "loading order")
		}
		if order == nil {
			return apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		if order.Status == enums.OrderStatusCompleted {
			completed = order
			return nil
		}
		if !CanTransition(order.Status, enums.OrderStatusCompleted) {
			return apperrors.New(apperrors.CodeStateConflict,
				fmt.Sprintf("order %s in status %s cannot be completed", order.ID, order.Status))
		}

		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCompleted); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "updating order status")
		}
		order.Status = enums.OrderStatusCompleted

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderCompletedEvent{
				OrderID:     order.ID,
				VendorID:    order.VendorID,
				CompletedAt: time.Now().UTC(),
			},
		}); err != nil {
			return err
		}
		completed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// Cancel aborts an order before money comes in. Orders with captured payments
// go through the refund flow instead.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "order id is required")
	}

	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "loading order")
		}
		if order == nil {
			return apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		if order.Status == enums.OrderStatusCancelled {
			cancelled = order
			return nil
		}
		if enums.IsMoneyIn(order.Status) {
			return apperrors.New(apperrors.CodeStateConflict, "paid orders are cancelled through refunds")
		}
		if !CanTransition(order.Status, enums.OrderStatusCancelled) {
			return apperrors.New(apperrors.CodeStateConflict,
				fmt.Sprintf("order %s in status %s cannot be cancelled", order.ID, order.Status))
		}

		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "updating order status")
		}
		order.Status = enums.OrderStatusCancelled

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				VendorID:    order.VendorID,
				CancelledAt: time.Now().UTC(),
				Reason:      reason,
			},
		}); err != nil {
			return err
		}
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading order")
	}
	if order == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListVendorOrders(ctx context.Context, vendorID uuid.UUID, filters ListFilters) ([]models.Order, error) {
	if vendorID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "vendor id is required")
	}
	return s.repo.ListByVendor(ctx, vendorID, filters)
}

func (s *service) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, filters ListFilters) ([]models.Order, error) {
	if customerID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "customer id is required")
	}
	return s.repo.ListByCustomer(ctx, customerID, filters)
}

func validateCreateOrder(input CreateOrderInput) error {
	if input.CanteenID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "canteen id is required")
	}
	if input.VendorID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "vendor id is required")
	}
	if input.CustomerID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "customer id is required")
	}
	if !input.OrderType.IsValid() {
		return apperrors.New(apperrors.CodeValidation, "invalid order type")
	}
	if input.IdempotencyKey == "" {
		return apperrors.New(apperrors.CodeValidation, "idempotency key is required")
	}
	if len(input.Items) == 0 {
		return apperrors.New(apperrors.CodeValidation, "at least one item is required")
	}
	for _, it := range input.Items {
		if it.Name == "" {
			return apperrors.New(apperrors.CodeValidation, "item name is required")
		}
		if it.Qty <= 0 {
			return apperrors.New(apperrors.CodeValidation, "item qty must be positive")
		}
		if it.UnitPriceCents < 0 {
			return apperrors.New(apperrors.CodeValidation, "item price cannot be negative")
		}
	}
	if input.TaxCents < 0 {
		return apperrors.New(apperrors.CodeValidation, "tax cannot be negative")
	}
	return nil
}

// feeFor applies a basis-point rate with half-up rounding.
func feeFor(amountCents, rateBps int) int {
	return (amountCents*rateBps + 5000) / 10000
}
