package refunds

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/canteenx/canteenx-backend/internal/ledger"
	"github.com/canteenx/canteenx-backend/internal/orders"
	"github.com/canteenx/canteenx-backend/pkg/db/models"
	"github.com/canteenx/canteenx-backend/pkg/enums"
	apperrors "github.com/canteenx/canteenx-backend/pkg/errors"
	"github.com/canteenx/canteenx-backend/pkg/gateway"
	"github.com/canteenx/canteenx-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// refundRecorder is the slice of the ledger service the orchestrator needs.
type refundRecorder interface {
	RecordRefundTx(ctx context.Context, tx *gorm.DB, order *models.Order, amountCents int, reason string) (*ledger.RefundBreakdown, error)
}

// IssueRefundInput describes a full or partial refund request for an order.
type IssueRefundInput struct {
	OrderID     uuid.UUID `json:"order_id"`
	AmountCents int       `json:"amount_cents"`
	Reason      string    `json:"reason"`
}

// Result reports the ledger breakdown plus the gateway's refund handle.
type Result struct {
	Breakdown  *ledger.RefundBreakdown
	GatewayRef string
}

// Service orchestrates refunds across the gateway, the ledger, and the
// order's payment state.
type Service interface {
	IssueRefund(ctx context.Context, input IssueRefundInput) (*Result, error)
}

type service struct {
	orders  orders.Repository
	ledger  refundRecorder
	gateway gateway.Client
	tx      txRunner
	logg    *logger.Logger
}

// NewService wires the refund orchestrator. Logger may be nil.
func NewService(ordersRepo orders.Repository, ledgerSvc refundRecorder, gw gateway.Client, tx txRunner, logg *logger.Logger) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{orders: ordersRepo, ledger: ledgerSvc, gateway: gw, tx: tx, logg: logg}, nil
}

// IssueRefund writes the REFUND ledger entry, adjusts the payment and order
// state, and instructs the gateway, all against one transaction. The gateway
// call happens last inside the transaction so a gateway failure rolls back
// every local write.
func (s *service) IssueRefund(ctx context.Context, input IssueRefundInput) (*Result, error) {
	if input.OrderID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "order id is required")
	}
	if input.AmountCents <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "refund amount must be positive")
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "loading order")
		}
		if order == nil {
			return apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		if !enums.IsMoneyIn(order.Status) {
			return apperrors.New(apperrors.CodeStateConflict, "order has no captured payment to refund")
		}
		if order.Payment == nil {
			return apperrors.New(apperrors.CodeInternal, "order has no payment row")
		}

		payment := order.Payment
		remaining := payment.AmountCents - payment.RefundedCents
		if input.AmountCents > remaining {
			return apperrors.New(apperrors.CodeValidation,
				fmt.Sprintf("refund %d exceeds remaining refundable %d", input.AmountCents, remaining))
		}

		breakdown, err := s.ledger.RecordRefundTx(ctx, tx, order, input.AmountCents, input.Reason)
		if err != nil {
			return err
		}

		refundedTotal := payment.RefundedCents + input.AmountCents
		paymentStatus := enums.PaymentStatusPartiallyRefunded
		orderStatus := enums.OrderStatusPartiallyRefunded
		if refundedTotal == payment.AmountCents {
			paymentStatus = enums.PaymentStatusRefunded
			orderStatus = enums.OrderStatusRefunded
		}
		if err := repo.UpdatePayment(ctx, order.ID, map[string]any{
			"refunded_cents": refundedTotal,
			"status":         paymentStatus,
		}); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "updating payment")
		}
		if err := repo.UpdateStatus(ctx, order.ID, orderStatus); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "updating order status")
		}

		paymentRef := ""
		if payment.GatewayOrderRef != nil {
			paymentRef = *payment.GatewayOrderRef
		}
		gwResult, err := s.gateway.Refund(ctx, gateway.RefundParams{
			PaymentRef:  paymentRef,
			AmountCents: input.AmountCents,
			Notes:       map[string]string{"order_id": order.ID.String(), "reason": input.Reason},
		})
		if err != nil {
			return err
		}

		result = &Result{Breakdown: breakdown, GatewayRef: gwResult.RefundRef}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, input.OrderID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"refund_cents": input.AmountCents,
			"gateway_ref":  result.GatewayRef,
		})
		s.logg.Info(logCtx, "refund issued")
	}
	return result, nil
}
